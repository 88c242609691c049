// Package loadtest drives concurrent redemptions against a running server and
// tallies the outcome codes.
package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"checkpoint/internal/checkin/handler"
	"checkpoint/internal/checkin/token"
	"checkpoint/pkg/platform/httputil"
)

// Mode selects how tokens are spread across requests.
type Mode string

const (
	// ModeShared sends one token from every worker. Exactly one should win.
	ModeShared Mode = "shared"
	// ModeDistinct mints a token, member and device per request.
	ModeDistinct Mode = "distinct"
)

// Config controls one run.
type Config struct {
	BaseURL   string
	MeetingID string
	Secret    string
	Requests  int
	Workers   int
	Mode      Mode
	Lat       float64
	Lng       float64
	AccuracyM float64
	Timeout   time.Duration
	// ShortIDBase is the first generated six-digit short id.
	ShortIDBase int
}

// Report is the outcome histogram of a run.
type Report struct {
	Codes    map[string]int
	Elapsed  time.Duration
	Failures int
}

// Print writes the histogram sorted by code.
func (r *Report) Print(w io.Writer) {
	codes := make([]string, 0, len(r.Codes))
	for code := range r.Codes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "%-26s %d\n", code, r.Codes[code])
	}
	fmt.Fprintf(w, "%-26s %d\n", "transport_errors", r.Failures)
	fmt.Fprintf(w, "%-26s %s\n", "elapsed", r.Elapsed.Round(time.Millisecond))
}

func (c *Config) validate() error {
	switch {
	case c.MeetingID == "":
		return errors.New("meeting id is required")
	case c.Secret == "":
		return errors.New("secret is required")
	case c.Requests <= 0:
		return errors.New("requests must be positive")
	case c.Mode != ModeShared && c.Mode != ModeDistinct:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.ShortIDBase == 0 {
		c.ShortIDBase = 100000
	}
	if c.ShortIDBase+c.Requests > 999999 {
		return errors.New("too many requests for six-digit short ids")
	}
	return nil
}

// Run sends cfg.Requests redemptions and returns the tally. Transport
// failures are counted, not returned.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	issuer := token.NewIssuer(cfg.Secret, 90*time.Second)

	bodies := make([][]byte, cfg.Requests)
	var shared string
	for i := range bodies {
		if cfg.Mode == ModeDistinct || shared == "" {
			issued, err := issuer.Issue(cfg.MeetingID, "loadtest", time.Now())
			if err != nil {
				return nil, err
			}
			shared = issued.Token
		}
		body, err := json.Marshal(cfg.request(i, shared))
		if err != nil {
			return nil, err
		}
		bodies[i] = body
	}

	client := &http.Client{Timeout: cfg.Timeout}
	url := strings.TrimRight(cfg.BaseURL, "/") + "/checkin"

	var mu sync.Mutex
	report := &Report{Codes: make(map[string]int)}
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, body := range bodies {
		g.Go(func() error {
			code, err := send(gctx, client, url, body)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failures++
				return nil
			}
			report.Codes[code]++
			return nil
		})
	}
	_ = g.Wait()
	report.Elapsed = time.Since(start)
	return report, nil
}

func (c *Config) request(i int, tok string) handler.CheckinRequest {
	lat, lng, acc := c.Lat, c.Lng, c.AccuracyM
	return handler.CheckinRequest{
		Token:             tok,
		UserID:            fmt.Sprintf("%06d", c.ShortIDBase+i),
		DeviceFingerprint: fmt.Sprintf("loadtest-device-%d", i),
		Geo:               &handler.GeoInput{Lat: &lat, Lng: &lng, AccuracyM: &acc},
	}
}

// send posts one body. A 200 tallies as "ok"; errors tally by their code.
func send(ctx context.Context, client *http.Client, url string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "ok", nil
	}
	var errResp httputil.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error == "" {
		return fmt.Sprintf("http_%d", resp.StatusCode), nil
	}
	return errResp.Error, nil
}
