package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkpoint/internal/checkin/handler"
	"checkpoint/pkg/platform/httputil"
)

// firstWins accepts the first use of each token and rejects replays.
func firstWins(t *testing.T) *httptest.Server {
	var mu sync.Mutex
	seen := map[string]bool{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req handler.CheckinRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		used := seen[req.Token]
		seen[req.Token] = true
		mu.Unlock()
		if used {
			httputil.WriteErrorResponse(w, http.StatusConflict, httputil.ErrorResponse{Error: "TOKEN_ALREADY_USED"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))
}

func TestRunShared(t *testing.T) {
	srv := firstWins(t)
	defer srv.Close()

	report, err := Run(context.Background(), Config{
		BaseURL: srv.URL, MeetingID: "m-1", Secret: "s", Requests: 40, Workers: 8, Mode: ModeShared,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Codes["ok"])
	assert.Equal(t, 39, report.Codes["TOKEN_ALREADY_USED"])
	assert.Zero(t, report.Failures)

	var out bytes.Buffer
	report.Print(&out)
	assert.Contains(t, out.String(), "TOKEN_ALREADY_USED")
}

func TestRunDistinct(t *testing.T) {
	srv := firstWins(t)
	defer srv.Close()

	report, err := Run(context.Background(), Config{
		BaseURL: srv.URL, MeetingID: "m-1", Secret: "s", Requests: 40, Workers: 8, Mode: ModeDistinct,
	})
	require.NoError(t, err)
	assert.Equal(t, 40, report.Codes["ok"])
}

func TestRunValidatesConfig(t *testing.T) {
	_, err := Run(context.Background(), Config{MeetingID: "m-1", Secret: "s", Requests: 1, Mode: "bogus"})
	assert.Error(t, err)
	_, err = Run(context.Background(), Config{Secret: "s", Requests: 1, Mode: ModeShared})
	assert.Error(t, err)
}
