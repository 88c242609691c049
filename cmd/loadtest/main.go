// Command loadtest fires concurrent redemptions at a running server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"checkpoint/internal/loadtest"
)

const defaultRunTimeout = 5 * time.Minute

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8080", "Base URL of the service")
		meetingID = flag.String("meeting", "", "Meeting id to redeem against")
		secret    = flag.String("secret", os.Getenv("CHECKPOINT_QR_CODE_SECRET"), "Kiosk signing secret")
		requests  = flag.Int("n", 500, "Number of redemptions to send")
		workers   = flag.Int("workers", 50, "Number of concurrent workers")
		mode      = flag.String("mode", string(loadtest.ModeShared), "shared: one token for every request; distinct: one token per request")
		lat       = flag.Float64("lat", 0, "Reported latitude")
		lng       = flag.Float64("lng", 0, "Reported longitude")
		accuracy  = flag.Float64("accuracy", 10, "Reported accuracy in meters")
		timeout   = flag.Duration("timeout", 10*time.Second, "HTTP request timeout")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	report, err := loadtest.Run(ctx, loadtest.Config{
		BaseURL:   *baseURL,
		MeetingID: *meetingID,
		Secret:    *secret,
		Requests:  *requests,
		Workers:   *workers,
		Mode:      loadtest.Mode(*mode),
		Lat:       *lat,
		Lng:       *lng,
		AccuracyM: *accuracy,
		Timeout:   *timeout,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "loadtest:", err)
		os.Exit(1)
	}
	report.Print(os.Stdout)
}
