// Command kiosk-token mints a signed kiosk token for local testing.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"checkpoint/internal/checkin/token"
	"checkpoint/internal/platform/config"
)

func main() {
	var (
		meetingID = flag.String("meeting", "", "Meeting id to embed in the token")
		kioskID   = flag.String("kiosk", "dev-kiosk", "Kiosk id to embed in the token")
		ttl       = flag.Duration("ttl", 0, "Token lifetime (default: kiosk_token_ttl_seconds)")
		secret    = flag.String("secret", "", "Signing secret (default: qr_code_secret)")
	)
	flag.Parse()

	if err := run(*meetingID, *kioskID, *ttl, *secret); err != nil {
		fmt.Fprintln(os.Stderr, "kiosk-token:", err)
		os.Exit(1)
	}
}

func run(meetingID, kioskID string, ttl time.Duration, secret string) error {
	if secret == "" || ttl == 0 {
		cfg, err := config.Load(context.Background())
		if err != nil {
			if secret == "" {
				return err
			}
			// An explicit secret only needs the defaults.
			cfg = config.New()
		}
		if secret == "" {
			secret = cfg.QRCodeSecret
		}
		if ttl == 0 {
			ttl = cfg.KioskTokenTTL()
		}
	}

	issued, err := token.NewIssuer(secret, ttl).Issue(meetingID, kioskID, time.Now())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(issued)
}
