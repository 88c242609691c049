package testutil

import (
	"net/http"

	"checkpoint/pkg/requestcontext"
)

// WithClient attaches client metadata as the metadata middleware would.
func WithClient(req *http.Request, ip, userAgent string) *http.Request {
	req.Header.Set("User-Agent", userAgent)
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, userAgent))
}
