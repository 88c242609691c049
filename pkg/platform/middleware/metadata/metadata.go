// Package metadata captures client IP and User-Agent into the request
// context for rate limiting, bypass detection, and hashed audit fields.
package metadata

import (
	"net"
	"net/http"
	"strings"

	"checkpoint/pkg/requestcontext"
)

// ClientMetadata returns middleware that records client metadata. Forwarding
// headers are honored only when trustProxy is set, since any client can send
// them.
func ClientMetadata(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := RemoteIP(r)
			if trustProxy {
				ip = ClientIPFromRequest(r)
			}
			ctx := requestcontext.WithClientMetadata(r.Context(), ip, r.Header.Get("User-Agent"))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIPFromRequest extracts the client IP, preferring proxy headers. It
// assumes exactly one trusted proxy in front of the server.
func ClientIPFromRequest(r *http.Request) string {
	// Entries left of the last X-Forwarded-For hop are client-controlled; the
	// last one was appended by the proxy.
	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		last := xff[len(xff)-1]
		if idx := strings.LastIndex(last, ","); idx != -1 {
			last = last[idx+1:]
		}
		if ip := strings.TrimSpace(last); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return RemoteIP(r)
}

// RemoteIP returns the connection peer address without its port.
func RemoteIP(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
