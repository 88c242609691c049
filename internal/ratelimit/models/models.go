package models

import "time"

// Result is the outcome of one rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is whole seconds until the window resets; set when denied.
	RetryAfter int
}

// NewResult derives a Result from the hit count within the current window.
func NewResult(count int64, limit int, resetAt, now time.Time) *Result {
	r := &Result{
		Allowed: count <= int64(limit),
		Limit:   limit,
		ResetAt: resetAt,
	}
	if remaining := int64(limit) - count; remaining > 0 {
		r.Remaining = int(remaining)
	}
	if !r.Allowed {
		secs := int(resetAt.Sub(now).Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		r.RetryAfter = secs
	}
	return r
}
