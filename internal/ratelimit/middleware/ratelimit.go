package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"checkpoint/internal/checkin/device"
	"checkpoint/internal/checkin/models"
	"checkpoint/internal/ratelimit/metrics"
	rlmodels "checkpoint/internal/ratelimit/models"
	audit "checkpoint/pkg/platform/audit"
	"checkpoint/pkg/platform/circuit"
	"checkpoint/pkg/platform/httputil"
	"checkpoint/pkg/requestcontext"
)

// Store counts hits per key within a window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*rlmodels.Result, error)
}

// AuditPublisher records limit breaches.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const (
	storePrimary  = "primary"
	storeFallback = "fallback"
)

type Middleware struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	limit    int
	window   time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditor  AuditPublisher
	hasher   *device.Service
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) { m.disabled = disabled }
}

// WithFallback sets the store used while the primary's circuit is open.
func WithFallback(s Store) Option {
	return func(m *Middleware) { m.fallback = s }
}

// WithWindow overrides the one-minute window.
func WithWindow(d time.Duration) Option {
	return func(m *Middleware) { m.window = d }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) { m.metrics = mt }
}

func WithAuditor(a AuditPublisher) Option {
	return func(m *Middleware) { m.auditor = a }
}

// WithHasher hashes client IPs before they reach audit events.
func WithHasher(h *device.Service) Option {
	return func(m *Middleware) { m.hasher = h }
}

// New limits each client IP to limit requests per window, counted in primary.
func New(primary Store, limit int, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		primary: primary,
		breaker: circuit.New("ratelimit"),
		limit:   limit,
		window:  time.Minute,
		logger:  logger,
		hasher:  device.NewService(""),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit returns middleware limiting requests for class by client IP.
// Store failures fail open so an outage of the counter never blocks check-ins.
func (m *Middleware) RateLimit(class string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			result, store := m.check(ctx, rlmodels.IPKey(class, ip))
			if result == nil {
				m.metrics.IncrementDecision(class, "error", store)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if !result.Allowed {
				m.metrics.IncrementDecision(class, "rejected", store)
				m.reject(ctx, w, class, ip, result)
				return
			}
			m.metrics.IncrementDecision(class, "allowed", store)
			next.ServeHTTP(w, r)
		})
	}
}

// check asks the primary first. While the circuit is open the primary is
// still consulted so it can recover, but the fallback's answer is used. A
// nil result means no store could answer.
func (m *Middleware) check(ctx context.Context, key string) (*rlmodels.Result, string) {
	result, err := m.primary.Allow(ctx, key, m.limit, m.window)
	if err != nil {
		m.metrics.IncrementStoreErrors()
		useFallback, change := m.breaker.RecordFailure()
		if change.Opened {
			m.metrics.IncrementBreakerOpened()
			m.logger.WarnContext(ctx, "rate limit store circuit opened", "error", err)
		} else {
			m.logger.ErrorContext(ctx, "failed to check rate limit", "error", err)
		}
		if useFallback {
			return m.checkFallback(ctx, key)
		}
		return nil, storePrimary
	}

	usePrimary, change := m.breaker.RecordSuccess()
	if change.Closed {
		m.logger.InfoContext(ctx, "rate limit store circuit closed")
	}
	if usePrimary {
		return result, storePrimary
	}
	return m.checkFallback(ctx, key)
}

func (m *Middleware) checkFallback(ctx context.Context, key string) (*rlmodels.Result, string) {
	if m.fallback == nil {
		return nil, storeFallback
	}
	result, err := m.fallback.Allow(ctx, key, m.limit, m.window)
	if err != nil {
		m.logger.ErrorContext(ctx, "fallback rate limit failed", "error", err)
		return nil, storeFallback
	}
	return result, storeFallback
}

func (m *Middleware) reject(ctx context.Context, w http.ResponseWriter, class, ip string, result *rlmodels.Result) {
	ipHash := m.hasher.Hash(ip)
	m.logger.WarnContext(ctx, "rate limit exceeded",
		"request_id", requestcontext.RequestID(ctx),
		"class", class,
		"ip_hash", ipHash,
		"retry_after", result.RetryAfter,
	)
	if m.auditor != nil {
		if err := m.auditor.Emit(ctx, audit.Event{
			Action:    string(audit.EventRateLimitExceeded),
			Severity:  audit.SeverityWarning,
			Reason:    class,
			IPHash:    ipHash,
			RequestID: requestcontext.RequestID(ctx),
		}); err != nil {
			m.logger.ErrorContext(ctx, "failed to emit audit event", "error", err)
		}
	}

	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteErrorResponse(w, http.StatusTooManyRequests, httputil.ErrorResponse{
		Error:       string(models.CodeRateLimited),
		Description: models.Message(models.CodeRateLimited),
		Reason:      models.AppCode(models.CodeRateLimited),
	})
}

func addRateLimitHeaders(w http.ResponseWriter, result *rlmodels.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
