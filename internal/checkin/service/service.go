// Package service orchestrates a redemption: verify the token, gate the
// meeting and location, resolve the identity, run the advisory pre-check, and
// commit atomically, classifying any conflict the store reports.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"checkpoint/internal/checkin/classify"
	"checkpoint/internal/checkin/device"
	"checkpoint/internal/checkin/directory"
	"checkpoint/internal/checkin/gate"
	"checkpoint/internal/checkin/metrics"
	"checkpoint/internal/checkin/models"
	"checkpoint/internal/checkin/ports"
	"checkpoint/internal/checkin/token"
	dErrors "checkpoint/pkg/domain-errors"
	audit "checkpoint/pkg/platform/audit"
	"checkpoint/pkg/requestcontext"
)

const (
	defaultCommitTimeout = 5 * time.Second
	bypassNote           = "Chromebook bypass"
)

// RedeemRequest is a located redemption attempt.
type RedeemRequest struct {
	Token       string
	ShortID     string
	Fingerprint string
	Geo         models.GeoReading
}

// BypassRequest is a redemption from a ChromeOS kiosk browser that cannot
// report location.
type BypassRequest struct {
	Token       string
	ShortID     string
	Fingerprint string
}

// Service redeems kiosk tokens.
type Service struct {
	verifier   *token.Verifier
	gate       *gate.Gate
	resolver   *directory.Resolver
	recorder   ports.Recorder
	classifier *classify.Classifier

	advisory      ports.AdvisoryReader
	auditor       ports.AuditPublisher
	device        *device.Service
	metrics       *metrics.Metrics
	logger        *slog.Logger
	tracer        trace.Tracer
	allowBypass   bool
	commitTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithAdvisoryReader enables the fast-path pre-check.
func WithAdvisoryReader(r ports.AdvisoryReader) Option {
	return func(s *Service) { s.advisory = r }
}

// WithAuditor sets the audit sink.
func WithAuditor(a ports.AuditPublisher) Option {
	return func(s *Service) { s.auditor = a }
}

// WithDevice sets the client signal hasher.
func WithDevice(d *device.Service) Option {
	return func(s *Service) { s.device = d }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithChromebookBypass enables location-free redemptions from ChromeOS.
func WithChromebookBypass(enabled bool) Option {
	return func(s *Service) { s.allowBypass = enabled }
}

// WithCommitTimeout bounds the commit when the caller set no deadline.
func WithCommitTimeout(d time.Duration) Option {
	return func(s *Service) { s.commitTimeout = d }
}

// New creates a redemption service.
func New(
	verifier *token.Verifier,
	gate *gate.Gate,
	resolver *directory.Resolver,
	recorder ports.Recorder,
	classifier *classify.Classifier,
	opts ...Option,
) (*Service, error) {
	switch {
	case verifier == nil:
		return nil, errors.New("token verifier is required")
	case gate == nil:
		return nil, errors.New("meeting gate is required")
	case resolver == nil:
		return nil, errors.New("identity resolver is required")
	case recorder == nil:
		return nil, errors.New("recorder is required")
	case classifier == nil:
		return nil, errors.New("conflict classifier is required")
	}
	s := &Service{
		verifier:      verifier,
		gate:          gate,
		resolver:      resolver,
		recorder:      recorder,
		classifier:    classifier,
		device:        device.NewService(""),
		logger:        slog.Default(),
		tracer:        otel.Tracer("checkpoint/checkin"),
		commitTimeout: defaultCommitTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Redeem processes a located redemption.
func (s *Service) Redeem(ctx context.Context, req RedeemRequest) (*models.Result, error) {
	ctx, span := s.tracer.Start(ctx, "checkin.Redeem")
	defer span.End()

	start := time.Now()
	result, err := s.redeem(ctx, req.Token, req.ShortID, req.Fingerprint, &req.Geo)
	s.finish(ctx, span, models.MethodGeo, start, err)
	return result, err
}

// RedeemBypass processes a redemption without location from a ChromeOS
// device. The token must name its kiosk.
func (s *Service) RedeemBypass(ctx context.Context, req BypassRequest) (*models.Result, error) {
	ctx, span := s.tracer.Start(ctx, "checkin.RedeemBypass")
	defer span.End()

	start := time.Now()
	var (
		result *models.Result
		err    error
	)
	switch {
	case !s.allowBypass:
		err = dErrors.New(dErrors.CodeForbidden, "Chromebook bypass is disabled.")
	case !device.IsChromeOS(requestcontext.UserAgent(ctx)):
		err = dErrors.New(dErrors.CodeForbidden, "Chromebook bypass allowed only on ChromeOS.")
	default:
		result, err = s.redeem(ctx, req.Token, req.ShortID, req.Fingerprint, nil)
	}
	s.finish(ctx, span, models.MethodOverride, start, err)
	return result, err
}

// redeem runs the pipeline. A nil reading selects the bypass path.
func (s *Service) redeem(ctx context.Context, rawToken, shortID, fingerprint string, reading *models.GeoReading) (*models.Result, error) {
	now := requestcontext.Now(ctx)

	claims, err := s.verifier.Verify(rawToken, now)
	if err != nil {
		return nil, s.reject(ctx, nil, err)
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("checkin.meeting_id", claims.MeetingID),
		attribute.String("checkin.kiosk_id", claims.KioskID),
	)

	method := models.MethodGeo
	var mc *models.MeetingContext
	if reading == nil {
		if claims.KioskID == "" {
			return nil, s.reject(ctx, claims, models.Fail(models.CodeTokenMalformed))
		}
		method = models.MethodOverride
		mc, err = s.gate.CheckActive(ctx, claims.MeetingID, now)
	} else {
		mc, err = s.gate.Check(ctx, claims.MeetingID, *reading, now)
	}
	if err != nil {
		return nil, s.reject(ctx, claims, err)
	}

	member, err := s.resolver.Resolve(ctx, shortID, mc.Strict)
	if err != nil {
		return nil, s.reject(ctx, claims, err)
	}

	fingerprint = device.NormalizeFingerprint(fingerprint)
	if !device.ValidFingerprint(fingerprint) {
		return nil, s.reject(ctx, claims, dErrors.New(dErrors.CodeValidation, "deviceFingerprint is too long or not valid UTF-8"))
	}
	if err := s.precheck(ctx, claims.Nonce, mc.MeetingID, member, fingerprint); err != nil {
		return nil, s.reject(ctx, claims, err)
	}

	r := models.Redemption{
		MeetingID:   mc.MeetingID,
		Nonce:       claims.Nonce,
		KioskID:     claims.KioskID,
		Fingerprint: fingerprint,
		Member:      member,
		Geo:         reading,
		DistanceM:   mc.DistanceM,
		Method:      method,
		IPHash:      s.device.Hash(requestcontext.ClientIP(ctx)),
		UAHash:      s.device.Hash(requestcontext.UserAgent(ctx)),
		At:          now,
	}
	if method == models.MethodOverride {
		r.Notes = bypassNote
	}

	commit, err := s.commit(ctx, r)
	if err != nil {
		var conflict *models.ConflictError
		if errors.As(err, &conflict) {
			axis, classified := s.classifier.Classify(ctx, conflict, r)
			s.metrics.IncrementConflict(string(axis))
			s.emit(ctx, audit.Event{
				Action:    string(audit.EventCheckinConflict),
				MeetingID: r.MeetingID,
				MemberID:  memberID(member),
				KioskID:   r.KioskID,
				Decision:  string(dErrors.CodeOf(classified)),
				Reason:    string(axis),
			})
			return nil, classified
		}
		return nil, err
	}

	return s.recorded(ctx, r, shortID, commit), nil
}

// precheck answers the common duplicate cases before the commit, checking in
// the commit's insert order. Only affirmative answers are acted on; read
// failures defer to the commit.
func (s *Service) precheck(ctx context.Context, nonce, meetingID string, member *models.Member, fingerprint string) error {
	if s.advisory == nil {
		return nil
	}
	consumed, err := s.advisory.NonceUsed(ctx, nonce)
	switch {
	case err != nil:
		s.advisoryFailed(ctx, "nonce", err)
	case consumed:
		return models.Fail(models.CodeTokenAlreadyUsed)
	}
	if member != nil {
		present, err := s.advisory.HasAttendance(ctx, meetingID, member.ID)
		switch {
		case err != nil:
			s.advisoryFailed(ctx, "attendance", err)
		case present:
			return models.Fail(models.CodeAlreadyCheckedIn)
		}
	}
	used, err := s.advisory.DeviceUsed(ctx, meetingID, fingerprint)
	switch {
	case err != nil:
		s.advisoryFailed(ctx, "device", err)
	case used:
		return models.Fail(models.CodeDeviceAlreadyUsed)
	}
	return nil
}

func (s *Service) advisoryFailed(ctx context.Context, check string, err error) {
	s.metrics.IncrementAdvisoryError()
	s.logger.WarnContext(ctx, "pre-check read failed, deferring to commit",
		"request_id", requestcontext.RequestID(ctx),
		"check", check,
		"error", err,
	)
}

func (s *Service) commit(ctx context.Context, r models.Redemption) (*models.Commit, error) {
	ctx, span := s.tracer.Start(ctx, "checkin.Commit")
	defer span.End()

	if _, ok := ctx.Deadline(); !ok && s.commitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.commitTimeout)
		defer cancel()
	}

	start := time.Now()
	commit, err := s.recorder.Commit(ctx, r)
	s.metrics.ObserveCommit(time.Since(start))
	if err == nil {
		return commit, nil
	}

	var conflict *models.ConflictError
	switch {
	case errors.As(err, &conflict):
		span.SetAttributes(attribute.String("checkin.conflict_axis", string(conflict.Axis)))
		return nil, err
	case errors.Is(err, context.DeadlineExceeded):
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "check-in commit timed out")
	default:
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record check-in")
	}
}

func (s *Service) recorded(ctx context.Context, r models.Redemption, shortID string, commit *models.Commit) *models.Result {
	result := &models.Result{
		Unattributed: commit.Unattributed,
		CheckedInAt:  commit.CheckedInAt,
		Method:       r.Method,
	}
	if r.Member != nil {
		result.Attendee = &models.Attendee{ID: r.Member.ShortID, Name: r.Member.Name}
	}

	event := audit.Event{
		Action:    string(audit.EventCheckinRecorded),
		MeetingID: r.MeetingID,
		MemberID:  memberID(r.Member),
		KioskID:   r.KioskID,
		IPHash:    r.IPHash,
		Decision:  string(r.Method),
	}
	if commit.Unattributed {
		s.metrics.IncrementUnattributed()
		event.Action = string(audit.EventCheckinUnattributed)
		event.Severity = audit.SeverityWarning
		event.SubjectIDHash = s.device.Hash(shortID)
		event.Reason = "short id not in directory"
		s.logger.WarnContext(ctx, "redemption recorded without a directory member",
			"request_id", requestcontext.RequestID(ctx),
			"meeting_id", r.MeetingID,
			"kiosk_id", r.KioskID,
			"subject_id_hash", event.SubjectIDHash,
		)
	}
	if !commit.Audited {
		s.emit(ctx, event)
	}

	if r.Method == models.MethodOverride {
		s.emit(ctx, audit.Event{
			Action:    string(audit.EventBypassUsed),
			Severity:  audit.SeverityWarning,
			MeetingID: r.MeetingID,
			MemberID:  memberID(r.Member),
			KioskID:   r.KioskID,
			IPHash:    r.IPHash,
		})
	}
	return result
}

// reject records a redemption-taxonomy refusal and returns err unchanged.
// Infrastructure failures are logged by finish and not audited here.
func (s *Service) reject(ctx context.Context, claims *models.Claims, err error) error {
	code := dErrors.CodeOf(err)
	if !models.IsRedemptionCode(code) {
		return err
	}
	event := audit.Event{
		Action:   string(audit.EventCheckinRejected),
		Decision: string(code),
		Reason:   models.AppCode(code),
		IPHash:   s.device.Hash(requestcontext.ClientIP(ctx)),
	}
	if claims != nil {
		event.MeetingID = claims.MeetingID
		event.KioskID = claims.KioskID
	}
	s.emit(ctx, event)
	return err
}

// emit never fails the redemption; the commit has already happened.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"request_id", event.RequestID,
			"action", event.Action,
			"meeting_id", event.MeetingID,
			"error", err,
		)
	}
}

func (s *Service) finish(ctx context.Context, span trace.Span, method models.Method, start time.Time, err error) {
	s.metrics.ObserveRedeem(time.Since(start))
	code := "ok"
	if err != nil {
		code = string(dErrors.CodeOf(err))
	}
	s.metrics.IncrementOutcome(code, string(method))
	span.SetAttributes(attribute.String("checkin.outcome", code))

	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"method", string(method),
		"code", code,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "redemption recorded", attrs...)
	case models.IsRedemptionCode(dErrors.CodeOf(err)), dErrors.CodeOf(err) == dErrors.CodeForbidden:
		s.logger.InfoContext(ctx, "redemption rejected", attrs...)
	default:
		span.SetStatus(codes.Error, code)
		s.logger.ErrorContext(ctx, "redemption failed", append(attrs, "error", err)...)
	}
}

func memberID(m *models.Member) string {
	if m == nil {
		return ""
	}
	return strconv.FormatInt(m.ID, 10)
}
