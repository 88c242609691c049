// Package handler exposes redemption over HTTP.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"checkpoint/internal/checkin/models"
	"checkpoint/internal/checkin/service"
	"checkpoint/pkg/platform/httputil"
	"checkpoint/pkg/requestcontext"
)

// Service defines the redemption operations the handler calls.
type Service interface {
	Redeem(ctx context.Context, req service.RedeemRequest) (*models.Result, error)
	RedeemBypass(ctx context.Context, req service.BypassRequest) (*models.Result, error)
}

// Handler wires redemption endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
	rules   rules
}

// New constructs a handler. shortIDPattern validates userId and
// maxAccuracyM bounds the reported accuracy accepted at the edge.
func New(svc Service, logger *slog.Logger, shortIDPattern string, maxAccuracyM float64) (*Handler, error) {
	re, err := regexp.Compile(shortIDPattern)
	if err != nil {
		return nil, fmt.Errorf("compile short id pattern: %w", err)
	}
	return &Handler{
		service: svc,
		logger:  logger,
		rules:   rules{shortID: re, maxAccuracyM: maxAccuracyM},
	}, nil
}

// Register mounts redemption endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/checkin", h.HandleCheckin)
	r.Post("/checkin/bypass", h.HandleBypass)
}

// HandleCheckin handles POST /checkin.
func (h *Handler) HandleCheckin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CheckinRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	reading, err := h.rules.checkin(req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Redeem(ctx, service.RedeemRequest{
		Token:       req.Token,
		ShortID:     req.UserID,
		Fingerprint: req.DeviceFingerprint,
		Geo:         reading,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleBypass handles POST /checkin/bypass.
func (h *Handler) HandleBypass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BypassRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.rules.common(req.Token, req.UserID, req.DeviceFingerprint); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.RedeemBypass(ctx, service.BypassRequest{
		Token:       req.Token,
		ShortID:     req.UserID,
		Fingerprint: req.DeviceFingerprint,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}
