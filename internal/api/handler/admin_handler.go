package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/showring/notify/internal/ratelimiter"
	"github.com/showring/notify/internal/repository"
	"github.com/showring/notify/internal/worker"
)

// AdminHandler exposes the scheduler entry points, secret rotation, and the
// auth-surface rate-limit guard.
type AdminHandler struct {
	processor *worker.Processor
	cleaner   *worker.Cleaner
	secrets   repository.SecretsRepository
	authLimit *ratelimiter.AuthLimiter
	logger    *zap.Logger
}

func NewAdminHandler(
	processor *worker.Processor,
	cleaner *worker.Cleaner,
	secrets repository.SecretsRepository,
	authLimit *ratelimiter.AuthLimiter,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		processor: processor,
		cleaner:   cleaner,
		secrets:   secrets,
		authLimit: authLimit,
		logger:    logger,
	}
}

// Process handles POST /internal/process — the idempotent "process due
// retries now" entry point the external scheduler calls. A failed pass is
// reported but never fatal; the next tick retries.
func (h *AdminHandler) Process(w http.ResponseWriter, r *http.Request) {
	if err := h.processor.ProcessDue(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "processing pass failed, will retry on next tick")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

// Cleanup handles POST /internal/cleanup (weekly schedule).
func (h *AdminHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	h.cleaner.Run(r.Context())
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleaned"})
}

type rotateRequest struct {
	SharedSecret string `json:"shared_secret"`
	GatewayKey   string `json:"gateway_key"`
	UpdatedBy    string `json:"updated_by"`
}

// RotateSecrets handles PUT /admin/secrets — the administrative rotation
// operation. Dispatchers pick the new values up on their next send; no
// restart involved.
func (h *AdminHandler) RotateSecrets(w http.ResponseWriter, r *http.Request) {
	var req rotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SharedSecret == "" || req.GatewayKey == "" || req.UpdatedBy == "" {
		respondError(w, http.StatusUnprocessableEntity, "shared_secret, gateway_key, and updated_by are required")
		return
	}

	if err := h.secrets.Rotate(r.Context(), req.SharedSecret, req.GatewayKey, req.UpdatedBy); err != nil {
		h.logger.Error("secret rotation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "rotation failed")
		return
	}
	h.logger.Info("gateway secrets rotated", zap.String("updated_by", req.UpdatedBy))
	w.WriteHeader(http.StatusNoContent)
}

type authFailureRequest struct {
	Address string `json:"address"`
	Device  string `json:"device"`
}

// AuthFailure handles POST /internal/auth/failures — called by the passcode
// flow after each failed attempt. Once the window threshold is hit the pair
// is blocked and callers get a remaining-time message.
func (h *AdminHandler) AuthFailure(w http.ResponseWriter, r *http.Request) {
	var req authFailureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Address == "" || req.Device == "" {
		respondError(w, http.StatusUnprocessableEntity, "address and device are required")
		return
	}

	d, err := h.authLimit.RegisterFailure(r.Context(), req.Address, req.Device)
	if err != nil {
		h.logger.Error("auth limiter unavailable", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "auth limiter unavailable")
		return
	}
	writeDecision(w, d)
}

// AuthStatus handles GET /internal/auth/status?address=&device=
func (h *AdminHandler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	device := r.URL.Query().Get("device")
	if address == "" || device == "" {
		respondError(w, http.StatusBadRequest, "address and device are required")
		return
	}

	d, err := h.authLimit.Status(r.Context(), address, device)
	if err != nil {
		h.logger.Error("auth limiter unavailable", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "auth limiter unavailable")
		return
	}
	writeDecision(w, d)
}

func writeDecision(w http.ResponseWriter, d *ratelimiter.Decision) {
	if !d.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(d.RetryAfter.Seconds())+1))
		respondJSON(w, http.StatusTooManyRequests, map[string]any{
			"allowed":             false,
			"remaining":           0,
			"retry_after_seconds": int(d.RetryAfter.Seconds()),
			"error":               "too many failed attempts, try again in " + d.RetryAfter.Round(time.Second).String(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"allowed":   true,
		"remaining": d.Remaining,
	})
}
