package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/showring/notify/internal/domain"
	"github.com/showring/notify/internal/repository"
)

// SubscriptionHandler handles recipient opt-in and opt-out.
type SubscriptionHandler struct {
	subs   repository.SubscriptionRepository
	logger *zap.Logger
}

func NewSubscriptionHandler(subs repository.SubscriptionRepository, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs, logger: logger}
}

// Create handles POST /api/v1/subscriptions
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		mapError(w, err)
		return
	}

	sub := &domain.Subscription{
		ID:           uuid.New().String(),
		TenantID:     req.TenantID,
		RecipientID:  req.RecipientID,
		Role:         req.Role,
		Endpoint:     req.Endpoint,
		EndpointKeys: req.EndpointKeys,
		Prefs:        req.Prefs,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.subs.Create(r.Context(), sub); err != nil {
		h.logger.Warn("create subscription failed", zap.Error(err))
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, sub)
}

// Delete handles DELETE /api/v1/subscriptions/{id}
//
// Unsubscribe is a soft delete: the row is deactivated and retained for
// audit, matching what the stale-subscription sweep does.
func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.subs.Deactivate(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
