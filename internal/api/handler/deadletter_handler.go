package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/showring/notify/internal/domain"
	"github.com/showring/notify/internal/repository"
)

// DeadLetterHandler serves the operator dashboard endpoints: quarantined
// items and tenant-scoped queue statistics.
type DeadLetterHandler struct {
	deadLetters repository.DeadLetterRepository
	queue       repository.QueueRepository
	logger      *zap.Logger
}

func NewDeadLetterHandler(
	deadLetters repository.DeadLetterRepository,
	queue repository.QueueRepository,
	logger *zap.Logger,
) *DeadLetterHandler {
	return &DeadLetterHandler{deadLetters: deadLetters, queue: queue, logger: logger}
}

// List handles GET /api/v1/dead-letters?tenant_id=&limit=
func (h *DeadLetterHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		respondError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 500 {
		limit = l
	}

	items, err := h.deadLetters.ListByTenant(r.Context(), tenantID, limit)
	if err != nil {
		h.logger.Error("dead-letter list failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list dead letters")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"data":  items,
		"count": len(items),
	})
}

type ackRequest struct {
	OperatorID string `json:"operator_id"`
}

// Acknowledge handles POST /api/v1/dead-letters/{id}/ack
//
// Acknowledgment is the only mutation a dead letter ever receives; a second
// ack is a conflict.
func (h *DeadLetterHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.OperatorID == "" {
		mapError(w, domain.ErrInvalidOperator)
		return
	}

	if err := h.deadLetters.Acknowledge(r.Context(), id, req.OperatorID, time.Now().UTC()); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/v1/stats?tenant_id=
//
// Operators see queued/failed/dead-lettered counts here; end recipients
// never see a delivery error.
func (h *DeadLetterHandler) Stats(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		respondError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	counts, err := h.queue.CountByStatus(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("queue stats failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	unacked, err := h.deadLetters.CountUnacked(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("dead-letter count failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"tenant_id":            tenantID,
		"pending":              counts[domain.StatusPending],
		"retrying":             counts[domain.StatusRetrying],
		"succeeded":            counts[domain.StatusSucceeded],
		"failed":               counts[domain.StatusFailed],
		"dead_letters_unacked": unacked,
	})
}
