package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/showring/notify/internal/api/middleware"
	"github.com/showring/notify/internal/capture"
	"github.com/showring/notify/internal/domain"
)

// ChangeHandler receives the domain collaborator's state-change feed.
type ChangeHandler struct {
	capture *capture.Service
	logger  *zap.Logger
}

func NewChangeHandler(capture *capture.Service, logger *zap.Logger) *ChangeHandler {
	return &ChangeHandler{capture: capture, logger: logger}
}

// Create handles POST /api/v1/changes
//
// Delivery is best-effort relative to the domain write that produced the
// change: the only rejections are a malformed body and the announcement
// rate limit. Capture failures downstream of that are logged, and the feed
// still gets a 202 so the scoring flow is never blocked.
func (h *ChangeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var ch domain.StateChange
	if err := json.NewDecoder(r.Body).Decode(&ch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.capture.HandleChange(r.Context(), &ch); err != nil {
		h.logger.Warn("state change rejected",
			zap.String("kind", string(ch.Kind)),
			zap.String("tenant_id", ch.TenantID),
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
