package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/showring/notify/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// mapError translates domain sentinel errors to HTTP status codes.
// All mapping lives here so individual handlers stay concise.
func mapError(w http.ResponseWriter, err error) {
	var rle *domain.RateLimitError
	switch {
	case errors.As(err, &rle):
		w.Header().Set("Retry-After", strconv.Itoa(int(rle.RetryAfter.Seconds())+1))
		respondError(w, http.StatusTooManyRequests, rle.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateEndpoint),
		errors.Is(err, domain.ErrAlreadyAcked):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidChange),
		errors.Is(err, domain.ErrInvalidSubscription),
		errors.Is(err, domain.ErrInvalidThreshold),
		errors.Is(err, domain.ErrInvalidOperator):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
