package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"warehouse-engine/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError translates an engine error into an HTTP response with a
// stable machine-readable code. Validation kinds map to 409/422, lookups that
// found nothing map to 404, everything else is a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		transition *core.InvalidTransitionError
		stock      *core.InsufficientStockError
		capacity   *core.CapacityExceededError
		category   *core.LocationCategoryMismatchError
		inactive   *core.LocationInactiveError
		source     *core.SourceLocationMismatchError
		quantity   *core.QuantityMismatchError
	)
	switch {
	case errors.As(err, &transition):
		writeError(w, r, err.Error(), "INVALID_TRANSITION", http.StatusConflict)
	case errors.As(err, &stock):
		writeError(w, r, err.Error(), "INSUFFICIENT_STOCK", http.StatusUnprocessableEntity)
	case errors.As(err, &capacity):
		writeError(w, r, err.Error(), "CAPACITY_EXCEEDED", http.StatusUnprocessableEntity)
	case errors.As(err, &category):
		writeError(w, r, err.Error(), "LOCATION_CATEGORY_MISMATCH", http.StatusUnprocessableEntity)
	case errors.As(err, &inactive):
		writeError(w, r, err.Error(), "LOCATION_INACTIVE", http.StatusUnprocessableEntity)
	case errors.As(err, &source):
		writeError(w, r, err.Error(), "SOURCE_LOCATION_MISMATCH", http.StatusUnprocessableEntity)
	case errors.As(err, &quantity):
		writeError(w, r, err.Error(), "QUANTITY_MISMATCH", http.StatusUnprocessableEntity)
	case errors.Is(err, core.ErrMissingSourceLocation):
		writeError(w, r, err.Error(), "MISSING_SOURCE_LOCATION", http.StatusUnprocessableEntity)
	case errors.Is(err, core.ErrSameLocationTransfer):
		writeError(w, r, err.Error(), "SAME_LOCATION_TRANSFER", http.StatusUnprocessableEntity)
	case core.IsValidationError(err):
		// A validation kind without a dedicated code above. Still the
		// caller's fault, never a 500.
		writeError(w, r, err.Error(), "VALIDATION_FAILED", http.StatusUnprocessableEntity)
	case strings.Contains(err.Error(), "not found"):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	default:
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
