package handlers

import (
	"net/http"
	"strings"

	"ledgerpay/internal/middleware"
	"ledgerpay/internal/models"
)

// ListTransactions returns the caller's payment records, newest first.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}
	query := r.URL.Query()
	status := models.Status(strings.ToUpper(strings.TrimSpace(query.Get("status"))))
	switch status {
	case "", models.StatusInitiated, models.StatusCompleted, models.StatusConfirmed, models.StatusFailed:
	default:
		respondError(w, r, http.StatusBadRequest, "INVALID_FIELD", "unknown status filter")
		return
	}
	page := parseInt(query.Get("page"), 1)
	limit := parseInt(query.Get("limit"), 20)
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit
	records, err := h.records.ListByUser(r.Context(), userID, status, limit, offset)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if records == nil {
		records = []models.PaymentRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}
