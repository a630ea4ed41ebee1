package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"ledgerpay/internal/services"
)

type errorResponse struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
	Path      string `json:"path"`
	TraceID   string `json:"traceId"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) string {
	traceID := chimiddleware.GetReqID(r.Context())
	if traceID == "" {
		traceID = uuid.NewString()
	}
	respondJSON(w, status, errorResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Status:    status,
		ErrorCode: code,
		Message:   message,
		Path:      r.URL.Path,
		TraceID:   traceID,
	})
	return traceID
}

// respondServiceError renders a service error. System causes are logged with
// the trace id and never sent to the client.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	svcErr := services.AsError(err)
	traceID := respondError(w, r, svcErr.Kind.HTTPStatus(), svcErr.Code, svcErr.ClientMessage())
	if svcErr.Kind == services.KindSystem {
		h.logger.Error("request failed", "trace_id", traceID, "path", r.URL.Path, "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return decoder.Decode(dest)
}
