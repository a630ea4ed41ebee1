package handlers

import (
	"net/http"
	"strings"

	"ledgerpay/internal/auth"
	"ledgerpay/internal/validator"
	"ledgerpay/internal/websocket"
)

// WSPayments streams payment status changes. A valid token subscribes to the
// caller's payments; a request_id subscribes to that request's legs, which is
// how self-signing senders without an account session follow a payment.
func (h *Handler) WSPayments(w http.ResponseWriter, r *http.Request) {
	var topics []string
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token != "" {
		claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
		if err != nil {
			respondError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}
		topics = append(topics, websocket.UserTopic(claims.UserID))
	}
	if requestID := r.URL.Query().Get("request_id"); requestID != "" {
		if err := validator.ValidateRequestID(requestID); err != nil {
			respondError(w, r, http.StatusBadRequest, "INVALID_FIELD", "invalid request_id")
			return
		}
		topics = append(topics, websocket.RequestTopic(requestID))
	}
	if len(topics) == 0 {
		respondError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing token or request_id")
		return
	}
	websocket.ServeWS(w, r, h.hub, topics...)
}

func originChecker(allowed string) func(*http.Request) bool {
	if allowed == "" || allowed == "*" {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == allowed
	}
}
