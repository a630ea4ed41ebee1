package middleware

import (
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const WebhookSecretHeader = "X-Webhook-Secret"

// RequireWebhookSecret guards provider callbacks with a shared secret.
// secretHash, a bcrypt hash, takes precedence over the plaintext secret.
// With neither set the check is disabled for local development.
func RequireWebhookSecret(secret, secretHash string) func(http.Handler) http.Handler {
	matches := func(provided string) bool {
		if secretHash != "" {
			return bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(provided)) == nil
		}
		return subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) == 1
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" && secretHash == "" {
				next.ServeHTTP(w, r)
				return
			}
			provided := r.Header.Get(WebhookSecretHeader)
			if provided == "" {
				reject(w, r, http.StatusUnauthorized, "missing webhook secret")
				return
			}
			if !matches(provided) {
				reject(w, r, http.StatusForbidden, "invalid webhook secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
