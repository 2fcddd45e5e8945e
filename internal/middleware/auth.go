package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tasosbeast/bill-split-sub001/internal/auth"
)

// RequireAuth validates the Authorization bearer token on every request
// it wraps. With a nil manager the ledger runs open (no passphrase
// configured) and the middleware passes everything through.
func RequireAuth(manager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, auth.ErrMissingToken.Error())
				return
			}
			token := strings.TrimPrefix(header, "Bearer ")
			if token == header {
				unauthorized(w, "authorization header must use the Bearer scheme")
				return
			}
			if _, err := manager.Validate(token); err != nil {
				unauthorized(w, auth.ErrInvalidToken.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
