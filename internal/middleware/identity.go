package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey string

const accountIDKey ctxKey = "account_id"

// Identity pulls the verified account id off the request. Authentication is
// done upstream (gateway verifies the session and forwards the identity);
// this service trusts the X-Account-Id header it receives.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-Account-Id")
		if raw == "" {
			// Websocket handshakes from browsers cannot set headers.
			raw = r.URL.Query().Get("account_id")
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "missing or invalid account id", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), id)))
	})
}

// WithAccountID attaches the account id the way Identity does.
func WithAccountID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

// AccountID returns the verified account id attached by Identity.
func AccountID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(accountIDKey).(uuid.UUID)
	return id, ok
}
