// Package auth implements the static-token access scheme: a
// comma-separated token list from configuration maps each token to a
// stable client id. No tokens configured means open access, and an
// unauthenticated request is treated the same as no auth being
// configured at all.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type ctxKey int

const clientIDKey ctxKey = 1

// Verifier maps static bearer tokens to client ids.
type Verifier struct {
	tokens map[string]string
}

// NewVerifier parses a comma-separated token list. Returns nil when no
// tokens are configured, which callers treat as open access.
func NewVerifier(raw string) *Verifier {
	tokens := map[string]string{}
	for i, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			tokens[tok] = fmt.Sprintf("friend_%d", i)
		}
	}
	if len(tokens) == 0 {
		return nil
	}
	return &Verifier{tokens: tokens}
}

// Verify returns the client id for a token.
func (v *Verifier) Verify(token string) (string, bool) {
	id, ok := v.tokens[token]
	return id, ok
}

// WithClientID stores an authenticated client id in the context.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey, clientID)
}

// ClientIDFromContext returns the authenticated client id, or "" for
// anonymous requests.
func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey).(string)
	return id
}

// Middleware enforces bearer-token auth when a verifier is configured
// and annotates the request context with the client id. A nil verifier
// passes every request through anonymously.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				next.ServeHTTP(w, r)
				return
			}
			tok := BearerToken(r.Header.Get("Authorization"))
			if tok == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			clientID, ok := v.Verify(tok)
			if !ok {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClientID(r.Context(), clientID)))
		})
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
