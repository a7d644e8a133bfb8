// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/thunderdz19/sero-est/internal/access"
	"github.com/thunderdz19/sero-est/internal/auth"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// Authenticator resolves a bearer token into a session. IsUnauthenticated
// tells a rejected token apart from a failure to check it.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (access.Session, auth.Claims, error)
	IsUnauthenticated(err error) bool
}

// BearerAuth enforces an "Authorization: Bearer <token>" header.
//
// On success the session is stored in the request context (see
// access.FromContext) together with the token claims, so handlers can act
// on behalf of the user and logout can revoke the token.
func BearerAuth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			sess, claims, err := a.Authenticate(r.Context(), raw)
			if err != nil {
				if a.IsUnauthenticated(err) {
					http.Error(w, "invalid or expired session", http.StatusUnauthorized)
					return
				}
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			ctx := access.WithSession(r.Context(), sess)
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// ClaimsFromContext returns the token claims stored by BearerAuth.
func ClaimsFromContext(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(auth.Claims)
	return c, ok
}
