package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"noteserver/internal/auth"
	"noteserver/internal/domain"
)

type authCtxKey int

const (
	authUserKey authCtxKey = iota
	authIdentityKey
)

// requireAuth validates the JWT cookie statelessly (signature + expiry) and
// then resolves the account for the request. Every validation failure looks
// the same to the client.
func (a *api) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(auth.SessionCookieName)
		if err != nil || c.Value == "" {
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}

		id, err := a.tokens.Validate(c.Value)
		if err != nil {
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}

		u, err := a.authSvc.UserByEmail(r.Context(), id.Email)
		if err != nil {
			WriteDomainError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), authUserKey, u)
		ctx = context.WithValue(ctx, authIdentityKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func CurrentUser(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(authUserKey).(domain.User)
	return u, ok
}

func CurrentIdentity(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(authIdentityKey).(auth.Identity)
	return id, ok
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
