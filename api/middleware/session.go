package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/mercado-backend/internal/identity"
	"github.com/angelmondragon/mercado-backend/pkg/auth"
	"github.com/angelmondragon/mercado-backend/pkg/logger"
)

type tokenVerifier interface {
	Verify(token string) (*auth.IdentityClaims, error)
}

type sessionResolver interface {
	Resolve(ctx context.Context, ext identity.ExternalIdentity) (*identity.Session, error)
}

// Session resolves the caller from a bearer token or the identity cookie.
// Any failure leaves the request anonymous; guards decide what that means.
func Session(verifier tokenVerifier, resolver sessionResolver, cookieName string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if verifier == nil || resolver == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r, cookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			claims, err := verifier.Verify(token)
			if err != nil {
				if logg != nil {
					logg.Debug(logg.WithField(ctx, "error", err.Error()), "session.token_rejected")
				}
				next.ServeHTTP(w, r)
				return
			}

			sess, err := resolver.Resolve(ctx, identity.FromClaims(claims))
			if err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "session.resolve_failed")
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx = WithSession(ctx, sess)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    sess.UserID().String(),
					"actor_role": string(sess.User.Role.Name),
				})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionToken(r *http.Request, cookieName string) string {
	if raw := strings.TrimSpace(r.Header.Get("Authorization")); raw != "" {
		if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
			return strings.TrimSpace(raw[7:])
		}
		return raw
	}
	if cookieName == "" {
		return ""
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}
