package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/mercado-backend/api/responses"
	"github.com/angelmondragon/mercado-backend/internal/vendors"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/mercado-backend/pkg/errors"
	"github.com/angelmondragon/mercado-backend/pkg/logger"
)

const (
	signInPath          = "/sign-in"
	dashboardPath       = "/dashboard"
	completeProfilePath = "/complete-profile"
)

type profileEnsurer interface {
	EnsureProfile(ctx context.Context, user *models.User, hints vendors.ProfileHints) (*models.VendorProfile, error)
}

// RequireSession rejects anonymous callers.
func RequireSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if SessionFromContext(r.Context()) == nil {
				deny(w, r, logg, signInPath, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoot admits root users only.
func RequireRoot(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromContext(r.Context())
			if sess == nil {
				deny(w, r, logg, signInPath, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required"))
				return
			}
			if !sess.IsRoot() {
				deny(w, r, logg, dashboardPath, pkgerrors.New(pkgerrors.CodeForbidden, "root role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireVendor provisions the caller's vendor profile on first use and
// carries it in the request context.
func RequireVendor(profiles profileEnsurer, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sess := SessionFromContext(ctx)
			if sess == nil {
				deny(w, r, logg, signInPath, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required"))
				return
			}

			hints := vendors.ProfileHints{
				FullName: sess.Identity.FullName,
				Username: sess.Identity.Username,
				Email:    sess.User.Email,
			}
			profile, err := profiles.EnsureProfile(ctx, sess.User, hints)
			if err != nil || profile == nil {
				if logg != nil && err != nil {
					logg.Error(ctx, "vendor.profile_provision_failed", err)
				}
				deny(w, r, logg, dashboardPath, pkgerrors.New(pkgerrors.CodeForbidden, "vendor profile unavailable"))
				return
			}

			sess.User.Vendor = profile
			ctx = WithVendor(ctx, profile)
			if logg != nil {
				ctx = logg.WithVendorID(ctx, profile.ID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePhone admits callers who registered a contact phone.
func RequirePhone(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromContext(r.Context())
			if sess == nil {
				deny(w, r, logg, signInPath, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required"))
				return
			}
			if sess.User.Phone == nil || strings.TrimSpace(*sess.User.Phone) == "" {
				deny(w, r, logg, completeProfilePath, pkgerrors.New(pkgerrors.CodeForbidden, "phone number required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, logg *logger.Logger, redirectTo string, err error) {
	if responses.WantsHTML(r) {
		responses.Redirect(w, r, redirectTo)
		return
	}
	responses.WriteError(r.Context(), logg, w, err)
}
