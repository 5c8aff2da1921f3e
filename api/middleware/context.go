package middleware

import (
	"context"

	"github.com/angelmondragon/mercado-backend/internal/access"
	"github.com/angelmondragon/mercado-backend/internal/identity"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
)

type contextKey string

const (
	ctxSession contextKey = "session"
	ctxVendor  contextKey = "vendor_profile"
)

// SessionFromContext returns the resolved caller, or nil for anonymous requests.
func SessionFromContext(ctx context.Context) *identity.Session {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxSession).(*identity.Session); ok {
		return v
	}
	return nil
}

// VendorFromContext returns the profile provisioned by RequireVendor.
func VendorFromContext(ctx context.Context) *models.VendorProfile {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxVendor).(*models.VendorProfile); ok {
		return v
	}
	return nil
}

func UserIDFromContext(ctx context.Context) string {
	sess := SessionFromContext(ctx)
	if sess == nil || sess.User == nil {
		return ""
	}
	return sess.User.ID.String()
}

// ActorFromContext projects the session and vendor profile onto the policy actor.
func ActorFromContext(ctx context.Context) access.Actor {
	sess := SessionFromContext(ctx)
	if sess == nil || sess.User == nil {
		return access.Actor{}
	}
	actor := access.Actor{UserID: sess.User.ID, Root: sess.IsRoot()}
	if vendor := VendorFromContext(ctx); vendor != nil {
		id := vendor.ID
		actor.VendorID = &id
	} else if sess.User.Vendor != nil {
		id := sess.User.Vendor.ID
		actor.VendorID = &id
	}
	return actor
}

// WithSession injects the resolved caller into the context.
func WithSession(ctx context.Context, sess *identity.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, sess)
}

// WithVendor injects the caller's vendor profile for downstream handlers.
func WithVendor(ctx context.Context, vendor *models.VendorProfile) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxVendor, vendor)
}
