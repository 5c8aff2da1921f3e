package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/mercado-backend/api/middleware"
	"github.com/angelmondragon/mercado-backend/api/responses"
	"github.com/angelmondragon/mercado-backend/internal/identity"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/mercado-backend/pkg/errors"
	"github.com/angelmondragon/mercado-backend/pkg/logger"
)

func sessionOrAbort(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (*identity.Session, bool) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil || sess.User == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required"))
		return nil, false
	}
	return sess, true
}

func vendorOrAbort(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (*models.VendorProfile, bool) {
	vendor := middleware.VendorFromContext(r.Context())
	if vendor == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing"))
		return nil, false
	}
	return vendor, true
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}

func parseOptionalUUID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{field: "must be a valid id"})
	}
	return &id, nil
}
