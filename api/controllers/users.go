package controllers

import (
	"net/http"

	"github.com/angelmondragon/mercado-backend/api/responses"
	"github.com/angelmondragon/mercado-backend/api/validators"
	"github.com/angelmondragon/mercado-backend/internal/users"
	"github.com/angelmondragon/mercado-backend/pkg/logger"
)

type updatePhoneRequest struct {
	Phone string `json:"phone" validate:"required,max=32"`
}

// Me returns the signed-in user with their vendor profile, if any.
func Me(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "user")
			return
		}
		sess, ok := sessionOrAbort(w, r, logg)
		if !ok {
			return
		}
		me, err := svc.Me(r.Context(), sess.User.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, me)
	}
}

// UpdatePhone stores the caller's normalized phone number.
func UpdatePhone(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "user")
			return
		}
		sess, ok := sessionOrAbort(w, r, logg)
		if !ok {
			return
		}
		var payload updatePhoneRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.UpdatePhone(r.Context(), sess.User.ID, payload.Phone)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
