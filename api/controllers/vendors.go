package controllers

import (
	"net/http"

	"github.com/angelmondragon/mercado-backend/api/responses"
	"github.com/angelmondragon/mercado-backend/api/validators"
	"github.com/angelmondragon/mercado-backend/internal/vendors"
	"github.com/angelmondragon/mercado-backend/pkg/logger"
	"github.com/angelmondragon/mercado-backend/pkg/types"
)

type updateVendorRequest struct {
	DisplayName *string                `json:"displayName,omitempty" validate:"omitempty,max=120"`
	Bio         *string                `json:"bio,omitempty" validate:"omitempty,max=2000"`
	WhatsApp    *string                `json:"whatsapp,omitempty" validate:"omitempty,max=32"`
	Website     types.Nullable[string] `json:"website"`
	AvatarURL   types.Nullable[string] `json:"avatarUrl"`
	AvatarKey   types.Nullable[string] `json:"avatarKey"`
	BannerURL   types.Nullable[string] `json:"bannerUrl"`
	BannerKey   types.Nullable[string] `json:"bannerKey"`
}

// UpdateVendorMe edits the caller's own vendor profile.
func UpdateVendorMe(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "vendor")
			return
		}
		vendor, ok := vendorOrAbort(w, r, logg)
		if !ok {
			return
		}
		var payload updateVendorRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.Update(r.Context(), vendor.ID, vendors.UpdateProfileInput{
			DisplayName: payload.DisplayName,
			Bio:         payload.Bio,
			WhatsApp:    payload.WhatsApp,
			Website:     payload.Website,
			AvatarURL:   payload.AvatarURL,
			AvatarKey:   payload.AvatarKey,
			BannerURL:   payload.BannerURL,
			BannerKey:   payload.BannerKey,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}
