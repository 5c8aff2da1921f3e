package vendors

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/mercado-backend/pkg/db/models"
)

// VendorDTO is the full profile returned to its owner and to admins.
type VendorDTO struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	DisplayName string    `json:"displayName"`
	Slug        string    `json:"slug"`
	Bio         string    `json:"bio"`
	WhatsApp    string    `json:"whatsapp"`
	Website     *string   `json:"website,omitempty"`
	AvatarURL   *string   `json:"avatarUrl,omitempty"`
	BannerURL   *string   `json:"bannerUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SummaryDTO is the public vendor card.
type SummaryDTO struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
	Slug        string    `json:"slug"`
	Bio         string    `json:"bio,omitempty"`
	WhatsApp    string    `json:"whatsapp,omitempty"`
	AvatarURL   *string   `json:"avatarUrl,omitempty"`
	BannerURL   *string   `json:"bannerUrl,omitempty"`
}

// FromModel maps a vendor profile row.
func FromModel(v *models.VendorProfile) *VendorDTO {
	if v == nil {
		return nil
	}
	return &VendorDTO{
		ID:          v.ID,
		UserID:      v.UserID,
		DisplayName: v.DisplayName,
		Slug:        v.Slug,
		Bio:         v.Bio,
		WhatsApp:    v.WhatsApp,
		Website:     v.Website,
		AvatarURL:   v.AvatarURL,
		BannerURL:   v.BannerURL,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

// SummaryFromModel maps a vendor profile row to its public card.
func SummaryFromModel(v *models.VendorProfile) *SummaryDTO {
	if v == nil {
		return nil
	}
	return &SummaryDTO{
		ID:          v.ID,
		DisplayName: v.DisplayName,
		Slug:        v.Slug,
		Bio:         v.Bio,
		WhatsApp:    v.WhatsApp,
		AvatarURL:   v.AvatarURL,
		BannerURL:   v.BannerURL,
	}
}
