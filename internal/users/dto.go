package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/mercado-backend/pkg/db/models"
)

// UserDTO is the transport shape of a platform user.
type UserDTO struct {
	ID         uuid.UUID      `json:"id"`
	ExternalID string         `json:"externalId"`
	Email      string         `json:"email"`
	Phone      *string        `json:"phone,omitempty"`
	Role       string         `json:"role"`
	Vendor     *VendorLinkDTO `json:"vendor,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// VendorLinkDTO is the vendor profile reference embedded in a user.
type VendorLinkDTO struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	DisplayName string    `json:"displayName"`
}

// FromModel maps a user row (with Role and optional Vendor preloaded).
func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	dto := &UserDTO{
		ID:         u.ID,
		ExternalID: u.ExternalID,
		Email:      u.Email,
		Phone:      u.Phone,
		Role:       u.Role.Name.String(),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
	if u.Vendor != nil {
		dto.Vendor = &VendorLinkDTO{
			ID:          u.Vendor.ID,
			Slug:        u.Vendor.Slug,
			DisplayName: u.Vendor.DisplayName,
		}
	}
	return dto
}
