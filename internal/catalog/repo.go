package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercado-backend/internal/repo"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
)

// Repository persists catalog share links.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// FindByVendorWeek returns the vendor's link for weekLabel.
func (r *Repository) FindByVendorWeek(ctx context.Context, vendorID uuid.UUID, weekLabel string) (*models.CatalogShareLink, error) {
	var link models.CatalogShareLink
	err := r.DB(ctx).Where("vendor_id = ? AND week_label = ?", vendorID, weekLabel).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// FindBySlug loads a link with its vendor.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.CatalogShareLink, error) {
	var link models.CatalogShareLink
	if err := r.DB(ctx).Preload("Vendor").Where("slug = ?", slug).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *Repository) Create(ctx context.Context, link *models.CatalogShareLink) error {
	return r.DB(ctx).Omit("Vendor").Create(link).Error
}

// Refresh moves an existing link to a new week and expiry.
func (r *Repository) Refresh(ctx context.Context, link *models.CatalogShareLink) error {
	return r.DB(ctx).Model(&models.CatalogShareLink{}).
		Where("id = ?", link.ID).
		Updates(map[string]any{"week_label": link.WeekLabel, "expires_at": link.ExpiresAt}).Error
}
