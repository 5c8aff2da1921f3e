package vendors

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/mercado-backend/internal/repo"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
)

// Repository persists vendor profiles.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

// FindByUserID loads the profile owned by userID.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.VendorProfile, error) {
	var v models.VendorProfile
	if err := r.DB(ctx).Where("user_id = ?", userID).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// FindByID loads a profile with its user.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.VendorProfile, error) {
	var v models.VendorProfile
	if err := r.DB(ctx).Preload("User").First(&v, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// FindBySlug loads a profile by its public slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.VendorProfile, error) {
	var v models.VendorProfile
	if err := r.DB(ctx).Where("slug = ?", slug).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// SlugsWithPrefix returns profile slugs equal to base or starting with base-.
func (r *Repository) SlugsWithPrefix(ctx context.Context, base string) ([]string, error) {
	var slugs []string
	err := r.DB(ctx).Model(&models.VendorProfile{}).
		Where("slug = ? OR slug LIKE ?", base, base+"-%").
		Pluck("slug", &slugs).Error
	return slugs, err
}

// Create inserts a new profile.
func (r *Repository) Create(ctx context.Context, v *models.VendorProfile) error {
	return r.DB(ctx).Omit(clause.Associations).Create(v).Error
}

// Save persists every column of v.
func (r *Repository) Save(ctx context.Context, v *models.VendorProfile) error {
	return r.DB(ctx).Omit(clause.Associations).Save(v).Error
}

// List returns the latest profiles first.
func (r *Repository) List(ctx context.Context, limit int) ([]models.VendorProfile, error) {
	var out []models.VendorProfile
	q := r.DB(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of vendor profiles.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.VendorProfile{}).Count(&n).Error
	return n, err
}

// Delete removes a profile row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&models.VendorProfile{}).Error
}
