package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/mercado-backend/internal/repo"
	"github.com/angelmondragon/mercado-backend/pkg/db"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
	"github.com/angelmondragon/mercado-backend/pkg/enums"
)

// Repository exposes user and role persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

// EnsureRoles get-or-creates every seeded role. Concurrent inserts are tolerated.
func (r *Repository) EnsureRoles(ctx context.Context) error {
	for _, name := range enums.SeededRoles() {
		if _, err := r.FindRole(ctx, name); err == nil {
			continue
		} else if !db.IsNotFound(err) {
			return err
		}
		role := &models.Role{Name: name}
		if err := r.DB(ctx).Create(role).Error; err != nil && !db.IsUniqueViolation(err, "") {
			return err
		}
	}
	return nil
}

// FindRole loads a role by name.
func (r *Repository) FindRole(ctx context.Context, name enums.RoleName) (*models.Role, error) {
	var role models.Role
	if err := r.DB(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// FindByExternalID retrieves the user mapped to an identity provider id.
func (r *Repository) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).
		Preload("Role").
		Where("external_id = ?", externalID).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user with role and vendor profile.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).
		Preload("Role").
		Preload("Vendor").
		First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user. Associations are never written.
func (r *Repository) Create(ctx context.Context, user *models.User) error {
	return r.DB(ctx).Omit(clause.Associations).Create(user).Error
}

// TouchEmail updates the synced email and updated_at only.
func (r *Repository) TouchEmail(ctx context.Context, id uuid.UUID, email string, at time.Time) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"email": email, "updated_at": at}).Error
}

// UpdatePhone stores the normalized contact phone.
func (r *Repository) UpdatePhone(ctx context.Context, id uuid.UUID, phone string, at time.Time) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"phone": phone, "updated_at": at}).Error
}

// List returns the most recent users first.
func (r *Repository) List(ctx context.Context, limit int) ([]models.User, error) {
	var out []models.User
	q := r.DB(ctx).Preload("Role").Preload("Vendor").Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of users.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

// Delete removes the user row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&models.User{}).Error
}
