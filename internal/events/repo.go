package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercado-backend/internal/repo"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
	"github.com/angelmondragon/mercado-backend/pkg/enums"
)

// Repository persists product events.
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

// ListFilter narrows the dashboard listing.
type ListFilter struct {
	VendorID *uuid.UUID
	Status   *enums.EventStatus
}

// FindProduct loads the target product with the vendor and its owner.
func (r *Repository) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.DB(ctx).Preload("Vendor.User").First(&p, "id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) Create(ctx context.Context, event *models.ProductEvent) error {
	return r.DB(ctx).Omit("Product").Create(event).Error
}

// FindByID loads an event with its product.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductEvent, error) {
	var e models.ProductEvent
	if err := r.DB(ctx).Preload("Product").First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns events newest first with a product summary.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.ProductEvent, error) {
	q := r.DB(ctx).Preload("Product", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "name", "slug", "stock")
	})
	if filter.VendorID != nil {
		q = q.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	var rows []models.ProductEvent
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Resolve moves a pending event to status and reports whether it was still pending.
func (r *Repository) Resolve(ctx context.Context, id uuid.UUID, status enums.EventStatus, at time.Time) (bool, error) {
	res := r.DB(ctx).Model(&models.ProductEvent{}).
		Where("id = ? AND status = ?", id, enums.EventStatusPending).
		Updates(map[string]any{"status": status, "resolved_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CreateSale appends a sale row.
func (r *Repository) CreateSale(ctx context.Context, sale *models.ProductSale) error {
	return r.DB(ctx).Create(sale).Error
}
