package admin

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercado-backend/internal/repo"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
	"github.com/angelmondragon/mercado-backend/pkg/enums"
)

// Repository runs reporting queries and the vendor data cascade.
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

func (r *Repository) count(ctx context.Context, model any, query string, args ...any) (int64, error) {
	q := r.DB(ctx).Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// CountProducts counts products, optionally for one vendor.
func (r *Repository) CountProducts(ctx context.Context, vendorID *uuid.UUID) (int64, error) {
	if vendorID == nil {
		return r.count(ctx, &models.Product{}, "")
	}
	return r.count(ctx, &models.Product{}, "vendor_id = ?", *vendorID)
}

// CountEvents counts every product event.
func (r *Repository) CountEvents(ctx context.Context) (int64, error) {
	return r.count(ctx, &models.ProductEvent{}, "")
}

// CountPendingEvents counts a vendor's open purchase intents.
func (r *Repository) CountPendingEvents(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	return r.count(ctx, &models.ProductEvent{}, "vendor_id = ? AND status = ?", vendorID, enums.EventStatusPending)
}

type salesTotals struct {
	Quantity int64               `gorm:"column:quantity"`
	Revenue  decimal.NullDecimal `gorm:"column:revenue"`
}

// SalesTotals sums sold units and revenue for a vendor.
func (r *Repository) SalesTotals(ctx context.Context, vendorID uuid.UUID) (int64, decimal.Decimal, error) {
	var totals salesTotals
	err := r.DB(ctx).Model(&models.ProductSale{}).
		Select("COALESCE(SUM(quantity), 0) AS quantity, SUM(amount) AS revenue").
		Where("vendor_id = ?", vendorID).
		Scan(&totals).Error
	if err != nil {
		return 0, decimal.Zero, err
	}
	revenue := decimal.Zero
	if totals.Revenue.Valid {
		revenue = totals.Revenue.Decimal
	}
	return totals.Quantity, revenue, nil
}

// LowStock lists published products under threshold, scarcest first.
func (r *Repository) LowStock(ctx context.Context, vendorID uuid.UUID, threshold, limit int) ([]ProductStatDTO, error) {
	out := []ProductStatDTO{}
	err := r.DB(ctx).Model(&models.Product{}).
		Select("id, name, slug, stock, sales_count").
		Where("vendor_id = ? AND status = ? AND stock < ?", vendorID, enums.ProductStatusPublished, threshold).
		Order("stock ASC").Order("name ASC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// TopProducts lists the vendor's best sellers.
func (r *Repository) TopProducts(ctx context.Context, vendorID uuid.UUID, limit int) ([]ProductStatDTO, error) {
	out := []ProductStatDTO{}
	err := r.DB(ctx).Model(&models.Product{}).
		Select("id, name, slug, stock, sales_count").
		Where("vendor_id = ?", vendorID).
		Order("sales_count DESC").Order("name ASC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// RecentSales returns the latest sales with product names.
func (r *Repository) RecentSales(ctx context.Context, vendorID uuid.UUID, limit int) ([]SaleDTO, error) {
	out := []SaleDTO{}
	err := r.DB(ctx).Table("product_sales AS s").
		Select("s.id, s.product_id, p.name AS product_name, s.quantity, s.amount, s.created_at").
		Joins("JOIN products p ON p.id = s.product_id").
		Where("s.vendor_id = ?", vendorID).
		Order("s.created_at DESC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// VendorImageKeys returns every storage key referenced by the vendor's product images.
func (r *Repository) VendorImageKeys(ctx context.Context, vendorID uuid.UUID) ([]string, error) {
	var keys []string
	err := r.DB(ctx).Model(&models.ProductImage{}).
		Where("product_id IN (?)", r.productIDs(ctx, vendorID)).
		Where("storage_key IS NOT NULL AND storage_key <> ''").
		Pluck("storage_key", &keys).Error
	return keys, err
}

func (r *Repository) productIDs(ctx context.Context, vendorID uuid.UUID) *gorm.DB {
	return r.DB(ctx).Model(&models.Product{}).Select("id").Where("vendor_id = ?", vendorID)
}

// DeleteVendorData removes everything a vendor owns, then the profile.
func (r *Repository) DeleteVendorData(ctx context.Context, vendorID uuid.UUID) error {
	conn := r.DB(ctx)
	byVendor := func(model any) error {
		return conn.Where("vendor_id = ?", vendorID).Delete(model).Error
	}
	byProduct := func(model any) error {
		return conn.Where("product_id IN (?)", r.productIDs(ctx, vendorID)).Delete(model).Error
	}

	steps := []func() error{
		func() error { return byVendor(&models.ProductEvent{}) },
		func() error { return byVendor(&models.ProductSale{}) },
		func() error { return byProduct(&models.ProductImage{}) },
		func() error { return byProduct(&models.ProductVariant{}) },
		func() error { return byVendor(&models.Product{}) },
		func() error { return byVendor(&models.CatalogShareLink{}) },
		func() error { return byVendor(&models.Brand{}) },
		func() error { return conn.Where("id = ?", vendorID).Delete(&models.VendorProfile{}).Error },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
