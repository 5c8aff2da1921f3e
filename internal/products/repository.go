package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/mercado-backend/internal/repo"
	"github.com/angelmondragon/mercado-backend/pkg/db"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
	"github.com/angelmondragon/mercado-backend/pkg/enums"
	"github.com/angelmondragon/mercado-backend/pkg/slug"
)

// Repository wires together all product-related persistence helpers.
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

// ListFilter narrows vendor-side listings.
type ListFilter struct {
	VendorID *uuid.UUID
	Status   *enums.ProductStatus
}

func preloadDetail(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Brand").
		Preload("Category").
		Preload("Vendor.User")
}

func preloadCard(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Vendor")
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetDetail loads a product with images, variants, brand, category and vendor.
func (r *Repository) GetDetail(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := preloadDetail(r.DB(ctx)).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindPublishedBySlug loads a published product with its detail associations.
func (r *Repository) FindPublishedBySlug(ctx context.Context, value string) (*models.Product, error) {
	var product models.Product
	err := preloadDetail(r.DB(ctx)).
		Where("slug = ? AND status = ?", value, enums.ProductStatusPublished).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// SlugsWithPrefix returns the slugs equal to base or starting with base-,
// optionally ignoring one product.
func (r *Repository) SlugsWithPrefix(ctx context.Context, base string, exclude *uuid.UUID) ([]string, error) {
	q := r.DB(ctx).Model(&models.Product{}).Where("(slug = ? OR slug LIKE ?)", base, base+"-%")
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}
	var slugs []string
	err := q.Pluck("slug", &slugs).Error
	return slugs, err
}

// UpsertBrand returns the vendor's brand for name, creating it or refreshing its display name.
func (r *Repository) UpsertBrand(ctx context.Context, vendorID uuid.UUID, name string) (*models.Brand, error) {
	name = strings.TrimSpace(name)
	brandSlug := slug.OrFallback(name, "marca")

	var brand models.Brand
	err := r.DB(ctx).Where("vendor_id = ? AND slug = ?", vendorID, brandSlug).First(&brand).Error
	switch {
	case err == nil:
		if brand.Name != name {
			brand.Name = name
			if err := r.DB(ctx).Save(&brand).Error; err != nil {
				return nil, err
			}
		}
		return &brand, nil
	case !db.IsNotFound(err):
		return nil, err
	}

	brand = models.Brand{VendorID: vendorID, Name: name, Slug: brandSlug}
	if err := r.DB(ctx).Create(&brand).Error; err != nil {
		if !db.IsUniqueViolation(err, "") {
			return nil, err
		}
		var existing models.Brand
		if findErr := r.DB(ctx).Where("vendor_id = ? AND slug = ?", vendorID, brandSlug).First(&existing).Error; findErr != nil {
			return nil, err
		}
		return &existing, nil
	}
	return &brand, nil
}

// CreateProduct inserts the product row and its variants.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product, variants []models.ProductVariant) error {
	if err := r.DB(ctx).Omit(clause.Associations).Create(product).Error; err != nil {
		return err
	}
	return r.insertVariants(ctx, product.ID, variants)
}

// CreateImages inserts image rows for productID.
func (r *Repository) CreateImages(ctx context.Context, productID uuid.UUID, images []models.ProductImage) error {
	if len(images) == 0 {
		return nil
	}
	for i := range images {
		images[i].ProductID = productID
	}
	return r.DB(ctx).Create(&images).Error
}

// UpdateColumns writes only the given columns of one product row.
func (r *Repository) UpdateColumns(ctx context.Context, productID uuid.UUID, changes map[string]any) error {
	res := r.DB(ctx).Model(&models.Product{}).Where("id = ?", productID).Updates(changes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReplaceImages swaps the full image set of a product.
func (r *Repository) ReplaceImages(ctx context.Context, productID uuid.UUID, images []models.ProductImage) error {
	if err := r.DB(ctx).Where("product_id = ?", productID).Delete(&models.ProductImage{}).Error; err != nil {
		return err
	}
	return r.CreateImages(ctx, productID, images)
}

// ReplaceVariants swaps the full variant set of a product.
func (r *Repository) ReplaceVariants(ctx context.Context, productID uuid.UUID, variants []models.ProductVariant) error {
	if err := r.DB(ctx).Where("product_id = ?", productID).Delete(&models.ProductVariant{}).Error; err != nil {
		return err
	}
	return r.insertVariants(ctx, productID, variants)
}

func (r *Repository) insertVariants(ctx context.Context, productID uuid.UUID, variants []models.ProductVariant) error {
	if len(variants) == 0 {
		return nil
	}
	for i := range variants {
		variants[i].ProductID = productID
	}
	return r.DB(ctx).Create(&variants).Error
}

// ImageKeys returns the storage keys referenced by a product's images.
func (r *Repository) ImageKeys(ctx context.Context, productID uuid.UUID) ([]string, error) {
	var keys []string
	err := r.DB(ctx).Model(&models.ProductImage{}).
		Where("product_id = ? AND storage_key IS NOT NULL AND storage_key <> ''", productID).
		Pluck("storage_key", &keys).Error
	return keys, err
}

// DeleteCascade removes a product and its dependents in dependency order.
func (r *Repository) DeleteCascade(ctx context.Context, productID uuid.UUID) error {
	conn := r.DB(ctx)
	steps := []any{
		&models.ProductEvent{},
		&models.ProductSale{},
		&models.ProductImage{},
		&models.ProductVariant{},
	}
	for _, model := range steps {
		if err := conn.Where("product_id = ?", productID).Delete(model).Error; err != nil {
			return err
		}
	}
	return conn.Where("id = ?", productID).Delete(&models.Product{}).Error
}

// List returns products for the vendor dashboard, newest edits first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Product, error) {
	q := r.DB(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Vendor")
	if filter.VendorID != nil {
		q = q.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	var rows []models.Product
	if err := q.Order("updated_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// RecordSale decrements stock floored at zero, bumps sales_count and appends the sale row.
func (r *Repository) RecordSale(ctx context.Context, sale *models.ProductSale) error {
	res := r.DB(ctx).Model(&models.Product{}).
		Where("id = ?", sale.ProductID).
		Updates(map[string]any{
			"stock":       gorm.Expr("CASE WHEN stock > ? THEN stock - ? ELSE 0 END", sale.Quantity, sale.Quantity),
			"sales_count": gorm.Expr("sales_count + ?", sale.Quantity),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return r.DB(ctx).Create(sale).Error
}

// DecrementStockIfAvailable takes one unit when stock is positive and reports whether it did.
func (r *Repository) DecrementStockIfAvailable(ctx context.Context, productID uuid.UUID) (bool, error) {
	res := r.DB(ctx).Model(&models.Product{}).
		Where("id = ? AND stock > 0", productID).
		Updates(map[string]any{
			"stock":       gorm.Expr("stock - 1"),
			"sales_count": gorm.Expr("sales_count + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
