package categories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercado-backend/internal/repo"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
)

// Repository persists the category taxonomy.
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

// CountedCategory is a category row with its product count.
type CountedCategory struct {
	models.Category
	ProductCount int64 `gorm:"column:product_count"`
}

// ListWithCounts returns every category ordered by name with the number of products filed under it.
func (r *Repository) ListWithCounts(ctx context.Context) ([]CountedCategory, error) {
	var rows []CountedCategory
	err := r.DB(ctx).
		Table("categories").
		Select("categories.*, (SELECT COUNT(*) FROM products WHERE products.category_id = categories.id) AS product_count").
		Order("categories.name ASC").
		Scan(&rows).Error
	return rows, err
}

// List returns every category ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	if err := r.DB(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID loads a category.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var c models.Category
	if err := r.DB(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindBySlug loads a category by slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	if err := r.DB(ctx).Where("slug = ?", slug).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// Exists reports whether id names a category.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	if err := r.DB(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create inserts c.
func (r *Repository) Create(ctx context.Context, c *models.Category) error {
	return r.DB(ctx).Create(c).Error
}

// Save persists every column of c.
func (r *Repository) Save(ctx context.Context, c *models.Category) error {
	return r.DB(ctx).Save(c).Error
}

// Delete detaches products from the category and removes it. It reports
// whether a row was deleted.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Category{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}
