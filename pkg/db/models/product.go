package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercado-backend/pkg/enums"
)

// Product is a vendor listing.
type Product struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	VendorID      uuid.UUID           `gorm:"column:vendor_id;type:uuid;not null;index"`
	Vendor        *VendorProfile      `gorm:"foreignKey:VendorID"`
	BrandID       *uuid.UUID          `gorm:"column:brand_id;type:uuid"`
	Brand         *Brand              `gorm:"foreignKey:BrandID"`
	CategoryID    *uuid.UUID          `gorm:"column:category_id;type:uuid"`
	Category      *Category           `gorm:"foreignKey:CategoryID"`
	Name          string              `gorm:"column:name;type:text;not null"`
	Slug          string              `gorm:"column:slug;type:text;not null;uniqueIndex"`
	Description   string              `gorm:"column:description;type:text;not null;default:''"`
	RegularPrice  decimal.Decimal     `gorm:"column:regular_price;type:numeric(12,2);not null"`
	SalePrice     *decimal.Decimal    `gorm:"column:sale_price;type:numeric(12,2)"`
	SaleExpiresAt *time.Time          `gorm:"column:sale_expires_at"`
	Stock         int                 `gorm:"column:stock;not null;default:0"`
	Status        enums.ProductStatus `gorm:"column:status;type:text;not null;default:'published'"`
	IsFeatured    bool                `gorm:"column:is_featured;not null;default:false"`
	SalesCount    int                 `gorm:"column:sales_count;not null;default:0"`
	Images        []ProductImage      `gorm:"foreignKey:ProductID"`
	Variants      []ProductVariant    `gorm:"foreignKey:ProductID"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// EffectivePrice returns the sale price while it is set and unexpired, else the regular price.
func (p *Product) EffectivePrice(now time.Time) decimal.Decimal {
	if p.SalePrice != nil && (p.SaleExpiresAt == nil || p.SaleExpiresAt.After(now)) {
		return *p.SalePrice
	}
	return p.RegularPrice
}

// ProductImage is an ordered picture of a product.
type ProductImage struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	URL        string    `gorm:"column:url;type:text;not null"`
	StorageKey *string   `gorm:"column:storage_key;type:text"`
	Position   int       `gorm:"column:position;not null;default:0"`
	Alt        *string   `gorm:"column:alt;type:text"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *ProductImage) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// ProductVariant captures a purchasable option with its own stock.
type ProductVariant struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	Size      *string          `gorm:"column:size;type:text"`
	Color     *string          `gorm:"column:color;type:text"`
	Model     *string          `gorm:"column:model;type:text"`
	SKU       *string          `gorm:"column:sku;type:text"`
	Price     *decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	Stock     int              `gorm:"column:stock;not null;default:0"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// ProductSale is an append-only record of a fulfilled sale.
type ProductSale struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	VendorID  uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;index"`
	Quantity  int             `gorm:"column:quantity;not null;default:1"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (s *ProductSale) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
