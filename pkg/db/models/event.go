package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercado-backend/pkg/enums"
)

// ProductEvent is a buyer-initiated signal against a product.
type ProductEvent struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ProductID    uuid.UUID         `gorm:"column:product_id;type:uuid;not null;index"`
	Product      *Product          `gorm:"foreignKey:ProductID"`
	VendorID     uuid.UUID         `gorm:"column:vendor_id;type:uuid;not null;index"`
	UserID       *uuid.UUID        `gorm:"column:user_id;type:uuid"`
	Type         enums.EventType   `gorm:"column:type;type:text;not null;default:'purchase_intent'"`
	Status       enums.EventStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	BuyerName    *string           `gorm:"column:buyer_name;type:text"`
	BuyerContact *string           `gorm:"column:buyer_contact;type:text"`
	Note         *string           `gorm:"column:note;type:text"`
	ResolvedAt   *time.Time        `gorm:"column:resolved_at"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (e *ProductEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// CatalogShareLink publishes a vendor catalog for one ISO week.
type CatalogShareLink struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	VendorID  uuid.UUID      `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:idx_share_links_vendor_week"`
	Vendor    *VendorProfile `gorm:"foreignKey:VendorID"`
	Slug      string         `gorm:"column:slug;type:text;not null;uniqueIndex"`
	WeekLabel string         `gorm:"column:week_label;type:text;not null;uniqueIndex:idx_share_links_vendor_week"`
	ExpiresAt time.Time      `gorm:"column:expires_at;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *CatalogShareLink) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

// Expired reports whether the link is past its expiry.
func (l *CatalogShareLink) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}
