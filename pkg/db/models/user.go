package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercado-backend/pkg/enums"
)

// Role is one of the seeded platform roles.
type Role struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Name      enums.RoleName `gorm:"column:name;type:text;not null;uniqueIndex"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (r *Role) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// User mirrors an identity managed by the external auth provider.
type User struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	ExternalID string         `gorm:"column:external_id;type:text;not null;uniqueIndex"`
	Email      string         `gorm:"column:email;type:text;not null;default:''"`
	Phone      *string        `gorm:"column:phone;type:text"`
	RoleID     uuid.UUID      `gorm:"column:role_id;type:uuid;not null"`
	Role       Role           `gorm:"foreignKey:RoleID"`
	Vendor     *VendorProfile `gorm:"foreignKey:UserID"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// IsRoot reports whether the user's role grants administrative access.
func (u *User) IsRoot() bool {
	return u != nil && u.Role.Name == enums.RoleRoot
}

// HasPhone reports whether a contact phone has been captured.
func (u *User) HasPhone() bool {
	return u != nil && u.Phone != nil && *u.Phone != ""
}

// VendorProfile is the seller-facing identity of a user.
type VendorProfile struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	User        *User     `gorm:"foreignKey:UserID"`
	DisplayName string    `gorm:"column:display_name;type:text;not null"`
	Slug        string    `gorm:"column:slug;type:text;not null;uniqueIndex"`
	Bio         string    `gorm:"column:bio;type:text;not null;default:''"`
	WhatsApp    string    `gorm:"column:whatsapp;type:text;not null;default:''"`
	Website     *string   `gorm:"column:website;type:text"`
	AvatarURL   *string   `gorm:"column:avatar_url;type:text"`
	AvatarKey   *string   `gorm:"column:avatar_key;type:text"`
	BannerURL   *string   `gorm:"column:banner_url;type:text"`
	BannerKey   *string   `gorm:"column:banner_key;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *VendorProfile) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}
