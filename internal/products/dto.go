package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mercado-backend/pkg/db/models"
)

// ProductDTO is the product payload returned to vendors and admins.
type ProductDTO struct {
	ID             uuid.UUID        `json:"id"`
	VendorID       uuid.UUID        `json:"vendorId"`
	BrandID        *uuid.UUID       `json:"brandId,omitempty"`
	BrandName      *string          `json:"brandName,omitempty"`
	CategoryID     *uuid.UUID       `json:"categoryId,omitempty"`
	Category       *CategoryRefDTO  `json:"category,omitempty"`
	Name           string           `json:"name"`
	Slug           string           `json:"slug"`
	Description    string           `json:"description"`
	RegularPrice   decimal.Decimal  `json:"regularPrice"`
	SalePrice      *decimal.Decimal `json:"salePrice,omitempty"`
	SaleExpiresAt  *time.Time       `json:"saleExpiresAt,omitempty"`
	EffectivePrice decimal.Decimal  `json:"effectivePrice"`
	Stock          int              `json:"stock"`
	Status         string           `json:"status"`
	IsFeatured     bool             `json:"isFeatured"`
	SalesCount     int              `json:"salesCount"`
	Images         []ImageDTO       `json:"images"`
	Variants       []VariantDTO     `json:"variants"`
	Vendor         *VendorRefDTO    `json:"vendor,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// PublicProductDTO is the storefront detail payload.
type PublicProductDTO struct {
	ProductDTO
	WhatsAppLink string `json:"whatsappLink,omitempty"`
}

// ImageDTO is one ordered product picture.
type ImageDTO struct {
	ID         uuid.UUID `json:"id"`
	URL        string    `json:"url"`
	StorageKey *string   `json:"storageKey,omitempty"`
	Position   int       `json:"position"`
	Alt        *string   `json:"alt,omitempty"`
}

// VariantDTO is one purchasable option.
type VariantDTO struct {
	ID    uuid.UUID        `json:"id"`
	Size  *string          `json:"size,omitempty"`
	Color *string          `json:"color,omitempty"`
	Model *string          `json:"model,omitempty"`
	SKU   *string          `json:"sku,omitempty"`
	Price *decimal.Decimal `json:"price,omitempty"`
	Stock int              `json:"stock"`
}

// VendorRefDTO is the vendor card embedded in product payloads.
type VendorRefDTO struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
	Slug        string    `json:"slug"`
	AvatarURL   *string   `json:"avatarUrl,omitempty"`
	WhatsApp    string    `json:"whatsapp,omitempty"`
}

// CategoryRefDTO is the category reference embedded in product payloads.
type CategoryRefDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// SearchHitDTO is one search result row.
type SearchHitDTO struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	Slug          string           `json:"slug"`
	Description   string           `json:"description"`
	RegularPrice  decimal.Decimal  `json:"regularPrice"`
	SalePrice     *decimal.Decimal `json:"salePrice,omitempty"`
	SaleExpiresAt *time.Time       `json:"saleExpiresAt,omitempty"`
	Stock         int              `json:"stock"`
	ImageURL      *string          `json:"imageUrl,omitempty"`
	Vendor        VendorRefDTO     `json:"vendor"`
}

// NewProductDTO maps a product with whatever associations were preloaded.
func NewProductDTO(p *models.Product, now time.Time) *ProductDTO {
	if p == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:             p.ID,
		VendorID:       p.VendorID,
		BrandID:        p.BrandID,
		CategoryID:     p.CategoryID,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		RegularPrice:   p.RegularPrice,
		SalePrice:      p.SalePrice,
		SaleExpiresAt:  p.SaleExpiresAt,
		EffectivePrice: p.EffectivePrice(now),
		Stock:          p.Stock,
		Status:         p.Status.String(),
		IsFeatured:     p.IsFeatured,
		SalesCount:     p.SalesCount,
		Images:         make([]ImageDTO, 0, len(p.Images)),
		Variants:       make([]VariantDTO, 0, len(p.Variants)),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.Brand != nil {
		name := p.Brand.Name
		dto.BrandName = &name
	}
	if p.Category != nil {
		dto.Category = &CategoryRefDTO{ID: p.Category.ID, Name: p.Category.Name, Slug: p.Category.Slug}
	}
	if p.Vendor != nil {
		dto.Vendor = newVendorRef(p.Vendor)
	}
	for _, img := range p.Images {
		dto.Images = append(dto.Images, ImageDTO{
			ID:         img.ID,
			URL:        img.URL,
			StorageKey: img.StorageKey,
			Position:   img.Position,
			Alt:        img.Alt,
		})
	}
	for _, v := range p.Variants {
		dto.Variants = append(dto.Variants, VariantDTO{
			ID:    v.ID,
			Size:  v.Size,
			Color: v.Color,
			Model: v.Model,
			SKU:   v.SKU,
			Price: v.Price,
			Stock: v.Stock,
		})
	}
	return dto
}

func newVendorRef(v *models.VendorProfile) *VendorRefDTO {
	return &VendorRefDTO{
		ID:          v.ID,
		DisplayName: v.DisplayName,
		Slug:        v.Slug,
		AvatarURL:   v.AvatarURL,
		WhatsApp:    v.WhatsApp,
	}
}

func mapProducts(rows []models.Product, now time.Time) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewProductDTO(&rows[i], now))
	}
	return out
}
