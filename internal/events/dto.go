package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/mercado-backend/pkg/db/models"
)

// EventDTO is the dashboard view of a product event.
type EventDTO struct {
	ID           uuid.UUID        `json:"id"`
	ProductID    uuid.UUID        `json:"productId"`
	VendorID     uuid.UUID        `json:"vendorId"`
	UserID       *uuid.UUID       `json:"userId,omitempty"`
	Type         string           `json:"type"`
	Status       string           `json:"status"`
	BuyerName    *string          `json:"buyerName,omitempty"`
	BuyerContact *string          `json:"buyerContact,omitempty"`
	Note         *string          `json:"note,omitempty"`
	ResolvedAt   *time.Time       `json:"resolvedAt,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	Product      *EventProductDTO `json:"product,omitempty"`
}

// EventProductDTO summarizes the product an event points at.
type EventProductDTO struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Slug  string    `json:"slug"`
	Stock int       `json:"stock"`
}

// CreateResult is returned to the buyer after registering an intent.
type CreateResult struct {
	OK           bool    `json:"ok"`
	BuyerPhone   *string `json:"buyerPhone"`
	WhatsAppLink string  `json:"whatsappLink,omitempty"`
}

// FromModel maps a persisted event; the product is included when preloaded.
func FromModel(e *models.ProductEvent) EventDTO {
	dto := EventDTO{
		ID:           e.ID,
		ProductID:    e.ProductID,
		VendorID:     e.VendorID,
		UserID:       e.UserID,
		Type:         string(e.Type),
		Status:       e.Status.String(),
		BuyerName:    e.BuyerName,
		BuyerContact: e.BuyerContact,
		Note:         e.Note,
		ResolvedAt:   e.ResolvedAt,
		CreatedAt:    e.CreatedAt,
	}
	if e.Product != nil {
		dto.Product = &EventProductDTO{
			ID:    e.Product.ID,
			Name:  e.Product.Name,
			Slug:  e.Product.Slug,
			Stock: e.Product.Stock,
		}
	}
	return dto
}
