package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercado-backend/internal/access"
	product "github.com/angelmondragon/mercado-backend/internal/products"
	"github.com/angelmondragon/mercado-backend/pkg/db"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
	"github.com/angelmondragon/mercado-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mercado-backend/pkg/errors"
	"github.com/angelmondragon/mercado-backend/pkg/logger"
	"github.com/angelmondragon/mercado-backend/pkg/phone"
)

// Service manages buyer purchase intents.
type Service interface {
	Create(ctx context.Context, buyer *models.User, input CreateInput) (*CreateResult, error)
	List(ctx context.Context, actor access.Actor, input ListInput) ([]EventDTO, error)
	MarkSold(ctx context.Context, actor access.Actor, eventID uuid.UUID) error
	Discard(ctx context.Context, actor access.Actor, eventID uuid.UUID) error
}

// CreateInput is the public intent payload.
type CreateInput struct {
	ProductID    uuid.UUID
	BuyerName    *string
	BuyerContact *string
	Note         *string
}

// ListInput filters the dashboard listing.
type ListInput struct {
	VendorID *uuid.UUID
	Status   *enums.EventStatus
}

type service struct {
	repo      *Repository
	products  *product.Repository
	dbClient  *db.Client
	publicURL string
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the events service. publicURL is the storefront origin
// used in the WhatsApp message.
func NewService(repo *Repository, products *product.Repository, dbClient *db.Client, publicURL string, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:      repo,
		products:  products,
		dbClient:  dbClient,
		publicURL: publicURL,
		logg:      logg,
		now:       time.Now,
	}, nil
}

// Create records a pending purchase intent. The buyer contact falls back to
// the signed-in user's phone.
func (s *service) Create(ctx context.Context, buyer *models.User, input CreateInput) (*CreateResult, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required").
			WithDetails(map[string]string{"productId": "required"})
	}

	p, err := s.repo.FindProduct(ctx, input.ProductID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	contact := trimmed(input.BuyerContact)
	if contact == nil && buyer.HasPhone() {
		contact = buyer.Phone
	}
	event := &models.ProductEvent{
		ProductID:    p.ID,
		VendorID:     p.VendorID,
		Type:         enums.EventTypePurchaseIntent,
		Status:       enums.EventStatusPending,
		BuyerName:    trimmed(input.BuyerName),
		BuyerContact: contact,
		Note:         trimmed(input.Note),
	}
	if buyer != nil {
		id := buyer.ID
		event.UserID = &id
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert event")
	}

	result := &CreateResult{OK: true, BuyerPhone: contact}
	if p.Vendor != nil {
		buyerPhone := ""
		if contact != nil {
			buyerPhone = *contact
		}
		message := product.WhatsAppMessage(p.Vendor.DisplayName, p.Name, product.ProductURL(s.publicURL, p.Slug), buyerPhone)
		result.WhatsAppLink = phone.WhatsAppLink(product.VendorContactNumber(p.Vendor), message)
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"event_id": event.ID.String(), "product_id": p.ID.String()})
	s.logg.Info(ctx, "purchase intent recorded")
	return result, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, input ListInput) ([]EventDTO, error) {
	vendorID, err := access.ScopeVendor(actor, input.VendorID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, ListFilter{VendorID: vendorID, Status: input.Status})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list events")
	}
	out := make([]EventDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

// MarkSold resolves a pending intent and books a one-unit sale at the
// effective price, all in one transaction.
func (s *service) MarkSold(ctx context.Context, actor access.Actor, eventID uuid.UUID) error {
	now := s.now()
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		event, err := s.loadManaged(ctx, txRepo, actor, eventID)
		if err != nil {
			return err
		}
		if event.Product == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}

		taken, err := s.products.WithTx(tx).DecrementStockIfAvailable(ctx, event.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement stock")
		}
		if !taken {
			return pkgerrors.New(pkgerrors.CodeValidation, "product has no stock available")
		}

		sale := &models.ProductSale{
			ProductID: event.ProductID,
			VendorID:  event.VendorID,
			Quantity:  1,
			Amount:    event.Product.EffectivePrice(now),
		}
		if err := txRepo.CreateSale(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert sale")
		}
		return s.resolve(ctx, txRepo, eventID, enums.EventStatusResolved, now)
	})
	return s.finish(ctx, err, eventID, "event marked sold")
}

// Discard closes a pending intent without a sale.
func (s *service) Discard(ctx context.Context, actor access.Actor, eventID uuid.UUID) error {
	now := s.now()
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := s.loadManaged(ctx, txRepo, actor, eventID); err != nil {
			return err
		}
		return s.resolve(ctx, txRepo, eventID, enums.EventStatusDiscarded, now)
	})
	return s.finish(ctx, err, eventID, "event discarded")
}

func (s *service) loadManaged(ctx context.Context, repo *Repository, actor access.Actor, eventID uuid.UUID) (*models.ProductEvent, error) {
	event, err := repo.FindByID(ctx, eventID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load event")
	}
	if !access.CanManageEvent(actor, event) {
		return nil, access.NotOwned("event")
	}
	if event.Status != enums.EventStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "event is not pending").
			WithDetails(map[string]string{"status": event.Status.String()})
	}
	return event, nil
}

func (s *service) resolve(ctx context.Context, repo *Repository, eventID uuid.UUID, status enums.EventStatus, at time.Time) error {
	ok, err := repo.Resolve(ctx, eventID, status, at)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: resolve event")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "event is not pending")
	}
	return nil
}

func (s *service) finish(ctx context.Context, err error, eventID uuid.UUID, msg string) error {
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve event")
	}
	s.logg.Info(s.logg.WithField(ctx, "event_id", eventID.String()), msg)
	return nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
