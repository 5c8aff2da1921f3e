package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	product "github.com/angelmondragon/mercado-backend/internal/products"
	"github.com/angelmondragon/mercado-backend/internal/vendors"
	"github.com/angelmondragon/mercado-backend/pkg/config"
	"github.com/angelmondragon/mercado-backend/pkg/db"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/mercado-backend/pkg/errors"
	"github.com/angelmondragon/mercado-backend/pkg/logger"
	"github.com/angelmondragon/mercado-backend/pkg/qrcode"
	"github.com/angelmondragon/mercado-backend/pkg/slug"
)

const (
	collisionRetries = 5
	collisionSuffix  = 6
	qrSize           = 512
)

// ShareDTO is the issued share link.
type ShareDTO struct {
	Slug       string    `json:"slug"`
	WeekLabel  string    `json:"weekLabel"`
	ExpiresAt  time.Time `json:"expiresAt"`
	VendorSlug string    `json:"vendorSlug"`
	URL        string    `json:"url"`
}

// SharedCatalogDTO is what a visitor of a share link sees.
type SharedCatalogDTO struct {
	Link     ShareDTO             `json:"link"`
	Vendor   *vendors.SummaryDTO  `json:"vendor"`
	Products []product.ProductDTO `json:"products"`
}

// Service issues and resolves weekly catalog share links.
type Service interface {
	// Share returns the vendor's link for the current ISO week and reports
	// whether it was issued by this call.
	Share(ctx context.Context, vendor *models.VendorProfile) (*ShareDTO, bool, error)
	QR(ctx context.Context, vendor *models.VendorProfile) ([]byte, error)
	Resolve(ctx context.Context, slug string) (*SharedCatalogDTO, error)
}

type service struct {
	repo     *Repository
	products product.PublicService
	app      config.AppConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the catalog share service.
func NewService(repo *Repository, products product.PublicService, app config.AppConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product public service required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, products: products, app: app, logg: logg, now: time.Now}, nil
}

func (s *service) Share(ctx context.Context, vendor *models.VendorProfile) (*ShareDTO, bool, error) {
	if vendor == nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeForbidden, "vendor profile required")
	}
	now := s.now()
	label := WeekLabel(now)

	existing, err := s.repo.FindByVendorWeek(ctx, vendor.ID, label)
	switch {
	case err == nil:
		return s.toDTO(existing, vendor.Slug), false, nil
	case !db.IsNotFound(err):
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load share link")
	}

	base := vendor.Slug + "-" + strings.ToLower(label)
	candidate := base
	for attempt := 0; attempt <= collisionRetries; attempt++ {
		if attempt > 0 {
			candidate = base + "-" + slug.Suffix(collisionSuffix)
		}

		taken, err := s.repo.FindBySlug(ctx, candidate)
		if err != nil && !db.IsNotFound(err) {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load share link")
		}
		if taken != nil {
			if taken.VendorID != vendor.ID {
				continue
			}
			taken.WeekLabel = label
			taken.ExpiresAt = WeekEnd(now)
			if err := s.repo.Refresh(ctx, taken); err != nil {
				return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: refresh share link")
			}
			return s.toDTO(taken, vendor.Slug), true, nil
		}

		link := &models.CatalogShareLink{
			VendorID:  vendor.ID,
			Slug:      candidate,
			WeekLabel: label,
			ExpiresAt: WeekEnd(now),
		}
		if err := s.repo.Create(ctx, link); err != nil {
			if !db.IsUniqueViolation(err, "") {
				return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert share link")
			}
			// A concurrent request may have issued this week's link.
			if raced, findErr := s.repo.FindByVendorWeek(ctx, vendor.ID, label); findErr == nil {
				return s.toDTO(raced, vendor.Slug), false, nil
			}
			continue
		}
		ctx = s.logg.WithFields(ctx, map[string]any{"vendor_id": vendor.ID.String(), "share_slug": link.Slug})
		s.logg.Info(ctx, "catalog share link issued")
		return s.toDTO(link, vendor.Slug), true, nil
	}

	return nil, false, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a share slug").
		WithDetails(map[string]string{"slug": base})
}

func (s *service) QR(ctx context.Context, vendor *models.VendorProfile) ([]byte, error) {
	link, _, err := s.Share(ctx, vendor)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.PNG(link.URL, qrSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render share qr")
	}
	return png, nil
}

func (s *service) Resolve(ctx context.Context, value string) (*SharedCatalogDTO, error) {
	link, err := s.repo.FindBySlug(ctx, strings.TrimSpace(value))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "share link not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load share link")
	}
	if link.Expired(s.now()) || link.Vendor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "share link not found")
	}

	products, err := s.products.ListByVendor(ctx, link.VendorID)
	if err != nil {
		return nil, err
	}
	return &SharedCatalogDTO{
		Link:     *s.toDTO(link, link.Vendor.Slug),
		Vendor:   vendors.SummaryFromModel(link.Vendor),
		Products: products,
	}, nil
}

func (s *service) toDTO(link *models.CatalogShareLink, vendorSlug string) *ShareDTO {
	return &ShareDTO{
		Slug:       link.Slug,
		WeekLabel:  link.WeekLabel,
		ExpiresAt:  link.ExpiresAt,
		VendorSlug: vendorSlug,
		URL:        s.app.ShareURL(vendorSlug, link.Slug),
	}
}
