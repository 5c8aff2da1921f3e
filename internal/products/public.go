package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/mercado-backend/pkg/db"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
	"github.com/angelmondragon/mercado-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mercado-backend/pkg/errors"
	"github.com/angelmondragon/mercado-backend/pkg/phone"
)

const (
	homeLimit           = 20
	similarLimit        = 8
	moreFromVendorLimit = 6
	bestSellersLimit    = 8
)

var (
	orderHome       = []string{"stock DESC", "sales_count DESC", "created_at DESC"}
	orderStorefront = []string{"stock DESC", "created_at DESC"}
	orderSales      = []string{"sales_count DESC", "created_at DESC"}
)

// PublishedQuery narrows storefront listings to published products.
type PublishedQuery struct {
	Search       string
	CategorySlug string
	VendorID     *uuid.UUID
	ExcludeID    *uuid.UUID
	// RelatedTo limits results to products sharing its category or brand.
	RelatedTo *models.Product
	Order     []string
	Limit     int
}

// ListPublished runs a storefront listing with images and vendor preloaded.
func (r *Repository) ListPublished(ctx context.Context, q PublishedQuery) ([]models.Product, error) {
	tx := preloadCard(r.DB(ctx)).Where("status = ?", enums.ProductStatusPublished)
	if term := strings.TrimSpace(q.Search); term != "" {
		tx = tx.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(term))+"%")
	}
	if s := strings.TrimSpace(q.CategorySlug); s != "" {
		tx = tx.Where("category_id IN (SELECT id FROM categories WHERE slug = ?)", s)
	}
	if q.VendorID != nil {
		tx = tx.Where("vendor_id = ?", *q.VendorID)
	}
	if q.ExcludeID != nil {
		tx = tx.Where("id <> ?", *q.ExcludeID)
	}
	if rel := q.RelatedTo; rel != nil {
		switch {
		case rel.CategoryID != nil && rel.BrandID != nil:
			tx = tx.Where("(category_id = ? OR brand_id = ?)", *rel.CategoryID, *rel.BrandID)
		case rel.CategoryID != nil:
			tx = tx.Where("category_id = ?", *rel.CategoryID)
		case rel.BrandID != nil:
			tx = tx.Where("brand_id = ?", *rel.BrandID)
		}
	}
	for _, o := range q.Order {
		tx = tx.Order(o)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var rows []models.Product
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// HomeQuery is the storefront home listing filter.
type HomeQuery struct {
	Search       string
	CategorySlug string
}

// PublicService serves the anonymous storefront reads.
type PublicService interface {
	ListHome(ctx context.Context, q HomeQuery) ([]ProductDTO, error)
	Detail(ctx context.Context, slug string) (*PublicProductDTO, error)
	Similar(ctx context.Context, slug string) ([]ProductDTO, error)
	MoreFromVendor(ctx context.Context, slug string) ([]ProductDTO, error)
	BestSellers(ctx context.Context) ([]ProductDTO, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]ProductDTO, error)
	Search(ctx context.Context, query string) ([]SearchHitDTO, error)
}

type publicService struct {
	repo      *Repository
	publicURL string
	now       func() time.Time
}

// NewPublicService constructs the storefront reader. publicURL is the site
// origin used in shared product links.
func NewPublicService(repo *Repository, publicURL string) (PublicService, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &publicService{
		repo:      repo,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}, nil
}

func (s *publicService) ListHome(ctx context.Context, q HomeQuery) ([]ProductDTO, error) {
	return s.list(ctx, PublishedQuery{
		Search:       q.Search,
		CategorySlug: q.CategorySlug,
		Order:        orderHome,
		Limit:        homeLimit,
	})
}

func (s *publicService) Detail(ctx context.Context, value string) (*PublicProductDTO, error) {
	p, err := s.findPublished(ctx, value)
	if err != nil {
		return nil, err
	}
	out := &PublicProductDTO{ProductDTO: *NewProductDTO(p, s.now())}
	if p.Vendor != nil {
		message := WhatsAppMessage(p.Vendor.DisplayName, p.Name, ProductURL(s.publicURL, p.Slug), "")
		out.WhatsAppLink = phone.WhatsAppLink(VendorContactNumber(p.Vendor), message)
	}
	return out, nil
}

func (s *publicService) Similar(ctx context.Context, value string) ([]ProductDTO, error) {
	p, err := s.findPublished(ctx, value)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, PublishedQuery{
		ExcludeID: &p.ID,
		RelatedTo: p,
		Order:     orderSales,
		Limit:     similarLimit,
	})
}

func (s *publicService) MoreFromVendor(ctx context.Context, value string) ([]ProductDTO, error) {
	p, err := s.findPublished(ctx, value)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, PublishedQuery{
		VendorID:  &p.VendorID,
		ExcludeID: &p.ID,
		Order:     orderSales,
		Limit:     moreFromVendorLimit,
	})
}

func (s *publicService) BestSellers(ctx context.Context) ([]ProductDTO, error) {
	return s.list(ctx, PublishedQuery{Order: orderSales, Limit: bestSellersLimit})
}

func (s *publicService) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]ProductDTO, error) {
	return s.list(ctx, PublishedQuery{VendorID: &vendorID, Order: orderStorefront})
}

func (s *publicService) Search(ctx context.Context, query string) ([]SearchHitDTO, error) {
	hits, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search products")
	}
	return hits, nil
}

func (s *publicService) findPublished(ctx context.Context, value string) (*models.Product, error) {
	p, err := s.repo.FindPublishedBySlug(ctx, strings.TrimSpace(value))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return p, nil
}

func (s *publicService) list(ctx context.Context, q PublishedQuery) ([]ProductDTO, error) {
	rows, err := s.repo.ListPublished(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return mapProducts(rows, s.now()), nil
}

// ProductURL is the storefront address of a product.
func ProductURL(publicURL, productSlug string) string {
	return strings.TrimRight(publicURL, "/") + "/p/" + productSlug
}

// WhatsAppMessage is the prefilled buyer message for a product. buyerPhone is
// appended when known.
func WhatsAppMessage(vendorName, productName, productURL, buyerPhone string) string {
	msg := fmt.Sprintf("Hola %s, estoy interesado en el producto: %s. Enlace: %s", vendorName, productName, productURL)
	if strings.TrimSpace(buyerPhone) != "" {
		msg += "\n\nMi número de contacto: " + buyerPhone
	}
	return msg
}

// VendorContactNumber prefers the profile WhatsApp number and falls back to
// the owner's phone when the user was preloaded.
func VendorContactNumber(v *models.VendorProfile) string {
	if v == nil {
		return ""
	}
	if strings.TrimSpace(v.WhatsApp) != "" {
		return v.WhatsApp
	}
	if v.User != nil && v.User.Phone != nil {
		return *v.User.Phone
	}
	return ""
}
