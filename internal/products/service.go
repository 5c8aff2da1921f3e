package product

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercado-backend/internal/access"
	"github.com/angelmondragon/mercado-backend/pkg/db"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
	"github.com/angelmondragon/mercado-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mercado-backend/pkg/errors"
	"github.com/angelmondragon/mercado-backend/pkg/logger"
	"github.com/angelmondragon/mercado-backend/pkg/slug"
	"github.com/angelmondragon/mercado-backend/pkg/storage"
	"github.com/angelmondragon/mercado-backend/pkg/types"
)

const (
	minNameLength     = 3
	maxBrandLength    = 100
	fallbackSlugStart = "producto"
)

var minRegularPrice = decimal.RequireFromString("0.01")

// Service exposes vendor product management operations.
type Service interface {
	CreateProduct(ctx context.Context, vendorID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, actor access.Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, actor access.Actor, productID uuid.UUID) error
	GetProduct(ctx context.Context, actor access.Actor, productID uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, actor access.Actor, input ListProductsInput) ([]ProductDTO, error)
	RecordSale(ctx context.Context, vendorID, productID uuid.UUID, input SaleInput) error
}

// ImageInput is one submitted product picture.
type ImageInput struct {
	URL        string
	StorageKey *string
	Position   *int
	Alt        *string
}

// VariantInput is one submitted purchasable option.
type VariantInput struct {
	Size  *string
	Color *string
	Model *string
	SKU   *string
	Price *decimal.Decimal
	Stock int
}

// CreateProductInput holds the payload to create a product.
type CreateProductInput struct {
	Name          string
	Description   string
	BrandName     string
	CategoryID    *uuid.UUID
	RegularPrice  decimal.Decimal
	SalePrice     *decimal.Decimal
	SaleExpiresAt *time.Time
	Stock         int
	Status        enums.ProductStatus
	IsFeatured    bool
	Images        []ImageInput
	Variants      []VariantInput
}

// UpdateProductInput holds optional mutation values for a product. Nullable
// fields distinguish "omitted" from "clear".
type UpdateProductInput struct {
	Name          *string
	Description   *string
	BrandName     types.Nullable[string]
	CategoryID    types.Nullable[uuid.UUID]
	RegularPrice  *decimal.Decimal
	SalePrice     types.Nullable[decimal.Decimal]
	SaleExpiresAt types.Nullable[time.Time]
	Stock         *int
	Status        *enums.ProductStatus
	IsFeatured    *bool
	Images        *[]ImageInput
	Variants      *[]VariantInput
}

// ListProductsInput filters the dashboard listing.
type ListProductsInput struct {
	VendorID *uuid.UUID
	Status   *enums.ProductStatus
}

// SaleInput records a manual sale. Nil fields take their defaults.
type SaleInput struct {
	Quantity *int
	Amount   *decimal.Decimal
}

type categoryChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type objectRemover interface {
	RemoveMany(ctx context.Context, keys []string) error
}

// service implements the product service.
type service struct {
	repo       *Repository
	dbClient   *db.Client
	categories categoryChecker
	storage    objectRemover
	logg       *logger.Logger
	now        func() time.Time
}

// NewService constructs a product service instance.
func NewService(repo *Repository, dbClient *db.Client, categories categoryChecker, storage objectRemover, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category checker required")
	}
	if storage == nil {
		return nil, fmt.Errorf("object remover required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:       repo,
		dbClient:   dbClient,
		categories: categories,
		storage:    storage,
		logg:       logg,
		now:        time.Now,
	}, nil
}

// CreateProduct inserts the product and its variants in one transaction, then
// attaches images. An image failure removes the product and the vendor's
// uploaded objects before the original error is returned.
func (s *service) CreateProduct(ctx context.Context, vendorID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if input.Status == "" {
		input.Status = enums.ProductStatusPublished
	}
	if err := validateCreate(input, vendorID); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	brand, err := s.repo.UpsertBrand(ctx, vendorID, input.BrandName)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert brand")
	}

	productSlug, err := s.nextSlug(ctx, input.Name, nil)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		VendorID:      vendorID,
		BrandID:       &brand.ID,
		CategoryID:    input.CategoryID,
		Name:          strings.TrimSpace(input.Name),
		Slug:          productSlug,
		Description:   strings.TrimSpace(input.Description),
		RegularPrice:  input.RegularPrice,
		SalePrice:     input.SalePrice,
		SaleExpiresAt: input.SaleExpiresAt,
		Stock:         input.Stock,
		Status:        input.Status,
		IsFeatured:    input.IsFeatured,
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateProduct(ctx, product, buildVariants(input.Variants))
	}); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product slug already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}

	if err := s.repo.CreateImages(ctx, product.ID, buildImages(input.Images)); err != nil {
		s.compensateCreate(ctx, vendorID, product.ID, input.Images, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product images")
	}

	return s.loadDTO(ctx, product.ID)
}

func (s *service) compensateCreate(ctx context.Context, vendorID, productID uuid.UUID, images []ImageInput, cause error) {
	ctx = s.logg.WithFields(ctx, map[string]any{"product_id": productID.String(), "vendor_id": vendorID.String()})
	s.logg.Error(ctx, "product image insert failed, rolling back product", cause)

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).DeleteCascade(ctx, productID)
	}); err != nil {
		s.logg.Error(ctx, "compensating product delete failed", err)
	}

	keys := make([]string, 0, len(images))
	for _, img := range images {
		if img.StorageKey != nil {
			keys = append(keys, *img.StorageKey)
		}
	}
	_ = s.storage.RemoveMany(ctx, storage.FilterOwned(keys, vendorID))
}

// UpdateProduct applies a partial update. Only the columns named by input
// are written, so stock and sales counters moved by concurrent sales survive.
// Image and variant sets are replaced wholesale when supplied.
func (s *service) UpdateProduct(ctx context.Context, actor access.Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.loadOwned(ctx, actor, productID)
	if err != nil {
		return nil, err
	}
	if err := validateUpdate(input, product.VendorID); err != nil {
		return nil, err
	}
	if input.CategoryID.Present && input.CategoryID.Value != nil {
		if err := s.ensureCategory(ctx, input.CategoryID.Value); err != nil {
			return nil, err
		}
	}

	changes := updateColumns(input)
	if input.BrandName.Present {
		if input.BrandName.Value == nil {
			changes["brand_id"] = nil
		} else {
			brand, err := s.repo.UpsertBrand(ctx, product.VendorID, *input.BrandName.Value)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert brand")
			}
			changes["brand_id"] = brand.ID
		}
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name != product.Name {
			next, err := s.renamedSlug(ctx, product, name)
			if err != nil {
				return nil, err
			}
			changes["name"] = name
			if next != product.Slug {
				changes["slug"] = next
			}
		}
	}

	var staleKeys []string
	if input.Images != nil {
		previous, err := s.repo.ImageKeys(ctx, product.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load image keys")
		}
		staleKeys = storage.FilterOwned(unreferencedKeys(previous, *input.Images), product.VendorID)
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if len(changes) > 0 {
			changes["updated_at"] = s.now().UTC()
			if err := txRepo.UpdateColumns(ctx, product.ID, changes); err != nil {
				return err
			}
		}
		if input.Images != nil {
			if err := txRepo.ReplaceImages(ctx, product.ID, buildImages(*input.Images)); err != nil {
				return err
			}
		}
		if input.Variants != nil {
			if err := txRepo.ReplaceVariants(ctx, product.ID, buildVariants(*input.Variants)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product slug already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	_ = s.storage.RemoveMany(ctx, staleKeys)
	return s.loadDTO(ctx, product.ID)
}

// DeleteProduct removes stored images best-effort, then the product and its
// dependents in one transaction.
func (s *service) DeleteProduct(ctx context.Context, actor access.Actor, productID uuid.UUID) error {
	product, err := s.loadOwned(ctx, actor, productID)
	if err != nil {
		return err
	}

	keys, err := s.repo.ImageKeys(ctx, product.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load image keys")
	}
	_ = s.storage.RemoveMany(ctx, storage.FilterOwned(keys, product.VendorID))

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).DeleteCascade(ctx, product.ID)
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) GetProduct(ctx context.Context, actor access.Actor, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.GetDetail(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !access.CanManageProduct(actor, product) {
		return nil, access.NotOwned("product")
	}
	return NewProductDTO(product, s.now()), nil
}

func (s *service) ListProducts(ctx context.Context, actor access.Actor, input ListProductsInput) ([]ProductDTO, error) {
	vendorID, err := access.ScopeVendor(actor, input.VendorID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, ListFilter{VendorID: vendorID, Status: input.Status})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return mapProducts(rows, s.now()), nil
}

// RecordSale registers a manual sale for one of the vendor's products.
func (s *service) RecordSale(ctx context.Context, vendorID, productID uuid.UUID, input SaleInput) error {
	quantity := 1
	if input.Quantity != nil {
		quantity = *input.Quantity
	}
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
			WithDetails(map[string]string{"quantity": "must be at least 1"})
	}
	if input.Amount != nil && input.Amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be non-negative").
			WithDetails(map[string]string{"amount": "must be at least 0"})
	}

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil && !db.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product == nil || product.VendorID != vendorID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	amount := product.EffectivePrice(s.now()).Mul(decimal.NewFromInt(int64(quantity)))
	if input.Amount != nil {
		amount = *input.Amount
	}
	sale := &models.ProductSale{
		ProductID: product.ID,
		VendorID:  vendorID,
		Quantity:  quantity,
		Amount:    amount,
	}
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).RecordSale(ctx, sale)
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record sale")
	}
	return nil
}

func (s *service) loadOwned(ctx context.Context, actor access.Actor, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !access.CanManageProduct(actor, product) {
		return nil, access.NotOwned("product")
	}
	return product, nil
}

func (s *service) loadDTO(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.GetDetail(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product detail")
	}
	return NewProductDTO(product, s.now()), nil
}

func (s *service) ensureCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	ok, err := s.categories.Exists(ctx, *id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "category not found").
			WithDetails(map[string]string{"categoryId": "does not exist"})
	}
	return nil
}

// nextSlug picks the first free slug in the name's numbering. The result is
// not re-checked; the unique index decides.
func (s *service) nextSlug(ctx context.Context, name string, exclude *uuid.UUID) (string, error) {
	base := slug.OrFallback(name, fallbackSlugStart)
	taken, err := s.repo.SlugsWithPrefix(ctx, base, exclude)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product slugs")
	}
	return slug.Next(base, taken), nil
}

// renamedSlug keeps the current slug when the new name slugs to the same base.
func (s *service) renamedSlug(ctx context.Context, product *models.Product, name string) (string, error) {
	if base := slug.Make(name); base != "" {
		if _, ok := slug.Sequence(product.Slug, base); ok {
			return product.Slug, nil
		}
	}
	return s.nextSlug(ctx, name, &product.ID)
}

func validateCreate(input CreateProductInput, vendorID uuid.UUID) error {
	details := map[string]string{}
	if utf8.RuneCountInString(strings.TrimSpace(input.Name)) < minNameLength {
		details["name"] = fmt.Sprintf("must be at least %d characters", minNameLength)
	}
	brand := utf8.RuneCountInString(strings.TrimSpace(input.BrandName))
	if brand < 1 || brand > maxBrandLength {
		details["brandName"] = fmt.Sprintf("must be between 1 and %d characters", maxBrandLength)
	}
	if input.RegularPrice.LessThan(minRegularPrice) {
		details["regularPrice"] = "must be at least 0.01"
	}
	if input.SalePrice != nil && input.SalePrice.IsNegative() {
		details["salePrice"] = "must be at least 0"
	}
	if input.Stock < 0 {
		details["stock"] = "must be at least 0"
	}
	if !input.Status.IsValid() {
		details["status"] = "must be draft, published or archived"
	}
	validateImages(input.Images, vendorID, details)
	validateVariants(input.Variants, details)
	return detailsError(details)
}

func validateUpdate(input UpdateProductInput, vendorID uuid.UUID) error {
	details := map[string]string{}
	if input.Name != nil && utf8.RuneCountInString(strings.TrimSpace(*input.Name)) < minNameLength {
		details["name"] = fmt.Sprintf("must be at least %d characters", minNameLength)
	}
	if input.BrandName.Present && input.BrandName.Value != nil {
		brand := utf8.RuneCountInString(strings.TrimSpace(*input.BrandName.Value))
		if brand < 1 || brand > maxBrandLength {
			details["brandName"] = fmt.Sprintf("must be between 1 and %d characters", maxBrandLength)
		}
	}
	if input.RegularPrice != nil && input.RegularPrice.LessThan(minRegularPrice) {
		details["regularPrice"] = "must be at least 0.01"
	}
	if input.SalePrice.Value != nil && input.SalePrice.Value.IsNegative() {
		details["salePrice"] = "must be at least 0"
	}
	if input.Stock != nil && *input.Stock < 0 {
		details["stock"] = "must be at least 0"
	}
	if input.Status != nil && !input.Status.IsValid() {
		details["status"] = "must be draft, published or archived"
	}
	if input.Images != nil {
		validateImages(*input.Images, vendorID, details)
	}
	if input.Variants != nil {
		validateVariants(*input.Variants, details)
	}
	return detailsError(details)
}

func validateImages(images []ImageInput, vendorID uuid.UUID, details map[string]string) {
	for i, img := range images {
		if img.URL != "" && !validImageURL(img.URL) {
			details[fmt.Sprintf("images[%d].url", i)] = "must be absolute (http/https) or start with /"
		}
		if key := nonEmpty(img.StorageKey); key != nil && !storage.OwnedBy(*key, vendorID) {
			details[fmt.Sprintf("images[%d].storageKey", i)] = "must reference an upload of this vendor"
		}
		if img.Position != nil && *img.Position < 0 {
			details[fmt.Sprintf("images[%d].position", i)] = "must be at least 0"
		}
	}
}

func validateVariants(variants []VariantInput, details map[string]string) {
	for i, v := range variants {
		if v.Stock < 0 {
			details[fmt.Sprintf("variants[%d].stock", i)] = "must be at least 0"
		}
		if v.Price != nil && v.Price.IsNegative() {
			details[fmt.Sprintf("variants[%d].price", i)] = "must be at least 0"
		}
	}
}

func validImageURL(raw string) bool {
	return strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}

func detailsError(details map[string]string) error {
	if len(details) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

// updateColumns maps the scalar fields present in input to their columns.
func updateColumns(input UpdateProductInput) map[string]any {
	changes := map[string]any{}
	if input.Description != nil {
		changes["description"] = strings.TrimSpace(*input.Description)
	}
	if input.CategoryID.Present {
		changes["category_id"] = nullableColumn(input.CategoryID.Value)
	}
	if input.RegularPrice != nil {
		changes["regular_price"] = *input.RegularPrice
	}
	if input.SalePrice.Present {
		changes["sale_price"] = nullableColumn(input.SalePrice.Value)
	}
	if input.SaleExpiresAt.Present {
		changes["sale_expires_at"] = nullableColumn(input.SaleExpiresAt.Value)
	}
	if input.Stock != nil {
		changes["stock"] = *input.Stock
	}
	if input.Status != nil {
		changes["status"] = *input.Status
	}
	if input.IsFeatured != nil {
		changes["is_featured"] = *input.IsFeatured
	}
	return changes
}

func nullableColumn[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

// buildImages drops entries without a url and defaults positions to their index.
func buildImages(images []ImageInput) []models.ProductImage {
	rows := make([]models.ProductImage, 0, len(images))
	for idx, img := range images {
		url := strings.TrimSpace(img.URL)
		if url == "" {
			continue
		}
		position := idx
		if img.Position != nil {
			position = *img.Position
		}
		rows = append(rows, models.ProductImage{
			URL:        url,
			StorageKey: nonEmpty(img.StorageKey),
			Position:   position,
			Alt:        nonEmpty(img.Alt),
		})
	}
	return rows
}

func buildVariants(variants []VariantInput) []models.ProductVariant {
	rows := make([]models.ProductVariant, 0, len(variants))
	for _, v := range variants {
		rows = append(rows, models.ProductVariant{
			Size:  nonEmpty(v.Size),
			Color: nonEmpty(v.Color),
			Model: nonEmpty(v.Model),
			SKU:   nonEmpty(v.SKU),
			Price: v.Price,
			Stock: v.Stock,
		})
	}
	return rows
}

func unreferencedKeys(previous []string, next []ImageInput) []string {
	kept := make(map[string]struct{}, len(next))
	for _, img := range next {
		if img.StorageKey != nil {
			kept[strings.TrimSpace(*img.StorageKey)] = struct{}{}
		}
	}
	var stale []string
	for _, key := range previous {
		if _, ok := kept[key]; !ok {
			stale = append(stale, key)
		}
	}
	return stale
}

func nonEmpty(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
