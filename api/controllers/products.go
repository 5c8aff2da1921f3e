package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mercado-backend/api/middleware"
	"github.com/angelmondragon/mercado-backend/api/responses"
	"github.com/angelmondragon/mercado-backend/api/validators"
	productsvc "github.com/angelmondragon/mercado-backend/internal/products"
	"github.com/angelmondragon/mercado-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mercado-backend/pkg/errors"
	"github.com/angelmondragon/mercado-backend/pkg/logger"
	"github.com/angelmondragon/mercado-backend/pkg/types"
)

type productImageRequest struct {
	URL        string  `json:"url"`
	StorageKey *string `json:"storageKey,omitempty"`
	Alt        *string `json:"alt,omitempty"`
	Position   *int    `json:"position,omitempty"`
}

type productVariantRequest struct {
	Size  *string          `json:"size,omitempty"`
	Color *string          `json:"color,omitempty"`
	Model *string          `json:"model,omitempty"`
	SKU   *string          `json:"sku,omitempty"`
	Price *decimal.Decimal `json:"price,omitempty"`
	Stock int              `json:"stock"`
}

type createProductRequest struct {
	Name          string                  `json:"name"`
	Description   string                  `json:"description"`
	BrandName     string                  `json:"brandName"`
	CategoryID    *string                 `json:"categoryId,omitempty" validate:"omitempty,uuid"`
	RegularPrice  decimal.Decimal         `json:"regularPrice"`
	SalePrice     *decimal.Decimal        `json:"salePrice,omitempty"`
	SaleExpiresAt *time.Time              `json:"saleExpiresAt,omitempty"`
	Stock         int                     `json:"stock"`
	Status        string                  `json:"status,omitempty"`
	IsFeatured    bool                    `json:"isFeatured"`
	Images        []productImageRequest   `json:"images"`
	Variants      []productVariantRequest `json:"variants"`
}

func (r createProductRequest) toInput() (productsvc.CreateProductInput, error) {
	status := enums.ProductStatusPublished
	if raw := strings.TrimSpace(r.Status); raw != "" {
		parsed, err := enums.ParseProductStatus(raw)
		if err != nil {
			return productsvc.CreateProductInput{}, statusError()
		}
		status = parsed
	}
	categoryID, err := parseOptionalUUID(r.CategoryID, "categoryId")
	if err != nil {
		return productsvc.CreateProductInput{}, err
	}
	return productsvc.CreateProductInput{
		Name:          r.Name,
		Description:   r.Description,
		BrandName:     r.BrandName,
		CategoryID:    categoryID,
		RegularPrice:  r.RegularPrice,
		SalePrice:     r.SalePrice,
		SaleExpiresAt: r.SaleExpiresAt,
		Stock:         r.Stock,
		Status:        status,
		IsFeatured:    r.IsFeatured,
		Images:        toImageInputs(r.Images),
		Variants:      toVariantInputs(r.Variants),
	}, nil
}

type updateProductRequest struct {
	Name          *string                         `json:"name,omitempty"`
	Description   *string                         `json:"description,omitempty"`
	BrandName     types.Nullable[string]          `json:"brandName"`
	CategoryID    types.Nullable[string]          `json:"categoryId"`
	RegularPrice  *decimal.Decimal                `json:"regularPrice,omitempty"`
	SalePrice     types.Nullable[decimal.Decimal] `json:"salePrice"`
	SaleExpiresAt types.Nullable[time.Time]       `json:"saleExpiresAt"`
	Stock         *int                            `json:"stock,omitempty"`
	Status        *string                         `json:"status,omitempty"`
	IsFeatured    *bool                           `json:"isFeatured,omitempty"`
	Images        *[]productImageRequest          `json:"images,omitempty"`
	Variants      *[]productVariantRequest        `json:"variants,omitempty"`
}

func (r updateProductRequest) toInput() (productsvc.UpdateProductInput, error) {
	input := productsvc.UpdateProductInput{
		Name:          r.Name,
		Description:   r.Description,
		BrandName:     r.BrandName,
		RegularPrice:  r.RegularPrice,
		SalePrice:     r.SalePrice,
		SaleExpiresAt: r.SaleExpiresAt,
		Stock:         r.Stock,
		IsFeatured:    r.IsFeatured,
	}
	if r.CategoryID.Present {
		input.CategoryID.Present = true
		if r.CategoryID.Value != nil {
			id, err := parseOptionalUUID(r.CategoryID.Value, "categoryId")
			if err != nil {
				return productsvc.UpdateProductInput{}, err
			}
			input.CategoryID.Value = id
		}
	}
	if r.Status != nil {
		parsed, err := enums.ParseProductStatus(strings.TrimSpace(*r.Status))
		if err != nil {
			return productsvc.UpdateProductInput{}, statusError()
		}
		input.Status = &parsed
	}
	if r.Images != nil {
		images := toImageInputs(*r.Images)
		input.Images = &images
	}
	if r.Variants != nil {
		variants := toVariantInputs(*r.Variants)
		input.Variants = &variants
	}
	return input, nil
}

type saleRequest struct {
	Quantity *int             `json:"quantity,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
}

// CreateProduct handles product creation for the caller's vendor profile.
func CreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		vendor, ok := vendorOrAbort(w, r, logg)
		if !ok {
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), vendor.ID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// UpdateProduct applies a partial update.
func UpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		productID, err := validators.ParsePathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), middleware.ActorFromContext(r.Context()), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// DeleteProduct removes a product with its images and history.
func DeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		productID, err := validators.ParsePathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProduct(r.Context(), middleware.ActorFromContext(r.Context()), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteAck(w)
	}
}

func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		productID, err := validators.ParsePathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), middleware.ActorFromContext(r.Context()), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ListProducts lists the caller's products; root may filter by vendorId.
func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		vendorID, err := validators.ParseQueryUUID(r, "vendorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := productsvc.ListProductsInput{VendorID: vendorID}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseProductStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, statusError())
				return
			}
			input.Status = &status
		}

		list, err := svc.ListProducts(r.Context(), middleware.ActorFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// RecordSale registers a manual sale against the caller's product.
func RecordSale(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "product")
			return
		}
		vendor, ok := vendorOrAbort(w, r, logg)
		if !ok {
			return
		}
		productID, err := validators.ParsePathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload saleRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		input := productsvc.SaleInput{Quantity: payload.Quantity, Amount: payload.Amount}
		if err := svc.RecordSale(r.Context(), vendor.ID, productID, input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteAck(w)
	}
}

// SearchProducts runs the storefront text search.
func SearchProducts(svc productsvc.PublicService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "search")
			return
		}
		query := validators.SanitizeString(r.URL.Query().Get("q"), 200)
		hits, err := svc.Search(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, hits)
	}
}

func toImageInputs(in []productImageRequest) []productsvc.ImageInput {
	out := make([]productsvc.ImageInput, 0, len(in))
	for _, img := range in {
		out = append(out, productsvc.ImageInput{
			URL:        img.URL,
			StorageKey: img.StorageKey,
			Alt:        img.Alt,
			Position:   img.Position,
		})
	}
	return out
}

func toVariantInputs(in []productVariantRequest) []productsvc.VariantInput {
	out := make([]productsvc.VariantInput, 0, len(in))
	for _, v := range in {
		out = append(out, productsvc.VariantInput{
			Size:  v.Size,
			Color: v.Color,
			Model: v.Model,
			SKU:   v.SKU,
			Price: v.Price,
			Stock: v.Stock,
		})
	}
	return out
}

func statusError() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{"status": "must be one of draft published archived"})
}
