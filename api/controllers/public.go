package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/mercado-backend/api/responses"
	"github.com/angelmondragon/mercado-backend/api/validators"
	productsvc "github.com/angelmondragon/mercado-backend/internal/products"
	"github.com/angelmondragon/mercado-backend/internal/vendors"
	pkgerrors "github.com/angelmondragon/mercado-backend/pkg/errors"
	"github.com/angelmondragon/mercado-backend/pkg/logger"
)

type publicVendorResponse struct {
	Vendor   *vendors.VendorDTO      `json:"vendor"`
	Products []productsvc.ProductDTO `json:"products"`
}

// PublicProducts is the storefront home listing.
func PublicProducts(svc productsvc.PublicService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		q := productsvc.HomeQuery{
			Search:       validators.SanitizeString(r.URL.Query().Get("q"), 200),
			CategorySlug: validators.SanitizeString(r.URL.Query().Get("category"), 120),
		}
		list, err := svc.ListHome(r.Context(), q)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func PublicProductDetail(svc productsvc.PublicService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		slug, ok := slugParam(w, r, logg)
		if !ok {
			return
		}
		product, err := svc.Detail(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func PublicSimilarProducts(svc productsvc.PublicService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		slug, ok := slugParam(w, r, logg)
		if !ok {
			return
		}
		list, err := svc.Similar(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func PublicMoreFromVendor(svc productsvc.PublicService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		slug, ok := slugParam(w, r, logg)
		if !ok {
			return
		}
		list, err := svc.MoreFromVendor(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func PublicBestSellers(svc productsvc.PublicService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		list, err := svc.BestSellers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func PublicVendors(svc vendors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "vendor")
			return
		}
		list, err := svc.ListPublic(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// PublicVendorDetail returns a vendor profile with its published products.
func PublicVendorDetail(vendorSvc vendors.Service, products productsvc.PublicService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if vendorSvc == nil || products == nil {
			unavailable(w, r, logg, "vendor")
			return
		}
		slug, ok := slugParam(w, r, logg)
		if !ok {
			return
		}
		vendor, err := vendorSvc.GetBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := products.ListByVendor(r.Context(), vendor.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, publicVendorResponse{Vendor: vendors.FromModel(vendor), Products: list})
	}
}

func slugParam(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	if slug == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "slug is required"))
		return "", false
	}
	return slug, true
}
