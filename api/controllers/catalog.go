package controllers

import (
	"net/http"
	"strconv"

	"github.com/angelmondragon/mercado-backend/api/responses"
	"github.com/angelmondragon/mercado-backend/internal/catalog"
	"github.com/angelmondragon/mercado-backend/pkg/logger"
)

// ShareCatalog returns the vendor's link for the current week, issuing it on
// first call (201) and returning it unchanged afterwards (200).
func ShareCatalog(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		vendor, ok := vendorOrAbort(w, r, logg)
		if !ok {
			return
		}

		link, created, err := svc.Share(r.Context(), vendor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, link)
	}
}

// ShareCatalogQR renders the current share URL as a PNG.
func ShareCatalogQR(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		vendor, ok := vendorOrAbort(w, r, logg)
		if !ok {
			return
		}

		png, err := svc.QR(r.Context(), vendor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		w.Header().Set("Cache-Control", "private, max-age=300")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(png); err != nil && logg != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "catalog.qr_write_failed")
		}
	}
}

// PublicSharedCatalog resolves a share slug into the vendor's live catalog.
func PublicSharedCatalog(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		slug, ok := slugParam(w, r, logg)
		if !ok {
			return
		}
		shared, err := svc.Resolve(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shared)
	}
}
