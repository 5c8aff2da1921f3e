package controllers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/mercado-backend/api/responses"
	"github.com/angelmondragon/mercado-backend/api/validators"
	"github.com/angelmondragon/mercado-backend/internal/media"
	"github.com/angelmondragon/mercado-backend/pkg/logger"
	"github.com/angelmondragon/mercado-backend/pkg/storage"
)

// MediaService is the upload surface the controllers depend on.
type MediaService interface {
	MaxBytes() int64
	Presign(ctx context.Context, vendorID uuid.UUID, input media.PresignInput) (*storage.PresignedUpload, error)
	DirectUpload(ctx context.Context, vendorID uuid.UUID, fileName string, data []byte) (*media.UploadResult, error)
	OpenLocal(ctx context.Context, key string) (*storage.Object, error)
	Proxy(ctx context.Context, raw string) (*storage.Object, error)
}

type presignRequest struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required,max=120"`
}

// PresignUpload returns a signed PUT URL for a browser upload to the bucket.
func PresignUpload(svc MediaService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "media")
			return
		}
		vendor, ok := vendorOrAbort(w, r, logg)
		if !ok {
			return
		}

		var payload presignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		upload, err := svc.Presign(r.Context(), vendor.ID, media.PresignInput{
			FileName:    payload.FileName,
			ContentType: payload.ContentType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, upload)
	}
}

// DirectUpload accepts a multipart "file" field and stores it server-side.
func DirectUpload(svc MediaService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "media")
			return
		}
		vendor, ok := vendorOrAbort(w, r, logg)
		if !ok {
			return
		}

		data, fileName, err := validators.ReadMultipartFile(w, r, "file", svc.MaxBytes())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.DirectUpload(r.Context(), vendor.ID, fileName, data)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ServeUpload streams files written by the local fallback store.
func ServeUpload(svc MediaService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "media")
			return
		}
		rest := chi.URLParam(r, "*")
		obj, err := svc.OpenLocal(r.Context(), storage.LocalPrefix+rest)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Content-Type", media.ContentTypeForPath(rest))
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		streamObject(w, r, logg, obj)
	}
}

// ImageProxy streams a stored image by key or public bucket URL.
func ImageProxy(svc MediaService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "media")
			return
		}
		obj, err := svc.Proxy(r.Context(), r.URL.Query().Get("url"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		contentType := obj.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=86400")
		streamObject(w, r, logg, obj)
	}
}

func streamObject(w http.ResponseWriter, r *http.Request, logg *logger.Logger, obj *storage.Object) {
	defer obj.Body.Close()
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil && logg != nil {
		logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "media.stream_failed")
	}
}
