package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	pkgerrors "github.com/angelmondragon/mercado-backend/pkg/errors"
	"github.com/angelmondragon/mercado-backend/pkg/logger"
	"github.com/angelmondragon/mercado-backend/pkg/metrics"
	"github.com/angelmondragon/mercado-backend/pkg/storage"
	"github.com/angelmondragon/mercado-backend/pkg/storage/local"
)

const (
	BackendS3    = "s3"
	BackendLocal = "local"

	defaultMaxUploadBytes = 10 << 20
)

// RemoteStore is the S3 surface used by the media service.
type RemoteStore interface {
	storage.ObjectStore
	storage.Presigner
	KeyFromURL(raw string) (string, bool)
}

// PresignInput is the browser-side upload request.
type PresignInput struct {
	FileName    string
	ContentType string
}

// UploadResult describes a stored direct upload.
type UploadResult struct {
	Key     string `json:"key"`
	URL     string `json:"url"`
	Storage string `json:"storage"`
}

// Options wires the media service.
type Options struct {
	Remote   RemoteStore
	Local    storage.ObjectStore
	MaxBytes int64
	Metrics  *metrics.StorageMetrics
	Logger   *logger.Logger
}

// Service issues uploads and removes stored objects across both backends.
type Service struct {
	remote   RemoteStore
	local    storage.ObjectStore
	maxBytes int64
	metrics  *metrics.StorageMetrics
	logg     *logger.Logger
}

// NewService constructs the media service. Remote may be nil when S3 is not configured.
func NewService(opts Options) (*Service, error) {
	if opts.Local == nil {
		return nil, fmt.Errorf("local store required")
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxUploadBytes
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Service{
		remote:   opts.Remote,
		local:    opts.Local,
		maxBytes: opts.MaxBytes,
		metrics:  opts.Metrics,
		logg:     opts.Logger,
	}, nil
}

// MaxBytes is the direct upload ceiling.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Presign returns a PUT URL for a browser upload straight to S3.
func (s *Service) Presign(ctx context.Context, vendorID uuid.UUID, input PresignInput) (*storage.PresignedUpload, error) {
	if strings.TrimSpace(input.FileName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fileName is required").
			WithDetails(map[string]string{"fileName": "is required"})
	}
	mediaType, err := parseMimeType(input.ContentType)
	if err != nil || !isImage(mediaType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contentType must be an image").
			WithDetails(map[string]string{"contentType": "must be image/*"})
	}
	if s.remote == nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, storage.ErrNotConfigured, "object storage not configured")
	}

	key := storage.ObjectKey(vendorID, storage.Extension(input.FileName, mediaType))
	upload, err := s.remote.PresignPut(ctx, key, mediaType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presign upload")
	}
	return upload, nil
}

// DirectUpload stores data on S3, falling back to the local store when S3 is
// missing or rejects the write.
func (s *Service) DirectUpload(ctx context.Context, vendorID uuid.UUID, fileName string, data []byte) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required").
			WithDetails(map[string]string{"file": "is required"})
	}
	if int64(len(data)) > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file must be at most %d bytes", s.maxBytes)).
			WithDetails(map[string]string{"file": "too large"})
	}
	detected, err := sniffImage(data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file must be an image").
			WithDetails(map[string]string{"file": "must be an image"})
	}

	contentType := detected.String()
	ext := detected.Extension()
	if ext == "" {
		ext = storage.Extension(fileName, contentType)
	}

	if s.remote != nil {
		key := storage.ObjectKey(vendorID, ext)
		err := s.remote.Put(ctx, key, data, contentType)
		if err == nil {
			return &UploadResult{Key: key, URL: s.remote.PublicURL(key), Storage: BackendS3}, nil
		}
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "s3 upload failed, using local store")
	}

	key := storage.LocalKey(vendorID, ext)
	if err := s.local.Put(ctx, key, data, contentType); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store upload")
	}
	return &UploadResult{Key: key, URL: s.local.PublicURL(key), Storage: BackendLocal}, nil
}

// OpenLocal streams a file from the uploads directory.
func (s *Service) OpenLocal(ctx context.Context, key string) (*storage.Object, error) {
	obj, err := s.local.Open(ctx, key)
	if err != nil {
		return nil, mapOpenError(err)
	}
	return obj, nil
}

// Proxy streams an object given its key or its public bucket URL.
func (s *Service) Proxy(ctx context.Context, raw string) (*storage.Object, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "url is required")
	}

	var key string
	if strings.Contains(raw, "://") {
		found, ok := "", false
		if s.remote != nil {
			found, ok = s.remote.KeyFromURL(raw)
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "url host not allowed")
		}
		key = found
	} else {
		key = strings.TrimLeft(raw, "/")
	}

	if storage.IsLocal(key) {
		return s.OpenLocal(ctx, key)
	}
	if s.remote == nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, storage.ErrNotConfigured, "object storage not configured")
	}
	obj, err := s.remote.Open(ctx, key)
	if err != nil {
		return nil, mapOpenError(err)
	}
	return obj, nil
}

// KeyFor maps a stored URL back to its object key: local /uploads paths and
// public bucket URLs resolve, anything else does not.
func (s *Service) KeyFor(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		key := strings.TrimLeft(raw, "/")
		return key, storage.IsLocal(key)
	}
	if s.remote == nil {
		return "", false
	}
	return s.remote.KeyFromURL(raw)
}

// RemoveMany deletes every key from its backend. Failures are aggregated,
// logged and counted; callers treat the result as best-effort.
func (s *Service) RemoveMany(ctx context.Context, keys []string) error {
	var errs error
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		backend, err := s.remove(ctx, key)
		if err != nil {
			s.metrics.IncFailed(backend)
			errs = multierr.Append(errs, fmt.Errorf("remove %s: %w", key, err))
			continue
		}
		s.metrics.IncDeleted(backend)
	}
	if errs != nil {
		fields := map[string]any{"failed": len(multierr.Errors(errs)), "error": errs.Error()}
		s.logg.Warn(s.logg.WithFields(ctx, fields), "storage cleanup incomplete")
	}
	return errs
}

func (s *Service) remove(ctx context.Context, key string) (string, error) {
	if storage.IsLocal(key) {
		return BackendLocal, s.local.Delete(ctx, key)
	}
	if s.remote == nil {
		return BackendS3, storage.ErrNotConfigured
	}
	return BackendS3, s.remote.Delete(ctx, key)
}

func mapOpenError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "file not found")
	case errors.Is(err, local.ErrOutsideRoot):
		return pkgerrors.New(pkgerrors.CodeForbidden, "path not allowed")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open object")
	}
}
