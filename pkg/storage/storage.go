// Package storage defines the object storage contracts shared by the S3 and
// local-disk backends, plus the key layout both follow.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// LocalPrefix marks keys that live in the local uploads store.
const LocalPrefix = "uploads/"

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// ErrNotConfigured is returned when a backend was not configured.
var ErrNotConfigured = errors.New("storage not configured")

// Object is an open stream for a stored file.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// ObjectStore is the read/write surface shared by every backend.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Open(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// PresignedUpload describes a browser-side PUT.
type PresignedUpload struct {
	URL       string    `json:"uploadUrl"`
	Key       string    `json:"key"`
	PublicURL string    `json:"publicUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Presigner issues short-lived upload URLs.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string) (*PresignedUpload, error)
}

// ObjectKey returns a remote key of the form <vendorId>/<uuid>.<ext>.
func ObjectKey(vendorID uuid.UUID, ext string) string {
	return vendorID.String() + "/" + uuid.NewString() + normalizeExt(ext)
}

// LocalKey returns a local key of the form uploads/<vendorId>/<uuid>.<ext>.
func LocalKey(vendorID uuid.UUID, ext string) string {
	return LocalPrefix + ObjectKey(vendorID, ext)
}

// IsLocal reports whether key belongs to the local store.
func IsLocal(key string) bool {
	return strings.HasPrefix(key, LocalPrefix)
}

// OwnedBy reports whether key was issued for vendorID on either backend.
func OwnedBy(key string, vendorID uuid.UUID) bool {
	if strings.Contains(key, "..") {
		return false
	}
	prefix := vendorID.String() + "/"
	return strings.HasPrefix(key, prefix) || strings.HasPrefix(key, LocalPrefix+prefix)
}

// FilterOwned keeps the keys issued for vendorID, dropping blanks and duplicates.
func FilterOwned(keys []string, vendorID uuid.UUID) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if _, dup := seen[key]; dup || !OwnedBy(key, vendorID) {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// LocalURL maps a local key to the path it is served from.
func LocalURL(key string) string {
	return "/" + strings.TrimPrefix(key, "/")
}

// Extension picks the file extension for an upload, preferring the client
// file name and falling back to the MIME type.
func Extension(fileName, contentType string) string {
	if ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName))); ext != "" && len(ext) <= 6 {
		return ext
	}
	if m := mimetype.Lookup(contentType); m != nil {
		return m.Extension()
	}
	return ""
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
