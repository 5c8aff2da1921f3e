// Package local stores uploads on disk through a gocloud file bucket. It is
// the fallback when S3 is not configured or unreachable.
package local

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/gcerrors"

	"github.com/angelmondragon/mercado-backend/pkg/storage"
)

var _ storage.ObjectStore = (*Store)(nil)

// ErrOutsideRoot is returned for keys that escape the uploads directory.
var ErrOutsideRoot = errors.New("path escapes uploads root")

// Store persists objects below a root directory.
type Store struct {
	bucket *blob.Bucket
	root   string
}

// Open creates dir when needed and opens it as a bucket.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "uploads"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads dir: %w", err)
	}
	bucket, err := fileblob.OpenBucket(abs, &fileblob.Options{CreateDir: true})
	if err != nil {
		return nil, fmt.Errorf("open uploads bucket: %w", err)
	}
	return &Store{bucket: bucket, root: abs}, nil
}

// Root returns the absolute uploads directory.
func (s *Store) Root() string {
	return s.root
}

// Put writes data under key. Keys may carry the uploads/ prefix.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}
	if err := s.bucket.WriteAll(ctx, objectKey, data, &blob.WriterOptions{ContentType: contentType}); err != nil {
		return fmt.Errorf("write %s: %w", objectKey, err)
	}
	return nil
}

// Open streams the object stored at key.
func (s *Store) Open(ctx context.Context, key string) (*storage.Object, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}
	reader, err := s.bucket.NewReader(ctx, objectKey, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", objectKey, err)
	}
	return &storage.Object{
		Body:        reader,
		ContentType: reader.ContentType(),
		Size:        reader.Size(),
	}, nil
}

// Delete removes key. A missing object is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}
	if err := s.bucket.Delete(ctx, objectKey); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil
		}
		return fmt.Errorf("delete %s: %w", objectKey, err)
	}
	return nil
}

// PublicURL returns the path the object is served from.
func (s *Store) PublicURL(key string) string {
	if !storage.IsLocal(key) {
		key = storage.LocalPrefix + strings.TrimLeft(key, "/")
	}
	return storage.LocalURL(key)
}

// Close releases the bucket.
func (s *Store) Close() error {
	return s.bucket.Close()
}

// objectKey strips the uploads/ prefix and rejects keys that would leave the root.
func (s *Store) objectKey(key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimLeft(key, "/"), storage.LocalPrefix)
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrOutsideRoot
	}
	cleaned := path.Clean("/" + key)
	if cleaned == "/" || cleaned != "/"+key {
		return "", ErrOutsideRoot
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}
