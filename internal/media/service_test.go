package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	pkgerrors "github.com/angelmondragon/mercado-backend/pkg/errors"
	"github.com/angelmondragon/mercado-backend/pkg/metrics"
	"github.com/angelmondragon/mercado-backend/pkg/storage"
	"github.com/angelmondragon/mercado-backend/pkg/storage/local"
)

type stubRemote struct {
	objects   map[string][]byte
	putErr    error
	deleteErr error
	deleted   []string
}

func newStubRemote() *stubRemote {
	return &stubRemote{objects: map[string][]byte{}}
}

func (s *stubRemote) Put(_ context.Context, key string, data []byte, _ string) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = data
	return nil
}

func (s *stubRemote) Open(_ context.Context, key string) (*storage.Object, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Object{Body: io.NopCloser(bytes.NewReader(data)), ContentType: "image/png", Size: int64(len(data))}, nil
}

func (s *stubRemote) Delete(_ context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, key)
	delete(s.objects, key)
	return nil
}

func (s *stubRemote) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func (s *stubRemote) KeyFromURL(raw string) (string, bool) {
	if !strings.HasPrefix(raw, "https://cdn.example.com/") {
		return "", false
	}
	return strings.TrimPrefix(raw, "https://cdn.example.com/"), true
}

func (s *stubRemote) PresignPut(_ context.Context, key, _ string) (*storage.PresignedUpload, error) {
	return &storage.PresignedUpload{
		URL:       "https://bucket.example.com/" + key + "?sig=1",
		Key:       key,
		PublicURL: s.PublicURL(key),
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestService(t *testing.T, remote RemoteStore, reg prometheus.Registerer) (*Service, *local.Store) {
	t.Helper()
	store, err := local.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	svc, err := NewService(Options{Remote: remote, Local: store, MaxBytes: 1 << 20, Metrics: metrics.NewStorageMetrics(reg)})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

func TestPresign(t *testing.T) {
	vendorID := uuid.New()
	svc, _ := newTestService(t, newStubRemote(), nil)

	upload, err := svc.Presign(context.Background(), vendorID, PresignInput{FileName: "foto.JPG", ContentType: "image/jpeg"})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.HasPrefix(upload.Key, vendorID.String()+"/") || !strings.HasSuffix(upload.Key, ".jpg") {
		t.Fatalf("unexpected key %q", upload.Key)
	}

	if _, err := svc.Presign(context.Background(), vendorID, PresignInput{FileName: "doc.pdf", ContentType: "application/pdf"}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPresignWithoutRemote(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	_, err := svc.Presign(context.Background(), uuid.New(), PresignInput{FileName: "a.png", ContentType: "image/png"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestDirectUploadPrefersS3(t *testing.T) {
	remote := newStubRemote()
	svc, _ := newTestService(t, remote, nil)
	vendorID := uuid.New()

	res, err := svc.DirectUpload(context.Background(), vendorID, "x.png", pngBytes(t))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Storage != BackendS3 || !strings.HasSuffix(res.Key, ".png") {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, ok := remote.objects[res.Key]; !ok {
		t.Fatalf("expected object stored remotely")
	}
}

func TestDirectUploadFallsBackToLocal(t *testing.T) {
	remote := newStubRemote()
	remote.putErr = errors.New("s3 down")
	svc, _ := newTestService(t, remote, nil)
	vendorID := uuid.New()
	ctx := context.Background()

	res, err := svc.DirectUpload(ctx, vendorID, "x.png", pngBytes(t))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Storage != BackendLocal || !strings.HasPrefix(res.Key, "uploads/"+vendorID.String()+"/") {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.URL != "/"+res.Key {
		t.Fatalf("unexpected url %q", res.URL)
	}

	obj, err := svc.OpenLocal(ctx, res.Key)
	if err != nil {
		t.Fatalf("open local: %v", err)
	}
	defer obj.Body.Close()
	body, _ := io.ReadAll(obj.Body)
	if !bytes.Equal(body, pngBytes(t)) {
		t.Fatal("stored bytes differ")
	}
}

func TestDirectUploadRejectsNonImages(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	_, err := svc.DirectUpload(context.Background(), uuid.New(), "x.png", []byte("%PDF-1.4 not an image"))
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	tooBig := bytes.Repeat([]byte{0}, (1<<20)+1)
	if _, err := svc.DirectUpload(context.Background(), uuid.New(), "x.png", tooBig); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected size validation error, got %v", err)
	}
}

func TestOpenLocalErrors(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	if _, err := svc.OpenLocal(ctx, "uploads/missing.png"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.OpenLocal(ctx, "uploads/../secret"); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestProxy(t *testing.T) {
	remote := newStubRemote()
	remote.objects["v/a.png"] = []byte("png")
	svc, _ := newTestService(t, remote, nil)
	ctx := context.Background()

	obj, err := svc.Proxy(ctx, "https://cdn.example.com/v/a.png")
	if err != nil {
		t.Fatalf("proxy by url: %v", err)
	}
	_ = obj.Body.Close()

	obj, err = svc.Proxy(ctx, "v/a.png")
	if err != nil {
		t.Fatalf("proxy by key: %v", err)
	}
	_ = obj.Body.Close()

	if _, err := svc.Proxy(ctx, "https://evil.example.com/v/a.png"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected rejected host, got %v", err)
	}
	if _, err := svc.Proxy(ctx, "v/missing.png"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestKeyFor(t *testing.T) {
	svc, _ := newTestService(t, newStubRemote(), nil)
	cases := []struct {
		raw  string
		key  string
		want bool
	}{
		{"/uploads/v/a.png", "uploads/v/a.png", true},
		{"https://cdn.example.com/v/b.png", "v/b.png", true},
		{"https://evil.example.com/v/b.png", "", false},
		{"/static/logo.png", "static/logo.png", false},
		{"", "", false},
	}
	for _, tc := range cases {
		key, ok := svc.KeyFor(tc.raw)
		if ok != tc.want || (ok && key != tc.key) {
			t.Fatalf("KeyFor(%q) = %q, %v; want %q, %v", tc.raw, key, ok, tc.key, tc.want)
		}
	}
}

func TestRemoveManyRoutesByPrefixAndCounts(t *testing.T) {
	remote := newStubRemote()
	reg := prometheus.NewRegistry()
	svc, store := newTestService(t, remote, reg)
	ctx := context.Background()
	vendorID := uuid.New()

	localKey := storage.LocalKey(vendorID, ".png")
	if err := store.Put(ctx, localKey, []byte("x"), "image/png"); err != nil {
		t.Fatalf("seed local: %v", err)
	}
	remoteKey := storage.ObjectKey(vendorID, ".png")
	remote.objects[remoteKey] = []byte("x")

	if err := svc.RemoveMany(ctx, []string{localKey, remoteKey, remoteKey, ""}); err != nil {
		t.Fatalf("remove many: %v", err)
	}
	if len(remote.deleted) != 1 || remote.deleted[0] != remoteKey {
		t.Fatalf("unexpected remote deletes %v", remote.deleted)
	}
	if _, err := svc.OpenLocal(ctx, localKey); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected local object removed, got %v", err)
	}

	remote.deleteErr = errors.New("denied")
	err := svc.RemoveMany(ctx, []string{storage.ObjectKey(vendorID, ".png"), storage.ObjectKey(vendorID, ".jpg")})
	if err == nil || !strings.Contains(err.Error(), "denied") {
		t.Fatalf("expected aggregated error, got %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got := counterValue(families, "storage_cleanup_deleted_total", BackendLocal); got != 1 {
		t.Fatalf("expected 1 local deletion, got %v", got)
	}
	if got := counterValue(families, "storage_cleanup_failed_total", BackendS3); got != 2 {
		t.Fatalf("expected 2 s3 failures, got %v", got)
	}
}

func counterValue(families []*dto.MetricFamily, name, backend string) float64 {
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "backend" && lp.GetValue() == backend {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestContentTypeForPath(t *testing.T) {
	cases := map[string]string{
		"a.PNG":  "image/png",
		"a.jpeg": "image/jpeg",
		"a.svg":  "image/svg+xml",
		"a.bin":  "application/octet-stream",
		"noext":  "application/octet-stream",
	}
	for name, want := range cases {
		if got := ContentTypeForPath(name); got != want {
			t.Fatalf("%s: expected %q, got %q", name, want, got)
		}
	}
}
