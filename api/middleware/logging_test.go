package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/mercado-backend/pkg/logger"
)

func newBufferedLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Options{ServiceName: "mercado-test", Level: logger.ParseLevel("debug"), Output: buf})
}

func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func findEntry(entries []map[string]any, message string) map[string]any {
	for _, entry := range entries {
		if entry["message"] == message {
			return entry
		}
	}
	return nil
}

func TestLoggingRecordsRouteAndSize(t *testing.T) {
	buf := &bytes.Buffer{}
	r := chi.NewRouter()
	r.Use(Logging(newBufferedLogger(buf)))
	r.Get("/api/public/vendors/{slug}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/public/vendors/tienda-sol", nil)
	req.RemoteAddr = "10.1.2.3:4567"
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logEntries(t, buf)
	if findEntry(entries, "request.start") == nil {
		t.Fatalf("expected request.start entry, got %v", entries)
	}
	done := findEntry(entries, "request.complete")
	if done == nil {
		t.Fatalf("expected request.complete entry, got %v", entries)
	}
	if done["level"] != "info" {
		t.Fatalf("expected info level, got %v", done["level"])
	}
	if done["route"] != "/api/public/vendors/{slug}" {
		t.Fatalf("unexpected route %v", done["route"])
	}
	if done["bytes"] != float64(5) || done["status"] != float64(http.StatusOK) {
		t.Fatalf("unexpected bytes/status %v/%v", done["bytes"], done["status"])
	}
	if done["client_ip"] != "10.1.2.3" {
		t.Fatalf("unexpected client ip %v", done["client_ip"])
	}
}

func TestLoggingWarnsOnServerErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := Logging(newBufferedLogger(buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/vendor/products", nil))

	done := findEntry(logEntries(t, buf), "request.complete")
	if done == nil || done["level"] != "warn" {
		t.Fatalf("expected warn request.complete, got %v", done)
	}
}

func TestLoggingSkipsHealthAndMetrics(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := Logging(newBufferedLogger(buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no log output, got %s", buf.String())
	}
}

func TestRequestIDKeepsWellFormedHeader(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(requestIDHeader)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "edge-7f3a:01")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(requestIDHeader); got != "edge-7f3a:01" || seen != got {
		t.Fatalf("expected inbound id echoed, got header=%q seen=%q", got, seen)
	}
}

func TestRequestIDReplacesUnusableHeader(t *testing.T) {
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, inbound := range []string{"", "has spaces", "line\nbreak", strings.Repeat("a", 65)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if inbound != "" {
			req.Header[requestIDHeader] = []string{inbound}
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		got := rec.Header().Get(requestIDHeader)
		if got == inbound || len(got) != 36 {
			t.Fatalf("inbound %q: expected generated uuid, got %q", inbound, got)
		}
	}
}

func TestRecovererWritesInternalEnvelope(t *testing.T) {
	buf := &bytes.Buffer{}
	r := chi.NewRouter()
	r.Use(Recoverer(newBufferedLogger(buf)))
	r.Get("/api/vendor/products/{productId}", func(w http.ResponseWriter, r *http.Request) {
		panic("nil catalog")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/vendor/products/abc", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	entry := findEntry(logEntries(t, buf), "panic.recovered")
	if entry == nil {
		t.Fatalf("expected panic.recovered entry, got %s", buf.String())
	}
	if entry["panic"] != "nil catalog" || entry["route"] != "/api/vendor/products/{productId}" {
		t.Fatalf("unexpected panic fields %v", entry)
	}
}

func TestRecovererReraisesAbort(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
