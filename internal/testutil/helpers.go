package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/TimurManjosov/godecider/internal/decider"
	"github.com/TimurManjosov/godecider/internal/engine"
	"github.com/TimurManjosov/godecider/internal/rules"
	"github.com/TimurManjosov/godecider/internal/store"
)

// MustParse parses a YAML feature document or fails the test.
func MustParse(t *testing.T, yaml string) *rules.Document {
	t.Helper()
	doc, err := rules.Parse([]byte(yaml), rules.FormatYAML)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	return doc
}

// NewDecider creates a default-registry decider backed by an in-memory source.
// Use the returned source to swap in new documents.
func NewDecider(t *testing.T, yaml string, opts ...decider.Option) (*decider.Decider, *store.MemorySource) {
	t.Helper()
	src := store.NewMemorySource(MustParse(t, yaml))
	d, err := decider.Init(context.Background(), engine.RegistryDefault, src, opts...)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	return d, src
}

// WriteFile writes content to name inside a fresh temp dir and returns its path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	return path
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}
