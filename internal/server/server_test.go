package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	if cfg.Store == "" {
		cfg.Store = "memory"
	}
	cfg.Slot = "test"
	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestServerRoutes(t *testing.T) {
	s := newTestServer(t, Config{Host: "localhost", Port: "8086"})

	w := get(s, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/editor/events")
	assert.Contains(t, w.Header().Values("Link"), `</api/v1/style>; rel="style"`)

	assert.Equal(t, http.StatusOK, get(s, "/editor").Code)
	assert.Equal(t, http.StatusNotFound, get(s, "/nope").Code)

	w = get(s, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Values("Link"), `</openapi.json>; rel="service-desc"`)

	w = get(s, "/api/v1/style/layers")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"countries-fill"`)

	assert.NotNil(t, s.OpenAPI().Paths["/api/v1/editor/events"])
}

func TestServerInitialView(t *testing.T) {
	s := newTestServer(t, Config{InitialView: "#9/48.85/2.35/0/0"})
	assert.Equal(t, 9.0, s.Core().Viewport().Zoom)
}

func TestServerDefaultStyle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 8, "layers": [{"id": "only"}]}`), 0o644))

	s := newTestServer(t, Config{DefaultStyle: path})
	assert.Equal(t, "only", s.Core().Layers()[0].ID)

	_, err := New(context.Background(), Config{Store: "memory", DefaultStyle: filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)
}

func TestServerPersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Store: "file", DataDir: dir}

	s := newTestServer(t, cfg)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/style", strings.NewReader(`{"version": 8, "layers": [{"id": "saved"}]}`))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	s = newTestServer(t, cfg)
	assert.Equal(t, "saved", s.Core().Layers()[0].ID)
}

func TestServerUnknownStore(t *testing.T) {
	_, err := New(context.Background(), Config{Store: "s3"})
	assert.Error(t, err)
}

func TestClientOperationIDs(t *testing.T) {
	s := newTestServer(t, Config{})
	paths := s.OpenAPI().Paths

	assert.Equal(t, "health", paths["/health"].Get.OperationID)
	assert.Equal(t, "import-style", paths["/api/v1/style/import"].Post.OperationID)
	assert.Equal(t, "set-layer-visibility", paths["/api/v1/style/layers/{id}/visibility"].Put.OperationID)
	assert.Equal(t, "resolve-viewport", paths["/api/v1/viewport/resolve"].Get.OperationID)
}
