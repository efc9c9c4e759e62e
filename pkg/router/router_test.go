package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peripheralhq/peripheral-mcp/internal/auth"
	"github.com/peripheralhq/peripheral-mcp/pkg/store"
)

type fakeStore struct {
	pingErr error
}

func (f *fakeStore) Find(context.Context, store.Query) ([]store.Record, error) {
	return []store.Record{}, nil
}
func (f *fakeStore) Insert(context.Context, string, store.Record) error { return nil }
func (f *fakeStore) Ping(context.Context) error                         { return f.pingErr }
func (f *fakeStore) Close() error                                       { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// join mirrors the unexported join in router.go for test setup.
func join(base, path string) string {
	b := strings.TrimRight(base, "/")
	p := strings.TrimLeft(path, "/")
	if b == "" {
		return "/" + p
	}
	return b + "/" + p
}

func TestNewRouter_Endpoints(t *testing.T) {
	testCases := []struct {
		name         string
		config       *RouterConfig
		expectStream bool
		expectSSE    bool
	}{
		{
			name: "default config (stream only)",
			config: &RouterConfig{
				EnableStream: true,
				Name:         "test-server",
				Version:      "v1.2.3",
			},
			expectStream: true,
		},
		{
			name: "sse and stream enabled",
			config: &RouterConfig{
				EnableStream: true,
				EnableSSE:    true,
				Name:         "test-server",
				Version:      "v1.2.3",
			},
			expectStream: true,
			expectSSE:    true,
		},
		{
			name: "with base path",
			config: &RouterConfig{
				BasePath:     "/api/v1",
				EnableStream: true,
				Name:         "test-server",
				Version:      "v1.2.3",
			},
			expectStream: true,
		},
		{
			name:         "nil config (defaults to stream only)",
			config:       nil,
			expectStream: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mcpServer := mcp.NewServer(&mcp.Implementation{Name: "test-server", Version: "v1.2.3"}, nil)

			effectiveConfig := tc.config
			if effectiveConfig == nil {
				effectiveConfig = &RouterConfig{EnableStream: true}
			}

			handler := NewRouter(mcpServer, testLogger(), tc.config)

			testEndpoint := func(method, path string, expectedStatus int) {
				t.Helper()
				req := httptest.NewRequest(method, path, nil)
				rr := httptest.NewRecorder()
				handler.ServeHTTP(rr, req)
				assert.Equal(t, expectedStatus, rr.Code, "%s %s", method, path)
			}

			basePath := effectiveConfig.BasePath
			testEndpoint(http.MethodGet, join(basePath, HEALTH), http.StatusOK)
			testEndpoint(http.MethodPost, join(basePath, HEALTH), http.StatusMethodNotAllowed)
			testEndpoint(http.MethodGet, join(basePath, READY), http.StatusOK)
			testEndpoint(http.MethodPost, join(basePath, READY), http.StatusMethodNotAllowed)
			testEndpoint(http.MethodGet, join(basePath, "/"), http.StatusOK)
			testEndpoint(http.MethodPost, join(basePath, "/"), http.StatusMethodNotAllowed)

			streamPath := join(basePath, HTTP)
			if tc.expectStream {
				// mounted streamable handler rejects an empty body with 400
				testEndpoint(http.MethodPost, streamPath, http.StatusBadRequest)
			} else {
				testEndpoint(http.MethodPost, streamPath, http.StatusNotFound)
			}

			ssePath := join(basePath, SSE)
			if !tc.expectSSE {
				testEndpoint(http.MethodGet, ssePath, http.StatusNotFound)
			}

			// info endpoint content
			infoReq := httptest.NewRequest(http.MethodGet, join(basePath, "/"), nil)
			infoRR := httptest.NewRecorder()
			handler.ServeHTTP(infoRR, infoReq)
			require.Equal(t, http.StatusOK, infoRR.Code)

			var info struct {
				Name      string `json:"name"`
				Version   string `json:"version"`
				Endpoints struct {
					Health string `json:"health"`
					Ready  string `json:"ready"`
					SSE    string `json:"sse,omitempty"`
					Stream string `json:"stream,omitempty"`
				} `json:"endpoints"`
			}
			require.NoError(t, json.NewDecoder(infoRR.Body).Decode(&info))

			assert.Equal(t, effectiveConfig.Name, info.Name)
			assert.Equal(t, effectiveConfig.Version, info.Version)
			assert.Equal(t, join(basePath, HEALTH), info.Endpoints.Health)
			assert.Equal(t, join(basePath, READY), info.Endpoints.Ready)
			if tc.expectStream {
				assert.Equal(t, streamPath, info.Endpoints.Stream)
			} else {
				assert.Empty(t, info.Endpoints.Stream)
			}
			if tc.expectSSE {
				assert.Equal(t, ssePath, info.Endpoints.SSE)
			} else {
				assert.Empty(t, info.Endpoints.SSE)
			}
		})
	}
}

func TestNewRouter_ReadinessProbesStore(t *testing.T) {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: "t", Version: "0"}, nil)

	t.Run("store reachable", func(t *testing.T) {
		handler := NewRouter(mcpServer, testLogger(), &RouterConfig{
			EnableStream: true,
			Store:        &fakeStore{},
		})
		req := httptest.NewRequest(http.MethodGet, READY, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("store down", func(t *testing.T) {
		handler := NewRouter(mcpServer, testLogger(), &RouterConfig{
			EnableStream: true,
			Store:        &fakeStore{pingErr: store.ErrUnavailable},
		})
		req := httptest.NewRequest(http.MethodGet, READY, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestNewRouter_AuthOnMCPEndpoints(t *testing.T) {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: "t", Version: "0"}, nil)
	handler := NewRouter(mcpServer, testLogger(), &RouterConfig{
		EnableStream: true,
		Verifier:     auth.NewVerifier("secret-token"),
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, HTTP, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("wrong token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, HTTP, nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid token reaches the handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, HTTP, nil)
		req.Header.Set("Authorization", "Bearer secret-token")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		// empty body, but past auth: the MCP handler answers, not the guard
		assert.NotEqual(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("health stays open", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, HEALTH, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestNewRouter_RequestIDHeader(t *testing.T) {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: "t", Version: "0"}, nil)
	handler := NewRouter(mcpServer, testLogger(), &RouterConfig{EnableStream: true})

	req := httptest.NewRequest(http.MethodGet, HEALTH, nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}
