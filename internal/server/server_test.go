package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/autosettle/internal/config"
	"github.com/aristath/autosettle/internal/di"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		DataDir:               t.TempDir(),
		Port:                  0,
		RPCURL:                "http://127.0.0.1:1",
		RPCCommit:             "confirmed",
		WarmInterval:          time.Minute,
		SettleInterval:        20 * time.Second,
		LoadDelay:             time.Second,
		TokenAccountsInterval: 30 * time.Second,
		DisabledOverride:      true,
	}
	container, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(container.Close)

	return New(Config{
		Log:       zerolog.Nop(),
		Config:    cfg,
		Container: container,
		DevMode:   true,
	})
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/preferences/", http.StatusOK},
		{http.MethodGet, "/api/connection/config", http.StatusOK},
		{http.MethodGet, "/api/markets/", http.StatusOK},
		{http.MethodGet, "/api/wallet/", http.StatusOK},
		{http.MethodPost, "/api/wallet/connect", http.StatusConflict},
		{http.MethodGet, "/api/autosettle/status", http.StatusOK},
		{http.MethodGet, "/api/system/jobs", http.StatusOK},
		{http.MethodGet, "/api/settings", http.StatusOK},
		{http.MethodGet, "/api/system/database", http.StatusOK},
		{http.MethodGet, "/api/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Router().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.JSONEq(t, `{"status":"healthy","version":"1.0.0","service":"autosettle"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestServer_MetricsExposeNamespace(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Contains(t, rec.Body.String(), "autosettle_market_cache_size")
}
