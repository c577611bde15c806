package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/docfs/internal/infrastructure/config"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/logging"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Root = t.TempDir()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Metrics.Address = "127.0.0.1:0"
	cfg.Logging.Development = true
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := NewServer(cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func send(h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNewServerRejectsBadRoot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Root = filepath.Join(t.TempDir(), "missing")
	_, err := NewServer(cfg, logging.NewNop())
	assert.ErrorContains(t, err, "invalid storage root")

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	cfg.Storage.Root = file
	_, err = NewServer(cfg, logging.NewNop())
	assert.ErrorContains(t, err, "not a directory")
}

func TestNewServerRejectsBadExclude(t *testing.T) {
	cfg := testConfig(t)
	cfg.Packager.Exclude = []string{"[oops"}

	_, err := NewServer(cfg, logging.NewNop())
	assert.ErrorContains(t, err, "failed to create packager")
}

func TestServerEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	srv := newTestServer(t, cfg)
	h := srv.Handler()

	w := send(h, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))

	require.Equal(t, http.StatusOK, send(h, http.MethodGet, "/mkdir/report/word", nil).Code)
	require.Equal(t, http.StatusOK, send(h, http.MethodPost, "/write/report/%5BContent_Types%5D.xml", []byte("<Types/>")).Code)
	require.Equal(t, http.StatusOK, send(h, http.MethodPost, "/write/report/word/document.xml", []byte("<w:document/>")).Code)

	// Built-in packager, since no command is configured.
	w = send(h, http.MethodPost, "/mkdocx/report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = send(h, http.MethodGet, "/read/report.docx/word/document.xml", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/xml", w.Header().Get("Content-Type"))
	assert.Equal(t, "<w:document/>", w.Body.String())

	w = send(h, http.MethodGet, "/read/report.docx/word/missing.xml", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = send(h, http.MethodGet, "/frobnicate/x", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "frobnicate")
}

func TestMetricsAndHealthStayOffCommandListener(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	w := send(srv.Handler(), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, `unknown command "metrics"`, w.Body.String())

	send(srv.Handler(), http.MethodGet, "/read/nothing", nil)

	w = send(srv.OpsHandler(), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "docfs_http_requests_total"))

	w = send(srv.OpsHandler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string `json:"status"`
		Stats  struct {
			TotalRequests int64 `json:"total_requests"`
			TotalErrors   int64 `json:"total_errors"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, int64(2), body.Stats.TotalRequests)
	assert.Equal(t, int64(2), body.Stats.TotalErrors)
}

func TestRateLimitReturnsPlainText(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1
	srv := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, send(srv.Handler(), http.MethodGet, "/mkdir/a", nil).Code)

	w := send(srv.Handler(), http.MethodGet, "/mkdir/a", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
}

func TestGlobalRateLimitSharesOneBucket(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1
	cfg.RateLimit.Scope = config.RateLimitScopeGlobal
	srv := newTestServer(t, cfg)

	first := httptest.NewRequest(http.MethodGet, "/mkdir/a", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, first)
	assert.Equal(t, http.StatusOK, w.Code)

	// A different client draws from the same bucket.
	second := httptest.NewRequest(http.MethodGet, "/mkdir/b", nil)
	second.RemoteAddr = "10.0.0.2:1234"
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, second)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRunAndShutdown(t *testing.T) {
	srv, err := NewServer(testConfig(t), logging.NewNop())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Run() }()

	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}

func TestRunWithoutOpsListener(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	srv, err := NewServer(cfg, logging.NewNop())
	require.NoError(t, err)
	assert.Nil(t, srv.opsHTTP)

	done := make(chan error, 1)
	go func() { done <- srv.Run() }()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, <-done)
}
