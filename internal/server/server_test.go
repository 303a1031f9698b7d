package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/suteetoe/salescrm/internal/model"
	"github.com/suteetoe/salescrm/internal/testutil"
	"github.com/suteetoe/salescrm/pkg/config"
	"github.com/suteetoe/salescrm/prometheus"
)

func newTestServer(t *testing.T, staticDir string) (http.Handler, *prometheus.Metrics) {
	t.Helper()

	cfg := &config.Config{
		Server:    config.ServerConfig{Env: "test", StaticDir: staticDir},
		Session:   config.SessionConfig{SigningKey: "test-key", ExpirationHours: 1, CookieName: "crm_session"},
		Bootstrap: config.BootstrapConfig{DefaultCountryCode: "1"},
	}

	db := testutil.NewDB(t)
	testutil.CreateUser(t, db, "admin", "secret", model.RoleAdmin)

	reg := promclient.NewRegistry()
	metrics := prometheus.New("crm", reg)

	e := New(Deps{
		Config:   cfg,
		DB:       db,
		Logger:   zaptest.NewLogger(t),
		Metrics:  metrics,
		Gatherer: reg,
	})
	return e, metrics
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t, "")

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestLoginFlowAndMetrics(t *testing.T) {
	h, _ := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api?api=auth.login", strings.NewReader(`{"username":"admin","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "crm_session" {
			session = c
		}
	}
	require.NotNil(t, session)

	req = httptest.NewRequest(http.MethodGet, "/api?api=stats", nil)
	req.AddCookie(session)
	rec = serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api?api=stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized","detail":"login required"}`, rec.Body.String())

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `crm_actions_total{action="auth.login",status="200"} 1`)
	assert.Contains(t, body, `crm_actions_total{action="stats",status="401"} 1`)
	assert.Contains(t, body, `crm_logins_total{result="ok"} 1`)
	assert.Contains(t, body, `crm_http_requests_total{method="GET",path="/api",status="401"} 1`)
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	h, _ := newTestServer(t, "")

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"not_found"`)
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>CRM</h1>"), 0o644))
	h, _ := newTestServer(t, dir)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>CRM</h1>")

	// The API still wins over the static catch-all
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api?api=nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown action")
}

func TestCORSAllowedOrigin(t *testing.T) {
	cfg := &config.Config{
		Server:  config.ServerConfig{Env: "test", AllowOrigins: []string{"http://localhost:5173"}},
		Session: config.SessionConfig{SigningKey: "test-key", ExpirationHours: 1, CookieName: "crm_session"},
	}
	e := New(Deps{Config: cfg, DB: testutil.NewDB(t), Logger: zaptest.NewLogger(t), Gatherer: promclient.NewRegistry()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := serve(e, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec = serve(e, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
