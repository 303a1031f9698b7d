package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	mid "github.com/suteetoe/salescrm/internal/middleware"
	"github.com/suteetoe/salescrm/internal/model"
	"github.com/suteetoe/salescrm/internal/testutil"
	"github.com/suteetoe/salescrm/pkg/jwtutil"
	"github.com/suteetoe/salescrm/pkg/logger"
	"github.com/suteetoe/salescrm/prometheus"
)

type testEnv struct {
	e       *echo.Echo
	db      *gorm.DB
	jwt     *jwtutil.JWTUtil
	metrics *prometheus.Metrics
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "test-key", ExpirationHours: 1})
	metrics := prometheus.New("test", promclient.NewRegistry())

	h := New(Options{
		DB:                 db,
		JWT:                jwt,
		Metrics:            metrics,
		CookieName:         "crm_session",
		DefaultCountryCode: "1",
	})

	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler
	e.Use(mid.RequestIDMiddleware)
	e.Use(logger.Middleware(zaptest.NewLogger(t)))
	e.Use(mid.SessionMiddleware(jwt, db, "crm_session"))
	e.Any("/api", NewDispatcher(h.Actions(), metrics).Handle)

	return &testEnv{e: e, db: db, jwt: jwt, metrics: metrics}
}

// user creates a user and returns it with a session token
func (env *testEnv) user(t *testing.T, username, role string) (*model.User, string) {
	t.Helper()

	u := testutil.CreateUser(t, env.db, username, "secret", role)
	token, err := env.jwt.GenerateToken(u.ID, u.Username, u.Role)
	require.NoError(t, err)
	return u, token
}

func (env *testEnv) request(t *testing.T, method, token, action string, query url.Values, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	if query == nil {
		query = url.Values{}
	}
	query.Set("api", action)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, "/api?"+query.Encode(), reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) post(t *testing.T, token, action string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return env.request(t, http.MethodPost, token, action, nil, body)
}

func (env *testEnv) get(t *testing.T, token, action string, query url.Values) *httptest.ResponseRecorder {
	t.Helper()
	return env.request(t, http.MethodGet, token, action, query, nil)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func requireStatus(t *testing.T, want int, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, want, rec.Code, rec.Body.String())
}
