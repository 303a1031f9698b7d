package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/suteetoe/salescrm/internal/model"
	"github.com/suteetoe/salescrm/internal/session"
	"github.com/suteetoe/salescrm/internal/testutil"
	"github.com/suteetoe/salescrm/pkg/jwtutil"
)

func TestRequestIDMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(RequestIDMiddleware)
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("request_id").(string))
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := rec.Header().Get(echo.HeaderXRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "upstream-id")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-id", rec.Header().Get(echo.HeaderXRequestID))
}

func setupSessionServer(t *testing.T) (*echo.Echo, *jwtutil.JWTUtil, *gorm.DB) {
	t.Helper()

	db := testutil.NewDB(t)
	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "test", ExpirationHours: 1})

	e := echo.New()
	e.Use(SessionMiddleware(jwt, db, "crm_session"))
	e.GET("/whoami", func(c echo.Context) error {
		s, ok := session.FromContext(c)
		if !ok {
			return c.String(http.StatusOK, "anonymous")
		}
		return c.String(http.StatusOK, s.Username+":"+s.Role)
	})
	return e, jwt, db
}

func whoami(e *echo.Echo, modify func(*http.Request)) string {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	modify(req)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Body.String()
}

func TestSessionMiddleware(t *testing.T) {
	e, jwt, db := setupSessionServer(t)

	user := testutil.CreateUser(t, db, "sam", "secret", model.RoleSales)
	token, err := jwt.GenerateToken(user.ID, user.Username, user.Role)
	require.NoError(t, err)

	assert.Equal(t, "anonymous", whoami(e, func(*http.Request) {}))

	assert.Equal(t, "sam:sales", whoami(e, func(r *http.Request) {
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}))

	assert.Equal(t, "sam:sales", whoami(e, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "crm_session", Value: token})
	}))

	assert.Equal(t, "anonymous", whoami(e, func(r *http.Request) {
		r.Header.Set(echo.HeaderAuthorization, "Bearer not-a-token")
	}))

	// Role changes apply to existing tokens
	require.NoError(t, db.Model(user).Update("role", model.RoleAdmin).Error)
	assert.Equal(t, "sam:admin", whoami(e, func(r *http.Request) {
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}))

	// Deleted users lose their session
	require.NoError(t, db.Delete(user).Error)
	assert.Equal(t, "anonymous", whoami(e, func(r *http.Request) {
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}))
}
