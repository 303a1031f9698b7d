package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/suteetoe/salescrm/internal/model"
	"github.com/suteetoe/salescrm/internal/session"
	"github.com/suteetoe/salescrm/pkg/jwtutil"
	"github.com/suteetoe/salescrm/pkg/logger"
)

// SessionMiddleware resolves the caller from the session cookie or a Bearer
// token and attaches it to the request. Requests without a valid session pass
// through anonymously; the dispatcher decides what they may call.
func SessionMiddleware(jwt *jwtutil.JWTUtil, db *gorm.DB, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := tokenFromRequest(c, cookieName)
			if tokenString == "" {
				return next(c)
			}

			log := logger.FromContext(c)

			claims, err := jwt.ValidateToken(tokenString)
			if err != nil {
				log.Debug("Ignoring invalid session token", zap.Error(err))
				return next(c)
			}

			// Reload the user so role changes and deletions apply immediately
			var user model.User
			err = db.WithContext(c.Request().Context()).First(&user, claims.UserID).Error
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					log.Error("Failed to load session user", zap.Uint("user_id", claims.UserID), zap.Error(err))
				}
				return next(c)
			}

			session.Set(c, session.FromUser(&user))
			return next(c)
		}
	}
}

func tokenFromRequest(c echo.Context, cookieName string) string {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}
