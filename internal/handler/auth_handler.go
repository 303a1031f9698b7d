package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/suteetoe/salescrm/internal/model"
	"github.com/suteetoe/salescrm/internal/session"
	"github.com/suteetoe/salescrm/pkg/logger"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type passwordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// Login checks the credentials and starts a session
func (h *Handler) Login(c echo.Context, _ *session.Session) error {
	log := logger.FromContext(c)

	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	var user model.User
	err := h.dbFor(c).Where("username = ?", req.Username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn("Login for unknown user", zap.String("username", req.Username))
		h.recordLogin("unknown_user")
		return Unauthorized("invalid credentials")
	}
	if err != nil {
		return Internal(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("username", req.Username))
		h.recordLogin("invalid_password")
		return Unauthorized("invalid credentials")
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		h.recordLogin("token_error")
		return Internal(err)
	}

	c.SetCookie(h.sessionCookie(token, int(h.jwt.TTL().Seconds())))
	h.recordLogin("ok")

	log.Info("User logged in",
		zap.Uint("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("role", user.Role))

	return c.JSON(http.StatusOK, echo.Map{"item": user, "token": token})
}

// Logout clears the session cookie
func (h *Handler) Logout(c echo.Context, s *session.Session) error {
	c.SetCookie(h.sessionCookie("", -1))
	if s != nil {
		logger.FromContext(c).Info("User logged out", zap.Uint("user_id", s.UserID))
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Me returns the logged-in user
func (h *Handler) Me(c echo.Context, s *session.Session) error {
	var user model.User
	if err := h.dbFor(c).First(&user, s.UserID).Error; err != nil {
		return notFoundOr(err, "user")
	}
	return c.JSON(http.StatusOK, echo.Map{"item": user})
}

// ChangePassword replaces the caller's own password
func (h *Handler) ChangePassword(c echo.Context, s *session.Session) error {
	var req passwordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	db := h.dbFor(c)
	var user model.User
	if err := db.First(&user, s.UserID).Error; err != nil {
		return notFoundOr(err, "user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		return BadRequest("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return Internal(err)
	}
	if err := db.Model(&user).Update("password", string(hash)).Error; err != nil {
		return Internal(err)
	}

	logger.FromContext(c).Info("Password changed", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func (h *Handler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *Handler) recordLogin(result string) {
	if h.metrics != nil {
		h.metrics.RecordLogin(result)
	}
}
