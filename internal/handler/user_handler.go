package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/suteetoe/salescrm/internal/model"
	"github.com/suteetoe/salescrm/internal/session"
	"github.com/suteetoe/salescrm/pkg/logger"
)

// UserRequest creates or updates a user. Password is required on create and
// left unchanged on update when empty.
type UserRequest struct {
	ID       uint   `json:"id"`
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"omitempty,min=6"`
	FullName string `json:"full_name" validate:"max=255"`
	Role     string `json:"role" validate:"required,oneof=admin sales"`
}

// ListUsers returns every user
func (h *Handler) ListUsers(c echo.Context, _ *session.Session) error {
	users := []model.User{}
	if err := h.dbFor(c).Order("username ASC").Find(&users).Error; err != nil {
		return Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": users})
}

// SaveUser creates or updates a user
func (h *Handler) SaveUser(c echo.Context, s *session.Session) error {
	var req UserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Username = strings.TrimSpace(req.Username)

	db := h.dbFor(c)

	user := model.User{}
	status := http.StatusCreated
	if req.ID != 0 {
		if err := db.First(&user, req.ID).Error; err != nil {
			return notFoundOr(err, "user")
		}
		status = http.StatusOK
	} else if req.Password == "" {
		return BadRequest("password is required")
	}

	if user.ID == s.UserID && req.Role != model.RoleAdmin {
		return BadRequest("you cannot remove your own admin role")
	}

	var taken int64
	err := db.Model(&model.User{}).
		Where("username = ? AND id <> ?", req.Username, user.ID).
		Count(&taken).Error
	if err != nil {
		return Internal(err)
	}
	if taken > 0 {
		return Conflict("username already exists")
	}

	user.Username = req.Username
	user.FullName = req.FullName
	user.Role = req.Role
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return Internal(err)
		}
		user.Password = string(hash)
	}

	if err := db.Save(&user).Error; err != nil {
		return Internal(err)
	}

	logger.FromContext(c).Info("User saved",
		zap.Uint("target_user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("role", user.Role),
		zap.Uint("user_id", s.UserID))
	return c.JSON(status, echo.Map{"item": user})
}

// DeleteUser removes a user, returning their leads to the global pool first
func (h *Handler) DeleteUser(c echo.Context, s *session.Session) error {
	id, err := bindID(c)
	if err != nil {
		return err
	}
	if id == s.UserID {
		return BadRequest("you cannot delete your own account")
	}

	var released int64
	err = h.dbFor(c).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Lead{}).
			Where("assigned_to = ?", id).
			Updates(map[string]interface{}{
				"status":      model.LeadStatusGlobal,
				"assigned_to": nil,
				"updated_at":  h.now(),
			})
		if result.Error != nil {
			return Internal(result.Error)
		}
		released = result.RowsAffected

		deleted := tx.Delete(&model.User{}, id)
		if deleted.Error != nil {
			return Internal(deleted.Error)
		}
		if deleted.RowsAffected == 0 {
			return NotFound("user not found")
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.FromContext(c).Info("User deleted",
		zap.Uint("target_user_id", id),
		zap.Int64("released_leads", released),
		zap.Uint("user_id", s.UserID))
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "released_leads": released})
}

// findUser loads a user referenced by a request
func findUser(db *gorm.DB, id uint) (*model.User, error) {
	var user model.User
	err := db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, BadRequest("unknown user")
	}
	if err != nil {
		return nil, Internal(err)
	}
	return &user, nil
}
