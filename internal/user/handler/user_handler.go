package handler

import (
	"net/http"

	"buy01/internal/user/model"
	"buy01/pkg/eventbus"
	"buy01/pkg/logger"
	"buy01/pkg/metrics"
	"buy01/pkg/middleware"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const serviceName = "user-service"

// UserHandler serves profile endpoints and account deletion, the root trigger
// of the deletion cascade
type UserHandler struct {
	db        *gorm.DB
	publisher eventbus.Publisher
}

// NewUserHandler creates the user handler
func NewUserHandler(db *gorm.DB, publisher eventbus.Publisher) *UserHandler {
	return &UserHandler{db: db, publisher: publisher}
}

// UpdateProfileRequest is the profile update payload. Setting a new password
// requires the current one.
type UpdateProfileRequest struct {
	Name        string `json:"name"`
	Avatar      *string `json:"avatar"`
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

// Me returns the caller's own profile
func (h *UserHandler) Me(c echo.Context) error {
	p, _ := middleware.GetPrincipal(c)

	var user model.User
	if result := h.db.First(&user, "id = ?", p.ID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	return c.JSON(http.StatusOK, user)
}

// GetByID returns a user's public profile, used for viewing seller info
func (h *UserHandler) GetByID(c echo.Context) error {
	id := c.Param("id")

	var user model.User
	if result := h.db.First(&user, "id = ?", id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateMe updates the caller's profile
func (h *UserHandler) UpdateMe(c echo.Context) error {
	log := logger.FromEcho(c)
	p, _ := middleware.GetPrincipal(c)

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	var user model.User
	if result := h.db.First(&user, "id = ?", p.ID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	if req.NewPassword != "" {
		if req.Password == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "current password is required to set a new password"})
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "incorrect current password"})
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Error("Failed to hash password", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update profile"})
		}
		user.Password = string(hash)
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}

	if result := h.db.Save(&user); result.Error != nil {
		log.Error("Failed to update user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update profile"})
	}

	log.Info("Profile updated", zap.String("user_id", user.ID))
	return c.JSON(http.StatusOK, user)
}

// DeleteMe deletes the caller's account. The local deletion commits first;
// the user.deleted event is then published best-effort so the product and
// media services can cascade. A publish failure is logged, never rolled back,
// and the caller still sees success.
func (h *UserHandler) DeleteMe(c echo.Context) error {
	log := logger.FromEcho(c)
	p, _ := middleware.GetPrincipal(c)

	result := h.db.Delete(&model.User{}, "id = ?", p.ID)
	if result.Error != nil {
		log.Error("Failed to delete user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete account"})
	}

	if err := h.publisher.Publish(eventbus.TopicUserDeleted, []byte(p.ID)); err != nil {
		metrics.EventPublishErrorCounter.WithLabelValues(serviceName, eventbus.TopicUserDeleted).Inc()
		log.Error("Failed to publish user.deleted event",
			zap.String("user_id", p.ID),
			zap.Error(err))
	} else {
		metrics.EventsPublishedCounter.WithLabelValues(serviceName, eventbus.TopicUserDeleted).Inc()
	}

	log.Info("User deleted", zap.String("user_id", p.ID))
	return c.NoContent(http.StatusNoContent)
}
