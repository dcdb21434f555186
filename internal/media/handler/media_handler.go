package handler

import (
	"errors"
	"net/http"
	"strings"

	"buy01/internal/apperr"
	"buy01/internal/media/service"
	"buy01/pkg/logger"
	"buy01/pkg/middleware"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// MediaHandler serves the media API, including the internal association and
// existence-probe endpoints consumed by the product service
type MediaHandler struct {
	media    *service.MediaService
	maxBytes int64
}

// NewMediaHandler creates the media handler
func NewMediaHandler(media *service.MediaService, maxBytes int64) *MediaHandler {
	return &MediaHandler{media: media, maxBytes: maxBytes}
}

// List returns the caller's own media
func (h *MediaHandler) List(c echo.Context) error {
	p, _ := middleware.GetPrincipal(c)

	media, err := h.media.ListByUser(c.Request().Context(), p.ID)
	if err != nil {
		logger.FromEcho(c).Error("Failed to list media", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve media"})
	}
	return c.JSON(http.StatusOK, media)
}

// Upload stores an image file for the caller
func (h *MediaHandler) Upload(c echo.Context) error {
	log := logger.FromEcho(c)
	p, _ := middleware.GetPrincipal(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
	}
	if fileHeader.Size > h.maxBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "file exceeds the size limit"})
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "only image uploads are allowed"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		log.Error("Failed to open uploaded file", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store upload"})
	}
	defer src.Close()

	media, err := h.media.Upload(c.Request().Context(), p.ID, fileHeader.Filename, contentType, fileHeader.Size, src)
	if err != nil {
		log.Error("Failed to store upload", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store upload"})
	}

	log.Info("Media uploaded",
		zap.String("media_id", media.ID),
		zap.String("user_id", p.ID),
		zap.Int64("size", media.Size))
	return c.JSON(http.StatusCreated, media)
}

// Serve streams the stored file content. Public; 404 when missing.
func (h *MediaHandler) Serve(c echo.Context) error {
	media, rc, err := h.media.Open(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.NoContent(http.StatusNotFound)
	}
	defer rc.Close()

	return c.Stream(http.StatusOK, media.ContentType, rc)
}

// Exists is the lightweight existence probe used by the reconciler
func (h *MediaHandler) Exists(c echo.Context) error {
	if _, err := h.media.Get(c.Request().Context(), c.Param("id")); err != nil {
		return c.NoContent(http.StatusNotFound)
	}
	return c.NoContent(http.StatusOK)
}

// Delete removes the caller's media item
func (h *MediaHandler) Delete(c echo.Context) error {
	p, _ := middleware.GetPrincipal(c)

	if err := h.media.Delete(c.Request().Context(), c.Param("id"), p.ID); err != nil {
		return h.mapError(c, err, "failed to delete media")
	}
	return c.NoContent(http.StatusNoContent)
}

// AssociateProduct stamps the productId back-link. Internal endpoint called
// by the product service after its own write committed; ownership is checked
// against the userId query parameter.
func (h *MediaHandler) AssociateProduct(c echo.Context) error {
	userID := c.QueryParam("userId")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "userId is required"})
	}

	media, err := h.media.AssociateProduct(c.Request().Context(),
		c.Param("id"), c.Param("productId"), userID)
	if err != nil {
		return h.mapError(c, err, "failed to associate media")
	}
	return c.JSON(http.StatusOK, media)
}

func (h *MediaHandler) mapError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "media not found"})
	case errors.Is(err, apperr.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you do not have permission to modify this media"})
	default:
		logger.FromEcho(c).Error(fallback, zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
	}
}
