package handler

import (
	"errors"
	"net/http"

	"buy01/internal/apperr"
	"buy01/internal/product/service"
	"buy01/pkg/logger"
	"buy01/pkg/middleware"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProductHandler serves the product API, including the internal
// reference-removal and reconciliation endpoints
type ProductHandler struct {
	products   *service.ProductService
	reconciler *service.Reconciler
}

// NewProductHandler creates the product handler
func NewProductHandler(products *service.ProductService, reconciler *service.Reconciler) *ProductHandler {
	return &ProductHandler{products: products, reconciler: reconciler}
}

// ProductRequest is the create/update payload
type ProductRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	Quantity    int     `json:"quantity" validate:"gte=0"`
}

// List returns all products
func (h *ProductHandler) List(c echo.Context) error {
	products, err := h.products.List(c.Request().Context())
	if err != nil {
		logger.FromEcho(c).Error("Failed to list products", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve products"})
	}
	return c.JSON(http.StatusOK, products)
}

// Get returns one product by id
func (h *ProductHandler) Get(c echo.Context) error {
	product, err := h.products.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.mapError(c, err, "failed to retrieve product")
	}
	return c.JSON(http.StatusOK, product)
}

// Create inserts a product owned by the caller
func (h *ProductHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	p, _ := middleware.GetPrincipal(c)

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	product, err := h.products.Create(c.Request().Context(), service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
	}, p.ID)
	if err != nil {
		log.Error("Failed to create product", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create product"})
	}

	log.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("user_id", p.ID))
	return c.JSON(http.StatusCreated, product)
}

// Update modifies a product owned by the caller
func (h *ProductHandler) Update(c echo.Context) error {
	p, _ := middleware.GetPrincipal(c)

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	product, err := h.products.Update(c.Request().Context(), c.Param("id"), service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
	}, p.ID)
	if err != nil {
		return h.mapError(c, err, "failed to update product")
	}
	return c.JSON(http.StatusOK, product)
}

// Delete removes a product owned by the caller and triggers the media cascade
func (h *ProductHandler) Delete(c echo.Context) error {
	p, _ := middleware.GetPrincipal(c)

	if err := h.products.Delete(c.Request().Context(), c.Param("id"), p.ID); err != nil {
		return h.mapError(c, err, "failed to delete product")
	}
	return c.NoContent(http.StatusNoContent)
}

// AssociateMedia links a media item to a product owned by the caller
func (h *ProductHandler) AssociateMedia(c echo.Context) error {
	p, _ := middleware.GetPrincipal(c)

	product, err := h.products.AssociateMedia(c.Request().Context(),
		c.Param("productId"), c.Param("mediaId"), p.ID)
	if err != nil {
		return h.mapError(c, err, "failed to associate media")
	}
	return c.JSON(http.StatusOK, product)
}

// RemoveMedia strips a media reference. Internal endpoint called by the media
// service when a media item is deleted directly; idempotent.
func (h *ProductHandler) RemoveMedia(c echo.Context) error {
	err := h.products.RemoveMedia(c.Request().Context(), c.Param("productId"), c.Param("mediaId"))
	if err != nil {
		return h.mapError(c, err, "failed to remove media reference")
	}
	return c.NoContent(http.StatusOK)
}

// CleanupOrphanedMedia triggers the reconciliation sweep and returns its
// textual summary
func (h *ProductHandler) CleanupOrphanedMedia(c echo.Context) error {
	log := logger.FromEcho(c)

	summary, err := h.reconciler.Reconcile(c.Request().Context())
	if err != nil {
		log.Error("Reconciliation sweep failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reconciliation failed"})
	}

	log.Info("Reconciliation sweep finished", zap.String("summary", summary))
	return c.String(http.StatusOK, summary)
}

func (h *ProductHandler) mapError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	case errors.Is(err, apperr.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you do not have permission to modify this product"})
	default:
		logger.FromEcho(c).Error(fallback, zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
	}
}
