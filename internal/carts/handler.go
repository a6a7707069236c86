package carts

import (
	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/velixa/storefront/internal/middleware"
	"github.com/velixa/storefront/internal/models"
	"github.com/velixa/storefront/pkg/response"
)

// AddRequest is the body for POST /cart/add.
type AddRequest struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// RemoveRequest is the body for POST /cart/remove.
type RemoveRequest struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
}

// Handler handles cart HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a cart handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Get handles GET /cart.
func (h *Handler) Get(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	view, err := h.svc.Get(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "get cart", err)
		return
	}
	if view == nil {
		response.OK(c, gin.H{"items": []models.CartLine{}})
		return
	}
	response.OK(c, view)
}

// Add handles POST /cart/add.
func (h *Handler) Add(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	view, err := h.svc.Add(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		h.fail(c, "add to cart", err)
		return
	}
	response.OK(c, view)
}

// Remove handles POST /cart/remove.
func (h *Handler) Remove(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var req RemoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	view, err := h.svc.Remove(c.Request.Context(), userID, req.ProductID)
	if err != nil {
		h.fail(c, "remove from cart", err)
		return
	}
	response.OK(c, view)
}

// Clear handles DELETE /cart/clear.
func (h *Handler) Clear(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.svc.Clear(c.Request.Context(), userID); err != nil {
		h.fail(c, "clear cart", err)
		return
	}
	response.OKMessage(c, "Cart cleared", nil)
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ErrCartNotFound), errors.Is(err, ErrProductNotFound):
		response.NotFound(c, err.Error())
	default:
		h.logger.Error(op, zap.Error(err))
		response.Internal(c, "internal server error")
	}
}
