package discounts

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/velixa/storefront/internal/carts"
	"github.com/velixa/storefront/internal/middleware"
	"github.com/velixa/storefront/internal/realtime"
	"github.com/velixa/storefront/pkg/response"
)

// AddRequest is the body for POST /discounts/add. Absent fields stay nil.
type AddRequest struct {
	Code               string           `json:"code"`
	DiscountPercentage *decimal.Decimal `json:"discountPercentage"`
	MinPurchaseAmount  *decimal.Decimal `json:"minPurchaseAmount"`
	UsageLimit         *int             `json:"usageLimit"`
	ExpiresAt          *time.Time       `json:"expiresAt"`
}

// ApplyRequest is the body for POST /discounts/apply.
type ApplyRequest struct {
	Code string `json:"code"`
}

// Handler handles discount HTTP endpoints.
type Handler struct {
	engine *Engine
	notify carts.Notifier
	logger *zap.Logger
}

// NewHandler creates a discount handler. notify may be nil.
func NewHandler(engine *Engine, notify carts.Notifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: engine, notify: notify, logger: logger}
}

// Add handles POST /discounts/add (admin).
func (h *Handler) Add(c *gin.Context) {
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	d, err := h.engine.Register(c.Request.Context(), RegisterInput{
		Code:               req.Code,
		DiscountPercentage: req.DiscountPercentage,
		MinPurchaseAmount:  req.MinPurchaseAmount,
		UsageLimit:         req.UsageLimit,
		ExpiresAt:          req.ExpiresAt,
	})
	observe("register", err)
	if err != nil {
		h.fail(c, "register discount", err)
		return
	}
	h.logger.Info("discount registered", zap.String("code", d.Code), zap.String("percentage", d.DiscountPercentage.String()))
	response.Created(c, "Discount code added successfully", gin.H{"discount": d})
}

// Apply handles POST /discounts/apply.
func (h *Handler) Apply(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	view, err := h.engine.Apply(c.Request.Context(), userID, req.Code)
	observe("apply", err)
	if err != nil {
		h.fail(c, "apply discount", err)
		return
	}
	h.publish(userID, realtime.EventDiscountApplied, view.DiscountApplied)
	response.OKMessage(c, "Discount applied successfully", gin.H{"cart": view})
}

// Remove handles DELETE /discounts/remove.
func (h *Handler) Remove(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	view, err := h.engine.Remove(c.Request.Context(), userID)
	observe("remove", err)
	if err != nil {
		h.fail(c, "remove discount", err)
		return
	}
	h.publish(userID, realtime.EventDiscountRemoved, gin.H{"totalCartPrice": view.TotalCartPrice})
	response.OKMessage(c, "Discount code removed successfully", gin.H{"cart": view})
}

// Check handles GET /discounts/check. Amounts use the request's display currency.
func (h *Handler) Check(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	currency, rate := middleware.CurrencyFrom(c)
	res, err := h.engine.Check(c.Request.Context(), userID, rate, currency)
	observe("check", err)
	if err != nil {
		h.fail(c, "check discount", err)
		return
	}
	response.OK(c, res)
}

func (h *Handler) publish(userID uuid.UUID, event string, payload interface{}) {
	if h.notify != nil {
		h.notify.PublishToUser(userID, event, payload)
	}
}

// fail maps engine errors to status codes. Anything unexpected is logged
// and hidden behind a generic message.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case IsRejection(err):
		response.BadRequest(c, err.Error())
	case errors.Is(err, errSnapshotMoved):
		response.Fail(c, http.StatusConflict, err.Error())
	default:
		h.logger.Error(op, zap.Error(err), zap.String("path", c.FullPath()))
		response.Fail(c, http.StatusInternalServerError, "internal server error")
	}
}
