package addresses

import (
	"context"
	"html"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/velixa/storefront/internal/middleware"
	"github.com/velixa/storefront/internal/models"
	"github.com/velixa/storefront/pkg/response"
)

// Store is the address persistence the handler needs.
type Store interface {
	Create(ctx context.Context, a *models.Address) error
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Address, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Address, error)
	Update(ctx context.Context, a *models.Address) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// CreateRequest is the body for POST /addresses.
type CreateRequest struct {
	Name     string `json:"name"`
	MobileNo string `json:"mobileNo"`
	Address  string `json:"address"`
	Pincode  string `json:"pincode"`
	City     string `json:"city"`
	State    string `json:"state"`
	Country  string `json:"country"`
	Landmark string `json:"landmark"`
}

// UpdateRequest is the body for PUT /addresses/:id. Absent fields are left unchanged.
type UpdateRequest struct {
	Name     *string `json:"name"`
	MobileNo *string `json:"mobileNo"`
	Address  *string `json:"address"`
	Pincode  *string `json:"pincode"`
	City     *string `json:"city"`
	State    *string `json:"state"`
	Country  *string `json:"country"`
	Landmark *string `json:"landmark"`
}

const missingFields = "Please provide all required fields: name, mobileNo, address, pincode, state, and country."

// Handler handles address HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates an address handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

func clean(s string) string { return html.EscapeString(strings.TrimSpace(s)) }

// Create handles POST /addresses.
func (h *Handler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	a := &models.Address{
		UserID:   userID,
		Name:     clean(req.Name),
		MobileNo: clean(req.MobileNo),
		Address:  clean(req.Address),
		Pincode:  clean(req.Pincode),
		City:     clean(req.City),
		State:    clean(req.State),
		Country:  clean(req.Country),
		Landmark: clean(req.Landmark),
	}
	if !complete(a) {
		response.BadRequest(c, missingFields)
		return
	}
	if err := h.store.Create(c.Request.Context(), a); err != nil {
		h.fail(c, "create address", err)
		return
	}
	response.Created(c, "Address added successfully", gin.H{"address": a})
}

// Update handles PUT /addresses/:id.
func (h *Handler) Update(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, ok := addressID(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	a, err := h.store.Get(ctx, userID, id)
	if err != nil {
		h.fail(c, "get address", err)
		return
	}
	req.apply(a)
	if !complete(a) {
		response.BadRequest(c, missingFields)
		return
	}
	if err := h.store.Update(ctx, a); err != nil {
		h.fail(c, "update address", err)
		return
	}
	response.OKMessage(c, "Address updated successfully", gin.H{"address": a})
}

// List handles GET /addresses.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.store.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "list addresses", err)
		return
	}
	response.OK(c, gin.H{"addresses": list})
}

// Delete handles DELETE /addresses/:id.
func (h *Handler) Delete(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, ok := addressID(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), userID, id); err != nil {
		h.fail(c, "delete address", err)
		return
	}
	response.OKMessage(c, "Address deleted successfully", nil)
}

func (r *UpdateRequest) apply(a *models.Address) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = clean(*v)
		}
	}
	set(&a.Name, r.Name)
	set(&a.MobileNo, r.MobileNo)
	set(&a.Address, r.Address)
	set(&a.Pincode, r.Pincode)
	set(&a.City, r.City)
	set(&a.State, r.State)
	set(&a.Country, r.Country)
	set(&a.Landmark, r.Landmark)
}

func complete(a *models.Address) bool {
	return a.Name != "" && a.MobileNo != "" && a.Address != "" && a.Pincode != "" && a.State != "" && a.Country != ""
}

func addressID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid addressId")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	h.logger.Error(op, zap.Error(err))
	response.Internal(c, "internal server error")
}
