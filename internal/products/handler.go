package products

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/velixa/storefront/internal/middleware"
	"github.com/velixa/storefront/pkg/response"
	"github.com/velixa/storefront/pkg/storage"
)

// maxFormMemory is the part of a multipart form kept in memory; the rest spills to disk.
const maxFormMemory = 32 << 20

// Handler handles product HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a product handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func money(c *gin.Context) Money {
	currency, rate := middleware.CurrencyFrom(c)
	return Money{Currency: currency, Rate: rate}
}

func productID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("productID"))
	if err != nil {
		response.BadRequest(c, "Invalid Product ID!")
		return uuid.Nil, false
	}
	return id, true
}

// readForm parses a multipart product form into a patch and its image uploads.
func readForm(c *gin.Context) (*Patch, []Upload, error) {
	if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, invalid("invalid multipart form: " + err.Error())
	}
	values := map[string][]string{}
	var files []*multipart.FileHeader
	if form := c.Request.MultipartForm; form != nil {
		values = form.Value
		files = form.File["images"]
	} else if err := c.Request.ParseForm(); err == nil {
		values = c.Request.PostForm
	}
	patch, err := ParseForm(values)
	if err != nil {
		return nil, nil, err
	}
	uploads := make([]Upload, 0, len(files))
	for _, fh := range files {
		uploads = append(uploads, Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return patch, uploads, nil
}

// Create handles POST /products/admin/create.
func (h *Handler) Create(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxImagesPerRequest*storage.MaxImageSize+maxFormMemory)
	patch, uploads, err := readForm(c)
	if err != nil {
		h.fail(c, "parse product form", err)
		return
	}
	p, err := h.svc.Create(c.Request.Context(), patch, uploads)
	if err != nil {
		h.fail(c, "create product", err)
		return
	}
	response.Created(c, "Product created successfully", gin.H{"product": p})
}

// Edit handles PUT /products/admin/edit/:productID.
func (h *Handler) Edit(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxImagesPerRequest*storage.MaxImageSize+maxFormMemory)
	patch, uploads, err := readForm(c)
	if err != nil {
		h.fail(c, "parse product form", err)
		return
	}
	p, err := h.svc.Update(c.Request.Context(), id, patch, uploads)
	if err != nil {
		h.fail(c, "update product", err)
		return
	}
	response.OKMessage(c, "Product updated successfully!", gin.H{"product": p})
}

// AdminList handles GET /products/admin/all.
func (h *Handler) AdminList(c *gin.Context) {
	list, err := h.svc.ListAll(c.Request.Context(), money(c))
	if err != nil {
		h.fail(c, "list products", err)
		return
	}
	if len(list) == 0 {
		response.NotFound(c, "Products not found")
		return
	}
	response.OK(c, gin.H{"products": list})
}

// Get handles GET /products/admin/:productID and GET /products/:productID.
func (h *Handler) Get(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	v, err := h.svc.Get(c.Request.Context(), id, money(c))
	if err != nil {
		h.fail(c, "get product", err)
		return
	}
	response.OKMessage(c, "Product fetched Successfully!", gin.H{"product": v})
}

// Delete handles DELETE /products/admin/delete/:productID.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	p, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "delete product", err)
		return
	}
	response.OKMessage(c, "Product Deleted Successfully!", gin.H{"product": p})
}

// List handles GET /products.
func (h *Handler) List(c *gin.Context) {
	page, err := h.svc.List(c.Request.Context(), ParseListFilter(c.Request.URL.Query()), money(c))
	if err != nil {
		h.fail(c, "list products", err)
		return
	}
	response.OKMessage(c, "Products fetched successfully!", page)
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		response.BadRequest(c, ve.Msg)
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrCodeExists):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrStorageDisabled):
		response.Fail(c, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error(op, zap.Error(err))
		response.Internal(c, "internal server error")
	}
}
