package products

import (
	"context"
	"io"
	"slices"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/velixa/storefront/internal/models"
	"github.com/velixa/storefront/pkg/queue"
	"github.com/velixa/storefront/pkg/storage"
)

// Store is the product persistence the service needs.
type Store interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, fn func(*models.Product) error) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListAll(ctx context.Context) ([]*models.Product, error)
	List(ctx context.Context, f ListFilter) ([]*models.Product, error)
	Count(ctx context.Context, f ListFilter) (int, error)
}

// ImageStore uploads product images and returns their public URLs.
type ImageStore interface {
	UploadImage(ctx context.Context, contentType string, body io.Reader, size int64) (string, error)
}

// ImageCleanup schedules removal of images no product references any more.
type ImageCleanup interface {
	EnqueueImageDelete(ctx context.Context, payload queue.ImageDeletePayload) error
}

// Upload is one image file from a request.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Service implements catalog operations.
type Service struct {
	store   Store
	images  ImageStore
	cleanup ImageCleanup
	logger  *zap.Logger
}

// NewService creates a product service.
func NewService(store Store, images ImageStore, cleanup ImageCleanup, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, images: images, cleanup: cleanup, logger: logger}
}

// checkUploads validates image count, size and type before anything is stored.
func checkUploads(files []Upload) error {
	if len(files) > storage.MaxImagesPerRequest {
		return invalid("You can upload at most 5 images!")
	}
	for _, f := range files {
		if f.Size > storage.MaxImageSize {
			return invalid(f.Filename + " exceeds the 10MB image limit!")
		}
		if !storage.ValidateImageType(f.ContentType, f.Filename) {
			return invalid(f.Filename + " is not a supported image type!")
		}
	}
	return nil
}

// upload stores files concurrently and returns their URLs in input order.
func (s *Service) upload(ctx context.Context, files []Upload) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if s.images == nil {
		return nil, ErrStorageDisabled
	}
	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			body, err := f.Open()
			if err != nil {
				return errors.Wrapf(err, "open %s", f.Filename)
			}
			defer body.Close()
			url, err := s.images.UploadImage(gctx, storage.ContentTypeFor(f.ContentType, f.Filename), body, f.Size)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.discard(ctx, uuid.Nil, nonEmpty(urls))
		return nil, errors.Wrap(err, "upload images")
	}
	return urls, nil
}

// discard schedules deletion of image URLs. Failures are logged; the
// product write they belong to has already been decided.
func (s *Service) discard(ctx context.Context, productID uuid.UUID, urls []string) {
	if s.cleanup == nil {
		return
	}
	for _, u := range urls {
		if err := s.cleanup.EnqueueImageDelete(ctx, queue.ImageDeletePayload{URL: u, ProductID: productID}); err != nil {
			s.logger.Warn("enqueue image delete failed", zap.String("url", u), zap.Error(err))
		}
	}
}

// Create validates and stores a new product with its images.
func (s *Service) Create(ctx context.Context, patch *Patch, files []Upload) (*models.Product, error) {
	if err := patch.CheckRequired(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, invalid("At least one image is required!")
	}
	if err := checkUploads(files); err != nil {
		return nil, err
	}
	p := patch.NewProduct()
	if err := Validate(p); err != nil {
		return nil, err
	}

	urls, err := s.upload(ctx, files)
	if err != nil {
		return nil, err
	}
	p.Images = urls
	if err := s.store.Create(ctx, p); err != nil {
		s.discard(ctx, uuid.Nil, urls)
		return nil, err
	}
	s.logger.Info("product created", zap.String("product_id", p.ID.String()), zap.String("code", p.ProductCode))
	return p, nil
}

// Update applies a patch: removes patch.DeleteImages from the product, appends
// new uploads and writes the result.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch *Patch, files []Upload) (*models.Product, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := checkUploads(files); err != nil {
		return nil, err
	}
	urls, err := s.upload(ctx, files)
	if err != nil {
		return nil, err
	}

	var removed []string
	p, err := s.store.Update(ctx, id, func(p *models.Product) error {
		patch.Apply(p)
		if len(patch.DeleteImages) > 0 {
			kept := make([]string, 0, len(p.Images))
			for _, img := range p.Images {
				if slices.Contains(patch.DeleteImages, img) {
					removed = append(removed, img)
					continue
				}
				kept = append(kept, img)
			}
			p.Images = kept
		}
		p.Images = append(p.Images, urls...)
		return Validate(p)
	})
	if err != nil {
		s.discard(ctx, id, urls)
		return nil, err
	}
	s.discard(ctx, id, removed)
	return p, nil
}

// Delete removes a product and schedules deletion of its images.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.discard(ctx, id, p.Images)
	s.logger.Info("product deleted", zap.String("product_id", id.String()), zap.Int("images", len(p.Images)))
	return p, nil
}

// RelatedView is a related product's summary priced in the display currency.
type RelatedView struct {
	ID           uuid.UUID       `json:"id"`
	Title        string          `json:"title"`
	Images       []string        `json:"images"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	TotalPrice   string          `json:"totalPrice"`
	ProductCode  string          `json:"productCode"`
	Currency     string          `json:"currency"`
}

// View is a product priced in the display currency. TotalPrice replaces the
// stored value with the converted selling price.
type View struct {
	models.Product
	UniqueID        string        `json:"uniqueId,omitempty"`
	TotalPrice      string        `json:"totalPrice"`
	Currency        string        `json:"currency"`
	RelatedProducts []RelatedView `json:"relatedProducts"`
}

// Pagination describes a listing page.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// Page is one page of the public listing.
type Page struct {
	Products   []View     `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// Money is the display currency and its rate from the base currency.
type Money struct {
	Currency string
	Rate     decimal.Decimal
}

func (m Money) convert(d decimal.Decimal) string {
	return d.Mul(m.Rate).StringFixed(2)
}

// UniqueID is the product title followed by its creation date as yyyymmdd.
func UniqueID(p *models.Product) string {
	return p.Title + p.CreatedAt.UTC().Format("20060102")
}

func (s *Service) view(p *models.Product, related map[uuid.UUID]*models.Product, m Money) View {
	v := View{
		Product:         *p,
		TotalPrice:      m.convert(p.SellingPrice),
		Currency:        m.Currency,
		RelatedProducts: []RelatedView{},
	}
	for _, id := range p.RelatedProducts {
		rp, ok := related[id]
		if !ok {
			continue
		}
		v.RelatedProducts = append(v.RelatedProducts, RelatedView{
			ID:           rp.ID,
			Title:        rp.Title,
			Images:       rp.Images,
			SellingPrice: rp.SellingPrice,
			TotalPrice:   m.convert(rp.SellingPrice),
			ProductCode:  rp.ProductCode,
			Currency:     m.Currency,
		})
	}
	return v
}

func (s *Service) relatedOf(ctx context.Context, list ...*models.Product) (map[uuid.UUID]*models.Product, error) {
	var ids []uuid.UUID
	for _, p := range list {
		ids = append(ids, p.RelatedProducts...)
	}
	if len(ids) == 0 {
		return map[uuid.UUID]*models.Product{}, nil
	}
	return s.store.GetByIDs(ctx, ids)
}

// Get returns one product with its related products.
func (s *Service) Get(ctx context.Context, id uuid.UUID, m Money) (*View, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	related, err := s.relatedOf(ctx, p)
	if err != nil {
		return nil, err
	}
	v := s.view(p, related, m)
	return &v, nil
}

// ListAll returns every product, newest first, for the admin console.
func (s *Service) ListAll(ctx context.Context, m Money) ([]View, error) {
	list, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(list))
	for _, p := range list {
		out = append(out, s.view(p, nil, m))
	}
	return out, nil
}

// List returns one page of the public listing. The page and the total count
// are queried concurrently.
func (s *Service) List(ctx context.Context, f ListFilter, m Money) (*Page, error) {
	var list []*models.Product
	var total int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = s.store.List(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Count(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	related, err := s.relatedOf(ctx, list...)
	if err != nil {
		return nil, err
	}
	page := &Page{
		Products: make([]View, 0, len(list)),
		Pagination: Pagination{
			Total:      total,
			Page:       f.Page,
			Limit:      f.Limit,
			TotalPages: f.TotalPages(total),
		},
	}
	for _, p := range list {
		v := s.view(p, related, m)
		v.UniqueID = UniqueID(p)
		page.Products = append(page.Products, v)
	}
	return page, nil
}

func nonEmpty(urls []string) []string {
	out := urls[:0:0]
	for _, u := range urls {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}
