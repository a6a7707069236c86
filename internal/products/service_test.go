package products

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velixa/storefront/internal/models"
	"github.com/velixa/storefront/pkg/queue"
)

type memStore struct {
	products map[uuid.UUID]*models.Product
	order    []uuid.UUID
}

func newMemStore() *memStore { return &memStore{products: map[uuid.UUID]*models.Product{}} }

func (m *memStore) Create(_ context.Context, p *models.Product) error {
	for _, existing := range m.products {
		if existing.ProductCode == p.ProductCode {
			return ErrCodeExists
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)
	cp := *p
	m.products[p.ID] = &cp
	m.order = append(m.order, p.ID)
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := map[uuid.UUID]*models.Product{}
	for _, id := range ids {
		if p, err := m.GetByID(ctx, id); err == nil {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memStore) Update(ctx context.Context, id uuid.UUID, fn func(*models.Product) error) (*models.Product, error) {
	p, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Images = append([]string{}, p.Images...)
	if err := fn(p); err != nil {
		return nil, err
	}
	m.products[id] = p
	return p, nil
}

func (m *memStore) Delete(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	delete(m.products, id)
	return p, nil
}

func (m *memStore) ListAll(ctx context.Context) ([]*models.Product, error) {
	var out []*models.Product
	for i := len(m.order) - 1; i >= 0; i-- {
		if p, err := m.GetByID(ctx, m.order[i]); err == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) List(ctx context.Context, f ListFilter) ([]*models.Product, error) {
	all, _ := m.ListAll(ctx)
	if f.Offset() >= len(all) {
		return nil, nil
	}
	end := min(f.Offset()+f.Limit, len(all))
	return all[f.Offset():end], nil
}

func (m *memStore) Count(_ context.Context, _ ListFilter) (int, error) {
	return len(m.products), nil
}

type fakeBucket struct {
	mu       sync.Mutex
	uploaded []string
	fail     bool
}

func (b *fakeBucket) UploadImage(_ context.Context, contentType string, body io.Reader, _ int64) (string, error) {
	if b.fail {
		return "", io.ErrUnexpectedEOF
	}
	raw, _ := io.ReadAll(body)
	b.mu.Lock()
	defer b.mu.Unlock()
	url := "https://bucket.s3.me-central-1.amazonaws.com/products/" + string(raw) + "|" + contentType
	b.uploaded = append(b.uploaded, url)
	return url, nil
}

type fakeCleanup struct{ urls []string }

func (f *fakeCleanup) EnqueueImageDelete(_ context.Context, p queue.ImageDeletePayload) error {
	f.urls = append(f.urls, p.URL)
	return nil
}

func file(name, content string) Upload {
	return Upload{
		Filename:    name,
		ContentType: "image/png",
		Size:        int64(len(content)),
		Open:        func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(content)), nil },
	}
}

func validForm() map[string][]string {
	return map[string][]string{
		"title":        {"  Linen <Shirt>  "},
		"description":  {"Breathable"},
		"totalPrice":   {"120"},
		"sellingPrice": {"99.50"},
		"costPrice":    {"40"},
		"category":     {"shirts"},
		"sizes":        {`["M","L"]`},
		"fabricType":   {"Linen"},
		"fitType":      {"Regular Fit"},
		"pattern":      {"Solid"},
		"gender":       {"Men"},
		"color":        {"White"},
		"stock":        {"12"},
		"country":      {"Qatar"},
		"productCode":  {"VX-001"},
	}
}

func newTestService() (*Service, *memStore, *fakeBucket, *fakeCleanup) {
	store, bucket, cleanup := newMemStore(), &fakeBucket{}, &fakeCleanup{}
	return NewService(store, bucket, cleanup, nil), store, bucket, cleanup
}

func TestService_Create(t *testing.T) {
	svc, _, bucket, _ := newTestService()
	patch, err := ParseForm(validForm())
	require.NoError(t, err)

	p, err := svc.Create(context.Background(), patch, []Upload{file("a.png", "a"), file("b.png", "b")})
	require.NoError(t, err)
	assert.Equal(t, "Linen &lt;Shirt&gt;", p.Title)
	assert.Equal(t, []string{"M", "L"}, p.Sizes)
	assert.True(t, p.AvailableState)
	assert.Equal(t, "active", p.Active)
	require.Len(t, p.Images, 2)
	assert.Contains(t, p.Images[0], "/a|image/png")
	assert.Contains(t, p.Images[1], "/b|image/png")
	assert.Len(t, bucket.uploaded, 2)
}

func TestService_CreateRejections(t *testing.T) {
	svc, _, bucket, _ := newTestService()
	ctx := context.Background()

	form := validForm()
	delete(form, "productCode")
	patch, err := ParseForm(form)
	require.NoError(t, err)
	_, err = svc.Create(ctx, patch, []Upload{file("a.png", "a")})
	assert.EqualError(t, err, "Product code is required!")

	patch, _ = ParseForm(validForm())
	_, err = svc.Create(ctx, patch, nil)
	assert.EqualError(t, err, "At least one image is required!")

	form = validForm()
	form["category"] = []string{"socks"}
	patch, _ = ParseForm(form)
	_, err = svc.Create(ctx, patch, []Upload{file("a.png", "a")})
	assert.EqualError(t, err, "socks is not a valid category")

	patch, _ = ParseForm(validForm())
	_, err = svc.Create(ctx, patch, []Upload{{Filename: "notes.txt", ContentType: "text/plain", Size: 3}})
	assert.EqualError(t, err, "notes.txt is not a supported image type!")

	assert.Empty(t, bucket.uploaded)
}

func TestService_CreateDuplicateCodeDiscardsUploads(t *testing.T) {
	svc, _, _, cleanup := newTestService()
	ctx := context.Background()
	patch, _ := ParseForm(validForm())
	_, err := svc.Create(ctx, patch, []Upload{file("a.png", "a")})
	require.NoError(t, err)

	patch, _ = ParseForm(validForm())
	_, err = svc.Create(ctx, patch, []Upload{file("b.png", "b")})
	assert.ErrorIs(t, err, ErrCodeExists)
	require.Len(t, cleanup.urls, 1)
	assert.Contains(t, cleanup.urls[0], "/b|")
}

func TestService_UpdatePatch(t *testing.T) {
	svc, _, _, cleanup := newTestService()
	ctx := context.Background()
	patch, _ := ParseForm(validForm())
	p, err := svc.Create(ctx, patch, []Upload{file("a.png", "a"), file("b.png", "b")})
	require.NoError(t, err)

	edit, err := ParseForm(map[string][]string{
		"sellingPrice": {"80"},
		"color":        {""},
		"deleteImages": {p.Images[0]},
	})
	require.NoError(t, err)
	updated, err := svc.Update(ctx, p.ID, edit, []Upload{file("c.png", "c")})
	require.NoError(t, err)

	assert.True(t, updated.SellingPrice.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, "White", updated.Color, "empty optional values leave the field unchanged")
	assert.Equal(t, p.Title, updated.Title)
	require.Len(t, updated.Images, 2)
	assert.Equal(t, p.Images[1], updated.Images[0])
	assert.Contains(t, updated.Images[1], "/c|")
	assert.Equal(t, []string{p.Images[0]}, cleanup.urls)
}

func TestService_UpdateRejections(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Update(ctx, uuid.New(), &Patch{}, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ParseForm(map[string][]string{"title": {"  "}})
	assert.EqualError(t, err, "Title is required!")

	_, err = ParseForm(map[string][]string{"totalPrice": {"-5"}})
	assert.EqualError(t, err, "Total price must be a positive number!")
}

func TestService_Delete(t *testing.T) {
	svc, store, _, cleanup := newTestService()
	ctx := context.Background()
	patch, _ := ParseForm(validForm())
	p, err := svc.Create(ctx, patch, []Upload{file("a.png", "a")})
	require.NoError(t, err)

	_, err = svc.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, store.products)
	assert.Equal(t, p.Images, cleanup.urls)

	_, err = svc.Delete(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_ListConvertsAndPaginates(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	first, _ := ParseForm(validForm())
	a, err := svc.Create(ctx, first, []Upload{file("a.png", "a")})
	require.NoError(t, err)

	form := validForm()
	form["productCode"] = []string{"VX-002"}
	form["title"] = []string{"Denim"}
	form["relatedProducts"] = []string{a.ID.String()}
	second, _ := ParseForm(form)
	_, err = svc.Create(ctx, second, []Upload{file("b.png", "b")})
	require.NoError(t, err)
	require.Len(t, store.products, 2)

	usd := Money{Currency: "USD", Rate: decimal.RequireFromString("0.27")}
	page, err := svc.List(ctx, ListFilter{Page: 1, Limit: 1, Sort: SortNewest}, usd)
	require.NoError(t, err)

	assert.Equal(t, Pagination{Total: 2, Page: 1, Limit: 1, TotalPages: 2}, page.Pagination)
	require.Len(t, page.Products, 1)
	v := page.Products[0]
	assert.Equal(t, "Denim", v.Title)
	assert.Equal(t, "Denim20260214", v.UniqueID)
	assert.Equal(t, "26.87", v.TotalPrice) // 99.50 * 0.27 = 26.865
	assert.Equal(t, "USD", v.Currency)
	require.Len(t, v.RelatedProducts, 1)
	assert.Equal(t, a.ID, v.RelatedProducts[0].ID)
	assert.Equal(t, "26.87", v.RelatedProducts[0].TotalPrice)
}
