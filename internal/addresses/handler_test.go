package addresses

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velixa/storefront/internal/middleware"
	"github.com/velixa/storefront/internal/models"
)

type memStore struct {
	rows map[uuid.UUID]*models.Address
}

func (m *memStore) Create(_ context.Context, a *models.Address) error {
	a.ID = uuid.New()
	a.CreatedAt, a.UpdatedAt = time.Now(), time.Now()
	cp := *a
	m.rows[a.ID] = &cp
	return nil
}

func (m *memStore) Get(_ context.Context, userID, id uuid.UUID) (*models.Address, error) {
	a, ok := m.rows[id]
	if !ok || a.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.Address, error) {
	out := []*models.Address{}
	for _, a := range m.rows {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, a *models.Address) error {
	cp := *a
	m.rows[a.ID] = &cp
	return nil
}

func (m *memStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := m.Get(ctx, userID, id); err != nil {
		return err
	}
	delete(m.rows, id)
	return nil
}

func newRouter(store Store, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, nil)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.ContextUserID, userID) })
	r.POST("/addresses", h.Create)
	r.GET("/addresses", h.List)
	r.PUT("/addresses/:id", h.Update)
	r.DELETE("/addresses/:id", h.Delete)
	return r
}

func call(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const homeJSON = `{"name":"Noor","mobileNo":"+97455512345","address":"Street 12","pincode":"00000","state":"Doha","country":"Qatar"}`

func TestAddresses_Lifecycle(t *testing.T) {
	store := &memStore{rows: map[uuid.UUID]*models.Address{}}
	owner := uuid.New()
	r := newRouter(store, owner)

	w := call(r, http.MethodPost, "/addresses", homeJSON)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data struct {
			Address models.Address `json:"address"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.Data.Address.ID
	assert.Equal(t, owner, created.Data.Address.UserID)

	w = call(r, http.MethodPut, "/addresses/"+id.String(), `{"landmark":"Near <souq>"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Near &lt;souq&gt;", store.rows[id].Landmark)
	assert.Equal(t, "Noor", store.rows[id].Name)

	w = call(r, http.MethodPut, "/addresses/"+id.String(), `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(r, http.MethodGet, "/addresses", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id.String())

	w = call(r, http.MethodDelete, "/addresses/"+id.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store.rows)
}

func TestAddresses_Errors(t *testing.T) {
	store := &memStore{rows: map[uuid.UUID]*models.Address{}}
	owner, stranger := uuid.New(), uuid.New()

	w := call(newRouter(store, owner), http.MethodPost, "/addresses", `{"name":"Noor"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Please provide all required fields")

	w = call(newRouter(store, owner), http.MethodPost, "/addresses", homeJSON)
	require.Equal(t, http.StatusCreated, w.Code)
	var id uuid.UUID
	for k := range store.rows {
		id = k
	}

	other := newRouter(store, stranger)
	assert.Equal(t, http.StatusNotFound, call(other, http.MethodPut, "/addresses/"+id.String(), `{"city":"Lusail"}`).Code)
	assert.Equal(t, http.StatusNotFound, call(other, http.MethodDelete, "/addresses/"+id.String(), "").Code)
	assert.Equal(t, http.StatusBadRequest, call(other, http.MethodDelete, "/addresses/not-a-uuid", "").Code)
}
