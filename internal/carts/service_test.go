package carts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velixa/storefront/internal/models"
	"github.com/velixa/storefront/internal/realtime"
)

type memStore struct {
	carts map[uuid.UUID]*models.Cart
}

func newMemStore() *memStore { return &memStore{carts: map[uuid.UUID]*models.Cart{}} }

func (m *memStore) Get(_ context.Context, userID uuid.UUID) (*models.Cart, error) {
	return m.carts[userID], nil
}

func (m *memStore) Mutate(_ context.Context, userID uuid.UUID, create bool, fn func(*models.Cart) error) (*models.Cart, error) {
	c, ok := m.carts[userID]
	if !ok {
		if !create {
			return nil, ErrCartNotFound
		}
		c = &models.Cart{ID: uuid.New(), UserID: userID, Items: []models.CartItem{}, CreatedAt: time.Now()}
		m.carts[userID] = c
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = time.Now()
	return c, nil
}

func (m *memStore) Delete(_ context.Context, userID uuid.UUID) (bool, error) {
	_, ok := m.carts[userID]
	delete(m.carts, userID)
	return ok, nil
}

type catalog map[uuid.UUID]*models.Product

func (c catalog) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := map[uuid.UUID]*models.Product{}
	for _, id := range ids {
		if p, ok := c[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type recorder struct{ events []string }

func (r *recorder) PublishToUser(_ uuid.UUID, event string, _ interface{}) {
	r.events = append(r.events, event)
}

func product(price string) *models.Product {
	return &models.Product{ID: uuid.New(), Title: "Tee", SellingPrice: decimal.RequireFromString(price)}
}

func TestService_AddMergesAndPrices(t *testing.T) {
	tee, hat := product("25.50"), product("10")
	events := &recorder{}
	svc := NewService(newMemStore(), catalog{tee.ID: tee, hat.ID: hat}, events, nil)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.Add(ctx, user, tee.ID, 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, user, hat.ID, 3)
	require.NoError(t, err)
	view, err := svc.Add(ctx, user, tee.ID, 1)
	require.NoError(t, err)

	require.Len(t, view.Items, 2)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.True(t, view.Items[0].LineTotal.Equal(decimal.RequireFromString("51")))
	assert.True(t, view.TotalCartPrice.Equal(decimal.RequireFromString("81")))
	assert.Equal(t, []string{realtime.EventCartUpdated, realtime.EventCartUpdated, realtime.EventCartUpdated}, events.events)
}

func TestService_AddUnknownProduct(t *testing.T) {
	svc := NewService(newMemStore(), catalog{}, nil, nil)
	_, err := svc.Add(context.Background(), uuid.New(), uuid.New(), 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestService_VanishedProductPricedAtZero(t *testing.T) {
	tee := product("20")
	cat := catalog{tee.ID: tee}
	store := newMemStore()
	svc := NewService(store, cat, nil, nil)
	user := uuid.New()
	_, err := svc.Add(context.Background(), user, tee.ID, 2)
	require.NoError(t, err)

	delete(cat, tee.ID)
	view, err := svc.Get(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Nil(t, view.Items[0].Product)
	assert.True(t, view.TotalCartPrice.IsZero())
}

func TestService_RemoveAndClear(t *testing.T) {
	tee := product("20")
	store := newMemStore()
	svc := NewService(store, catalog{tee.ID: tee}, nil, nil)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.Remove(ctx, user, tee.ID)
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, err = svc.Add(ctx, user, tee.ID, 1)
	require.NoError(t, err)
	view, err := svc.Remove(ctx, user, tee.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.TotalCartPrice.IsZero())

	require.NoError(t, svc.Clear(ctx, user))
	got, err := svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, got)
}
