package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart_AddItemMergesQuantities(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	c := &Cart{}

	c.AddItem(p1, 1)
	c.AddItem(p2, 2)
	c.AddItem(p1, 3)

	require.Len(t, c.Items, 2)
	assert.Equal(t, CartItem{ProductID: p1, Quantity: 4}, c.Items[0])
	assert.Equal(t, CartItem{ProductID: p2, Quantity: 2}, c.Items[1])
}

func TestCart_RemoveItem(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	c := &Cart{Items: []CartItem{{ProductID: p1, Quantity: 1}, {ProductID: p2, Quantity: 1}}}

	assert.True(t, c.RemoveItem(p1))
	assert.False(t, c.RemoveItem(p1))
	assert.Equal(t, []CartItem{{ProductID: p2, Quantity: 1}}, c.Items)
}

func TestCart_IsEmpty(t *testing.T) {
	var nilCart *Cart
	assert.True(t, nilCart.IsEmpty())
	assert.True(t, (&Cart{}).IsEmpty())
	assert.False(t, (&Cart{Items: []CartItem{{ProductID: uuid.New(), Quantity: 1}}}).IsEmpty())
}

func TestDiscount_ReleaseUser(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	d := &Discount{UsedBy: []uuid.UUID{a, b}}

	assert.True(t, d.ReleaseUser(a))
	assert.Equal(t, []uuid.UUID{b}, d.UsedBy)
	assert.False(t, d.UsedByUser(a))
	assert.True(t, d.UsedByUser(b))
	assert.False(t, d.ReleaseUser(a))
}

func TestDiscount_RefreshStatus(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	d := &Discount{Status: DiscountActive, ExpiresAt: &future}
	d.RefreshStatus(now)
	assert.Equal(t, DiscountActive, d.Status)

	d.ExpiresAt = &past
	d.RefreshStatus(now)
	assert.Equal(t, DiscountExpired, d.Status)

	noExpiry := &Discount{Status: DiscountActive}
	noExpiry.RefreshStatus(now)
	assert.Equal(t, DiscountActive, noExpiry.Status)
}

func TestAppliedDiscount_JSONNumbers(t *testing.T) {
	raw, err := json.Marshal(AppliedDiscount{
		Code:               "SAVE10",
		DiscountPercentage: decimal.NewFromInt(10),
		DiscountAmount:     decimal.RequireFromString("12.5"),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"SAVE10","discountPercentage":10,"discountAmount":12.5}`, string(raw))

	var back AppliedDiscount
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.DiscountAmount.Equal(decimal.RequireFromString("12.5")))
}
