package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one product line in a cart.
type CartItem struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// AppliedDiscount is the copy of a discount taken when it was applied to a
// cart. Later edits to the discount do not change it.
type AppliedDiscount struct {
	Code               string          `json:"code"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
}

// Cart is a user's shopping cart. A user has at most one.
type Cart struct {
	ID              uuid.UUID        `json:"id"`
	UserID          uuid.UUID        `json:"userId"`
	Items           []CartItem       `json:"items"`
	DiscountApplied *AppliedDiscount `json:"discountApplied"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// AddItem adds quantity of productID, merging with an existing line.
func (c *Cart) AddItem(productID uuid.UUID, quantity int) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += quantity
			return
		}
	}
	c.Items = append(c.Items, CartItem{ProductID: productID, Quantity: quantity})
}

// RemoveItem drops the line for productID. It reports whether a line was removed.
func (c *Cart) RemoveItem(productID uuid.UUID) bool {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// CartLine is a cart item joined with its product.
type CartLine struct {
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Product   *ProductSummary `json:"product"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// CartView is the cart as shown to its owner, with computed prices.
type CartView struct {
	ID              uuid.UUID        `json:"id"`
	UserID          uuid.UUID        `json:"userId"`
	Items           []CartLine       `json:"items"`
	DiscountApplied *AppliedDiscount `json:"discountApplied"`
	TotalCartPrice  decimal.Decimal  `json:"totalCartPrice"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}
