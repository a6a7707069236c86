package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountStatus is a label derived from the discount's expiry.
type DiscountStatus string

const (
	DiscountActive  DiscountStatus = "active"
	DiscountExpired DiscountStatus = "expired"
	DiscountUsed    DiscountStatus = "used"
)

// Discount is a percentage discount code.
//
// UsageLimit is stored but not compared against len(UsedBy) when the code is
// applied; each user can use a code once.
type Discount struct {
	ID                 uuid.UUID       `json:"id"`
	Code               string          `json:"code"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	MinPurchaseAmount  decimal.Decimal `json:"minPurchaseAmount"`
	UsageLimit         int             `json:"usageLimit"`
	UsedBy             []uuid.UUID     `json:"usedBy"`
	ExpiresAt          *time.Time      `json:"expiresAt"`
	Status             DiscountStatus  `json:"status"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// IsExpired reports whether the code has an expiry that is before now.
func (d *Discount) IsExpired(now time.Time) bool {
	return d.ExpiresAt != nil && now.After(*d.ExpiresAt)
}

// UsedByUser reports whether userID has consumed the code.
func (d *Discount) UsedByUser(userID uuid.UUID) bool {
	for _, id := range d.UsedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// ReleaseUser removes userID from UsedBy. It reports whether an entry was removed.
func (d *Discount) ReleaseUser(userID uuid.UUID) bool {
	kept := d.UsedBy[:0]
	removed := false
	for _, id := range d.UsedBy {
		if id == userID {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	d.UsedBy = kept
	return removed
}

// RefreshStatus marks the discount expired once its expiry has passed.
func (d *Discount) RefreshStatus(now time.Time) {
	if d.IsExpired(now) {
		d.Status = DiscountExpired
	}
}
