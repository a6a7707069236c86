package discounts

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velixa/storefront/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Store persists discounts and reads carts outside a transaction.
type Store interface {
	// CreateDiscount inserts d and fills its generated fields. It returns
	// ErrCodeExists when the code is taken.
	CreateDiscount(ctx context.Context, d *models.Discount) error
	// FindDiscount returns ErrNotFound when no discount has the code.
	FindDiscount(ctx context.Context, code string) (*models.Discount, error)
	// FindCart returns nil, nil when the user has no cart.
	FindCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	// InTx runs fn in one transaction, committed only when fn returns nil.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transactional view of the store. Lock methods hold a row lock
// until the transaction ends. Discounts are always locked before carts.
type Tx interface {
	LockDiscount(ctx context.Context, code string) (*models.Discount, error)
	PeekCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	LockCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	SaveDiscountUsage(ctx context.Context, d *models.Discount) error
	SaveCartDiscount(ctx context.Context, c *models.Cart) error
}

// CartPricer computes a cart's view with its current total.
type CartPricer interface {
	View(ctx context.Context, cart *models.Cart) (*models.CartView, error)
}

// Engine implements registering, applying, removing and checking discount codes.
type Engine struct {
	store    Store
	pricer   CartPricer
	currency string
	now      func() time.Time
}

// NewEngine creates an engine. currency labels amounts in rejection messages.
func NewEngine(store Store, pricer CartPricer, currency string) *Engine {
	return &Engine{store: store, pricer: pricer, currency: currency, now: time.Now}
}

// NormalizeCode trims and upper-cases a discount code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RegisterInput holds a new discount. Nil fields were absent from the request.
type RegisterInput struct {
	Code               string
	DiscountPercentage *decimal.Decimal
	MinPurchaseAmount  *decimal.Decimal
	UsageLimit         *int
	ExpiresAt          *time.Time
}

// Register validates and stores a new discount code.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*models.Discount, error) {
	code := NormalizeCode(in.Code)
	if code == "" || in.DiscountPercentage == nil {
		return nil, &ValidationError{Msg: "Code and discountPercentage are required"}
	}
	// Amounts are stored with two decimals; round here so the response
	// matches the stored row.
	pct := in.DiscountPercentage.Round(2)
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return nil, &ValidationError{Msg: "Discount must be between 0 and 100"}
	}

	d := &models.Discount{
		Code:               code,
		DiscountPercentage: pct,
		MinPurchaseAmount:  decimal.Zero,
		UsageLimit:         1,
		UsedBy:             []uuid.UUID{},
		Status:             models.DiscountActive,
	}
	if in.MinPurchaseAmount != nil {
		if in.MinPurchaseAmount.IsNegative() {
			return nil, &ValidationError{Msg: "minPurchaseAmount cannot be negative"}
		}
		d.MinPurchaseAmount = in.MinPurchaseAmount.Round(2)
	}
	if in.UsageLimit != nil {
		if *in.UsageLimit < 1 {
			return nil, &ValidationError{Msg: "usageLimit must be at least 1"}
		}
		d.UsageLimit = *in.UsageLimit
	}
	if in.ExpiresAt != nil {
		if !in.ExpiresAt.After(e.now()) {
			return nil, &ValidationError{Msg: "expiresAt must be in the future"}
		}
		t := in.ExpiresAt.UTC()
		d.ExpiresAt = &t
	}

	if _, err := e.store.FindDiscount(ctx, code); err == nil {
		return nil, ErrCodeExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "find discount")
	}
	if err := e.store.CreateDiscount(ctx, d); err != nil {
		if errors.Is(err, ErrCodeExists) {
			return nil, err
		}
		return nil, errors.Wrap(err, "create discount")
	}
	return d, nil
}

// Apply validates code for the user's cart, records the snapshot on the cart
// and marks the code used by the user. The returned view carries the
// discounted total.
func (e *Engine) Apply(ctx context.Context, userID uuid.UUID, code string) (*models.CartView, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrCodeRequired
	}

	var view *models.CartView
	err := e.store.InTx(ctx, func(tx Tx) error {
		d, err := tx.LockDiscount(ctx, code)
		if err != nil {
			return err
		}
		now := e.now()
		if d.IsExpired(now) {
			return ErrExpired
		}
		if d.UsedByUser(userID) {
			return ErrAlreadyUsed
		}

		cart, err := tx.LockCart(ctx, userID)
		if err != nil {
			return err
		}
		if cart.IsEmpty() {
			return ErrEmptyCart
		}
		v, err := e.pricer.View(ctx, cart)
		if err != nil {
			return errors.Wrap(err, "price cart")
		}
		total := v.TotalCartPrice
		if total.LessThan(d.MinPurchaseAmount) {
			return &MinimumPurchaseError{Required: d.MinPurchaseAmount, Currency: e.currency}
		}

		amount := total.Mul(d.DiscountPercentage).Div(hundred)
		cart.DiscountApplied = &models.AppliedDiscount{
			Code:               d.Code,
			DiscountPercentage: d.DiscountPercentage,
			DiscountAmount:     amount,
		}
		d.UsedBy = append(d.UsedBy, userID)
		d.RefreshStatus(now)

		if err := tx.SaveDiscountUsage(ctx, d); err != nil {
			return errors.Wrap(err, "save discount")
		}
		if err := tx.SaveCartDiscount(ctx, cart); err != nil {
			return errors.Wrap(err, "save cart")
		}

		snapshot := *cart.DiscountApplied
		v.DiscountApplied = &snapshot
		v.UpdatedAt = cart.UpdatedAt
		v.TotalCartPrice = total.Sub(amount)
		view = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// maxRemoveAttempts bounds retries when the snapshot changes between the
// unlocked read and the locked one.
const maxRemoveAttempts = 3

// errSnapshotMoved reports that another request changed the applied code
// while Remove was running. It surfaces only after maxRemoveAttempts.
var errSnapshotMoved = errors.New("Your cart changed while removing the discount. Please try again.")

// Remove clears the cart's applied discount and releases the user's use of
// the code. A code deleted since it was applied is not an error.
func (e *Engine) Remove(ctx context.Context, userID uuid.UUID) (*models.CartView, error) {
	for attempt := 1; ; attempt++ {
		view, err := e.remove(ctx, userID)
		if errors.Is(err, errSnapshotMoved) && attempt < maxRemoveAttempts {
			continue
		}
		return view, err
	}
}

func (e *Engine) remove(ctx context.Context, userID uuid.UUID) (*models.CartView, error) {
	var cart *models.Cart
	err := e.store.InTx(ctx, func(tx Tx) error {
		peek, err := tx.PeekCart(ctx, userID)
		if err != nil {
			return err
		}
		if peek == nil || peek.DiscountApplied == nil {
			return ErrNoDiscountApplied
		}
		code := peek.DiscountApplied.Code

		d, err := tx.LockDiscount(ctx, code)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		cart, err = tx.LockCart(ctx, userID)
		if err != nil {
			return err
		}
		if cart == nil || cart.DiscountApplied == nil {
			return ErrNoDiscountApplied
		}
		if cart.DiscountApplied.Code != code {
			return errSnapshotMoved
		}

		if d != nil && d.ReleaseUser(userID) {
			d.RefreshStatus(e.now())
			if err := tx.SaveDiscountUsage(ctx, d); err != nil {
				return errors.Wrap(err, "save discount")
			}
		}
		cart.DiscountApplied = nil
		if err := tx.SaveCartDiscount(ctx, cart); err != nil {
			return errors.Wrap(err, "save cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	view, err := e.pricer.View(ctx, cart)
	if err != nil {
		return nil, errors.Wrap(err, "price cart")
	}
	return view, nil
}

// CheckedDiscount is the applied discount converted to a display currency.
type CheckedDiscount struct {
	Code               string          `json:"code"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	DiscountAmount     string          `json:"discountAmount"`
	TotalAfterDiscount string          `json:"totalAfterDiscount"`
}

// CheckResult is the response of Check.
type CheckResult struct {
	DiscountApplied *CheckedDiscount `json:"discountApplied"`
	Currency        string           `json:"currency"`
}

// Check reports the discount applied to the user's cart with amounts
// multiplied by rate and rounded to two decimals. It does not modify anything.
func (e *Engine) Check(ctx context.Context, userID uuid.UUID, rate decimal.Decimal, currency string) (*CheckResult, error) {
	res := &CheckResult{Currency: currency}
	cart, err := e.store.FindCart(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "find cart")
	}
	if cart == nil || cart.DiscountApplied == nil {
		return res, nil
	}
	view, err := e.pricer.View(ctx, cart)
	if err != nil {
		return nil, errors.Wrap(err, "price cart")
	}
	applied := cart.DiscountApplied
	res.DiscountApplied = &CheckedDiscount{
		Code:               applied.Code,
		DiscountPercentage: applied.DiscountPercentage,
		DiscountAmount:     applied.DiscountAmount.Mul(rate).StringFixed(2),
		TotalAfterDiscount: view.TotalCartPrice.Mul(rate).StringFixed(2),
	}
	return res, nil
}
