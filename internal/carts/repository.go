package carts

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velixa/storefront/internal/models"
	"github.com/velixa/storefront/pkg/database"
)

// ErrCartNotFound is returned when the user has no cart.
var ErrCartNotFound = errors.New("Cart not found")

const cartColumns = `id, user_id, items, discount_applied, created_at, updated_at`

// Repository handles cart persistence. Items and the applied discount are
// JSONB documents on the cart row.
type Repository struct {
	pool *pgxpool.Pool
	db   database.DBTX
}

// NewRepository creates a cart repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

// WithTx returns a repository whose queries run in tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{pool: r.pool, db: tx}
}

func scanCart(row pgx.Row) (*models.Cart, error) {
	var c models.Cart
	var items, applied []byte
	if err := row.Scan(&c.ID, &c.UserID, &items, &applied, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(items, &c.Items); err != nil {
		return nil, errors.Wrap(err, "decode cart items")
	}
	if c.Items == nil {
		c.Items = []models.CartItem{}
	}
	if len(applied) > 0 && string(applied) != "null" {
		c.DiscountApplied = new(models.AppliedDiscount)
		if err := json.Unmarshal(applied, c.DiscountApplied); err != nil {
			return nil, errors.Wrap(err, "decode applied discount")
		}
	}
	return &c, nil
}

// Get returns the user's cart, or nil when there is none.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return r.getCart(ctx, `SELECT `+cartColumns+` FROM carts WHERE user_id = $1`, userID)
}

// GetForUpdate is Get with a row lock held until the transaction ends.
func (r *Repository) GetForUpdate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return r.getCart(ctx, `SELECT `+cartColumns+` FROM carts WHERE user_id = $1 FOR UPDATE`, userID)
}

func (r *Repository) getCart(ctx context.Context, query string, userID uuid.UUID) (*models.Cart, error) {
	c, err := scanCart(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	return c, nil
}

// Ensure creates an empty cart for the user unless one exists.
func (r *Repository) Ensure(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return errors.Wrap(err, "ensure cart")
	}
	return nil
}

// SaveItems writes the cart's items and refreshes UpdatedAt.
func (r *Repository) SaveItems(ctx context.Context, c *models.Cart) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return errors.Wrap(err, "encode cart items")
	}
	err = r.db.QueryRow(ctx,
		`UPDATE carts SET items = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
		c.ID, items,
	).Scan(&c.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "save cart items")
	}
	return nil
}

// SaveDiscount writes the cart's applied discount (NULL when cleared).
func (r *Repository) SaveDiscount(ctx context.Context, c *models.Cart) error {
	var applied any
	if c.DiscountApplied != nil {
		raw, err := json.Marshal(c.DiscountApplied)
		if err != nil {
			return errors.Wrap(err, "encode applied discount")
		}
		applied = raw
	}
	err := r.db.QueryRow(ctx,
		`UPDATE carts SET discount_applied = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
		c.ID, applied,
	).Scan(&c.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "save cart discount")
	}
	return nil
}

// Delete removes the user's cart. It reports whether a cart existed.
func (r *Repository) Delete(ctx context.Context, userID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, userID)
	if err != nil {
		return false, errors.Wrap(err, "delete cart")
	}
	return tag.RowsAffected() > 0, nil
}

// Mutate locks the user's cart, applies fn and saves its items, all in one
// transaction. With create set a missing cart is created first; otherwise a
// missing cart yields ErrCartNotFound.
func (r *Repository) Mutate(ctx context.Context, userID uuid.UUID, create bool, fn func(*models.Cart) error) (*models.Cart, error) {
	var cart *models.Cart
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		repo := r.WithTx(tx)
		if create {
			if err := repo.Ensure(ctx, userID); err != nil {
				return err
			}
		}
		c, err := repo.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrCartNotFound
		}
		if err := fn(c); err != nil {
			return err
		}
		if err := repo.SaveItems(ctx, c); err != nil {
			return err
		}
		cart = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}
