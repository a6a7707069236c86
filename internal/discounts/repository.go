package discounts

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velixa/storefront/internal/carts"
	"github.com/velixa/storefront/internal/models"
	"github.com/velixa/storefront/pkg/database"
)

const discountColumns = `id, code, discount_percentage, min_purchase_amount, usage_limit, used_by, expires_at, status, created_at, updated_at`

// Repository is the Postgres Store. Carts are read and written through the
// cart repository so both aggregates share one transaction.
type Repository struct {
	pool  *pgxpool.Pool
	db    database.DBTX
	carts *carts.Repository
}

// NewRepository creates a discount repository.
func NewRepository(pool *pgxpool.Pool, cartRepo *carts.Repository) *Repository {
	return &Repository{pool: pool, db: pool, carts: cartRepo}
}

func scanDiscount(row pgx.Row) (*models.Discount, error) {
	var d models.Discount
	var status string
	err := row.Scan(&d.ID, &d.Code, &d.DiscountPercentage, &d.MinPurchaseAmount, &d.UsageLimit,
		&d.UsedBy, &d.ExpiresAt, &status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	d.Status = models.DiscountStatus(status)
	if d.UsedBy == nil {
		d.UsedBy = []uuid.UUID{}
	}
	return &d, nil
}

// CreateDiscount inserts d and fills its generated fields.
func (r *Repository) CreateDiscount(ctx context.Context, d *models.Discount) error {
	const q = `INSERT INTO discounts (code, discount_percentage, min_purchase_amount, usage_limit, used_by, expires_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, q, d.Code, d.DiscountPercentage, d.MinPurchaseAmount, d.UsageLimit,
		d.UsedBy, d.ExpiresAt, string(d.Status),
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrCodeExists
		}
		return errors.Wrap(err, "insert discount")
	}
	return nil
}

// FindDiscount returns the discount with code.
func (r *Repository) FindDiscount(ctx context.Context, code string) (*models.Discount, error) {
	return scanDiscount(r.db.QueryRow(ctx, `SELECT `+discountColumns+` FROM discounts WHERE code = $1`, code))
}

// FindCart returns the user's cart, or nil when there is none.
func (r *Repository) FindCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return r.carts.Get(ctx, userID)
}

// InTx runs fn in a read-committed transaction.
func (r *Repository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&txRepository{db: tx, carts: r.carts.WithTx(tx)})
	})
}

// ExpireDue marks discounts whose expiry passed as expired. It returns the
// number of rows changed.
func (r *Repository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE discounts SET status = 'expired', updated_at = NOW()
		WHERE expires_at IS NOT NULL AND expires_at < $1 AND status <> 'expired'`, now)
	if err != nil {
		return 0, errors.Wrap(err, "expire discounts")
	}
	return tag.RowsAffected(), nil
}

type txRepository struct {
	db    database.DBTX
	carts *carts.Repository
}

func (t *txRepository) LockDiscount(ctx context.Context, code string) (*models.Discount, error) {
	return scanDiscount(t.db.QueryRow(ctx, `SELECT `+discountColumns+` FROM discounts WHERE code = $1 FOR UPDATE`, code))
}

func (t *txRepository) PeekCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return t.carts.Get(ctx, userID)
}

func (t *txRepository) LockCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return t.carts.GetForUpdate(ctx, userID)
}

func (t *txRepository) SaveDiscountUsage(ctx context.Context, d *models.Discount) error {
	err := t.db.QueryRow(ctx,
		`UPDATE discounts SET used_by = $2, status = $3, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
		d.ID, d.UsedBy, string(d.Status),
	).Scan(&d.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "update discount usage")
	}
	return nil
}

func (t *txRepository) SaveCartDiscount(ctx context.Context, c *models.Cart) error {
	return t.carts.SaveDiscount(ctx, c)
}
