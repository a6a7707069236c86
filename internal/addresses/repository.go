package addresses

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velixa/storefront/internal/models"
	"github.com/velixa/storefront/pkg/database"
)

// ErrNotFound is returned when the address does not exist or belongs to someone else.
var ErrNotFound = errors.New("Address not found")

const addressColumns = `id, user_id, name, mobile_no, address, pincode, city, state, country, landmark, created_at, updated_at`

// Repository handles address persistence. Every query is scoped to the owner.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an address repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanAddress(row pgx.Row) (*models.Address, error) {
	var a models.Address
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.MobileNo, &a.Address, &a.Pincode, &a.City, &a.State,
		&a.Country, &a.Landmark, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Create inserts an address.
func (r *Repository) Create(ctx context.Context, a *models.Address) error {
	const q = `INSERT INTO addresses (user_id, name, mobile_no, address, pincode, city, state, country, landmark)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, a.UserID, a.Name, a.MobileNo, a.Address, a.Pincode, a.City, a.State,
		a.Country, a.Landmark).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "insert address")
	}
	return nil
}

// Get returns the user's address by id.
func (r *Repository) Get(ctx context.Context, userID, id uuid.UUID) (*models.Address, error) {
	a, err := scanAddress(r.pool.QueryRow(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "get address")
	}
	return a, err
}

// ListByUser returns the user's addresses, oldest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Address, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list addresses")
	}
	defer rows.Close()
	out := []*models.Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan address")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update writes every field of a.
func (r *Repository) Update(ctx context.Context, a *models.Address) error {
	const q = `UPDATE addresses SET name = $3, mobile_no = $4, address = $5, pincode = $6, city = $7,
		state = $8, country = $9, landmark = $10, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, a.ID, a.UserID, a.Name, a.MobileNo, a.Address, a.Pincode, a.City,
		a.State, a.Country, a.Landmark).Scan(&a.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return ErrNotFound
		}
		return errors.Wrap(err, "update address")
	}
	return nil
}

// Delete removes the user's address.
func (r *Repository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM addresses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return errors.Wrap(err, "delete address")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
