package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velixa/storefront/internal/models"
	"github.com/velixa/storefront/pkg/database"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when the email or username is taken.
	ErrUserExists = errors.New("user already exists")
)

const userColumns = `id, first_name, last_name, username, email, password_hash, dob, role, is_verified, created_at, updated_at`

// Repository handles user persistence. It is the user store behind token checks.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var role string
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email, &u.Password,
		&u.DOB, &role, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email (case-insensitive).
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

// CreateUserParams holds the fields of a new account.
type CreateUserParams struct {
	FirstName    string
	LastName     string
	Username     string
	Email        string
	PasswordHash string
	DOB          *time.Time
	Role         models.Role
}

// Create inserts a new user. It returns ErrUserExists on a duplicate email or username.
func (r *Repository) Create(ctx context.Context, p CreateUserParams) (*models.User, error) {
	const q = `INSERT INTO users (first_name, last_name, username, email, password_hash, dob, role)
		VALUES ($1, $2, $3, lower($4), $5, $6, $7)
		RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, q, p.FirstName, p.LastName, p.Username, p.Email, p.PasswordHash, p.DOB, string(p.Role)))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, errors.Wrap(err, "insert user")
	}
	return u, nil
}
