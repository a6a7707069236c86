package products

import (
	"context"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velixa/storefront/internal/models"
	"github.com/velixa/storefront/pkg/database"
)

var (
	// ErrNotFound is returned when no product matches the id.
	ErrNotFound = errors.New("Product not found!")
	// ErrCodeExists is returned when the product code is taken.
	ErrCodeExists = errors.New("Product code already exists!")
	// ErrStorageDisabled is returned for uploads when no object storage is configured.
	ErrStorageDisabled = errors.New("image storage is not configured")
)

const productColumns = `id, title, description, images, total_price, selling_price, cost_price, category, sizes,
	fabric_type, fit_type, pattern, sleeve_type, collar_type, gender, color, stock, available_state,
	made_to_order, popular, country, active, product_code, related_products, created_at, updated_at`

// Repository handles product persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a product repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Images, &p.TotalPrice, &p.SellingPrice, &p.CostPrice,
		&p.Category, &p.Sizes, &p.FabricType, &p.FitType, &p.Pattern, &p.SleeveType, &p.CollarType, &p.Gender,
		&p.Color, &p.Stock, &p.AvailableState, &p.MadeToOrder, &p.Popular, &p.Country, &p.Active,
		&p.ProductCode, &p.RelatedProducts, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collect(rows pgx.Rows) ([]*models.Product, error) {
	defer rows.Close()
	var out []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create inserts a product and fills its generated fields.
func (r *Repository) Create(ctx context.Context, p *models.Product) error {
	const q = `INSERT INTO products (title, description, images, total_price, selling_price, cost_price, category,
		sizes, fabric_type, fit_type, pattern, sleeve_type, collar_type, gender, color, stock, available_state,
		made_to_order, popular, country, active, product_code, related_products)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, p.Title, p.Description, p.Images, p.TotalPrice, p.SellingPrice, p.CostPrice,
		p.Category, p.Sizes, p.FabricType, p.FitType, p.Pattern, p.SleeveType, p.CollarType, p.Gender, p.Color,
		p.Stock, p.AvailableState, p.MadeToOrder, p.Popular, p.Country, p.Active, p.ProductCode, p.RelatedProducts,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrCodeExists
		}
		return errors.Wrap(err, "insert product")
	}
	return nil
}

// GetByID returns a product by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get product")
	}
	return p, nil
}

// GetByIDs returns the products that exist among ids, keyed by id.
func (r *Repository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "query products")
	}
	list, err := collect(rows)
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

// Update locks the product, applies fn and writes every column back in one transaction.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fn func(*models.Product) error) (*models.Product, error) {
	var updated *models.Product
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		p, err := scanProduct(tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if database.IsNoRows(err) {
				return ErrNotFound
			}
			return errors.Wrap(err, "lock product")
		}
		if err := fn(p); err != nil {
			return err
		}
		const q = `UPDATE products SET title = $2, description = $3, images = $4, total_price = $5,
			selling_price = $6, cost_price = $7, category = $8, sizes = $9, fabric_type = $10, fit_type = $11,
			pattern = $12, sleeve_type = $13, collar_type = $14, gender = $15, color = $16, stock = $17,
			available_state = $18, made_to_order = $19, popular = $20, country = $21, active = $22,
			product_code = $23, related_products = $24, updated_at = NOW()
			WHERE id = $1 RETURNING updated_at`
		err = tx.QueryRow(ctx, q, p.ID, p.Title, p.Description, p.Images, p.TotalPrice, p.SellingPrice,
			p.CostPrice, p.Category, p.Sizes, p.FabricType, p.FitType, p.Pattern, p.SleeveType, p.CollarType,
			p.Gender, p.Color, p.Stock, p.AvailableState, p.MadeToOrder, p.Popular, p.Country, p.Active,
			p.ProductCode, p.RelatedProducts,
		).Scan(&p.UpdatedAt)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return ErrCodeExists
			}
			return errors.Wrap(err, "update product")
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a product and returns it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `DELETE FROM products WHERE id = $1 RETURNING `+productColumns, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "delete product")
	}
	return p, nil
}

// ListAll returns every product, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]*models.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	list, err := collect(rows)
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}
	return list, nil
}

// List returns one page of products matching f.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]*models.Product, error) {
	where, args := f.whereClause()
	n := len(args)
	args = append(args, f.Limit, f.Offset())
	q := `SELECT ` + productColumns + ` FROM products` + where + f.orderBy() +
		` LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	list, err := collect(rows)
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}
	return list, nil
}

// Count returns the number of products matching f.
func (r *Repository) Count(ctx context.Context, f ListFilter) (int, error) {
	where, args := f.whereClause()
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count products")
	}
	return n, nil
}
