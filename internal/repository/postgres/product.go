package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mbenites/dropstore/internal/domain"
	"github.com/mbenites/dropstore/internal/query"
	"github.com/mbenites/dropstore/pkg/database"
	apperrors "github.com/mbenites/dropstore/pkg/errors"
)

const productColumns = "id, title, description, code, price, status, stock, category, drop_tag, thumbnails, created_at, updated_at"

// ProductRepository implements repository.ProductRepository using PostgreSQL.
// The UNIQUE constraint on code is the authoritative guard against duplicate
// codes; the service-level pre-check only exists for friendlier errors.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	thumbsJSON, err := json.Marshal(p.Thumbnails)
	if err != nil {
		return fmt.Errorf("marshal thumbnails: %w", err)
	}

	sql := `
		INSERT INTO products (id, title, description, code, price, status, stock, category, drop_tag, thumbnails, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.pool.Exec(ctx, sql,
		p.ID,
		p.Title,
		p.Description,
		p.Code,
		p.Price,
		p.Status,
		p.Stock,
		p.Category,
		p.Drop,
		thumbsJSON,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "code", p.Code)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	sql := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	p, err := r.scanProduct(r.pool.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetAll returns the whole catalog ordered by creation time.
func (r *ProductRepository) GetAll(ctx context.Context) ([]domain.Product, error) {
	sql := fmt.Sprintf(`SELECT %s FROM products ORDER BY created_at`, productColumns)

	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("list all products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := r.scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

// CodeInUse reports whether another product already carries the code.
func (r *ProductRepository) CodeInUse(ctx context.Context, code, excludeID string) (bool, error) {
	sql := `SELECT EXISTS (SELECT 1 FROM products WHERE code = $1 AND id <> $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, sql, code, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product code: %w", err)
	}
	return exists, nil
}

// Count returns the number of products matching the filter.
func (r *ProductRepository) Count(ctx context.Context, filter query.Filter) (int, error) {
	whereClause, args := buildWhere(filter)
	sql := fmt.Sprintf(`SELECT count(*) FROM products %s`, whereClause)

	var total int
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

// List returns products matching the filter.
func (r *ProductRepository) List(ctx context.Context, filter query.Filter, sort string, limit, offset int) ([]domain.Product, error) {
	whereClause, args := buildWhere(filter)

	orderClause := "ORDER BY created_at"
	switch sort {
	case query.SortAsc:
		orderClause = "ORDER BY price ASC"
	case query.SortDesc:
		orderClause = "ORDER BY price DESC"
	}

	argIndex := len(args) + 1
	sql := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		%s
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, orderClause, argIndex, argIndex+1,
	)

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := r.scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

// buildWhere translates a compiled filter into a WHERE clause with
// positional arguments.
func buildWhere(filter query.Filter) (string, []any) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, *filter.Category)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.InStock != nil {
		if *filter.InStock {
			conditions = append(conditions, "stock > 0")
		} else {
			conditions = append(conditions, "stock <= 0")
		}
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// Update modifies an existing product in the database.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	thumbsJSON, err := json.Marshal(p.Thumbnails)
	if err != nil {
		return fmt.Errorf("marshal thumbnails: %w", err)
	}

	p.UpdatedAt = time.Now().UTC()

	sql := `
		UPDATE products
		SET title = $1, description = $2, code = $3, price = $4, status = $5,
		    stock = $6, category = $7, drop_tag = $8, thumbnails = $9, updated_at = $10
		WHERE id = $11`

	ct, err := r.pool.Exec(ctx, sql,
		p.Title,
		p.Description,
		p.Code,
		p.Price,
		p.Status,
		p.Stock,
		p.Category,
		p.Drop,
		thumbsJSON,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "code", p.Code)
		}
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}

	return nil
}

// Delete removes a product by its ID and returns the removed row.
func (r *ProductRepository) Delete(ctx context.Context, id string) (*domain.Product, error) {
	sql := fmt.Sprintf(`DELETE FROM products WHERE id = $1 RETURNING %s`, productColumns)

	p, err := r.scanProduct(r.pool.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("delete product: %w", err)
	}
	return p, nil
}

// scanProduct reads a single product row.
func (r *ProductRepository) scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p          domain.Product
		thumbsJSON []byte
	)

	if err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Code,
		&p.Price,
		&p.Status,
		&p.Stock,
		&p.Category,
		&p.Drop,
		&thumbsJSON,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if thumbsJSON != nil {
		if err := json.Unmarshal(thumbsJSON, &p.Thumbnails); err != nil {
			return nil, fmt.Errorf("unmarshal thumbnails: %w", err)
		}
	}

	return &p, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
