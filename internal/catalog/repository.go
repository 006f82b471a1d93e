package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("product not found")

	// ErrStockConflict means the conditional decrement matched no row:
	// either the product vanished or a concurrent sale consumed the stock.
	ErrStockConflict = errors.New("stock conflict")
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	Get(ctx context.Context, productID string) (Product, error)
	Upsert(ctx context.Context, p *Product) error
	SetStock(ctx context.Context, productID string, stock int) error

	// ReserveStock decrements stock and bumps sold_count in one conditional
	// statement. It is the only oversell guard in the system.
	ReserveStock(ctx context.Context, productID string, qty int) error

	// ReleaseStock undoes a prior ReserveStock for the same quantity.
	ReleaseStock(ctx context.Context, productID string, qty int) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, productID string) (Product, error) {
	var p Product
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, slug, price, weight, stock, is_active, sold_count, created_at, updated_at
		FROM products
		WHERE id = $1
	`, productID)
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Price, &p.Weight, &p.Stock, &p.IsActive, &p.SoldCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, p *Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, name, slug, price, weight, stock, is_active, sold_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			price = EXCLUDED.price,
			weight = EXCLUDED.weight,
			stock = EXCLUDED.stock,
			is_active = EXCLUDED.is_active,
			updated_at = now()
	`, p.ID, p.Name, p.Slug, p.Price, p.Weight, p.Stock, p.IsActive, p.SoldCount)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetStock(ctx context.Context, productID string, stock int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET stock = $2, updated_at = now() WHERE id = $1
	`, productID, stock)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ReserveStock(ctx context.Context, productID string, qty int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET stock = stock - $2, sold_count = sold_count + $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
	`, productID, qty)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStockConflict
	}
	return nil
}

func (r *PostgresRepository) ReleaseStock(ctx context.Context, productID string, qty int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET stock = stock + $2, sold_count = sold_count - $2, updated_at = now()
		WHERE id = $1
	`, productID, qty)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
