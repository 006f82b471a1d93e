package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Item struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"qty"`
	Price     int64  `json:"priceSnapshot"`
}

type Cart struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	Items      []Item    `json:"items"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Repository interface {
	Get(ctx context.Context, customerID string) (*Cart, error)
	Upsert(ctx context.Context, c *Cart) error

	// Clear removes every item from the customer's cart. Called after a
	// successful checkout commit; failure is non-fatal to the sale.
	Clear(ctx context.Context, customerID string) error
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Get(ctx context.Context, customerID string) (*Cart, error) {
	var c Cart
	err := r.db.QueryRowContext(ctx,
		`SELECT id, customer_id, updated_at FROM carts WHERE customer_id = $1`,
		customerID,
	).Scan(&c.ID, &c.CustomerID, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// caller (handler) can turn this into 404
			return nil, nil
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, quantity, price_snapshot FROM cart_items WHERE cart_id = $1`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("select cart_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.Price); err != nil {
			return nil, fmt.Errorf("scan cart_item: %w", err)
		}
		c.Items = append(c.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return &c, nil
}

func (r *repo) Upsert(ctx context.Context, c *Cart) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	const upsertCartSQL = `
INSERT INTO carts (id, customer_id, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (customer_id) DO UPDATE
SET updated_at = NOW()
RETURNING id, updated_at
`
	if err = tx.QueryRowContext(ctx, upsertCartSQL, c.ID, c.CustomerID).Scan(&c.ID, &c.UpdatedAt); err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, c.ID); err != nil {
		return fmt.Errorf("delete cart_items: %w", err)
	}

	for _, it := range c.Items {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO cart_items (id, cart_id, product_id, quantity, price_snapshot)
             VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(), c.ID, it.ProductID, it.Quantity, it.Price,
		); err != nil {
			return fmt.Errorf("insert cart_item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *repo) Clear(ctx context.Context, customerID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE cart_id IN (SELECT id FROM carts WHERE customer_id = $1)
	`, customerID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
