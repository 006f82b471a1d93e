package sale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Repository persists committed sales. Records are written exactly once
// and never updated here; status transitions belong to the fulfillment
// workflow.
type Repository interface {
	Create(ctx context.Context, s *Sale) error
	GetByID(ctx context.Context, saleID string) (*Sale, error)
	GetByCode(ctx context.Context, code string) (*Sale, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Sale, error)
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, s *Sale) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sales (id, code, channel, customer_id, cashier_id, total, shipping_cost, shipping_address, payment_method, status, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.Code, s.Channel, nullString(s.CustomerID), nullString(s.CashierID),
		s.Total, s.ShippingCost, nullString(s.ShippingAddress), nullString(s.PaymentMethod),
		nullString(string(s.Status)), s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	for _, it := range s.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO sale_items (id, sale_id, product_id, name_snapshot, price_snapshot, weight_snapshot, quantity, subtotal)
             VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.NewString(), s.ID, it.ProductID, it.NameSnapshot, it.UnitPrice, it.UnitWeight, it.Quantity, it.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("insert sale_item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *repo) GetByID(ctx context.Context, saleID string) (*Sale, error) {
	return r.getOne(ctx, `WHERE id = $1`, saleID)
}

func (r *repo) GetByCode(ctx context.Context, code string) (*Sale, error) {
	return r.getOne(ctx, `WHERE code = $1`, code)
}

func (r *repo) getOne(ctx context.Context, where string, arg any) (*Sale, error) {
	var (
		s                                          Sale
		customerID, cashierID, addr, payment, stat sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, code, channel, customer_id, cashier_id, total, shipping_cost, shipping_address, payment_method, status, created_at
         FROM sales `+where, arg,
	).Scan(&s.ID, &s.Code, &s.Channel, &customerID, &cashierID, &s.Total, &s.ShippingCost, &addr, &payment, &stat, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select sale: %w", err)
	}
	s.CustomerID = customerID.String
	s.CashierID = cashierID.String
	s.ShippingAddress = addr.String
	s.PaymentMethod = payment.String
	s.Status = Status(stat.String)

	items, err := r.loadItems(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Items = items
	return &s, nil
}

func (r *repo) loadItems(ctx context.Context, saleID string) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, name_snapshot, price_snapshot, weight_snapshot, quantity, subtotal
         FROM sale_items WHERE sale_id = $1`,
		saleID,
	)
	if err != nil {
		return nil, fmt.Errorf("select sale_items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.NameSnapshot, &it.UnitPrice, &it.UnitWeight, &it.Quantity, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("scan sale_item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return items, nil
}

func (r *repo) ListByCustomer(ctx context.Context, customerID string) ([]Sale, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, code, channel, customer_id, cashier_id, total, shipping_cost, shipping_address, payment_method, status, created_at
         FROM sales WHERE customer_id = $1 ORDER BY created_at DESC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select sales: %w", err)
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		var (
			s                                 Sale
			custID, cashID, addr, payment, st sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Code, &s.Channel, &custID, &cashID, &s.Total, &s.ShippingCost, &addr, &payment, &st, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		s.CustomerID = custID.String
		s.CashierID = cashID.String
		s.ShippingAddress = addr.String
		s.PaymentMethod = payment.String
		s.Status = Status(st.String)
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	for i := range sales {
		items, err := r.loadItems(ctx, sales[i].ID)
		if err != nil {
			return nil, err
		}
		sales[i].Items = items
	}

	return sales, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
