package sequence

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository mints strictly increasing values per (prefix, year) pair.
// Values are never reused; a caller that rolls back its work burns the
// allocated value so the monotonicity guarantee survives failures.
type Repository interface {
	Next(ctx context.Context, prefix string, year int) (int64, error)
}

// Code renders an allocated value as a human-readable record code,
// e.g. Code("ORD", 2026, 123) == "ORD-2026-000123".
func Code(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%06d", prefix, year, seq)
}

type repository struct {
	db txStarter
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: sqlTxStarter{db: db}}
}

func (r *repository) Next(ctx context.Context, prefix string, year int) (int64, error) {
	if prefix == "" {
		return 0, fmt.Errorf("prefix is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// A single find-and-increment round trip, creating the counter at 1.
	// Never split into a read followed by a write: concurrent callers
	// would race and hand out duplicates.
	const query = `
INSERT INTO sequences (prefix, year, value, updated_at)
VALUES ($1, $2, 1, NOW())
ON CONFLICT (prefix, year) DO UPDATE
SET value = sequences.value + 1,
    updated_at = NOW()
RETURNING value
`

	var next int64
	if err = tx.QueryRowContext(ctx, query, prefix, year).Scan(&next); err != nil {
		return 0, fmt.Errorf("increment sequence: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return next, nil
}

type txStarter interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (txRunner, error)
}

type txRunner interface {
	QueryRowContext(ctx context.Context, query string, args ...any) rowScanner
	Commit() error
	Rollback() error
}

type rowScanner interface {
	Scan(dest ...any) error
}

type sqlTxStarter struct {
	db *sql.DB
}

func (s sqlTxStarter) BeginTx(ctx context.Context, opts *sql.TxOptions) (txRunner, error) {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return sqlTx{tx: tx}, nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (s sqlTx) QueryRowContext(ctx context.Context, query string, args ...any) rowScanner {
	return s.tx.QueryRowContext(ctx, query, args...)
}

func (s sqlTx) Commit() error {
	return s.tx.Commit()
}

func (s sqlTx) Rollback() error {
	return s.tx.Rollback()
}
