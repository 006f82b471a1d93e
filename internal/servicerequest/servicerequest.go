package servicerequest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/saptoprawiroutomo/Pengadepan/internal/sequence"
)

const StatusReceived = "received"

// Request is a repair/service intake record. Codes share the sequence
// generator with sales, under the SRV prefix.
type Request struct {
	ID          string    `json:"id"`
	Code        string    `json:"serviceCode"`
	CustomerID  string    `json:"customerId"`
	DeviceType  string    `json:"deviceType"`
	Brand       string    `json:"brand,omitempty"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Repository interface {
	Create(ctx context.Context, req *Request) error
	ListByCustomer(ctx context.Context, customerID string) ([]Request, error)
}

// Intake mints a service code and persists the request.
type Intake struct {
	repo      Repository
	sequences sequence.Repository
	now       func() time.Time
}

func NewIntake(repo Repository, sequences sequence.Repository) *Intake {
	return &Intake{repo: repo, sequences: sequences, now: time.Now}
}

func (i *Intake) Create(ctx context.Context, customerID, deviceType, brand, description string) (*Request, error) {
	if customerID == "" || deviceType == "" || description == "" {
		return nil, fmt.Errorf("customer, device type and description are required")
	}

	year := i.now().Year()
	seq, err := i.sequences.Next(ctx, "SRV", year)
	if err != nil {
		return nil, fmt.Errorf("allocate service code: %w", err)
	}

	req := &Request{
		ID:          uuid.NewString(),
		Code:        sequence.Code("SRV", year, seq),
		CustomerID:  customerID,
		DeviceType:  deviceType,
		Brand:       brand,
		Description: description,
		Status:      StatusReceived,
		CreatedAt:   i.now().UTC(),
	}

	if err := i.repo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("persist service request: %w", err)
	}
	return req, nil
}

func (i *Intake) ListByCustomer(ctx context.Context, customerID string) ([]Request, error) {
	return i.repo.ListByCustomer(ctx, customerID)
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, req *Request) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO service_requests (id, code, customer_id, device_type, brand, description, status, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		req.ID, req.Code, req.CustomerID, req.DeviceType, req.Brand, req.Description, req.Status, req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert service_request: %w", err)
	}
	return nil
}

func (r *repo) ListByCustomer(ctx context.Context, customerID string) ([]Request, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, code, customer_id, device_type, brand, description, status, created_at
         FROM service_requests WHERE customer_id = $1 ORDER BY created_at DESC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select service_requests: %w", err)
	}
	defer rows.Close()

	var reqs []Request
	for rows.Next() {
		var sr Request
		if err := rows.Scan(&sr.ID, &sr.Code, &sr.CustomerID, &sr.DeviceType, &sr.Brand, &sr.Description, &sr.Status, &sr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan service_request: %w", err)
		}
		reqs = append(reqs, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return reqs, nil
}
