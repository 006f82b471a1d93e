package sale

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/saptoprawiroutomo/Pengadepan/internal/catalog"
	"github.com/saptoprawiroutomo/Pengadepan/internal/sequence"
)

// Catalog is the slice of the product store the engine needs. The
// conditional ReserveStock is the sole oversell guard; the engine adds
// no locking of its own because other processes may be committing
// against the same store.
type Catalog interface {
	Get(ctx context.Context, productID string) (catalog.Product, error)
	ReserveStock(ctx context.Context, productID string, qty int) error
	ReleaseStock(ctx context.Context, productID string, qty int) error
}

// Sequences mints the next value for a (prefix, year) pair.
type Sequences interface {
	Next(ctx context.Context, prefix string, year int) (int64, error)
}

// Store persists committed sales.
type Store interface {
	Create(ctx context.Context, s *Sale) error
}

// CartClearer empties a customer's cart after a successful online
// commit. Its failure never invalidates the committed sale.
type CartClearer interface {
	Clear(ctx context.Context, customerID string) error
}

// EventSink receives best-effort domain events. Errors are logged and
// never affect the commit result.
type EventSink interface {
	SaleCommitted(ctx context.Context, s *Sale) error
	StockDepleted(ctx context.Context, productID string, requested, available int) error
}

// CommitRequest describes one sale attempt. CustomerID, shipping
// fields and PaymentMethod apply to the online channel; CashierID to
// the POS channel.
type CommitRequest struct {
	Channel         Channel
	CustomerID      string
	CashierID       string
	Items           []ItemRequest
	ShippingAddress string
	ShippingCost    int64
	PaymentMethod   string
}

// Result is a successful commit. CartWarning is set when the sale is
// durable but the customer's cart could not be cleared afterwards.
type Result struct {
	Sale        *Sale
	CartWarning error
}

// Engine is the unified commit path for online checkout and POS sales.
// A commit either produces a fully reserved, fully persisted sale, or
// no sale and fully restored stock.
type Engine struct {
	catalog   Catalog
	sequences Sequences
	sales     Store
	carts     CartClearer
	events    EventSink
	logger    *log.Logger
	now       func() time.Time
}

func NewEngine(cat Catalog, seq Sequences, sales Store, carts CartClearer, events EventSink, logger *log.Logger) *Engine {
	return &Engine{
		catalog:   cat,
		sequences: seq,
		sales:     sales,
		carts:     carts,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

func (e *Engine) Commit(ctx context.Context, req CommitRequest) (*Result, error) {
	items, total, err := e.validate(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	reserved, err := e.reserve(ctx, items)
	if err != nil {
		return nil, err
	}

	year := e.now().Year()
	prefix := req.Channel.CodePrefix()

	seq, err := e.sequences.Next(ctx, prefix, year)
	if err != nil {
		e.release(ctx, reserved)
		return nil, fmt.Errorf("%w: %v", ErrSequenceAllocation, err)
	}
	code := sequence.Code(prefix, year, seq)

	s := &Sale{
		ID:            uuid.NewString(),
		Code:          code,
		Channel:       req.Channel,
		CustomerID:    req.CustomerID,
		CashierID:     req.CashierID,
		Items:         items,
		Total:         total,
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     e.now().UTC(),
	}
	if req.Channel == ChannelOnline {
		s.Total += req.ShippingCost
		s.ShippingCost = req.ShippingCost
		s.ShippingAddress = req.ShippingAddress
		s.Status = StatusPending
	}

	if err := e.sales.Create(ctx, s); err != nil {
		e.release(ctx, reserved)
		// The allocated value stays burned: reusing it would break the
		// strict monotonicity of the sequence.
		e.logger.Printf("persist failed, code %s burned: %v", code, err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	res := &Result{Sale: s}

	if req.Channel == ChannelOnline && e.carts != nil {
		if err := e.carts.Clear(ctx, req.CustomerID); err != nil {
			e.logger.Printf("cart clear failed for customer %s after sale %s: %v", req.CustomerID, code, err)
			res.CartWarning = fmt.Errorf("cart clear failed: %w", err)
		}
	}

	if e.events != nil {
		if err := e.events.SaleCommitted(ctx, s); err != nil {
			e.logger.Printf("publish sale committed %s: %v", code, err)
		}
	}

	return res, nil
}

// validate resolves every requested line against the catalog and
// freezes the price/name/weight snapshots. It is an optimistic
// pre-check for friendly rejection; stock is re-checked atomically by
// the reservation.
func (e *Engine) validate(ctx context.Context, reqs []ItemRequest) ([]Item, int64, error) {
	if len(reqs) == 0 {
		return nil, 0, ErrNoItems
	}

	items := make([]Item, 0, len(reqs))
	var total int64

	for _, r := range reqs {
		if r.ProductID == "" || r.Quantity <= 0 {
			return nil, 0, fmt.Errorf("%w: bad line item %q qty %d", ErrNoItems, r.ProductID, r.Quantity)
		}

		p, err := e.catalog.Get(ctx, r.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, 0, fmt.Errorf("%w: %s", ErrProductNotFound, r.ProductID)
			}
			return nil, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if !p.IsActive {
			return nil, 0, fmt.Errorf("%w: %s", ErrProductInactive, p.Name)
		}
		if p.Stock < r.Quantity {
			return nil, 0, &InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: r.Quantity,
				Available: p.Stock,
			}
		}

		subtotal := p.Price * int64(r.Quantity)
		total += subtotal

		items = append(items, Item{
			ProductID:    p.ID,
			NameSnapshot: p.Name,
			UnitPrice:    p.Price,
			UnitWeight:   p.Weight,
			Quantity:     r.Quantity,
			Subtotal:     subtotal,
		})
	}

	return items, total, nil
}

// reserve applies the conditional decrement item by item, in caller
// order. On the first conflict every prior decrement is compensated in
// reverse order before the error is returned: there is no partial sale.
func (e *Engine) reserve(ctx context.Context, items []Item) ([]Item, error) {
	for i, it := range items {
		err := e.catalog.ReserveStock(ctx, it.ProductID, it.Quantity)
		if err == nil {
			continue
		}

		e.release(ctx, items[:i])

		if errors.Is(err, catalog.ErrStockConflict) {
			if e.events != nil {
				if p, getErr := e.catalog.Get(ctx, it.ProductID); getErr == nil {
					if pubErr := e.events.StockDepleted(ctx, it.ProductID, it.Quantity, p.Stock); pubErr != nil {
						e.logger.Printf("publish stock depleted %s: %v", it.ProductID, pubErr)
					}
				}
			}
			return nil, &ReservationConflictError{ProductID: it.ProductID}
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return items, nil
}

// release compensates applied decrements in reverse order of
// application. Failures are logged, not returned: the caller is
// already propagating the original error.
func (e *Engine) release(ctx context.Context, applied []Item) {
	for i := len(applied) - 1; i >= 0; i-- {
		it := applied[i]
		if err := e.catalog.ReleaseStock(ctx, it.ProductID, it.Quantity); err != nil {
			e.logger.Printf("compensate %s qty %d: %v", it.ProductID, it.Quantity, err)
		}
	}
}
