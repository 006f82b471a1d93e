package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/saptoprawiroutomo/Pengadepan/internal/sale"
)

const (
	EventTypeSaleCommitted = "SaleCommitted"
	EventTypeStockDepleted = "StockDepleted"
)

// SaleCommittedPayload mirrors the persisted record without the
// customer-facing extras.
type SaleCommittedPayload struct {
	SaleID    string     `json:"saleId"`
	Code      string     `json:"code"`
	Channel   string     `json:"channel"`
	Total     int64      `json:"total"`
	Items     []SaleLine `json:"items"`
	Timestamp time.Time  `json:"timestamp"`
}

type SaleLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type StockDepletedPayload struct {
	ProductID string    `json:"productId"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits domain events to the topic exchange. It satisfies
// sale.EventSink.
type Publisher struct {
	ch       *amqp.Channel
	seqRepo  SequenceRepository
	producer string
}

type PublisherOptions struct {
	Producer string
}

func NewPublisher(conn *amqp.Connection, seqRepo SequenceRepository, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	producer := opts.Producer
	if producer == "" {
		producer = defaultProducer
	}

	return &Publisher{ch: ch, seqRepo: seqRepo, producer: producer}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) SaleCommitted(ctx context.Context, s *sale.Sale) error {
	timestamp := time.Now().UTC()

	payload := SaleCommittedPayload{
		SaleID:    s.ID,
		Code:      s.Code,
		Channel:   string(s.Channel),
		Total:     s.Total,
		Timestamp: timestamp,
	}
	for _, it := range s.Items {
		payload.Items = append(payload.Items, SaleLine{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		})
	}

	seq, err := p.seqRepo.NextSequence(ctx, s.ID)
	if err != nil {
		return fmt.Errorf("sale sequence: %w", err)
	}

	env := newEnvelope(EventTypeSaleCommitted, s.ID, seq, p.producer, payload, timestamp)
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal SaleCommitted envelope: %w", err)
	}

	return p.publishJSON(ctx, SaleCommittedRoutingKey, body)
}

func (p *Publisher) StockDepleted(ctx context.Context, productID string, requested, available int) error {
	timestamp := time.Now().UTC()

	payload := StockDepletedPayload{
		ProductID: productID,
		Requested: requested,
		Available: available,
		Timestamp: timestamp,
	}

	seq, err := p.seqRepo.NextSequence(ctx, productID)
	if err != nil {
		return fmt.Errorf("depletion sequence: %w", err)
	}

	env := newEnvelope(EventTypeStockDepleted, productID, seq, p.producer, payload, timestamp)
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal StockDepleted envelope: %w", err)
	}

	return p.publishJSON(ctx, StockDepletedRoutingKey, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func newEnvelope[T any](name, partitionKey string, seq int64, producer string, payload T, occurredAt time.Time) Envelope[T] {
	return Envelope[T]{
		EventName:    name,
		EventVersion: 1,
		EventID:      uuid.NewString(),
		Producer:     producer,
		PartitionKey: partitionKey,
		Sequence:     seq,
		OccurredAt:   occurredAt,
		Payload:      payload,
	}
}
