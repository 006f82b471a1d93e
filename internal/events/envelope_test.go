package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeValidate(t *testing.T) {
	env := newEnvelope(EventTypeSaleCommitted, "sale-1", 3, "pengadepan-server", SaleCommittedPayload{SaleID: "sale-1"}, time.Now().UTC())

	require.NoError(t, env.Validate(EventTypeSaleCommitted, 1))
	assert.Error(t, env.Validate(EventTypeStockDepleted, 1))
	assert.Error(t, env.Validate(EventTypeSaleCommitted, 2))

	env.PartitionKey = ""
	assert.Error(t, env.Validate(EventTypeSaleCommitted, 1))
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := newEnvelope(EventTypeStockDepleted, "p1", 7, "pengadepan-server", StockDepletedPayload{
		ProductID: "p1",
		Requested: 3,
		Available: 1,
		Timestamp: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}, time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))

	body, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope[StockDepletedPayload]
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.NoError(t, decoded.Validate(EventTypeStockDepleted, 1))
	assert.Equal(t, int64(7), decoded.Sequence)
	assert.Equal(t, 1, decoded.Payload.Available)
}
