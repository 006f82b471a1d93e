package sale

import "time"

// Channel selects which sale path the engine runs: the online checkout
// (shipping, pending status, cart clearing) or the in-store POS sale
// (terminal on creation, no lifecycle).
type Channel string

const (
	ChannelOnline Channel = "online"
	ChannelPOS    Channel = "pos"
)

// Status values for online orders. Transitions past StatusPending are
// owned by the fulfillment workflow, not by the commit engine.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusProcessed Status = "processed"
	StatusShipped   Status = "shipped"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// CodePrefix returns the sequence prefix used to mint codes for the channel.
func (c Channel) CodePrefix() string {
	if c == ChannelPOS {
		return "TXN"
	}
	return "ORD"
}

// ItemRequest is a caller-supplied line item. It is never persisted.
type ItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"qty"`
}

// Item is a validated line with price/name/weight snapshots frozen at
// commit time. Later edits to the product must never change it.
type Item struct {
	ProductID    string `json:"productId"`
	NameSnapshot string `json:"nameSnapshot"`
	UnitPrice    int64  `json:"priceSnapshot"`
	UnitWeight   int    `json:"weightSnapshot,omitempty"`
	Quantity     int    `json:"qty"`
	Subtotal     int64  `json:"subtotal"`
}

// Sale is the immutable committed record for both channels. Status is
// empty for POS transactions.
type Sale struct {
	ID              string    `json:"id"`
	Code            string    `json:"code"`
	Channel         Channel   `json:"channel"`
	CustomerID      string    `json:"customerId,omitempty"`
	CashierID       string    `json:"cashierId,omitempty"`
	Items           []Item    `json:"items"`
	Total           int64     `json:"total"`
	ShippingCost    int64     `json:"shippingCost,omitempty"`
	ShippingAddress string    `json:"shippingAddress,omitempty"`
	PaymentMethod   string    `json:"paymentMethod,omitempty"`
	Status          Status    `json:"status,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}
