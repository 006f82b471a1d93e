package events

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange           = "pengadepan.events"
	SaleCommittedRoutingKey  = "sale.committed.v1"
	StockDepletedRoutingKey  = "stock.depleted.v1"
	defaultProducer          = "pengadepan-server"
)

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
