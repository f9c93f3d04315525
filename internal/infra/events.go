package infra

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// Sale event types.
const (
	EventSaleAdded   = "sale.added"
	EventSaleDeleted = "sale.deleted"
	EventSaleUndone  = "sale.undone"
)

// SaleEvent is published after a sale mutation commits.
type SaleEvent struct {
	Type     string          `json:"type"`
	Company  string          `json:"company"`
	Email    string          `json:"email"`
	SaleID   uint            `json:"sale_id,omitempty"`
	Action   string          `json:"action,omitempty"` // undone ledger action
	Product  string          `json:"product"`
	Revenue  decimal.Decimal `json:"revenue"`
	Quantity int             `json:"quantity"`
	At       time.Time       `json:"at"`
}

// EventPublisher delivers sale events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event SaleEvent) error
	Close() error
}

// KafkaPublisher writes events to one topic keyed by company, so a company's
// events stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
			WriteTimeout:           5 * time.Second,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event SaleEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Company),
		Value: data,
	})
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

// NoopPublisher drops events; used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, SaleEvent) error { return nil }
func (NoopPublisher) Close() error                             { return nil }

// NewEventPublisher picks Kafka when brokers are configured.
func NewEventPublisher(brokers []string, topic string) EventPublisher {
	if len(brokers) == 0 {
		return NoopPublisher{}
	}
	return NewKafkaPublisher(brokers, topic)
}
