package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fly2any/booking-engine/internal/domain"
	"github.com/segmentio/kafka-go"
)

// FulfillmentIntent tells the ticketing worker which channel issues the
// ticket for a freshly created booking. The engine emits it after create and
// never blocks the response on delivery.
type FulfillmentIntent struct {
	BookingID        string                `json:"booking_id"`
	BookingReference string                `json:"booking_reference"`
	Channel          domain.RoutingChannel `json:"channel"`
	TourCode         string                `json:"tour_code,omitempty"`
	DecisionReason   string                `json:"decision_reason"`
	ContactEmail     string                `json:"contact_email"`
	AmountCents      int64                 `json:"amount_cents"`
	Currency         string                `json:"currency"`
	CreatedAt        time.Time             `json:"created_at"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
