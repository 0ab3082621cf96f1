package kafka

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Consumer reads fulfillment intents for the ticketing worker. One consumer
// group per worker deployment. Offsets are committed only after the handler
// succeeds, so an intent that fails mid-handling is redelivered on restart.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume decodes and dispatches intents until the context is canceled or the
// handler fails. Malformed payloads are logged and committed past; they would
// fail identically on every redelivery.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, FulfillmentIntent) error) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		var intent FulfillmentIntent
		if err := json.Unmarshal(msg.Value, &intent); err != nil {
			log.Printf("skipping malformed fulfillment intent at offset %d: %v", msg.Offset, err)
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return err
			}
			continue
		}

		if err := handler(ctx, intent); err != nil {
			return err
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}
