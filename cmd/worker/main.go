package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fly2any/booking-engine/config"
	"github.com/fly2any/booking-engine/internal/email"
	"github.com/fly2any/booking-engine/internal/kafka"
)

// The worker consumes fulfillment intents emitted at booking creation and
// hands them to the channel collaborators. Ticket issuance itself happens in
// the external Duffel/consolidator clients; here only the confirmation
// notification is dispatched.
func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.FulfillmentTopic)
	defer consumer.Close()

	sender := email.NewSender()

	if err := consumer.Consume(ctx, func(ctx context.Context, intent kafka.FulfillmentIntent) error {
		log.Printf("fulfillment intent for %s via %s", intent.BookingReference, intent.Channel)
		return sender.Send(ctx, intent)
	}); err != nil && ctx.Err() == nil {
		log.Printf("consumer stopped: %v", err)
	}
}
