package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fly2any/booking-engine/api"
	"github.com/fly2any/booking-engine/config"
	"github.com/fly2any/booking-engine/internal/bootstrap"
	"github.com/fly2any/booking-engine/internal/cache"
	"github.com/fly2any/booking-engine/internal/domain"
	"github.com/fly2any/booking-engine/internal/kafka"
	"github.com/fly2any/booking-engine/internal/policy"
	"github.com/fly2any/booking-engine/internal/repository"
	"github.com/fly2any/booking-engine/internal/service/booking"
	"github.com/fly2any/booking-engine/internal/service/verification"
	"github.com/jackc/pgx/v5/pgxpool"
)

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

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	routingCache := cache.NewRoutingDecisionCache(cfg.Redis, cfg.Routing.DecisionTTL())
	counters := cache.NewRedisCounters(cfg.Redis)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	bookingRepo := repository.NewBookingRepository(pool)
	refundPolicy := policy.NewRefundPolicy(cfg.RefundPolicy)
	bookingService := booking.NewBookingService(
		bookingRepo,
		routingCache,
		refundPolicy,
		producer,
		cfg.Kafka.FulfillmentTopic,
		domain.RoutingChannel(cfg.Routing.DefaultChannel),
	)
	gate := verification.NewGate(bookingRepo, counters, cfg.Verification)

	handler := api.NewBookingHandler(bookingService, gate)
	if err := bootstrap.Run(ctx, cfg, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
