package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fly2any/booking-engine/config"
	"github.com/fly2any/booking-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RoutingDecisionCache holds the channel decision made during flight search,
// keyed by (search session, flight offer). The engine only reads it; the
// pricing flow writes. A miss is never an error.
type RoutingDecisionCache struct {
	client      *redis.Client
	decisionTTL time.Duration
}

func NewRoutingDecisionCache(cfg config.RedisConfig, decisionTTL time.Duration) *RoutingDecisionCache {
	return &RoutingDecisionCache{
		client:      redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		decisionTTL: decisionTTL,
	}
}

// Get returns the cached decision, or (nil, nil) when absent or expired.
// Transport errors are returned so the caller can log them, but callers must
// degrade to the default channel rather than fail.
func (c *RoutingDecisionCache) Get(ctx context.Context, sessionID, flightOfferID string) (*domain.RoutingDecision, error) {
	if sessionID == "" || flightOfferID == "" {
		return nil, nil
	}

	data, err := c.client.Get(ctx, routingKey(sessionID, flightOfferID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var decision domain.RoutingDecision
	if err := json.Unmarshal(data, &decision); err != nil {
		return nil, err
	}
	return &decision, nil
}

// Put records a decision with the configured TTL. The search flow calls this
// when a channel decision is made; the engine never writes.
func (c *RoutingDecisionCache) Put(ctx context.Context, sessionID, flightOfferID string, decision domain.RoutingDecision) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, routingKey(sessionID, flightOfferID), payload, c.decisionTTL).Err()
}

func routingKey(sessionID, flightOfferID string) string {
	return fmt.Sprintf("routing:%s:%s", sessionID, flightOfferID)
}
