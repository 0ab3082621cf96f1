package verification

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fly2any/booking-engine/config"
	"github.com/fly2any/booking-engine/internal/cache"
	"github.com/fly2any/booking-engine/internal/domain"
)

// BookingReader is the read-only slice of the store the gate needs.
type BookingReader interface {
	FindByReference(ctx context.Context, ref string) (*domain.Booking, error)
}

// Gate rate-limits and validates identity proof (reference + email + last
// name) for customer-facing booking lookups. It mutates nothing but the
// attempt counters.
type Gate struct {
	bookings       BookingReader
	counters       cache.CounterStore
	window         time.Duration
	maxPerWindow   int
	attemptTTL     time.Duration
	alertThreshold int
}

type LookupRequest struct {
	Reference string
	Email     string
	LastName  string
	ClientIP  string
}

func NewGate(bookings BookingReader, counters cache.CounterStore, cfg config.VerificationConfig) *Gate {
	g := &Gate{
		bookings:       bookings,
		counters:       counters,
		window:         cfg.RateLimitWindow(),
		maxPerWindow:   cfg.RateLimitMax,
		attemptTTL:     cfg.FailedAttemptTTL(),
		alertThreshold: cfg.SecurityAlertThreshold,
	}
	if g.window <= 0 {
		g.window = time.Minute
	}
	if g.maxPerWindow <= 0 {
		g.maxPerWindow = 10
	}
	if g.attemptTTL <= 0 {
		g.attemptTTL = time.Hour
	}
	if g.alertThreshold <= 0 {
		g.alertThreshold = 3
	}
	return g
}

// Lookup runs the verification pipeline. A rate-limited client never reaches
// the store. Email and last-name mismatches return the same generic
// verification error; only internal logs distinguish them.
func (g *Gate) Lookup(ctx context.Context, req LookupRequest) (*domain.Booking, error) {
	if err := g.checkRateLimit(ctx, req.ClientIP); err != nil {
		return nil, err
	}

	ref := domain.NormalizeReference(req.Reference)
	if ref == "" || !domain.ValidReference(ref) {
		return nil, &domain.ValidationError{Code: domain.CodeInvalidReference, Field: "bookingReference", Message: "booking reference is missing or malformed"}
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, &domain.ValidationError{Code: domain.CodeEmailRequired, Field: "email", Message: "email is required"}
	}
	lastName := strings.TrimSpace(req.LastName)
	if lastName == "" {
		return nil, &domain.ValidationError{Code: domain.CodeLastNameRequired, Field: "lastName", Message: "last name is required"}
	}

	booking, err := g.bookings.FindByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		g.recordFailure(ctx, req.ClientIP, ref, "not_found")
		return nil, &domain.NotFoundError{Resource: "booking", Key: ref}
	}

	if !strings.EqualFold(email, strings.TrimSpace(booking.ContactInfo.Email)) {
		g.recordFailure(ctx, req.ClientIP, ref, "email_mismatch")
		return nil, &domain.VerificationError{InternalReason: "email_mismatch"}
	}

	primary := booking.PrimaryPassenger()
	if primary == nil || !strings.EqualFold(lastName, strings.TrimSpace(primary.LastName)) {
		g.recordFailure(ctx, req.ClientIP, ref, "name_mismatch")
		return nil, &domain.VerificationError{InternalReason: "name_mismatch"}
	}

	return booking, nil
}

// checkRateLimit is a fixed window per client IP. If the counter store is
// unreachable the gate fails open: an outage must not lock customers out.
func (g *Gate) checkRateLimit(ctx context.Context, clientIP string) error {
	if g.counters == nil || clientIP == "" {
		return nil
	}
	n, err := g.counters.Increment(ctx, "verify:rate:"+clientIP, g.window)
	if err != nil {
		log.Printf("verification rate limiter unavailable, failing open: %v", err)
		return nil
	}
	if n > int64(g.maxPerWindow) {
		return &domain.RateLimitError{RetryAfter: g.window}
	}
	return nil
}

// recordFailure tracks failed attempts per (client IP, reference). The
// counter resets when the pair stays quiet past the TTL. Reaching the alert
// threshold emits a security event; lockout is left to the operator.
func (g *Gate) recordFailure(ctx context.Context, clientIP, ref, reason string) {
	if g.counters == nil {
		return
	}
	key := fmt.Sprintf("verify:fail:%s:%s", clientIP, ref)
	n, err := g.counters.Increment(ctx, key, g.attemptTTL)
	if err != nil {
		log.Printf("failed-attempt counter unavailable: %v", err)
		return
	}
	log.Printf("verification failed for %s from %s (%s), attempt %d", ref, clientIP, reason, n)
	if n >= int64(g.alertThreshold) {
		log.Printf("security: %d failed verification attempts for %s from %s", n, ref, clientIP)
	}
}
