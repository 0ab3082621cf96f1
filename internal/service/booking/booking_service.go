package booking

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fly2any/booking-engine/internal/domain"
	"github.com/fly2any/booking-engine/internal/kafka"
	"github.com/fly2any/booking-engine/internal/policy"
	"github.com/fly2any/booking-engine/internal/repository"
)

// DefaultChannelReason marks bookings that carried no routing session: the
// injected default channel applies and no commission bookkeeping exists.
const DefaultChannelReason = "no-routing-session"

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id, reason string) (*domain.CancellationResult, error)
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	SearchBookings(ctx context.Context, filters repository.BookingFilters) ([]domain.Booking, int, error)
}

// RoutingCache is the read side of the routing-decision cache. Population
// belongs to the search flow.
type RoutingCache interface {
	Get(ctx context.Context, sessionID, flightOfferID string) (*domain.RoutingDecision, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// CancellationPolicy is the pure refund engine.
type CancellationPolicy interface {
	CanModify(b *domain.Booking, now time.Time) policy.Eligibility
	CalculateRefund(b *domain.Booking, now time.Time) (refundCents, feeCents int64)
}

type BookingService struct {
	bookings         repository.BookingRepository
	routing          RoutingCache
	policy           CancellationPolicy
	producer         Producer
	fulfillmentTopic string
	defaultChannel   domain.RoutingChannel
	publishTimeout   time.Duration
	now              func() time.Time
}

type CreateBookingInput struct {
	Flight           domain.FlightSnapshot  `json:"flight"`
	Passengers       []domain.Passenger     `json:"passengers"`
	Seats            []domain.Seat          `json:"seats"`
	Payment          domain.Payment         `json:"payment"`
	ContactInfo      domain.ContactInfo     `json:"contactInfo"`
	UserID           string                 `json:"userId"`
	RoutingSessionID string                 `json:"routingSessionId"`
	SpecialRequests  []string               `json:"specialRequests"`
	Notes            string                 `json:"notes"`
	RefundPolicy     *domain.RefundOverride `json:"refundPolicy"`
}

type BookingServiceOption func(*BookingService)

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func WithPublishTimeout(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.publishTimeout = d
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	routing RoutingCache,
	cancellation CancellationPolicy,
	producer Producer,
	fulfillmentTopic string,
	defaultChannel domain.RoutingChannel,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:         bookings,
		routing:          routing,
		policy:           cancellation,
		producer:         producer,
		fulfillmentTopic: fulfillmentTopic,
		defaultChannel:   defaultChannel,
		publishTimeout:   5 * time.Second,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking resolves the fulfillment channel from the routing decision
// recorded during search, persists the booking and emits the fulfillment
// intent. A missing or unreachable routing cache degrades to the default
// channel; it never fails the creation.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	channel := s.defaultChannel
	var info *domain.RoutingInfo

	decision := s.resolveDecision(ctx, input.RoutingSessionID, input.Flight.OfferID)
	if decision != nil {
		channel = decision.Channel
		info = &domain.RoutingInfo{
			CommissionPct:           decision.CommissionPct,
			CommissionCents:         decision.CommissionCents,
			EstimatedProfitCents:    decision.EstimatedProfitCents,
			DuffelProfitCents:       decision.DuffelProfitCents,
			ConsolidatorProfitCents: decision.ConsolidatorProfitCents,
			TourCode:                decision.TourCode,
			DecisionReason:          decision.Reason,
		}
	}

	booking := &domain.Booking{
		UserID:          input.UserID,
		Flight:          input.Flight,
		Passengers:      input.Passengers,
		Seats:           input.Seats,
		Payment:         input.Payment,
		ContactInfo:     input.ContactInfo,
		RoutingChannel:  channel,
		RoutingInfo:     info,
		RefundPolicy:    input.RefundPolicy,
		SpecialRequests: input.SpecialRequests,
		Notes:           input.Notes,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.emitFulfillmentIntent(booking)
	return booking, nil
}

// resolveDecision consults the routing cache; anything that goes wrong
// degrades to a miss, because booking creation must never fail on this path.
func (s *BookingService) resolveDecision(ctx context.Context, sessionID, offerID string) *domain.RoutingDecision {
	if sessionID == "" || offerID == "" || s.routing == nil {
		return nil
	}
	decision, err := s.routing.Get(ctx, sessionID, offerID)
	if err != nil {
		log.Printf("routing cache lookup failed, using default channel: %v", err)
		return nil
	}
	return decision
}

func (s *BookingService) emitFulfillmentIntent(b *domain.Booking) {
	if s.producer == nil || s.fulfillmentTopic == "" {
		return
	}

	intent := kafka.FulfillmentIntent{
		BookingID:        b.ID,
		BookingReference: b.BookingReference,
		Channel:          b.RoutingChannel,
		ContactEmail:     b.ContactInfo.Email,
		AmountCents:      b.Payment.AmountCents,
		Currency:         b.Payment.Currency,
		CreatedAt:        b.CreatedAt,
		DecisionReason:   DefaultChannelReason,
	}
	if b.RoutingInfo != nil {
		intent.TourCode = b.RoutingInfo.TourCode
		intent.DecisionReason = b.RoutingInfo.DecisionReason
	}

	// Fire and forget: ticketing is the worker's job and the create response
	// must not wait on the broker.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.publishTimeout)
		defer cancel()
		if err := s.producer.Publish(ctx, s.fulfillmentTopic, b.ID, intent); err != nil {
			log.Printf("WARNING: failed to publish fulfillment intent for booking %s: %v", b.BookingReference, err)
		}
	}()
}

// CancelBooking runs eligibility, refund computation and the atomic state
// transition, in that order. Retrying a cancelled booking replays the
// original refund figures; it never recomputes them.
func (s *BookingService) CancelBooking(ctx context.Context, id, reason string) (*domain.CancellationResult, error) {
	current, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, &domain.NotFoundError{Resource: "booking", Key: id}
	}

	if current.Status == domain.BookingStatusCancelled {
		return s.resultFromCancelled(current), nil
	}

	now := s.now()
	if elig := s.policy.CanModify(current, now); !elig.Allowed {
		return nil, &domain.ConflictError{Code: domain.CodeCancellationNotAllowed, Message: elig.Reason}
	}

	refund, fee := s.policy.CalculateRefund(current, now)

	updated, err := s.bookings.Cancel(ctx, id, reason, refund, fee)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// Lost a race with a completing transition; nothing was applied.
		return nil, &domain.ConflictError{Code: domain.CodeCancellationNotAllowed, Message: "booking can no longer be cancelled"}
	}

	// A concurrent cancel may have won; either way the stored figures are
	// authoritative.
	return s.resultFromCancelled(updated), nil
}

func (s *BookingService) resultFromCancelled(b *domain.Booking) *domain.CancellationResult {
	var refund, fee int64
	if b.RefundAmountCents != nil {
		refund = *b.RefundAmountCents
	}
	if b.CancellationFeeCents != nil {
		fee = *b.CancellationFeeCents
	}

	result := &domain.CancellationResult{
		BookingID:            b.ID,
		BookingReference:     b.BookingReference,
		RefundAmountCents:    refund,
		CancellationFeeCents: fee,
		Currency:             b.Payment.Currency,
		Status:               b.Status,
	}

	if b.Payment.AmountCents == 0 {
		result.RefundStatus = domain.RefundStatusRefunded
		result.Message = "no payment was taken, nothing to refund"
	} else if refund > 0 {
		result.RefundStatus = domain.RefundStatusPending
		result.Message = fmt.Sprintf("refund of %d %s will be returned to the original payment method", refund, b.Payment.Currency)
	} else {
		result.RefundStatus = domain.RefundStatusRefunded
		result.Message = "booking cancelled; the fare was non-refundable"
	}
	return result
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, &domain.NotFoundError{Resource: "booking", Key: id}
	}
	return b, nil
}

// SearchBookings returns one page plus the total for the same filters, so
// pagination stays consistent.
func (s *BookingService) SearchBookings(ctx context.Context, filters repository.BookingFilters) ([]domain.Booking, int, error) {
	items, err := s.bookings.Search(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.bookings.Count(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

var _ BookingUseCase = (*BookingService)(nil)
