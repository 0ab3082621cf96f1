package domain

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed        BookingStatus = "confirmed"
	BookingStatusPendingTicketing BookingStatus = "pending_ticketing"
	BookingStatusTicketed         BookingStatus = "ticketed"
	BookingStatusCancelled        BookingStatus = "cancelled"
	BookingStatusCompleted        BookingStatus = "completed"
)

type RoutingChannel string

const (
	ChannelDuffel       RoutingChannel = "DUFFEL"
	ChannelConsolidator RoutingChannel = "CONSOLIDATOR"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type RefundStatus string

const (
	RefundStatusRefunded RefundStatus = "refunded"
	RefundStatusPending  RefundStatus = "pending"
)

type FlightSegment struct {
	Carrier      string    `json:"carrier"`
	FlightNumber string    `json:"flightNumber"`
	CabinClass   string    `json:"cabinClass"`
	Origin       string    `json:"origin"`
	Destination  string    `json:"destination"`
	DepartureAt  time.Time `json:"departureAt"`
	ArrivalAt    time.Time `json:"arrivalAt"`
}

// FlightSnapshot is the itinerary as it was priced at booking time. It is
// immutable once the booking exists; later schedule changes do not rewrite it.
type FlightSnapshot struct {
	OfferID    string          `json:"offerId"`
	TripType   string          `json:"tripType"`
	Segments   []FlightSegment `json:"segments"`
	BaseCents  int64           `json:"baseCents"`
	TotalCents int64           `json:"totalCents"`
	Currency   string          `json:"currency"`
}

type Passenger struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Type      string `json:"type"`
}

type Seat struct {
	Number    string `json:"number"`
	Passenger int    `json:"passenger"`
}

type Payment struct {
	Method      string        `json:"method"`
	AmountCents int64         `json:"amountCents"`
	Currency    string        `json:"currency"`
	Status      PaymentStatus `json:"status"`
	PaidAt      *time.Time    `json:"paidAt,omitempty"`
}

type ContactInfo struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// RoutingInfo is the commission bookkeeping captured from the routing
// decision at creation time. Write-once; nil when no decision was cached.
type RoutingInfo struct {
	CommissionPct           float64 `json:"commissionPct"`
	CommissionCents         int64   `json:"commissionCents"`
	EstimatedProfitCents    int64   `json:"estimatedProfitCents"`
	DuffelProfitCents       int64   `json:"duffelProfitCents"`
	ConsolidatorProfitCents int64   `json:"consolidatorProfitCents"`
	TourCode                string  `json:"tourCode,omitempty"`
	DecisionReason          string  `json:"decisionReason"`
}

// TicketingDetails is populated by the external ticketing collaborator
// through the repository's narrow ticketing update, never by the engine.
type TicketingDetails struct {
	Status               string     `json:"status"`
	AirlineRecordLocator string     `json:"airlineRecordLocator,omitempty"`
	ETicketNumbers       []string   `json:"eticketNumbers,omitempty"`
	TicketedAt           *time.Time `json:"ticketedAt,omitempty"`
}

// RefundOverride is a per-booking refund policy recorded at sale time. When
// present it takes precedence over the configured tier table.
type RefundOverride struct {
	Refundable           bool       `json:"refundable"`
	RefundDeadline       *time.Time `json:"refundDeadline,omitempty"`
	CancellationFeeCents int64      `json:"cancellationFeeCents"`
	FareTier             string     `json:"fareTier,omitempty"`
}

type Booking struct {
	ID               string            `json:"id"`
	BookingReference string            `json:"bookingReference"`
	Status           BookingStatus     `json:"status"`
	UserID           string            `json:"userId,omitempty"`
	Flight           FlightSnapshot    `json:"flight"`
	Passengers       []Passenger       `json:"passengers"`
	Seats            []Seat            `json:"seats"`
	Payment          Payment           `json:"payment"`
	ContactInfo      ContactInfo       `json:"contactInfo"`
	RoutingChannel   RoutingChannel    `json:"routingChannel"`
	RoutingInfo      *RoutingInfo      `json:"routingInfo,omitempty"`
	RefundPolicy     *RefundOverride   `json:"refundPolicy,omitempty"`
	Ticketing        *TicketingDetails `json:"ticketing,omitempty"`
	SpecialRequests  []string          `json:"specialRequests,omitempty"`
	Notes            string            `json:"notes,omitempty"`

	CancellationReason   string     `json:"cancellationReason,omitempty"`
	CancelledAt          *time.Time `json:"cancelledAt,omitempty"`
	RefundAmountCents    *int64     `json:"refundAmountCents,omitempty"`
	CancellationFeeCents *int64     `json:"cancellationFeeCents,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PrimaryPassenger is the passenger used for identity verification.
func (b *Booking) PrimaryPassenger() *Passenger {
	if len(b.Passengers) == 0 {
		return nil
	}
	return &b.Passengers[0]
}

// DepartureTime is the departure of the first segment; zero when the
// snapshot has no segments.
func (b *Booking) DepartureTime() time.Time {
	if len(b.Flight.Segments) == 0 {
		return time.Time{}
	}
	return b.Flight.Segments[0].DepartureAt
}

// IsTerminal reports whether the booking reached a state no mutation other
// than audit metadata may follow.
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusCancelled || b.Status == BookingStatusCompleted
}

// RoutingDecision is the ephemeral channel decision recorded during search,
// keyed by (session, offer). Absence at booking time is not an error.
type RoutingDecision struct {
	Channel                 RoutingChannel `json:"channel"`
	Reason                  string         `json:"reason"`
	CommissionPct           float64        `json:"commissionPct"`
	CommissionCents         int64          `json:"commissionCents"`
	EstimatedProfitCents    int64          `json:"estimatedProfitCents"`
	DuffelProfitCents       int64          `json:"duffelProfitCents"`
	ConsolidatorProfitCents int64          `json:"consolidatorProfitCents"`
	TourCode                string         `json:"tourCode,omitempty"`
}

// CancellationResult is returned to the caller of a cancellation, never
// stored as such; the refund figures it carries are persisted on the booking.
type CancellationResult struct {
	BookingID            string        `json:"bookingId"`
	BookingReference     string        `json:"bookingReference"`
	RefundAmountCents    int64         `json:"refundAmountCents"`
	CancellationFeeCents int64         `json:"cancellationFeeCents"`
	Currency             string        `json:"currency"`
	RefundStatus         RefundStatus  `json:"refundStatus"`
	Message              string        `json:"message"`
	Status               BookingStatus `json:"status"`
}
