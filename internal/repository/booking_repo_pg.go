package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fly2any/booking-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookingFilters is the fixed, enumerated set of filterable fields. Search
// and Count share it so pagination totals stay consistent.
type BookingFilters struct {
	Status           domain.BookingStatus
	Email            string
	BookingReference string
	UserID           string
	DateFrom         *time.Time
	DateTo           *time.Time
	Limit            int
	Offset           int
}

type BookingRepository interface {
	// Create validates required sub-objects, generates id and reference and
	// persists the booking as confirmed/paid. One reference regeneration is
	// attempted on collision before the error becomes fatal.
	Create(ctx context.Context, booking *domain.Booking) error
	// FindByID returns (nil, nil) when absent.
	FindByID(ctx context.Context, id string) (*domain.Booking, error)
	// FindByReference normalizes the input before comparison.
	FindByReference(ctx context.Context, ref string) (*domain.Booking, error)
	Search(ctx context.Context, filters BookingFilters) ([]domain.Booking, error)
	Count(ctx context.Context, filters BookingFilters) (int, error)
	// Cancel applies the terminal transition atomically. Already-cancelled
	// rows come back unchanged; completed rows come back as (nil, nil).
	Cancel(ctx context.Context, id, reason string, refundCents, feeCents int64) (*domain.Booking, error)
	// UpdateTicketing is the narrow path for the external ticketing
	// collaborator; it touches ticketing fields and status only.
	UpdateTicketing(ctx context.Context, id string, status domain.BookingStatus, details domain.TicketingDetails) (*domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, booking_reference, status, user_id, contact_info, flight, passengers, seats, payment,
	routing_channel, routing_info, refund_policy, ticketing, special_requests, notes,
	cancellation_reason, cancelled_at, refund_amount_cents, cancellation_fee_cents, created_at, updated_at`

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	if err := validateCreate(booking); err != nil {
		return err
	}

	booking.ID = "booking_" + uuid.NewString()
	booking.Status = domain.BookingStatusConfirmed
	booking.Payment.Status = domain.PaymentStatusPaid
	if booking.Payment.PaidAt == nil {
		now := time.Now().UTC()
		booking.Payment.PaidAt = &now
	}

	// One regeneration retry on a reference collision, then fatal.
	for attempt := 0; attempt < 2; attempt++ {
		ref, err := domain.NewBookingReference()
		if err != nil {
			return err
		}
		booking.BookingReference = ref

		err = r.insert(ctx, booking)
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return mapStoreErr("create booking", err)
		}
	}
	return &domain.InvariantViolation{Message: "booking reference collision persisted after regeneration"}
}

func (r *PGBookingRepository) insert(ctx context.Context, b *domain.Booking) error {
	return r.db.QueryRow(ctx, `INSERT INTO bookings (
			id, booking_reference, status, user_id, contact_info, flight, passengers, seats, payment,
			routing_channel, routing_info, refund_policy, ticketing, special_requests, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING created_at, updated_at`,
		b.ID, b.BookingReference, b.Status, b.UserID, b.ContactInfo, b.Flight, b.Passengers, b.Seats,
		b.Payment, b.RoutingChannel, b.RoutingInfo, b.RefundPolicy, b.Ticketing, b.SpecialRequests, b.Notes).
		Scan(&b.CreatedAt, &b.UpdatedAt)
}

func (r *PGBookingRepository) FindByID(ctx context.Context, id string) (*domain.Booking, error) {
	return r.findOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
}

func (r *PGBookingRepository) FindByReference(ctx context.Context, ref string) (*domain.Booking, error) {
	ref = domain.NormalizeReference(ref)
	return r.findOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_reference=$1`, ref)
}

func (r *PGBookingRepository) findOne(ctx context.Context, query string, arg any) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, query, arg))
	if err == nil || !isTimeout(err) || ctx.Err() != nil {
		return finishRead(b, err)
	}
	// Idempotent read: retry once on a transport timeout.
	b, err = scanBooking(r.db.QueryRow(ctx, query, arg))
	return finishRead(b, err)
}

func finishRead(b *domain.Booking, err error) (*domain.Booking, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapStoreErr("find booking", err)
	}
	return b, nil
}

func (r *PGBookingRepository) Search(ctx context.Context, filters BookingFilters) ([]domain.Booking, error) {
	where, args := buildFilterClause(filters)
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM bookings %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		bookingColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, filters.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		if isTimeout(err) && ctx.Err() == nil {
			rows, err = r.db.Query(ctx, query, args...)
		}
		if err != nil {
			return nil, mapStoreErr("search bookings", err)
		}
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, mapStoreErr("search bookings", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreErr("search bookings", err)
	}
	return out, nil
}

func (r *PGBookingRepository) Count(ctx context.Context, filters BookingFilters) (int, error) {
	where, args := buildFilterClause(filters)
	query := `SELECT COUNT(*) FROM bookings ` + where

	var n int
	err := r.db.QueryRow(ctx, query, args...).Scan(&n)
	if err != nil && isTimeout(err) && ctx.Err() == nil {
		err = r.db.QueryRow(ctx, query, args...).Scan(&n)
	}
	if err != nil {
		return 0, mapStoreErr("count bookings", err)
	}
	return n, nil
}

// buildFilterClause turns the enumerated filters into a parameterized WHERE
// clause shared by Search and Count.
func buildFilterClause(f BookingFilters) (string, []any) {
	var conditions []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("status=$%d", f.Status)
	}
	if f.Email != "" {
		add("LOWER(contact_info->>'email') = LOWER($%d)", strings.TrimSpace(f.Email))
	}
	if f.BookingReference != "" {
		add("booking_reference=$%d", domain.NormalizeReference(f.BookingReference))
	}
	if f.UserID != "" {
		add("user_id=$%d", f.UserID)
	}
	if f.DateFrom != nil {
		add("created_at >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("created_at <= $%d", *f.DateTo)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (r *PGBookingRepository) Cancel(ctx context.Context, id, reason string, refundCents, feeCents int64) (*domain.Booking, error) {
	// Conditional update keeps the terminal transition atomic across
	// concurrent callers and service instances: only one UPDATE matches.
	row := r.db.QueryRow(ctx, `UPDATE bookings SET
			status=$2, cancellation_reason=$3, cancelled_at=now(),
			refund_amount_cents=$4, cancellation_fee_cents=$5, updated_at=now()
		WHERE id=$1 AND status NOT IN ($6, $7)
		RETURNING `+bookingColumns,
		id, domain.BookingStatusCancelled, reason, refundCents, feeCents,
		domain.BookingStatusCancelled, domain.BookingStatusCompleted)

	b, err := scanBooking(row)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapStoreErr("cancel booking", err)
	}

	// No row transitioned: either absent, already cancelled (idempotent
	// retry observes the original figures) or completed (refused).
	existing, err := r.FindByID(ctx, id)
	if err != nil || existing == nil {
		return nil, err
	}
	if existing.Status == domain.BookingStatusCancelled {
		return existing, nil
	}
	return nil, nil
}

func (r *PGBookingRepository) UpdateTicketing(ctx context.Context, id string, status domain.BookingStatus, details domain.TicketingDetails) (*domain.Booking, error) {
	if status != domain.BookingStatusPendingTicketing && status != domain.BookingStatusTicketed {
		return nil, &domain.ValidationError{Code: "INVALID_TICKETING_STATUS", Field: "status", Message: "ticketing update may only move to pending_ticketing or ticketed"}
	}

	row := r.db.QueryRow(ctx, `UPDATE bookings SET
			status=$2, ticketing=$3, updated_at=now()
		WHERE id=$1 AND status NOT IN ($4, $5)
		RETURNING `+bookingColumns,
		id, status, details, domain.BookingStatusCancelled, domain.BookingStatusCompleted)

	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapStoreErr("update ticketing", err)
	}
	return b, nil
}

func validateCreate(b *domain.Booking) error {
	if len(b.Flight.Segments) == 0 {
		return &domain.ValidationError{Code: domain.CodeMissingFlight, Field: "flight", Message: "flight itinerary with at least one segment is required"}
	}
	if len(b.Passengers) == 0 {
		return &domain.ValidationError{Code: domain.CodeMissingPassengers, Field: "passengers", Message: "at least one passenger is required"}
	}
	if b.ContactInfo.Email == "" || b.ContactInfo.Phone == "" {
		return &domain.ValidationError{Code: domain.CodeMissingContact, Field: "contactInfo", Message: "contact email and phone are required"}
	}
	if !emailPattern.MatchString(strings.TrimSpace(b.ContactInfo.Email)) {
		return &domain.ValidationError{Code: domain.CodeInvalidEmail, Field: "contactInfo.email", Message: "contact email is not a valid address"}
	}
	if b.Payment.Method == "" || b.Payment.AmountCents < 0 || b.Payment.Currency == "" {
		return &domain.ValidationError{Code: domain.CodeMissingPayment, Field: "payment", Message: "payment method, amount and currency are required"}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.BookingReference, &b.Status, &b.UserID, &b.ContactInfo, &b.Flight, &b.Passengers,
		&b.Seats, &b.Payment, &b.RoutingChannel, &b.RoutingInfo, &b.RefundPolicy, &b.Ticketing,
		&b.SpecialRequests, &b.Notes, &b.CancellationReason, &b.CancelledAt,
		&b.RefundAmountCents, &b.CancellationFeeCents, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

func mapStoreErr(op string, err error) error {
	if isTimeout(err) {
		return &domain.UpstreamTimeoutError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ BookingRepository = (*PGBookingRepository)(nil)
