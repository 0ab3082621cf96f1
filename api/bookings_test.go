package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fly2any/booking-engine/internal/domain"
	"github.com/fly2any/booking-engine/internal/repository"
	"github.com/fly2any/booking-engine/internal/service/booking"
	"github.com/fly2any/booking-engine/internal/service/verification"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingService) CancelBooking(ctx context.Context, id, reason string) (*domain.CancellationResult, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CancellationResult), args.Error(1)
}

func (m *MockBookingService) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingService) SearchBookings(ctx context.Context, filters repository.BookingFilters) ([]domain.Booking, int, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Booking), args.Int(1), args.Error(2)
}

type MockLookupGate struct {
	mock.Mock
}

func (m *MockLookupGate) Lookup(ctx context.Context, req verification.LookupRequest) (*domain.Booking, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func setupRouter(service booking.BookingUseCase, gate LookupGate) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewBookingHandler(service, gate).Register(router.Group("/api"))
	return router
}

func perform(router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func errorCode(body map[string]any) string {
	errObj, _ := body["error"].(map[string]any)
	code, _ := errObj["code"].(string)
	return code
}

func sampleBooking() *domain.Booking {
	return &domain.Booking{
		ID:               "booking_1",
		BookingReference: "FLY2A-AB12CD",
		Status:           domain.BookingStatusConfirmed,
		Flight: domain.FlightSnapshot{
			Segments: []domain.FlightSegment{
				{Carrier: "AA", FlightNumber: "100", Origin: "JFK", Destination: "LHR", DepartureAt: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)},
			},
			Currency: "USD",
		},
		Passengers:  []domain.Passenger{{FirstName: "Ada", LastName: "Lovelace"}},
		ContactInfo: domain.ContactInfo{Email: "ada@example.com", Phone: "+15550100"},
		Payment:     domain.Payment{Method: "credit_card", AmountCents: 120000, Currency: "USD"},
	}
}

func TestCreateBooking_Created(t *testing.T) {
	service := &MockBookingService{}
	router := setupRouter(service, &MockLookupGate{})

	service.On("CreateBooking", mock.Anything, mock.AnythingOfType("booking.CreateBookingInput")).Return(sampleBooking(), nil).Once()

	payload := `{
		"flight": {"offerId": "offer_1", "segments": [{"carrier": "AA", "flightNumber": "100", "origin": "JFK", "destination": "LHR"}], "currency": "USD"},
		"passengers": [{"firstName": "Ada", "lastName": "Lovelace"}],
		"payment": {"method": "credit_card", "amountCents": 120000, "currency": "USD"},
		"contactInfo": {"email": "ada@example.com", "phone": "+15550100"}
	}`
	w := perform(router, http.MethodPost, "/api/bookings", payload)

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	service.AssertExpectations(t)
}

func TestCreateBooking_ValidationError(t *testing.T) {
	service := &MockBookingService{}
	router := setupRouter(service, &MockLookupGate{})

	service.On("CreateBooking", mock.Anything, mock.Anything).
		Return(nil, &domain.ValidationError{Code: domain.CodeMissingPassengers, Field: "passengers", Message: "at least one passenger is required"}).Once()

	w := perform(router, http.MethodPost, "/api/bookings", `{"flight": {"offerId": "offer_1"}}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, domain.CodeMissingPassengers, errorCode(body))
}

func TestCreateBooking_MalformedJSON(t *testing.T) {
	router := setupRouter(&MockBookingService{}, &MockLookupGate{})

	w := perform(router, http.MethodPost, "/api/bookings", `{not json`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_BODY", errorCode(decodeBody(t, w)))
}

func TestListBookings_OK(t *testing.T) {
	service := &MockBookingService{}
	router := setupRouter(service, &MockLookupGate{})

	service.On("SearchBookings", mock.Anything, mock.MatchedBy(func(f repository.BookingFilters) bool {
		return f.Status == domain.BookingStatusCancelled && f.Limit == 10 && f.Offset == 20
	})).Return([]domain.Booking{*sampleBooking()}, 31, nil).Once()

	w := perform(router, http.MethodGet, "/api/bookings?status=cancelled&limit=10&offset=20", "")

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(31), data["total"])
	assert.Len(t, data["bookings"], 1)
	service.AssertExpectations(t)
}

func TestListBookings_EmptyResultIsArray(t *testing.T) {
	service := &MockBookingService{}
	router := setupRouter(service, &MockLookupGate{})

	service.On("SearchBookings", mock.Anything, mock.Anything).Return(nil, 0, nil).Once()

	w := perform(router, http.MethodGet, "/api/bookings", "")

	assert.Equal(t, http.StatusOK, w.Code)
	// Clients iterate the list; null would break them.
	assert.Contains(t, w.Body.String(), `"bookings":[]`)
}

func TestListBookings_BadDate(t *testing.T) {
	router := setupRouter(&MockBookingService{}, &MockLookupGate{})

	w := perform(router, http.MethodGet, "/api/bookings?dateFrom=yesterday", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_DATE", errorCode(decodeBody(t, w)))
}

func TestCancelBooking_OK(t *testing.T) {
	service := &MockBookingService{}
	router := setupRouter(service, &MockLookupGate{})

	result := &domain.CancellationResult{
		BookingID:         "booking_1",
		BookingReference:  "FLY2A-AB12CD",
		RefundAmountCents: 80000,
		Currency:          "USD",
		RefundStatus:      domain.RefundStatusPending,
		Status:            domain.BookingStatusCancelled,
	}
	service.On("CancelBooking", mock.Anything, "booking_1", "change of plans").Return(result, nil).Once()

	w := perform(router, http.MethodDelete, "/api/bookings?id=booking_1&reason=change+of+plans", "")

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data := body["data"].(map[string]any)
	cancellation := data["cancellation"].(map[string]any)
	assert.Equal(t, float64(80000), cancellation["refundAmountCents"])
	service.AssertExpectations(t)
}

func TestCancelBooking_MissingID(t *testing.T) {
	router := setupRouter(&MockBookingService{}, &MockLookupGate{})

	w := perform(router, http.MethodDelete, "/api/bookings", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domain.CodeBookingNotFound, errorCode(decodeBody(t, w)))
}

func TestCancelBooking_NotFoundIsBadRequest(t *testing.T) {
	service := &MockBookingService{}
	router := setupRouter(service, &MockLookupGate{})

	service.On("CancelBooking", mock.Anything, "missing", "").
		Return(nil, &domain.NotFoundError{Resource: "booking", Key: "missing"}).Once()

	w := perform(router, http.MethodDelete, "/api/bookings?id=missing", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domain.CodeBookingNotFound, errorCode(decodeBody(t, w)))
}

func TestCancelBooking_Conflict(t *testing.T) {
	service := &MockBookingService{}
	router := setupRouter(service, &MockLookupGate{})

	service.On("CancelBooking", mock.Anything, "booking_1", "").
		Return(nil, &domain.ConflictError{Code: domain.CodeCancellationNotAllowed, Message: "departure is too close"}).Once()

	w := perform(router, http.MethodDelete, "/api/bookings?id=booking_1", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domain.CodeCancellationNotAllowed, errorCode(decodeBody(t, w)))
}

func TestLookup_OKWithSummary(t *testing.T) {
	gate := &MockLookupGate{}
	router := setupRouter(&MockBookingService{}, gate)

	gate.On("Lookup", mock.Anything, mock.MatchedBy(func(r verification.LookupRequest) bool {
		return r.Reference == "FLY2A-AB12CD" && r.Email == "ada@example.com" && r.LastName == "Lovelace" && r.ClientIP != ""
	})).Return(sampleBooking(), nil).Once()

	w := perform(router, http.MethodPost, "/api/booking-lookup",
		`{"bookingReference": "FLY2A-AB12CD", "email": "ada@example.com", "lastName": "Lovelace"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data := body["data"].(map[string]any)
	summary := data["summary"].(string)
	assert.Contains(t, summary, "FLY2A-AB12CD")
	assert.Contains(t, summary, "JFK to LHR")
	assert.Contains(t, summary, "1 passenger(s)")
	gate.AssertExpectations(t)
}

func TestLookup_VerificationFailureIsGeneric(t *testing.T) {
	gate := &MockLookupGate{}
	router := setupRouter(&MockBookingService{}, gate)

	gate.On("Lookup", mock.Anything, mock.Anything).
		Return(nil, &domain.VerificationError{InternalReason: "email_mismatch"}).Once()

	w := perform(router, http.MethodPost, "/api/booking-lookup",
		`{"bookingReference": "FLY2A-AB12CD", "email": "wrong@example.com", "lastName": "Lovelace"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, domain.CodeVerificationFailed, errorCode(decodeBody(t, w)))
	// The internal reason never reaches the wire.
	assert.NotContains(t, w.Body.String(), "email_mismatch")
}

func TestLookup_RateLimited(t *testing.T) {
	gate := &MockLookupGate{}
	router := setupRouter(&MockBookingService{}, gate)

	gate.On("Lookup", mock.Anything, mock.Anything).
		Return(nil, &domain.RateLimitError{RetryAfter: time.Minute}).Once()

	w := perform(router, http.MethodPost, "/api/booking-lookup",
		`{"bookingReference": "FLY2A-AB12CD", "email": "ada@example.com", "lastName": "Lovelace"}`)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, domain.CodeRateLimited, errorCode(decodeBody(t, w)))
}

func TestLookup_StoreTimeout(t *testing.T) {
	gate := &MockLookupGate{}
	router := setupRouter(&MockBookingService{}, gate)

	gate.On("Lookup", mock.Anything, mock.Anything).
		Return(nil, &domain.UpstreamTimeoutError{Op: "find booking"}).Once()

	w := perform(router, http.MethodPost, "/api/booking-lookup",
		`{"bookingReference": "FLY2A-AB12CD", "email": "ada@example.com", "lastName": "Lovelace"}`)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "UPSTREAM_TIMEOUT", errorCode(decodeBody(t, w)))
}
