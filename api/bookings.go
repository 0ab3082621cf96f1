package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fly2any/booking-engine/internal/domain"
	"github.com/fly2any/booking-engine/internal/repository"
	"github.com/fly2any/booking-engine/internal/service/booking"
	"github.com/fly2any/booking-engine/internal/service/verification"
	"github.com/gin-gonic/gin"
)

// LookupGate is the verification pipeline in front of customer lookups.
type LookupGate interface {
	Lookup(ctx context.Context, req verification.LookupRequest) (*domain.Booking, error)
}

type BookingHandler struct {
	service booking.BookingUseCase
	gate    LookupGate
}

func NewBookingHandler(service booking.BookingUseCase, gate LookupGate) *BookingHandler {
	return &BookingHandler{service: service, gate: gate}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("/bookings", h.list)
	router.POST("/bookings", h.create)
	router.DELETE("/bookings", h.cancel)
	router.POST("/booking-lookup", h.lookup)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func successBody(data gin.H) gin.H {
	return gin.H{"success": true, "data": data}
}

func failBody(code, message, details string) gin.H {
	return gin.H{"success": false, "error": errorBody{Code: code, Message: message, Details: details}}
}

func (h *BookingHandler) list(c *gin.Context) {
	filters := repository.BookingFilters{
		Status:           domain.BookingStatus(c.Query("status")),
		Email:            c.Query("email"),
		BookingReference: c.Query("search"),
		UserID:           c.Query("userId"),
	}
	if v := c.Query("dateFrom"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, failBody("INVALID_DATE", "dateFrom must be RFC3339", "dateFrom"))
			return
		}
		filters.DateFrom = &t
	}
	if v := c.Query("dateTo"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, failBody("INVALID_DATE", "dateTo must be RFC3339", "dateTo"))
			return
		}
		filters.DateTo = &t
	}
	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filters.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	bookings, total, err := h.service.SearchBookings(c.Request.Context(), filters)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	c.JSON(http.StatusOK, successBody(gin.H{"bookings": bookings, "total": total}))
}

func (h *BookingHandler) create(c *gin.Context) {
	var input booking.CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, failBody("INVALID_BODY", err.Error(), ""))
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successBody(gin.H{"booking": created}))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, failBody(domain.CodeBookingNotFound, "booking id is required", "id"))
		return
	}

	result, err := h.service.CancelBooking(c.Request.Context(), id, c.Query("reason"))
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			// The delete contract reports missing bookings as a 400.
			c.JSON(http.StatusBadRequest, failBody(domain.CodeBookingNotFound, "booking not found", ""))
			return
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, successBody(gin.H{"cancellation": result}))
}

type lookupRequest struct {
	BookingReference string `json:"bookingReference"`
	Email            string `json:"email"`
	LastName         string `json:"lastName"`
}

func (h *BookingHandler) lookup(c *gin.Context) {
	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, failBody(domain.CodeInvalidReference, "request body must be JSON with bookingReference, email and lastName", ""))
		return
	}

	found, err := h.gate.Lookup(c.Request.Context(), verification.LookupRequest{
		Reference: req.BookingReference,
		Email:     req.Email,
		LastName:  req.LastName,
		ClientIP:  c.ClientIP(),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, successBody(gin.H{
		"booking": found,
		"summary": lookupSummary(found),
	}))
}

// lookupSummary renders a short text block an agent or support tool can read
// without walking the structure.
func lookupSummary(b *domain.Booking) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Booking %s is %s.", b.BookingReference, b.Status)
	if len(b.Flight.Segments) > 0 {
		first := b.Flight.Segments[0]
		last := b.Flight.Segments[len(b.Flight.Segments)-1]
		fmt.Fprintf(&sb, " Itinerary %s to %s, departing %s.",
			first.Origin, last.Destination, first.DepartureAt.Format(time.RFC1123))
	}
	fmt.Fprintf(&sb, " %d passenger(s), total %.2f %s paid by %s.",
		len(b.Passengers), float64(b.Payment.AmountCents)/100, b.Payment.Currency, b.Payment.Method)
	if b.Ticketing != nil && b.Ticketing.AirlineRecordLocator != "" {
		fmt.Fprintf(&sb, " Airline record locator %s.", b.Ticketing.AirlineRecordLocator)
	}
	return sb.String()
}

// writeError maps the domain error taxonomy onto the HTTP contract. Internal
// detail never leaks: verification failures stay generic and unknown errors
// become a bare 500.
func (h *BookingHandler) writeError(c *gin.Context, err error) {
	var (
		validation  *domain.ValidationError
		notFound    *domain.NotFoundError
		conflict    *domain.ConflictError
		verifyErr   *domain.VerificationError
		rateLimited *domain.RateLimitError
		timeout     *domain.UpstreamTimeoutError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, failBody(validation.Code, validation.Message, validation.Field))
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, failBody(domain.CodeNotFound, "booking not found", ""))
	case errors.As(err, &conflict):
		c.JSON(http.StatusBadRequest, failBody(conflict.Code, conflict.Message, ""))
	case errors.As(err, &verifyErr):
		c.JSON(http.StatusForbidden, failBody(domain.CodeVerificationFailed, "the details provided do not match this booking", ""))
	case errors.As(err, &rateLimited):
		c.Header("Retry-After", strconv.Itoa(int(rateLimited.RetryAfter.Seconds())))
		c.JSON(http.StatusTooManyRequests, failBody(domain.CodeRateLimited, "too many lookup attempts, slow down", ""))
	case errors.As(err, &timeout):
		c.JSON(http.StatusGatewayTimeout, failBody("UPSTREAM_TIMEOUT", "the booking store timed out, retry the request", ""))
	default:
		c.JSON(http.StatusInternalServerError, failBody("INTERNAL", "internal error", ""))
	}
}
