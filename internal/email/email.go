package email

import (
	"context"
	"fmt"

	"github.com/fly2any/booking-engine/internal/kafka"
)

// Sender is the worker-side confirmation notifier. Delivery itself is an
// external concern; this stub prints what would be sent.
type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, intent kafka.FulfillmentIntent) error {
	fmt.Printf("send confirmation to %s for booking %s (channel %s, %d %s)\n",
		intent.ContactEmail, intent.BookingReference, intent.Channel, intent.AmountCents, intent.Currency)
	return nil
}
