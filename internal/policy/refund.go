package policy

import (
	"fmt"
	"sort"
	"time"

	"github.com/fly2any/booking-engine/config"
	"github.com/fly2any/booking-engine/internal/domain"
)

// RefundPolicy computes cancellation eligibility and refund amounts from a
// booking snapshot and the current time. Pure: no I/O, safe to call
// repeatedly. Tier thresholds are business configuration, never hardcoded.
type RefundPolicy struct {
	tiers           []config.RefundTierConfig // sorted, largest HoursBefore first
	lockWindowHours int
}

type Eligibility struct {
	Allowed bool
	Reason  string
}

func NewRefundPolicy(cfg config.RefundPolicyConfig) RefundPolicy {
	tiers := make([]config.RefundTierConfig, len(cfg.Tiers))
	copy(tiers, cfg.Tiers)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].HoursBefore > tiers[j].HoursBefore })
	return RefundPolicy{tiers: tiers, lockWindowHours: cfg.LockWindowHours}
}

// CanModify reports whether the booking may still be cancelled or changed.
func (p RefundPolicy) CanModify(b *domain.Booking, now time.Time) Eligibility {
	switch b.Status {
	case domain.BookingStatusCancelled:
		return Eligibility{Allowed: false, Reason: "booking is already cancelled"}
	case domain.BookingStatusCompleted:
		return Eligibility{Allowed: false, Reason: "booking is completed"}
	}

	departure := b.DepartureTime()
	if !departure.IsZero() && now.After(departure) {
		return Eligibility{Allowed: false, Reason: "flight has already departed"}
	}

	if p.lockWindowHours > 0 && !isRefundableOverride(b) {
		lockStart := departure.Add(-time.Duration(p.lockWindowHours) * time.Hour)
		if !departure.IsZero() && now.After(lockStart) {
			return Eligibility{
				Allowed: false,
				Reason:  fmt.Sprintf("inside the %d-hour cancellation window", p.lockWindowHours),
			}
		}
	}

	return Eligibility{Allowed: true}
}

// CalculateRefund returns the refund and the cancellation fee in cents.
// The two always sum to the paid amount. Deterministic in (booking, now);
// refund is non-increasing as departure approaches.
func (p RefundPolicy) CalculateRefund(b *domain.Booking, now time.Time) (refundCents, feeCents int64) {
	amount := b.Payment.AmountCents
	if amount == 0 {
		return 0, 0
	}

	if b.RefundPolicy != nil {
		return refundFromOverride(b, amount, now)
	}

	departure := b.DepartureTime()
	if departure.IsZero() || now.After(departure) {
		return 0, amount
	}

	hours := departure.Sub(now).Hours()
	pct, flatFee := p.rateAt(hours)
	refund := int64(float64(amount)*pct/100) - flatFee
	if refund < 0 {
		refund = 0
	}
	if refund > amount {
		refund = amount
	}
	return refund, amount - refund
}

// rateAt resolves the refund percentage and flat fee for a given number of
// hours before departure, pro-rating linearly between adjacent tiers.
func (p RefundPolicy) rateAt(hours float64) (pct float64, feeCents int64) {
	if len(p.tiers) == 0 {
		return 0, 0
	}

	top := p.tiers[0]
	if hours >= float64(top.HoursBefore) {
		return top.RefundPct, top.FeeCents
	}

	bottom := p.tiers[len(p.tiers)-1]
	if hours < float64(bottom.HoursBefore) {
		// Final non-refundable window.
		return 0, 0
	}

	for i := 1; i < len(p.tiers); i++ {
		upper, lower := p.tiers[i-1], p.tiers[i]
		if hours >= float64(lower.HoursBefore) {
			span := float64(upper.HoursBefore - lower.HoursBefore)
			if span <= 0 {
				return lower.RefundPct, lower.FeeCents
			}
			frac := (hours - float64(lower.HoursBefore)) / span
			pct = lower.RefundPct + (upper.RefundPct-lower.RefundPct)*frac
			fee := float64(lower.FeeCents) + float64(upper.FeeCents-lower.FeeCents)*frac
			return pct, int64(fee)
		}
	}
	return bottom.RefundPct, bottom.FeeCents
}

func refundFromOverride(b *domain.Booking, amount int64, now time.Time) (int64, int64) {
	ov := b.RefundPolicy
	if !ov.Refundable {
		return 0, amount
	}
	if ov.RefundDeadline != nil && now.After(*ov.RefundDeadline) {
		return 0, amount
	}
	refund := amount - ov.CancellationFeeCents
	if refund < 0 {
		refund = 0
	}
	return refund, amount - refund
}

func isRefundableOverride(b *domain.Booking) bool {
	return b.RefundPolicy != nil && b.RefundPolicy.Refundable
}
