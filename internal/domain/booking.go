package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

func ParseBookingStatus(s string) (BookingStatus, error) {
	switch BookingStatus(s) {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled:
		return BookingStatus(s), nil
	}

	return "", fmt.Errorf("unknown booking status: %q", s)
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusRefunded:
		return PaymentStatus(s), nil
	}

	return "", fmt.Errorf("unknown payment status: %q", s)
}

// Booking drives a reservation through its lifecycle:
//
//	pending -> confirmed (payment captured) -> cancelled
//	pending -> cancelled
//
// Cancelled is terminal. A booking is created together with its seat
// commitments as one atomic unit; they are never partially persisted.
type Booking struct {
	ID          int
	UserID      int
	ScreeningID int
	SeatIDs     []int
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	TotalPrice  decimal.Decimal
	Status      BookingStatus
	Payment     PaymentStatus
	PaymentRef  string
	Coupon      *CouponApplication
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (s BookingStatus) canTransitionTo(target BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return target == BookingStatusConfirmed || target == BookingStatusCancelled
	case BookingStatusConfirmed:
		return target == BookingStatusCancelled
	}

	return false
}

func (b *Booking) transitionTo(target BookingStatus) error {
	if !b.Status.canTransitionTo(target) {
		return &InvalidTransitionError{From: b.Status, To: target}
	}

	b.Status = target

	return nil
}

// Confirm marks the booking as confirmed with its payment captured.
func (b *Booking) Confirm(paymentRef string) error {
	if err := b.transitionTo(BookingStatusConfirmed); err != nil {
		return err
	}

	b.Payment = PaymentStatusPaid
	b.PaymentRef = paymentRef

	return nil
}

// Cancel moves the booking to its terminal state. A previously paid booking
// becomes refunded; an unpaid one keeps its pending payment status since
// there is nothing to refund.
func (b *Booking) Cancel() error {
	if err := b.transitionTo(BookingStatusCancelled); err != nil {
		return err
	}

	if b.Payment == PaymentStatusPaid {
		b.Payment = PaymentStatusRefunded
	}

	return nil
}

// CancellationDeadline is the last instant at which the booking may still be
// cancelled, given the screening start and the configured window.
func CancellationDeadline(screeningStart time.Time, window time.Duration) time.Time {
	return screeningStart.Add(-window)
}

// SeatCommitment binds one seat, for one screening, to one booking. At most
// one non-released commitment may exist per (screening, seat) pair; the
// partial unique index in the database enforces this.
type SeatCommitment struct {
	ScreeningID int
	SeatID      int
	BookingID   int
	CommittedAt time.Time
	Released    bool
}

type BookingSummary struct {
	BookingID   int
	MovieTitle  string
	TheaterName string
	ScreenName  string
	StartTime   time.Time
	SeatCount   int
	TotalPrice  decimal.Decimal
	Status      BookingStatus
	CreatedAt   time.Time
}

type BookingRepository interface {
	// Create persists the booking, its seat commitments, and the coupon
	// redemption (if any) in a single transaction. It returns a
	// *SeatsUnavailableError when another booking already holds one of the
	// requested seats, and ErrCouponAlreadyUsed when the coupon grant was
	// consumed concurrently.
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id int) (*Booking, error)
	// Finalize persists the status, payment status and payment reference of
	// a booking after a capture attempt.
	Finalize(ctx context.Context, booking *Booking) error
	// Cancel flips the booking to cancelled, releases its seat commitments
	// and reverses its coupon redemption in one transaction. It is
	// idempotent: cancelling an already cancelled booking is a no-op.
	Cancel(ctx context.Context, booking *Booking) error
	CommittedSeatIDs(ctx context.Context, screeningID int) ([]int, error)
	GetSummariesByUserID(ctx context.Context, userID int, pagination Pagination) ([]BookingSummary, *Metadata, error)
}
