package domain

import "context"

// NotificationService is driven fire-and-forget by the handlers; delivery
// failures are logged, never surfaced to the caller.
type NotificationService interface {
	BookingConfirmed(ctx context.Context, booking *Booking) error
	BookingCancelled(ctx context.Context, booking *Booking) error
}
