package mocks

import (
	"context"

	"github.com/cinebook/cinema-booking-system/internal/domain"
)

// MockNotifier is a no-op NotificationService unless overridden.
type MockNotifier struct {
	BookingConfirmedFunc func(ctx context.Context, booking *domain.Booking) error
	BookingCancelledFunc func(ctx context.Context, booking *domain.Booking) error
}

func (m *MockNotifier) BookingConfirmed(ctx context.Context, booking *domain.Booking) error {
	if m.BookingConfirmedFunc != nil {
		return m.BookingConfirmedFunc(ctx, booking)
	}
	return nil
}

func (m *MockNotifier) BookingCancelled(ctx context.Context, booking *domain.Booking) error {
	if m.BookingCancelledFunc != nil {
		return m.BookingCancelledFunc(ctx, booking)
	}
	return nil
}
