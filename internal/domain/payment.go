package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// CaptureParams describes a single payment capture for a booking. Payment is
// modeled as one authorize/capture/refund state per booking, not a
// settlement pipeline.
type CaptureParams struct {
	BookingID       int
	Amount          decimal.Decimal
	Currency        string
	PaymentMethodID string
}

type PaymentGateway interface {
	// Capture charges the full booking amount and returns the provider's
	// payment reference. A decline is reported as ErrPaymentDeclined.
	Capture(ctx context.Context, params CaptureParams) (string, error)
	Refund(ctx context.Context, paymentRef string) error
}
