package payment

import (
	"context"
	"errors"
	"strconv"

	"github.com/cinebook/cinema-booking-system/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
)

var centsPerUnit = decimal.NewFromInt(100)

// StripeGateway captures and refunds booking payments through Stripe
// PaymentIntents. One intent per booking; no multi-step settlement.
type StripeGateway struct{}

func NewStripeGateway() *StripeGateway {
	return &StripeGateway{}
}

func (g *StripeGateway) Capture(ctx context.Context, params domain.CaptureParams) (string, error) {
	intentParams := &stripe.PaymentIntentParams{
		Params: stripe.Params{
			Context:        ctx,
			IdempotencyKey: stripe.String(uuid.NewString()),
		},
		Amount:        stripe.Int64(params.Amount.Mul(centsPerUnit).IntPart()),
		Currency:      stripe.String(params.Currency),
		PaymentMethod: stripe.String(params.PaymentMethodID),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
		Metadata: map[string]string{
			"booking_id": strconv.Itoa(params.BookingID),
		},
	}

	intent, err := paymentintent.New(intentParams)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return "", domain.ErrPaymentDeclined
		}

		return "", err
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return "", domain.ErrPaymentDeclined
	}

	return intent.ID, nil
}

func (g *StripeGateway) Refund(ctx context.Context, paymentRef string) error {
	refundParams := &stripe.RefundParams{
		Params: stripe.Params{
			Context: ctx,
		},
		PaymentIntent: stripe.String(paymentRef),
	}

	_, err := refund.New(refundParams)

	return err
}
