package booking

import (
	"fmt"
	"time"

	"github.com/cinebook/cinema-booking-system/internal/domain"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// ValidateCoupon checks a coupon grant against a screening and subtotal and
// returns the discount amount. Checks run in a fixed order and short-circuit
// on the first failure, returned as a *domain.CouponRejectedError.
func ValidateCoupon(
	grant *domain.UserCoupon,
	usage domain.CouponUsage,
	screening *domain.Screening,
	subtotal decimal.Decimal,
	now time.Time) (decimal.Decimal, error) {

	coupon := grant.Coupon

	if grant.Used {
		return decimal.Zero, &domain.CouponRejectedError{Reason: "coupon has already been used"}
	}

	if coupon.Status != domain.CouponStatusActive {
		return decimal.Zero, &domain.CouponRejectedError{Reason: "coupon is not active"}
	}

	if now.Before(coupon.IssueDate) {
		return decimal.Zero, &domain.CouponRejectedError{Reason: "coupon is not valid yet"}
	}

	if now.After(coupon.ExpiryDate) {
		return decimal.Zero, &domain.CouponRejectedError{Reason: "coupon has expired"}
	}

	if subtotal.LessThan(coupon.MinOrderPrice) {
		return decimal.Zero, &domain.CouponRejectedError{
			Reason: fmt.Sprintf("order amount is below the coupon minimum of %s", coupon.MinOrderPrice),
		}
	}

	switch coupon.Target {
	case domain.CouponTargetMovie:
		if coupon.TargetID == nil || *coupon.TargetID != screening.MovieID {
			return decimal.Zero, &domain.CouponRejectedError{Reason: "coupon is not valid for this movie"}
		}
	case domain.CouponTargetTheater:
		if coupon.TargetID == nil || *coupon.TargetID != screening.TheaterID {
			return decimal.Zero, &domain.CouponRejectedError{Reason: "coupon is not valid for this theater"}
		}
	}

	if coupon.UsageLimitPerUser > 0 && usage.ByUser >= coupon.UsageLimitPerUser {
		return decimal.Zero, &domain.CouponRejectedError{Reason: "coupon usage limit reached for this user"}
	}

	if coupon.TotalUsageLimit > 0 && usage.Total >= coupon.TotalUsageLimit {
		return decimal.Zero, &domain.CouponRejectedError{Reason: "coupon usage limit reached"}
	}

	return discountAmount(coupon, subtotal), nil
}

// discountAmount computes the discount for a validated coupon. Percentage
// discounts round down to the nearest whole unit and honor the coupon's
// maximum discount cap; fixed discounts are capped at the subtotal.
func discountAmount(coupon domain.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal

	switch coupon.Type {
	case domain.CouponTypePercent:
		discount = subtotal.Mul(coupon.Value).Div(oneHundred).Floor()

		if coupon.MaxDiscount != nil && discount.GreaterThan(*coupon.MaxDiscount) {
			discount = *coupon.MaxDiscount
		}
	case domain.CouponTypeAmount:
		discount = coupon.Value
	}

	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	return discount
}
