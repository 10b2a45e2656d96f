package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type CouponStatus string

const (
	CouponStatusActive   CouponStatus = "active"
	CouponStatusInactive CouponStatus = "inactive"
	CouponStatusExpired  CouponStatus = "expired"
)

func ParseCouponStatus(s string) (CouponStatus, error) {
	switch CouponStatus(s) {
	case CouponStatusActive, CouponStatusInactive, CouponStatusExpired:
		return CouponStatus(s), nil
	}

	return "", fmt.Errorf("unknown coupon status: %q", s)
}

type CouponType string

const (
	CouponTypePercent CouponType = "percent"
	CouponTypeAmount  CouponType = "amount"
)

func ParseCouponType(s string) (CouponType, error) {
	switch CouponType(s) {
	case CouponTypePercent, CouponTypeAmount:
		return CouponType(s), nil
	}

	return "", fmt.Errorf("unknown coupon type: %q", s)
}

// CouponTarget restricts a coupon to a specific movie or theater. Untargeted
// coupons apply to any screening.
type CouponTarget string

const (
	CouponTargetAny     CouponTarget = "any"
	CouponTargetMovie   CouponTarget = "movie"
	CouponTargetTheater CouponTarget = "theater"
)

func ParseCouponTarget(s string) (CouponTarget, error) {
	switch CouponTarget(s) {
	case CouponTargetAny, CouponTargetMovie, CouponTargetTheater:
		return CouponTarget(s), nil
	}

	return "", fmt.Errorf("unknown coupon target: %q", s)
}

type Coupon struct {
	ID                int
	Code              string
	Type              CouponType
	Value             decimal.Decimal
	MaxDiscount       *decimal.Decimal
	MinOrderPrice     decimal.Decimal
	Target            CouponTarget
	TargetID          *int
	Status            CouponStatus
	IssueDate         time.Time
	ExpiryDate        time.Time
	UsageLimitPerUser int
	TotalUsageLimit   int
}

// UserCoupon is a grant of a coupon to one user, consumable once. The grant
// is reversed (exactly once) when its booking is cancelled.
type UserCoupon struct {
	ID        int
	UserID    int
	CouponID  int
	Used      bool
	BookingID *int
	Coupon    Coupon
}

// CouponUsage holds prior redemption counts for a coupon, globally and for
// one user.
type CouponUsage struct {
	Total  int
	ByUser int
}

// CouponApplication records the discount actually applied to a booking.
type CouponApplication struct {
	UserCouponID int
	Amount       decimal.Decimal
}

type CouponRepository interface {
	GetUserCoupon(ctx context.Context, userID, userCouponID int) (*UserCoupon, error)
	GetUsage(ctx context.Context, couponID, userID int) (CouponUsage, error)
}
