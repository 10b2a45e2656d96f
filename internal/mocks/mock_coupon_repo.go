package mocks

import (
	"context"

	"github.com/cinebook/cinema-booking-system/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockCouponRepo struct {
	mock.Mock
	domain.CouponRepository
}

func (m *MockCouponRepo) GetUserCoupon(ctx context.Context, userID, userCouponID int) (*domain.UserCoupon, error) {
	args := m.Called(ctx, userID, userCouponID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserCoupon), args.Error(1)
}

func (m *MockCouponRepo) GetUsage(ctx context.Context, couponID, userID int) (domain.CouponUsage, error) {
	args := m.Called(ctx, couponID, userID)
	return args.Get(0).(domain.CouponUsage), args.Error(1)
}
