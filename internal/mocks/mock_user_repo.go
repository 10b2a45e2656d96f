package mocks

import (
	"context"

	"github.com/cinebook/cinema-booking-system/internal/domain"
)

type MockUserRepo struct {
	GetByIDFunc func(ctx context.Context, id int) (*domain.User, error)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int) (*domain.User, error) {
	return m.GetByIDFunc(ctx, id)
}
