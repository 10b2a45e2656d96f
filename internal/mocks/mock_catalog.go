package mocks

import (
	"context"

	"github.com/cinebook/cinema-booking-system/internal/domain"
)

type MockCatalogReader struct {
	GetScreeningFunc      func(ctx context.Context, id int) (*domain.Screening, error)
	GetScreeningSeatsFunc func(ctx context.Context, screeningID int) ([]domain.Seat, error)
}

func (m *MockCatalogReader) GetScreening(ctx context.Context, id int) (*domain.Screening, error) {
	return m.GetScreeningFunc(ctx, id)
}

func (m *MockCatalogReader) GetScreeningSeats(ctx context.Context, screeningID int) ([]domain.Seat, error) {
	return m.GetScreeningSeatsFunc(ctx, screeningID)
}
