package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/cinebook/cinema-booking-system/internal/domain"
)

// MockGateway is an in-memory PaymentGateway for tests and local
// development. Every capture succeeds unless CaptureFunc overrides it.
type MockGateway struct {
	mu       sync.Mutex
	captures int

	CaptureFunc func(ctx context.Context, params domain.CaptureParams) (string, error)
	RefundFunc  func(ctx context.Context, paymentRef string) error

	Refunded []string
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (g *MockGateway) Capture(ctx context.Context, params domain.CaptureParams) (string, error) {
	if g.CaptureFunc != nil {
		return g.CaptureFunc(ctx, params)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.captures++

	return fmt.Sprintf("pi_mock_%d", g.captures), nil
}

func (g *MockGateway) Refund(ctx context.Context, paymentRef string) error {
	if g.RefundFunc != nil {
		return g.RefundFunc(ctx, paymentRef)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.Refunded = append(g.Refunded, paymentRef)

	return nil
}
