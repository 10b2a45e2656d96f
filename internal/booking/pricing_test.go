package booking

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/cinebook/cinema-booking-system/internal/domain"
)

func TestPrice(t *testing.T) {
	screening := &domain.Screening{ID: 1, BasePrice: decimal.NewFromInt(10000)}

	tests := []struct {
		name         string
		seats        []domain.Seat
		discount     decimal.Decimal
		wantSubtotal decimal.Decimal
		wantTotal    decimal.Decimal
	}{
		{
			name: "two seats with equal surcharges",
			seats: []domain.Seat{
				{ID: 1, Surcharge: decimal.NewFromInt(2000)},
				{ID: 2, Surcharge: decimal.NewFromInt(2000)},
			},
			discount:     decimal.Zero,
			wantSubtotal: decimal.NewFromInt(24000),
			wantTotal:    decimal.NewFromInt(24000),
		},
		{
			name: "mixed seat types",
			seats: []domain.Seat{
				{ID: 1, Surcharge: decimal.Zero},
				{ID: 2, Surcharge: decimal.NewFromInt(5000)},
			},
			discount:     decimal.Zero,
			wantSubtotal: decimal.NewFromInt(25000),
			wantTotal:    decimal.NewFromInt(25000),
		},
		{
			name: "discount subtracted from subtotal",
			seats: []domain.Seat{
				{ID: 1, Surcharge: decimal.NewFromInt(2000)},
				{ID: 2, Surcharge: decimal.NewFromInt(2000)},
			},
			discount:     decimal.NewFromInt(2000),
			wantSubtotal: decimal.NewFromInt(24000),
			wantTotal:    decimal.NewFromInt(22000),
		},
		{
			name: "discount larger than subtotal clamps total to zero",
			seats: []domain.Seat{
				{ID: 1, Surcharge: decimal.Zero},
			},
			discount:     decimal.NewFromInt(99999),
			wantSubtotal: decimal.NewFromInt(10000),
			wantTotal:    decimal.Zero,
		},
		{
			name:         "no seats",
			seats:        nil,
			discount:     decimal.Zero,
			wantSubtotal: decimal.Zero,
			wantTotal:    decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Price(screening, tt.seats, tt.discount)

			if !got.Subtotal.Equal(tt.wantSubtotal) {
				t.Errorf("Subtotal = %v, want %v", got.Subtotal, tt.wantSubtotal)
			}
			if !got.Total.Equal(tt.wantTotal) {
				t.Errorf("Total = %v, want %v", got.Total, tt.wantTotal)
			}
			if !got.Discount.Equal(tt.discount) {
				t.Errorf("Discount = %v, want %v", got.Discount, tt.discount)
			}
		})
	}
}

func TestPricePerSeat(t *testing.T) {
	screening := &domain.Screening{ID: 1, BasePrice: decimal.NewFromInt(1500)}

	seats := []domain.Seat{
		{ID: 10, Surcharge: decimal.Zero},
		{ID: 11, Surcharge: decimal.NewFromInt(300)},
	}

	got := Price(screening, seats, decimal.Zero)

	want := map[int]decimal.Decimal{
		10: decimal.NewFromInt(1500),
		11: decimal.NewFromInt(1800),
	}

	opt := cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })
	if diff := cmp.Diff(want, got.PerSeat, opt); diff != "" {
		t.Errorf("PerSeat mismatch (-want +got):\n%s", diff)
	}
}

func TestPriceIsDeterministic(t *testing.T) {
	screening := &domain.Screening{ID: 1, BasePrice: decimal.NewFromInt(10000)}
	seats := []domain.Seat{
		{ID: 1, Surcharge: decimal.NewFromInt(2000)},
		{ID: 2, Surcharge: decimal.Zero},
	}

	first := Price(screening, seats, decimal.NewFromInt(500))
	second := Price(screening, seats, decimal.NewFromInt(500))

	if !first.Total.Equal(second.Total) || !first.Subtotal.Equal(second.Subtotal) {
		t.Errorf("pricing not deterministic: %v vs %v", first, second)
	}
}
