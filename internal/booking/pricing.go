package booking

import (
	"github.com/cinebook/cinema-booking-system/internal/domain"
	"github.com/shopspring/decimal"
)

// PriceBreakdown is the result of pricing a seat selection. Amounts are
// whole currency units.
type PriceBreakdown struct {
	PerSeat  map[int]decimal.Decimal
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Price computes the per-seat and total price for a seat selection on a
// screening. Each seat costs the screening's base price plus its seat type
// surcharge. The discount is subtracted from the subtotal and the total is
// clamped at zero. Pure function: no side effects, deterministic.
func Price(screening *domain.Screening, seats []domain.Seat, discount decimal.Decimal) PriceBreakdown {
	perSeat := make(map[int]decimal.Decimal, len(seats))
	subtotal := decimal.Zero

	for _, seat := range seats {
		seatPrice := screening.BasePrice.Add(seat.Surcharge)
		perSeat[seat.ID] = seatPrice
		subtotal = subtotal.Add(seatPrice)
	}

	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return PriceBreakdown{
		PerSeat:  perSeat,
		Subtotal: subtotal,
		Discount: discount,
		Total:    total,
	}
}
