package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ScreeningStatus string

const (
	ScreeningStatusActive    ScreeningStatus = "active"
	ScreeningStatusCanceled  ScreeningStatus = "canceled"
	ScreeningStatusCompleted ScreeningStatus = "completed"
)

// ParseScreeningStatus rejects unknown status values at the boundary so the
// core never has to re-validate them.
func ParseScreeningStatus(s string) (ScreeningStatus, error) {
	switch ScreeningStatus(s) {
	case ScreeningStatusActive, ScreeningStatusCanceled, ScreeningStatusCompleted:
		return ScreeningStatus(s), nil
	}

	return "", fmt.Errorf("unknown screening status: %q", s)
}

// Screening is a flat read model of a scheduled showing. The catalog owns it;
// the booking core only reads it.
type Screening struct {
	ID          int
	MovieID     int
	MovieTitle  string
	TheaterID   int
	TheaterName string
	ScreenID    int
	ScreenName  string
	StartTime   time.Time
	BasePrice   decimal.Decimal
	Status      ScreeningStatus
}

// Bookable reports whether new bookings may be taken for the screening.
func (s *Screening) Bookable(now time.Time) bool {
	return s.Status == ScreeningStatusActive && now.Before(s.StartTime)
}

// Seat belongs to exactly one screen. Identity is stable across screenings;
// availability is screening-scoped and lives in the seat ledger.
type Seat struct {
	ID        int
	ScreenID  int
	Row       int
	Col       int
	Type      string
	Surcharge decimal.Decimal
	Active    bool
}

type CatalogReader interface {
	GetScreening(ctx context.Context, id int) (*Screening, error)
	GetScreeningSeats(ctx context.Context, screeningID int) ([]Seat, error)
}
