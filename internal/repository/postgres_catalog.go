package repository

import (
	"context"
	"errors"

	"github.com/cinebook/cinema-booking-system/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCatalogReader reads the movie/theater/screen catalog. The catalog
// is maintained elsewhere; the booking core treats it as read-only.
type PostgresCatalogReader struct {
	db *pgxpool.Pool
}

func NewPostgresCatalogReader(db *pgxpool.Pool) *PostgresCatalogReader {
	return &PostgresCatalogReader{
		db: db,
	}
}

func (p *PostgresCatalogReader) GetScreening(ctx context.Context, id int) (*domain.Screening, error) {
	query := `
		SELECT
			s.id,
			m.id,
			m.title,
			t.id,
			t.name,
			sc.id,
			sc.name,
			s.start_time,
			s.base_price,
			s.status
		FROM screenings s
		JOIN movies m ON s.movie_id = m.id
		JOIN screens sc ON s.screen_id = sc.id
		JOIN theaters t ON sc.theater_id = t.id
		WHERE s.id = $1
	`

	var (
		screening domain.Screening
		basePrice pgtype.Numeric
		status    string
	)

	err := p.db.QueryRow(ctx, query, id).Scan(
		&screening.ID,
		&screening.MovieID,
		&screening.MovieTitle,
		&screening.TheaterID,
		&screening.TheaterName,
		&screening.ScreenID,
		&screening.ScreenName,
		&screening.StartTime,
		&basePrice,
		&status,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	screening.BasePrice = numericToDecimal(basePrice)

	screening.Status, err = domain.ParseScreeningStatus(status)
	if err != nil {
		return nil, err
	}

	return &screening, nil
}

func (p *PostgresCatalogReader) GetScreeningSeats(ctx context.Context, screeningID int) ([]domain.Seat, error) {
	query := `
		SELECT
			se.id,
			se.screen_id,
			se.seat_row,
			se.seat_col,
			st.name,
			st.surcharge,
			se.active
		FROM screenings s
		JOIN seats se ON se.screen_id = s.screen_id
		JOIN seat_types st ON se.seat_type_id = st.id
		WHERE s.id = $1
		ORDER BY se.seat_row, se.seat_col
	`

	rows, err := p.db.Query(ctx, query, screeningID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.Seat, 0)

	for rows.Next() {
		var (
			seat      domain.Seat
			surcharge pgtype.Numeric
		)

		err = rows.Scan(
			&seat.ID,
			&seat.ScreenID,
			&seat.Row,
			&seat.Col,
			&seat.Type,
			&surcharge,
			&seat.Active,
		)
		if err != nil {
			return nil, err
		}

		seat.Surcharge = numericToDecimal(surcharge)

		seats = append(seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}
