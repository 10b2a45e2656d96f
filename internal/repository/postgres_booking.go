package repository

import (
	"context"
	"errors"

	"github.com/cinebook/cinema-booking-system/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// liveSeatConstraint is the partial unique index over non-released seat
// commitments. It is the load-bearing piece of the whole design: two
// concurrent transactions inserting commitments for the same
// (screening, seat) pair cannot both commit.
const liveSeatConstraint = "seat_commitments_live_seat_idx"

type PostgresBookingRepository struct {
	db *pgxpool.Pool
}

func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{
		db: db,
	}
}

// Create persists the booking, its seat commitments and the coupon
// redemption in one transaction. A transient serialization or deadlock
// failure is retried once; a unique violation on the live-seat index is
// translated into a *domain.SeatsUnavailableError naming the contested
// seats.
func (p *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	err := p.create(ctx, booking)
	if err != nil && isTransient(err) {
		err = p.create(ctx, booking)
	}

	if err != nil {
		if isUniqueViolation(err, liveSeatConstraint) {
			return p.seatsUnavailable(ctx, booking.ScreeningID, booking.SeatIDs)
		}

		return err
	}

	return nil
}

func (p *PostgresBookingRepository) create(ctx context.Context, booking *domain.Booking) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO bookings
				(user_id, screening_id, subtotal, discount, total_price, status, payment_status, user_coupon_id)
			VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6, $7, $8)
			RETURNING id, created_at, updated_at
		`

		var userCouponID *int
		if booking.Coupon != nil {
			userCouponID = &booking.Coupon.UserCouponID
		}

		err := tx.QueryRow(
			ctx,
			query,
			booking.UserID,
			booking.ScreeningID,
			booking.Subtotal.String(),
			booking.Discount.String(),
			booking.TotalPrice.String(),
			booking.Status,
			booking.Payment,
			userCouponID,
		).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

		if err != nil {
			return err
		}

		query = `
			INSERT INTO seat_commitments (screening_id, seat_id, booking_id)
			SELECT $1, seat_id, $3
			FROM unnest($2::int[]) AS seat_id
		`

		_, err = tx.Exec(ctx, query, booking.ScreeningID, booking.SeatIDs, booking.ID)
		if err != nil {
			return err
		}

		if booking.Coupon != nil {
			query = `
				UPDATE user_coupons
				SET used = TRUE, booking_id = $1, used_at = now()
				WHERE id = $2 AND used = FALSE
			`

			tag, err := tx.Exec(ctx, query, booking.ID, booking.Coupon.UserCouponID)
			if err != nil {
				return err
			}

			if tag.RowsAffected() == 0 {
				return domain.ErrCouponAlreadyUsed
			}
		}

		return nil
	})
}

// seatsUnavailable collects the seats currently committed to another live
// booking so the caller can report exactly which requested seats conflicted.
func (p *PostgresBookingRepository) seatsUnavailable(ctx context.Context, screeningID int, seatIDs []int) error {
	query := `
		SELECT seat_id
		FROM seat_commitments
		WHERE screening_id = $1 AND seat_id = ANY($2::int[]) AND NOT released
		ORDER BY seat_id
	`

	rows, err := p.db.Query(ctx, query, screeningID, seatIDs)
	if err != nil {
		return err
	}
	defer rows.Close()

	conflicting := make([]int, 0, len(seatIDs))

	for rows.Next() {
		var seatID int

		err = rows.Scan(&seatID)
		if err != nil {
			return err
		}

		conflicting = append(conflicting, seatID)
	}

	if err = rows.Err(); err != nil {
		return err
	}

	return &domain.SeatsUnavailableError{SeatIDs: conflictSeatIDs(conflicting, seatIDs)}
}

// conflictSeatIDs picks the seats to report for a unique violation. When the
// winning booking was cancelled between the failed insert and the follow-up
// read, the committed set comes back empty; report the whole request so the
// caller never sees a conflict without seats.
func conflictSeatIDs(committed, requested []int) []int {
	if len(committed) == 0 {
		return requested
	}

	return committed
}

func (p *PostgresBookingRepository) GetByID(ctx context.Context, id int) (*domain.Booking, error) {
	query := `
		SELECT
			id,
			user_id,
			screening_id,
			subtotal,
			discount,
			total_price,
			status,
			payment_status,
			COALESCE(payment_ref, ''),
			user_coupon_id,
			created_at,
			updated_at
		FROM bookings
		WHERE id = $1
	`

	var (
		booking           domain.Booking
		subtotal          pgtype.Numeric
		discount          pgtype.Numeric
		total             pgtype.Numeric
		status, payStatus string
		userCouponID      *int
	)

	err := p.db.QueryRow(ctx, query, id).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.ScreeningID,
		&subtotal,
		&discount,
		&total,
		&status,
		&payStatus,
		&booking.PaymentRef,
		&userCouponID,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	booking.Subtotal = numericToDecimal(subtotal)
	booking.Discount = numericToDecimal(discount)
	booking.TotalPrice = numericToDecimal(total)

	booking.Status, err = domain.ParseBookingStatus(status)
	if err != nil {
		return nil, err
	}

	booking.Payment, err = domain.ParsePaymentStatus(payStatus)
	if err != nil {
		return nil, err
	}

	if userCouponID != nil {
		booking.Coupon = &domain.CouponApplication{
			UserCouponID: *userCouponID,
			Amount:       booking.Discount,
		}
	}

	booking.SeatIDs, err = p.bookingSeatIDs(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

func (p *PostgresBookingRepository) bookingSeatIDs(ctx context.Context, bookingID int) ([]int, error) {
	query := `
		SELECT seat_id
		FROM seat_commitments
		WHERE booking_id = $1
		ORDER BY id
	`

	rows, err := p.db.Query(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seatIDs := make([]int, 0)

	for rows.Next() {
		var seatID int

		err = rows.Scan(&seatID)
		if err != nil {
			return nil, err
		}

		seatIDs = append(seatIDs, seatID)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seatIDs, nil
}

func (p *PostgresBookingRepository) Finalize(ctx context.Context, booking *domain.Booking) error {
	query := `
		UPDATE bookings
		SET status = $1, payment_status = $2, payment_ref = NULLIF($3, ''), updated_at = now()
		WHERE id = $4 AND status = 'pending'
	`

	tag, err := p.db.Exec(
		ctx,
		query,
		booking.Status,
		booking.Payment,
		booking.PaymentRef,
		booking.ID,
	)

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEditConflict
	}

	return nil
}

// Cancel flips the booking to cancelled, releases its seat commitments and
// reverses its coupon redemption. Every statement is guarded by its current
// state, so running the whole thing twice has the same effect as once.
func (p *PostgresBookingRepository) Cancel(ctx context.Context, booking *domain.Booking) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			UPDATE bookings
			SET status = $1, payment_status = $2, updated_at = now()
			WHERE id = $3 AND status <> 'cancelled'
		`

		_, err := tx.Exec(ctx, query, booking.Status, booking.Payment, booking.ID)
		if err != nil {
			return err
		}

		query = `
			UPDATE seat_commitments
			SET released = TRUE, released_at = now()
			WHERE booking_id = $1 AND NOT released
		`

		_, err = tx.Exec(ctx, query, booking.ID)
		if err != nil {
			return err
		}

		query = `
			UPDATE user_coupons
			SET used = FALSE, booking_id = NULL, used_at = NULL
			WHERE booking_id = $1 AND used = TRUE
		`

		_, err = tx.Exec(ctx, query, booking.ID)

		return err
	})
}

func (p *PostgresBookingRepository) CommittedSeatIDs(ctx context.Context, screeningID int) ([]int, error) {
	query := `
		SELECT seat_id
		FROM seat_commitments
		WHERE screening_id = $1 AND NOT released
		ORDER BY seat_id
	`

	rows, err := p.db.Query(ctx, query, screeningID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seatIDs := make([]int, 0)

	for rows.Next() {
		var seatID int

		err = rows.Scan(&seatID)
		if err != nil {
			return nil, err
		}

		seatIDs = append(seatIDs, seatID)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seatIDs, nil
}

func (p *PostgresBookingRepository) GetSummariesByUserID(
	ctx context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error) {

	query := `
		SELECT
			COUNT(*) OVER(),
			b.id,
			m.title,
			t.name,
			sc.name,
			s.start_time,
			(SELECT COUNT(*) FROM seat_commitments c WHERE c.booking_id = b.id),
			b.total_price,
			b.status,
			b.created_at
		FROM bookings b
		JOIN screenings s ON b.screening_id = s.id
		JOIN movies m ON s.movie_id = m.id
		JOIN screens sc ON s.screen_id = sc.id
		JOIN theaters t ON sc.theater_id = t.id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := p.db.Query(ctx, query, userID, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	summaries := make([]domain.BookingSummary, 0)
	totalRecords := 0

	for rows.Next() {
		var (
			summary domain.BookingSummary
			total   pgtype.Numeric
			status  string
		)

		err := rows.Scan(
			&totalRecords,
			&summary.BookingID,
			&summary.MovieTitle,
			&summary.TheaterName,
			&summary.ScreenName,
			&summary.StartTime,
			&summary.SeatCount,
			&total,
			&status,
			&summary.CreatedAt,
		)
		if err != nil {
			return nil, nil, err
		}

		summary.TotalPrice = numericToDecimal(total)

		summary.Status, err = domain.ParseBookingStatus(status)
		if err != nil {
			return nil, nil, err
		}

		summaries = append(summaries, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return summaries, metadata, nil
}
