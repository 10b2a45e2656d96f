package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cinebook/cinema-booking-system/internal/domain"
	"github.com/shopspring/decimal"
)

// Service orchestrates the booking lifecycle: it validates the screening and
// seat selection against the catalog, prices the selection, applies at most
// one coupon, and drives the booking through its state machine. All identity
// comes in as explicit parameters; the service never reads ambient request
// state.
type Service struct {
	catalog  domain.CatalogReader
	bookings domain.BookingRepository
	coupons  domain.CouponRepository
	gateway  domain.PaymentGateway
	logger   *slog.Logger

	cancellationWindow time.Duration
	captureOnCreate    bool
	currency           string

	now func() time.Time
}

type ServiceConfig struct {
	// CancellationWindow is the minimum lead time before a screening's start
	// during which cancellation is still permitted.
	CancellationWindow time.Duration
	// CaptureOnCreate selects the immediate payment flow: the booking is
	// captured and confirmed within the create request. When false the
	// booking stays pending for a later capture.
	CaptureOnCreate bool
	Currency        string
}

func NewService(
	cfg ServiceConfig,
	catalog domain.CatalogReader,
	bookings domain.BookingRepository,
	coupons domain.CouponRepository,
	gateway domain.PaymentGateway,
	logger *slog.Logger) *Service {

	return &Service{
		catalog:            catalog,
		bookings:           bookings,
		coupons:            coupons,
		gateway:            gateway,
		logger:             logger,
		cancellationWindow: cfg.CancellationWindow,
		captureOnCreate:    cfg.CaptureOnCreate,
		currency:           cfg.Currency,
		now:                time.Now,
	}
}

type CreateBookingParams struct {
	UserID          int
	ScreeningID     int
	SeatIDs         []int
	UserCouponID    *int
	PaymentMethodID string
}

// CreateBooking reserves the requested seats for the screening and persists
// the booking with its seat commitments as one atomic unit. Under concurrent
// requests for overlapping seats exactly one caller wins; the others receive
// a *domain.SeatsUnavailableError listing the contested seats.
func (s *Service) CreateBooking(ctx context.Context, params CreateBookingParams) (*domain.Booking, error) {
	now := s.now()

	screening, err := s.catalog.GetScreening(ctx, params.ScreeningID)
	if err != nil {
		return nil, err
	}

	if !screening.Bookable(now) {
		return nil, domain.ErrScreeningNotBookable
	}

	seats, err := s.selectSeats(ctx, screening, params.SeatIDs)
	if err != nil {
		return nil, err
	}

	breakdown := Price(screening, seats, decimal.Zero)

	var couponApp *domain.CouponApplication

	if params.UserCouponID != nil {
		discount, err := s.applyCoupon(ctx, params.UserID, *params.UserCouponID, screening, breakdown.Subtotal, now)
		if err != nil {
			return nil, err
		}

		breakdown = Price(screening, seats, discount)
		couponApp = &domain.CouponApplication{
			UserCouponID: *params.UserCouponID,
			Amount:       discount,
		}
	}

	booking := &domain.Booking{
		UserID:      params.UserID,
		ScreeningID: screening.ID,
		SeatIDs:     params.SeatIDs,
		Subtotal:    breakdown.Subtotal,
		Discount:    breakdown.Discount,
		TotalPrice:  breakdown.Total,
		Status:      domain.BookingStatusPending,
		Payment:     domain.PaymentStatusPending,
		Coupon:      couponApp,
	}

	err = s.bookings.Create(ctx, booking)
	if err != nil {
		return nil, err
	}

	if s.captureOnCreate {
		err = s.capture(ctx, booking, params.PaymentMethodID)
		if err != nil {
			return nil, err
		}
	}

	return booking, nil
}

func (s *Service) capture(ctx context.Context, booking *domain.Booking, paymentMethodID string) error {
	var paymentRef string

	if booking.TotalPrice.IsPositive() {
		ref, err := s.gateway.Capture(ctx, domain.CaptureParams{
			BookingID:       booking.ID,
			Amount:          booking.TotalPrice,
			Currency:        s.currency,
			PaymentMethodID: paymentMethodID,
		})
		if err != nil {
			s.compensate(ctx, booking)
			return err
		}

		paymentRef = ref
	}

	err := booking.Confirm(paymentRef)
	if err != nil {
		return err
	}

	return s.bookings.Finalize(ctx, booking)
}

// compensate unwinds a booking whose payment capture failed: the seats are
// released and the coupon reversed so that nothing of the attempt remains.
func (s *Service) compensate(ctx context.Context, booking *domain.Booking) {
	err := booking.Cancel()
	if err != nil {
		s.logger.Error("cannot cancel booking after failed capture", "booking_id", booking.ID, "error", err)
		return
	}

	err = s.bookings.Cancel(ctx, booking)
	if err != nil {
		s.logger.Error("failed to release seats after failed capture", "booking_id", booking.ID, "error", err)
	}
}

// selectSeats resolves the requested seat IDs against the screening's seat
// map, rejecting unknown, inactive or duplicate seats.
func (s *Service) selectSeats(ctx context.Context, screening *domain.Screening, seatIDs []int) ([]domain.Seat, error) {
	if len(seatIDs) == 0 {
		return nil, fmt.Errorf("no seats selected")
	}

	screenSeats, err := s.catalog.GetScreeningSeats(ctx, screening.ID)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]domain.Seat, len(screenSeats))
	for _, seat := range screenSeats {
		byID[seat.ID] = seat
	}

	seats := make([]domain.Seat, 0, len(seatIDs))
	seen := make(map[int]bool, len(seatIDs))

	for _, id := range seatIDs {
		seat, ok := byID[id]
		if !ok || !seat.Active || seen[id] {
			return nil, &domain.InvalidSeatError{SeatID: id}
		}

		seen[id] = true
		seats = append(seats, seat)
	}

	return seats, nil
}

func (s *Service) applyCoupon(
	ctx context.Context,
	userID, userCouponID int,
	screening *domain.Screening,
	subtotal decimal.Decimal,
	now time.Time) (decimal.Decimal, error) {

	grant, err := s.coupons.GetUserCoupon(ctx, userID, userCouponID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return decimal.Zero, &domain.CouponRejectedError{Reason: "coupon not found"}
		}

		return decimal.Zero, err
	}

	usage, err := s.coupons.GetUsage(ctx, grant.CouponID, userID)
	if err != nil {
		return decimal.Zero, err
	}

	return ValidateCoupon(grant, usage, screening, subtotal, now)
}

// CancelBooking cancels a booking owned by the requester, releasing its
// seats and reversing its coupon. Admins may cancel any booking and are not
// bound by the cancellation window.
func (s *Service) CancelBooking(ctx context.Context, bookingID, requesterID int, admin bool) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.UserID != requesterID && !admin {
		return nil, domain.ErrForbidden
	}

	screening, err := s.catalog.GetScreening(ctx, booking.ScreeningID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !admin && !now.Before(domain.CancellationDeadline(screening.StartTime, s.cancellationWindow)) {
		return nil, domain.ErrCancellationWindowExpired
	}

	wasPaid := booking.Payment == domain.PaymentStatusPaid

	err = booking.Cancel()
	if err != nil {
		return nil, err
	}

	// Refund before persisting the cancellation: if the refund fails the
	// stored booking is untouched and the caller may retry.
	if wasPaid && booking.PaymentRef != "" {
		err = s.gateway.Refund(ctx, booking.PaymentRef)
		if err != nil {
			return nil, fmt.Errorf("refund failed for booking %d: %w", bookingID, err)
		}
	}

	err = s.bookings.Cancel(ctx, booking)
	if err != nil {
		return nil, err
	}

	return booking, nil
}

// GetBooking returns a booking visible to the requester: its owner or an
// admin.
func (s *Service) GetBooking(ctx context.Context, bookingID, requesterID int, admin bool) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.UserID != requesterID && !admin {
		return nil, domain.ErrForbidden
	}

	return booking, nil
}

// ListBookings returns paginated booking summaries for a user.
func (s *Service) ListBookings(
	ctx context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error) {

	return s.bookings.GetSummariesByUserID(ctx, userID, pagination)
}

// SeatStatus of one seat for one screening.
type SeatStatus struct {
	Seat domain.Seat
	Held bool
}

// SeatAvailability reports, per active seat of the screening's screen,
// whether the seat is committed to a live booking. Short-lived holds taken
// while a user composes a booking are overlaid by the transport layer.
func (s *Service) SeatAvailability(ctx context.Context, screeningID int) ([]SeatStatus, error) {
	_, err := s.catalog.GetScreening(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	seats, err := s.catalog.GetScreeningSeats(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	committed, err := s.bookings.CommittedSeatIDs(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	held := make(map[int]bool, len(committed))
	for _, id := range committed {
		held[id] = true
	}

	statuses := make([]SeatStatus, 0, len(seats))

	for _, seat := range seats {
		if !seat.Active {
			continue
		}

		statuses = append(statuses, SeatStatus{Seat: seat, Held: held[seat.ID]})
	}

	return statuses, nil
}
