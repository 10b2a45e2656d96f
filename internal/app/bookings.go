package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cinebook/cinema-booking-system/api"
	"github.com/cinebook/cinema-booking-system/internal/booking"
	"github.com/cinebook/cinema-booking-system/internal/domain"
)

func (app *Application) CreateBookingHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	var input api.CreateBookingRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	sessionID := app.sessionManager.Token(r.Context())

	// Advisory holds by other sessions block the booking up front, before any
	// pricing or payment work happens. The database constraint remains the
	// authority for committed seats.
	conflicting, err := app.heldByOtherSession(r.Context(), input.ScreeningId, input.SeatIdList, sessionID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if len(conflicting) > 0 {
		logger.Warn("booking attempt on seats held by another session", "seat_ids", conflicting)
		app.seatsUnavailableResponse(w, r, conflicting)
		return
	}

	userId := app.contextGetUserId(r)

	result, err := app.bookingService.CreateBooking(r.Context(), booking.CreateBookingParams{
		UserID:          userId,
		ScreeningID:     input.ScreeningId,
		SeatIDs:         input.SeatIdList,
		UserCouponID:    input.UserCouponId,
		PaymentMethodID: input.PaymentMethodId,
	})
	if err != nil {
		logger.Warn("booking creation failed", "error", err)

		if !app.bookingErrorResponse(w, r, err) {
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	logger.Info("booking created", "booking_id", result.ID, "status", result.Status)

	app.releaseSeatHoldsAfterBooking(r, result, sessionID)

	if result.Status == domain.BookingStatusConfirmed {
		app.notifyBooking(r, result, app.notifier.BookingConfirmed)
	}

	err = app.writeJSON(w, http.StatusCreated, toBookingResponse(result), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetBookingHandler(w http.ResponseWriter, r *http.Request) {
	bookingID, err := app.readIDParam(r, "bookingId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	result, err := app.bookingService.GetBooking(r.Context(), bookingID, app.contextGetUserId(r), app.contextIsAdmin(r))
	if err != nil {
		if !app.bookingErrorResponse(w, r, err) {
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, toBookingResponse(result), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	bookingID, err := app.readIDParam(r, "bookingId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	result, err := app.bookingService.CancelBooking(r.Context(), bookingID, app.contextGetUserId(r), app.contextIsAdmin(r))
	if err != nil {
		logger.Warn("booking cancellation failed", "booking_id", bookingID, "error", err)

		if !app.bookingErrorResponse(w, r, err) {
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	logger.Info("booking cancelled", "booking_id", result.ID)

	app.notifyBooking(r, result, app.notifier.BookingCancelled)

	err = app.writeJSON(w, http.StatusOK, toBookingResponse(result), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetUserBookingsHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	pagination := domain.Pagination{
		Page:     app.readInt(qs, "page", 1),
		PageSize: app.readInt(qs, "pageSize", 10),
	}

	if pagination.Page < 1 || pagination.PageSize < 1 || pagination.PageSize > 100 {
		app.badRequestResponse(w, r, fmt.Errorf("page must be >= 1 and pageSize between 1 and 100"))
		return
	}

	summaries, metadata, err := app.bookingService.ListBookings(r.Context(), app.contextGetUserId(r), pagination)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.UserBookingsResponse{
		Bookings: toBookingSummaryResponses(summaries),
		Metadata: toMetadataResponse(metadata),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// releaseSeatHoldsAfterBooking drops the caller's advisory holds on the seats
// it just booked. Failure only means the holds linger until their TTL.
func (app *Application) releaseSeatHoldsAfterBooking(r *http.Request, b *domain.Booking, sessionID string) {
	ctx := context.WithoutCancel(r.Context())

	app.background(func() {
		err := app.releaseSeatHolds(ctx, b.ScreeningID, b.SeatIDs, sessionID)
		if err != nil {
			app.logger.Error("failed to release seat holds after booking", "booking_id", b.ID, "error", err)
		}
	})
}

func (app *Application) notifyBooking(r *http.Request, b *domain.Booking, notify func(context.Context, *domain.Booking) error) {
	logger := app.contextGetLogger(r)
	ctx := context.WithoutCancel(r.Context())

	app.background(func() {
		err := notify(ctx, b)
		if err != nil {
			logger.Error("failed to send booking notification", "booking_id", b.ID, "error", err)
		}
	})
}

func toBookingResponse(b *domain.Booking) api.BookingResponse {
	return api.BookingResponse{
		Id:            b.ID,
		ScreeningId:   b.ScreeningID,
		SeatIdList:    b.SeatIDs,
		Subtotal:      b.Subtotal,
		Discount:      b.Discount,
		TotalPrice:    b.TotalPrice,
		Status:        string(b.Status),
		PaymentStatus: string(b.Payment),
		CreatedAt:     b.CreatedAt,
	}
}

func toBookingSummaryResponses(summaries []domain.BookingSummary) []api.BookingSummaryResponse {
	resp := make([]api.BookingSummaryResponse, len(summaries))

	for i, v := range summaries {
		resp[i] = api.BookingSummaryResponse{
			BookingId:   v.BookingID,
			MovieTitle:  v.MovieTitle,
			TheaterName: v.TheaterName,
			ScreenName:  v.ScreenName,
			StartTime:   v.StartTime,
			SeatCount:   v.SeatCount,
			TotalPrice:  v.TotalPrice,
			Status:      string(v.Status),
			CreatedAt:   v.CreatedAt,
		}
	}

	return resp
}

func toMetadataResponse(metadata *domain.Metadata) api.Metadata {
	if metadata == nil {
		return api.Metadata{}
	}

	return api.Metadata{
		CurrentPage:  metadata.CurrentPage,
		PageSize:     metadata.PageSize,
		FirstPage:    metadata.FirstPage,
		LastPage:     metadata.LastPage,
		TotalRecords: metadata.TotalRecords,
	}
}
