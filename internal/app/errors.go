package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/cinebook/cinema-booking-system/api"
	"github.com/cinebook/cinema-booking-system/internal/domain"
	appvalidator "github.com/cinebook/cinema-booking-system/internal/validator"
)

const ErrInternalServer = "The server encountered a problem and could not process your request"

func (app *Application) logError(r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.Error(err.Error(), "method", method, "uri", uri)
}

// The errorResponse() method is a generic helper for sending JSON-formatted error
// messages to the client with a given status code and machine-readable error code.
func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	resp := api.ErrorResponse{
		Code:      code,
		Message:   message,
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
	}

	err := app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

func (app *Application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	app.errorResponse(w, r, http.StatusInternalServerError, api.CodeInternal, ErrInternalServer)
}

func (app *Application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "The requested resource not found"
	app.errorResponse(w, r, http.StatusNotFound, api.CodeNotFound, message)
}

func (app *Application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, api.CodeValidationFailed, err.Error())
}

func (app *Application) failedValidationResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		app.serverErrorResponse(w, r, err)
		return
	}

	fieldErrors := make([]api.ValidationError, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		fieldErrors = append(fieldErrors, api.ValidationError{
			Field: fieldError.Field(),
			Issue: appvalidator.ValidationMessage(fieldError),
		})
	}

	resp := api.ValidationErrorResponse{
		Code:             api.CodeValidationFailed,
		Message:          "One or more fields failed validation",
		ValidationErrors: fieldErrors,
		RequestId:        middleware.GetReqID(r.Context()),
		Timestamp:        time.Now(),
	}

	writeErr := app.writeJSON(w, http.StatusUnprocessableEntity, resp, nil)
	if writeErr != nil {
		app.logError(r, writeErr)
		w.WriteHeader(500)
	}
}

func (app *Application) unauthorizedAccessResponse(w http.ResponseWriter, r *http.Request) {
	message := "You must be authenticated to access this resource"
	app.errorResponse(w, r, http.StatusUnauthorized, api.CodeUnauthorized, message)
}

func (app *Application) forbiddenResponse(w http.ResponseWriter, r *http.Request) {
	message := "You do not have permission to access this resource"
	app.errorResponse(w, r, http.StatusForbidden, api.CodeForbidden, message)
}

func (app *Application) editConflictResponse(w http.ResponseWriter, r *http.Request) {
	message := "Unable to update the record due to an edit conflict, please try again"
	app.errorResponse(w, r, http.StatusConflict, api.CodeEditConflict, message)
}

// seatsUnavailableResponse reports a seat conflict along with the seat IDs that
// caused it, so clients can refresh just those seats.
func (app *Application) seatsUnavailableResponse(w http.ResponseWriter, r *http.Request, seatIDs []int) {
	resp := api.ErrorResponse{
		Code:               api.CodeSeatsUnavailable,
		Message:            "One or more of the selected seats are no longer available",
		ConflictingSeatIds: seatIDs,
		RequestId:          middleware.GetReqID(r.Context()),
		Timestamp:          time.Now(),
	}

	err := app.writeJSON(w, http.StatusConflict, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

// bookingErrorResponse translates domain errors shared by the booking handlers
// into HTTP responses. Returns false if the error was not recognized, in which
// case the caller should fall back to a server error.
func (app *Application) bookingErrorResponse(w http.ResponseWriter, r *http.Request, err error) bool {
	var seatsUnavailable *domain.SeatsUnavailableError
	var invalidSeat *domain.InvalidSeatError
	var couponRejected *domain.CouponRejectedError
	var invalidTransition *domain.InvalidTransitionError

	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		app.notFoundResponse(w, r)
	case errors.Is(err, domain.ErrForbidden):
		app.forbiddenResponse(w, r)
	case errors.Is(err, domain.ErrScreeningNotBookable):
		app.errorResponse(w, r, http.StatusUnprocessableEntity, api.CodeScreeningNotBookable,
			"This screening is not open for booking")
	case errors.Is(err, domain.ErrPaymentDeclined):
		app.errorResponse(w, r, http.StatusPaymentRequired, api.CodePaymentDeclined,
			"The payment was declined")
	case errors.Is(err, domain.ErrCancellationWindowExpired):
		app.errorResponse(w, r, http.StatusUnprocessableEntity, api.CodeCancellationWindowExpired,
			"The cancellation window for this booking has expired")
	case errors.Is(err, domain.ErrCouponAlreadyUsed):
		app.errorResponse(w, r, http.StatusConflict, api.CodeCouponRejected,
			"This coupon has already been used")
	case errors.Is(err, domain.ErrEditConflict):
		app.editConflictResponse(w, r)
	case errors.As(err, &seatsUnavailable):
		app.seatsUnavailableResponse(w, r, seatsUnavailable.SeatIDs)
	case errors.As(err, &invalidSeat):
		app.errorResponse(w, r, http.StatusUnprocessableEntity, api.CodeInvalidSeat, err.Error())
	case errors.As(err, &couponRejected):
		app.errorResponse(w, r, http.StatusUnprocessableEntity, api.CodeCouponRejected, err.Error())
	case errors.As(err, &invalidTransition):
		app.editConflictResponse(w, r)
	default:
		return false
	}

	return true
}
