// Package api defines the JSON request and response types exposed by the
// HTTP layer, along with the machine-readable error codes clients switch on.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeValidationFailed          = "VALIDATION_FAILED"
	CodeNotFound                  = "NOT_FOUND"
	CodeUnauthorized              = "UNAUTHORIZED"
	CodeForbidden                 = "FORBIDDEN"
	CodeScreeningNotBookable      = "SCREENING_NOT_BOOKABLE"
	CodeInvalidSeat               = "INVALID_SEAT"
	CodeSeatsUnavailable          = "SEATS_UNAVAILABLE"
	CodeCouponRejected            = "COUPON_REJECTED"
	CodePaymentDeclined           = "PAYMENT_DECLINED"
	CodeCancellationWindowExpired = "CANCELLATION_WINDOW_EXPIRED"
	CodeEditConflict              = "EDIT_CONFLICT"
	CodeInternal                  = "INTERNAL"
)

// Seat statuses reported by the availability endpoint.
const (
	SeatStatusAvailable = "AVAILABLE"
	SeatStatusHeld      = "HELD"
)

type ErrorResponse struct {
	Code               string    `json:"code"`
	Message            string    `json:"message"`
	ConflictingSeatIds []int     `json:"conflictingSeatIds,omitempty"`
	RequestId          string    `json:"requestId,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Code             string            `json:"code"`
	Message          string            `json:"message"`
	ValidationErrors []ValidationError `json:"validationErrors"`
	RequestId        string            `json:"requestId,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
}

type CreateBookingRequest struct {
	ScreeningId     int    `json:"screeningId" validate:"required,gt=0"`
	SeatIdList      []int  `json:"seatIdList" validate:"required,min=1,max=10,unique,dive,gt=0"`
	UserCouponId    *int   `json:"userCouponId,omitempty" validate:"omitempty,gt=0"`
	PaymentMethodId string `json:"paymentMethodId,omitempty" validate:"omitempty,max=255"`
}

type BookingResponse struct {
	Id            int             `json:"id"`
	ScreeningId   int             `json:"screeningId"`
	SeatIdList    []int           `json:"seatIdList"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"paymentStatus"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type BookingSummaryResponse struct {
	BookingId   int             `json:"bookingId"`
	MovieTitle  string          `json:"movieTitle"`
	TheaterName string          `json:"theaterName"`
	ScreenName  string          `json:"screenName"`
	StartTime   time.Time       `json:"startTime"`
	SeatCount   int             `json:"seatCount"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type UserBookingsResponse struct {
	Bookings []BookingSummaryResponse `json:"bookings"`
	Metadata Metadata                 `json:"metadata"`
}

type Metadata struct {
	CurrentPage  int `json:"currentPage"`
	PageSize     int `json:"pageSize"`
	FirstPage    int `json:"firstPage"`
	LastPage     int `json:"lastPage"`
	TotalRecords int `json:"totalRecords"`
}

type SeatResponse struct {
	Id        int             `json:"id"`
	Row       int             `json:"row"`
	Column    int             `json:"column"`
	Type      string          `json:"type"`
	Surcharge decimal.Decimal `json:"surcharge"`
	Status    string          `json:"status"`
}

type SeatAvailabilityResponse struct {
	ScreeningId int            `json:"screeningId"`
	Seats       []SeatResponse `json:"seats"`
}

type HoldSeatsRequest struct {
	SeatIdList []int `json:"seatIdList" validate:"required,min=1,max=10,unique,dive,gt=0"`
}

type HoldSeatsResponse struct {
	ScreeningId      int   `json:"screeningId"`
	SeatIdList       []int `json:"seatIdList"`
	ExpiresInSeconds int   `json:"expiresInSeconds"`
}

type CreateSessionRequest struct {
	UserId int  `json:"userId" validate:"required,gt=0"`
	Admin  bool `json:"admin"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

type SystemInfo struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
}
