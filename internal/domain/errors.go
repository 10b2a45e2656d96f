package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound            = errors.New("record not found")
	ErrEditConflict              = errors.New("edit conflict")
	ErrScreeningNotBookable      = errors.New("screening is not open for booking")
	ErrCancellationWindowExpired = errors.New("cancellation deadline has passed")
	ErrForbidden                 = errors.New("operation not permitted for this user")
	ErrPaymentDeclined           = errors.New("payment was declined")
	ErrCouponAlreadyUsed         = errors.New("coupon has already been used")
	ErrSeatAlreadyHeld           = errors.New("seat(s) are held by another session")
)

// SeatsUnavailableError reports the exact seats already committed to another
// booking so the caller can re-render the seat map.
type SeatsUnavailableError struct {
	SeatIDs []int
}

func (e *SeatsUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable: %v", e.SeatIDs)
}

// InvalidSeatError reports a seat that does not exist for the screening's
// screen or is not active.
type InvalidSeatError struct {
	SeatID int
}

func (e *InvalidSeatError) Error() string {
	return fmt.Sprintf("seat %d does not exist for this screening or is inactive", e.SeatID)
}

// CouponRejectedError carries the validator's rejection reason.
type CouponRejectedError struct {
	Reason string
}

func (e *CouponRejectedError) Error() string {
	return fmt.Sprintf("coupon rejected: %s", e.Reason)
}

type InvalidTransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("booking cannot transition from %s to %s", e.From, e.To)
}
