package mailer

import (
	"context"

	"github.com/cinebook/cinema-booking-system/internal/domain"
)

// BookingNotifier implements domain.NotificationService over email. It is
// called fire-and-forget; the handlers log failures and move on.
type BookingNotifier struct {
	mailer Mailer
	users  domain.UserRepository
}

func NewBookingNotifier(mailer Mailer, users domain.UserRepository) *BookingNotifier {
	return &BookingNotifier{
		mailer: mailer,
		users:  users,
	}
}

func (n *BookingNotifier) BookingConfirmed(ctx context.Context, booking *domain.Booking) error {
	return n.send(ctx, booking, "booking_confirmed.tmpl")
}

func (n *BookingNotifier) BookingCancelled(ctx context.Context, booking *domain.Booking) error {
	return n.send(ctx, booking, "booking_cancelled.tmpl")
}

func (n *BookingNotifier) send(ctx context.Context, booking *domain.Booking, templateFile string) error {
	user, err := n.users.GetByID(ctx, booking.UserID)
	if err != nil {
		return err
	}

	data := map[string]any{
		"firstName":  user.FirstName,
		"bookingID":  booking.ID,
		"seatCount":  len(booking.SeatIDs),
		"totalPrice": booking.TotalPrice.String(),
	}

	return n.mailer.Send(user.Email, templateFile, data)
}
