package domain

import (
	"context"
	"time"
)

// User is a minimal read model of a registered user. Registration and
// authentication live in an external identity service; the booking core only
// needs identity and a notification address.
type User struct {
	ID        int
	FirstName string
	LastName  string
	Email     string
	CreatedAt time.Time
}

type UserRepository interface {
	GetByID(ctx context.Context, id int) (*User, error)
}
