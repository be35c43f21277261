package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrUserNotFound = errors.New("user not found")

// Role is the marketplace capability of an account.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// User is the slice of an account the auction core needs. Accounts themselves
// are managed elsewhere.
type User struct {
	ID       uuid.UUID
	Username string
	Role     Role
}

// CanBid reports whether the user holds the buyer capability.
func (u *User) CanBid() bool {
	return u.Role == RoleBuyer
}

type Repository interface {
	// GetByID returns ErrUserNotFound when no account has that id.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}
