package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines user data storage.
type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	ConfirmEmail(ctx context.Context, id uuid.UUID, at time.Time) error
}
