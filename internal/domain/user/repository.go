package user

import (
	"context"
)

// UserRepository is the read side of the user directory.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (User, error)
	GetByBiometricID(ctx context.Context, biometricID string) (User, error)
	ListActive(ctx context.Context) ([]User, error)
}

type TeamRepository interface {
	GetByID(ctx context.Context, id string) (Team, error)
}
