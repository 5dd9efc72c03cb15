package user

import (
	"context"
	"fmt"

	"lender-ledger/internal/pkg/apperrors"
)

var (
	ErrNotFound = fmt.Errorf("user %w", apperrors.ErrNotFound)

	ErrEmailTaken = fmt.Errorf("email already registered: %w", apperrors.ErrAlreadyExists)
)

type Repository interface {
	Create(ctx context.Context, u *User) error

	GetByEmail(ctx context.Context, email string) (*User, error)
}
