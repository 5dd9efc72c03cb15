package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"lender-ledger/internal/pkg/apperrors"
)

var ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthenticated)

type Service interface {
	Register(ctx context.Context, name, email, password string) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
}

type userService struct {
	repo   Repository
	logger *slog.Logger
}

func NewUserService(repo Repository, logger *slog.Logger) Service {
	return &userService{repo: repo, logger: logger.With(slog.String("component", "userService"))}
}

func (s *userService) Register(ctx context.Context, name, email, password string) (*User, error) {
	u, err := NewUser(name, email, password)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "Failed to hash password", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to hash password", apperrors.ErrInternalServer)
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			s.logger.WarnContext(ctx, "Registration with existing email rejected")
			return nil, ErrEmailTaken
		}
		s.logger.ErrorContext(ctx, "Failed to save user", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.InfoContext(ctx, "Lender registered", slog.String("userID", u.ID.String()))
	return u, nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.ErrorContext(ctx, "Failed to load user", slog.Any("error", err))
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !u.CheckPassword(password) {
		s.logger.WarnContext(ctx, "Password mismatch", slog.String("userID", u.ID.String()))
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
