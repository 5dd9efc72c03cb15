package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lender-ledger/internal/domain/user"
	"lender-ledger/internal/infrastructure/monitoring"
	"lender-ledger/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

type UserRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository(db DBPool, logger *slog.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger.With("component", "UserRepository")}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) (err error) {
	defer monitoring.ObserveDBQuery("CreateUser", time.Now(), &err)

	query := `
        INSERT INTO users (id, name, email, password_hash, created_at)
        VALUES ($1, $2, $3, $4, $5)`

	if _, err = r.db.Exec(ctx, query, u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt); err != nil {
		translated := translateDBError(err, r.logger)
		if errors.Is(translated, apperrors.ErrAlreadyExists) {
			return user.ErrEmailTaken
		}
		r.logger.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		return translated
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (u *user.User, err error) {
	defer monitoring.ObserveDBQuery("GetUserByEmail", time.Now(), &err)

	query := `SELECT id, name, email, password_hash, created_at FROM users WHERE email = $1`

	var found user.User
	err = r.db.QueryRow(ctx, query, email).Scan(&found.ID, &found.Name, &found.Email, &found.PasswordHash, &found.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query user", slog.Any("error", err))
		return nil, translateDBError(err, r.logger)
	}
	return &found, nil
}
