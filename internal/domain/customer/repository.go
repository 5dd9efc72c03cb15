package customer

import (
	"context"
	"fmt"

	"lender-ledger/internal/pkg/apperrors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = fmt.Errorf("customer %w", apperrors.ErrNotFound)

	ErrHasLoans = fmt.Errorf("customer still has loans: %w", apperrors.ErrConflict)
)

// Repository is tenant scoped: a customer owned by another tenant is
// reported as ErrNotFound.
type Repository interface {
	Create(ctx context.Context, c *Customer) error

	Get(ctx context.Context, tenantID string, id uuid.UUID) (*Customer, error)

	List(ctx context.Context, tenantID string) ([]*Customer, error)

	Update(ctx context.Context, c *Customer) error

	// Delete fails with ErrHasLoans while any loan references the customer.
	Delete(ctx context.Context, tenantID string, id uuid.UUID) error
}
