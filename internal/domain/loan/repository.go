package loan

import (
	"context"
	"fmt"
	"time"

	"lender-ledger/internal/pkg/apperrors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = fmt.Errorf("loan %w", apperrors.ErrNotFound)

	ErrVersionConflict = fmt.Errorf("loan was modified concurrently: %w", apperrors.ErrConflict)
)

// Filter narrows a tenant's loan listing. Nil fields are ignored.
type Filter struct {
	Status    *Status
	DueBefore *time.Time
}

func (f Filter) Matches(l *Loan) bool {
	if f.Status != nil && l.Status != *f.Status {
		return false
	}
	if f.DueBefore != nil && !l.DueDate.Before(*f.DueBefore) {
		return false
	}
	return true
}

// UpdateFunc mutates a loan inside Repository.Update. Returning an error
// aborts the update and leaves the stored loan untouched.
type UpdateFunc func(l *Loan) error

type Repository interface {
	Create(ctx context.Context, l *Loan) error

	Get(ctx context.Context, tenantID string, id uuid.UUID) (*Loan, error)

	List(ctx context.Context, tenantID string, filter Filter) ([]*Loan, error)

	// Update serializes read-modify-write on one loan. fn sees the latest
	// committed state; new repayments and a changed status are persisted
	// atomically with a version bump.
	Update(ctx context.Context, tenantID string, id uuid.UUID, fn UpdateFunc) (*Loan, error)

	ListTenantsWithPastDue(ctx context.Context, now time.Time) ([]string, error)
}
