package memory

import (
	"context"
	"sort"
	"time"

	"lender-ledger/internal/domain/customer"
	"lender-ledger/internal/domain/loan"

	"github.com/google/uuid"
)

type LoanRepository struct {
	store *Store
}

var _ loan.Repository = (*LoanRepository)(nil)

func (r *LoanRepository) Create(_ context.Context, l *loan.Loan) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	c, ok := r.store.customers[l.CustomerID]
	if !ok || c.TenantID != l.TenantID {
		return customer.ErrNotFound
	}
	stored := l.Clone()
	stored.CustomerName, stored.CustomerPhone = "", ""
	r.store.loans[l.ID] = stored
	return nil
}

func (r *LoanRepository) Get(_ context.Context, tenantID string, id uuid.UUID) (*loan.Loan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	l, ok := r.store.loans[id]
	if !ok || l.TenantID != tenantID {
		return nil, loan.ErrNotFound
	}
	return r.store.withCustomer(l), nil
}

func (r *LoanRepository) List(_ context.Context, tenantID string, filter loan.Filter) ([]*loan.Loan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*loan.Loan, 0)
	for _, l := range r.store.loans {
		if l.TenantID == tenantID && filter.Matches(l) {
			out = append(out, r.store.withCustomer(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *LoanRepository) Update(_ context.Context, tenantID string, id uuid.UUID, fn loan.UpdateFunc) (*loan.Loan, error) {
	lock := r.store.loanLock(id)
	lock.Lock()
	defer lock.Unlock()

	r.store.mu.RLock()
	current, ok := r.store.loans[id]
	if !ok || current.TenantID != tenantID {
		r.store.mu.RUnlock()
		return nil, loan.ErrNotFound
	}
	working := r.store.withCustomer(current)
	r.store.mu.RUnlock()

	before := working.Status
	repayments := len(working.Repayments)
	if err := fn(working); err != nil {
		return nil, err
	}
	if working.Status == before && len(working.Repayments) == repayments {
		return working, nil
	}

	working.Version++
	stored := working.Clone()
	stored.CustomerName, stored.CustomerPhone = "", ""

	r.store.mu.Lock()
	r.store.loans[id] = stored
	r.store.mu.Unlock()

	return working, nil
}

func (r *LoanRepository) ListTenantsWithPastDue(_ context.Context, now time.Time) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	seen := make(map[string]struct{})
	tenants := make([]string, 0)
	for _, l := range r.store.loans {
		if l.Status != loan.StatusPending || !l.DueDate.Before(now) {
			continue
		}
		if _, ok := seen[l.TenantID]; ok {
			continue
		}
		seen[l.TenantID] = struct{}{}
		tenants = append(tenants, l.TenantID)
	}
	sort.Strings(tenants)
	return tenants, nil
}
