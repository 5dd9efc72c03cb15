package memory

import (
	"context"
	"sort"

	"lender-ledger/internal/domain/customer"

	"github.com/google/uuid"
)

type CustomerRepository struct {
	store *Store
}

var _ customer.Repository = (*CustomerRepository)(nil)

func (r *CustomerRepository) Create(_ context.Context, c *customer.Customer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cp := *c
	r.store.customers[c.ID] = &cp
	return nil
}

func (r *CustomerRepository) Get(_ context.Context, tenantID string, id uuid.UUID) (*customer.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	c, ok := r.store.customers[id]
	if !ok || c.TenantID != tenantID {
		return nil, customer.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *CustomerRepository) List(_ context.Context, tenantID string) ([]*customer.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*customer.Customer, 0)
	for _, c := range r.store.customers {
		if c.TenantID == tenantID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *CustomerRepository) Update(_ context.Context, c *customer.Customer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.customers[c.ID]
	if !ok || existing.TenantID != c.TenantID {
		return customer.ErrNotFound
	}
	cp := *c
	cp.CreatedAt = existing.CreatedAt
	r.store.customers[c.ID] = &cp
	return nil
}

func (r *CustomerRepository) Delete(_ context.Context, tenantID string, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	c, ok := r.store.customers[id]
	if !ok || c.TenantID != tenantID {
		return customer.ErrNotFound
	}
	for _, l := range r.store.loans {
		if l.CustomerID == id {
			return customer.ErrHasLoans
		}
	}
	delete(r.store.customers, id)
	return nil
}
