package memory

import (
	"sync"

	"lender-ledger/internal/domain/customer"
	"lender-ledger/internal/domain/loan"
	"lender-ledger/internal/domain/user"

	"github.com/google/uuid"
)

// Store keeps the ledger in process memory. mu guards the maps; loanLocks
// serialize read-modify-write on a single loan so that concurrent repayments
// against the same loan are applied one after another.
type Store struct {
	mu        sync.RWMutex
	customers map[uuid.UUID]*customer.Customer
	loans     map[uuid.UUID]*loan.Loan
	users     map[uuid.UUID]*user.User
	loanLocks map[uuid.UUID]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		customers: make(map[uuid.UUID]*customer.Customer),
		loans:     make(map[uuid.UUID]*loan.Loan),
		users:     make(map[uuid.UUID]*user.User),
		loanLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *Store) Customers() customer.Repository {
	return &CustomerRepository{store: s}
}

func (s *Store) Loans() loan.Repository {
	return &LoanRepository{store: s}
}

func (s *Store) Users() user.Repository {
	return &UserRepository{store: s}
}

func (s *Store) loanLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.loanLocks[id]
	if !ok {
		m = &sync.Mutex{}
		s.loanLocks[id] = m
	}
	return m
}

// withCustomer returns a copy of l carrying the owning customer's contact
// details. Callers hold s.mu.
func (s *Store) withCustomer(l *loan.Loan) *loan.Loan {
	c := l.Clone()
	if cust, ok := s.customers[l.CustomerID]; ok && cust.TenantID == l.TenantID {
		c.CustomerName = cust.Name
		c.CustomerPhone = cust.Phone
	}
	return c
}
