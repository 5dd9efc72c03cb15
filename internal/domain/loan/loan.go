package loan

import (
	"fmt"
	"time"

	"lender-ledger/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusPaid, StatusOverdue:
		return Status(s), nil
	}
	return "", apperrors.NewValidationError("status", fmt.Sprintf("unknown loan status %q", s))
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// Paid is terminal and overdue never returns to pending.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusOverdue || next == StatusPaid
	case StatusOverdue:
		return next == StatusPaid
	}
	return false
}

type Repayment struct {
	ID     uuid.UUID       `json:"id"`
	LoanID uuid.UUID       `json:"-"`
	Amount decimal.Decimal `json:"amount"`
	PaidAt time.Time       `json:"paidAt"`
}

type Loan struct {
	ID         uuid.UUID
	TenantID   string
	CustomerID uuid.UUID
	Amount     decimal.Decimal
	DueDate    time.Time
	Status     Status
	Repayments []Repayment
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Populated on reads from the owning customer, never persisted on the loan.
	CustomerName  string
	CustomerPhone string
}

func NewLoan(tenantID string, customerID uuid.UUID, amount decimal.Decimal, dueDate time.Time) (*Loan, error) {
	if !amount.IsPositive() {
		return nil, apperrors.NewValidationError("amount", "must be greater than zero")
	}
	if dueDate.IsZero() {
		return nil, apperrors.NewValidationError("dueDate", "is required")
	}
	now := time.Now().UTC()
	return &Loan{
		ID:         uuid.New(),
		TenantID:   tenantID,
		CustomerID: customerID,
		Amount:     amount,
		DueDate:    dueDate.UTC(),
		Status:     StatusPending,
		Repayments: []Repayment{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (l *Loan) TotalRepaid() decimal.Decimal {
	total := decimal.Zero
	for _, r := range l.Repayments {
		total = total.Add(r.Amount)
	}
	return total
}

func (l *Loan) Remaining() decimal.Decimal {
	return l.Amount.Sub(l.TotalRepaid())
}

// ApplyRepayment appends a repayment paid at the given time. An amount above
// the remaining balance leaves the loan untouched and returns an
// OverpaymentError carrying that balance.
func (l *Loan) ApplyRepayment(amount decimal.Decimal, paidAt time.Time) (Repayment, error) {
	if !amount.IsPositive() {
		return Repayment{}, apperrors.NewValidationError("amount", "must be greater than zero")
	}

	remaining := l.Remaining()
	if amount.GreaterThan(remaining) {
		return Repayment{}, apperrors.NewOverpaymentError(remaining)
	}

	r := Repayment{
		ID:     uuid.New(),
		LoanID: l.ID,
		Amount: amount,
		PaidAt: paidAt.UTC(),
	}
	l.Repayments = append(l.Repayments, r)
	if amount.Equal(remaining) {
		l.Status = StatusPaid
	}
	l.UpdatedAt = paidAt.UTC()
	return r, nil
}

// Settle records the outstanding balance as a final repayment so the loan is
// paid and the ledger still sums to the principal. It returns false when the
// loan was already paid.
func (l *Loan) Settle(paidAt time.Time) (Repayment, bool) {
	if l.Status == StatusPaid {
		return Repayment{}, false
	}
	r, err := l.ApplyRepayment(l.Remaining(), paidAt)
	if err != nil {
		return Repayment{}, false
	}
	return r, true
}

// Clone returns a deep copy so callers never share the repayments slice.
func (l *Loan) Clone() *Loan {
	c := *l
	c.Repayments = append([]Repayment(nil), l.Repayments...)
	if c.Repayments == nil {
		c.Repayments = []Repayment{}
	}
	return &c
}
