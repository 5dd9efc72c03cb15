package event

import (
	"time"

	"lender-ledger/internal/domain/loan"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RepaymentRecordedEvent struct {
	TenantID    string          `json:"tenantId"`
	LoanID      uuid.UUID       `json:"loanId"`
	CustomerID  uuid.UUID       `json:"customerId"`
	RepaymentID uuid.UUID       `json:"repaymentId"`
	Amount      decimal.Decimal `json:"amount"`
	Remaining   decimal.Decimal `json:"remaining"`
	Status      loan.Status     `json:"status"`
	PaidAt      time.Time       `json:"paidAt"`
	Timestamp   time.Time       `json:"timestamp"`
}

type LoanOverdueEvent struct {
	TenantID   string          `json:"tenantId"`
	LoanID     uuid.UUID       `json:"loanId"`
	CustomerID uuid.UUID       `json:"customerId"`
	Amount     decimal.Decimal `json:"amount"`
	Remaining  decimal.Decimal `json:"remaining"`
	DueDate    time.Time       `json:"dueDate"`
	Timestamp  time.Time       `json:"timestamp"`
}

func NewRepaymentRecordedEvent(l *loan.Loan, r loan.Repayment) RepaymentRecordedEvent {
	return RepaymentRecordedEvent{
		TenantID:    l.TenantID,
		LoanID:      l.ID,
		CustomerID:  l.CustomerID,
		RepaymentID: r.ID,
		Amount:      r.Amount,
		Remaining:   l.Remaining(),
		Status:      l.Status,
		PaidAt:      r.PaidAt,
		Timestamp:   time.Now().UTC(),
	}
}

func NewLoanOverdueEvent(l *loan.Loan) LoanOverdueEvent {
	return LoanOverdueEvent{
		TenantID:   l.TenantID,
		LoanID:     l.ID,
		CustomerID: l.CustomerID,
		Amount:     l.Amount,
		Remaining:  l.Remaining(),
		DueDate:    l.DueDate,
		Timestamp:  time.Now().UTC(),
	}
}

// RepaymentWebhook is the body posted to the configured repayment webhook.
type RepaymentWebhook struct {
	LoanID     uuid.UUID       `json:"loanId"`
	Amount     decimal.Decimal `json:"amount"`
	CustomerID uuid.UUID       `json:"customerId"`
	Remaining  decimal.Decimal `json:"remaining"`
	Status     loan.Status     `json:"status"`
}

func NewRepaymentWebhook(l *loan.Loan, r loan.Repayment) RepaymentWebhook {
	return RepaymentWebhook{
		LoanID:     l.ID,
		Amount:     r.Amount,
		CustomerID: l.CustomerID,
		Remaining:  l.Remaining(),
		Status:     l.Status,
	}
}
