package dto

import (
	"fmt"
	"strings"
	"time"

	"lender-ledger/internal/domain/loan"
	"lender-ledger/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type CreateLoanRequest struct {
	CustomerID string          `json:"customerId" validate:"required,uuid"`
	Amount     decimal.Decimal `json:"amount" validate:"required,gt=0"`
	DueDate    string          `json:"dueDate" validate:"required"`
}

func (r *CreateLoanRequest) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	if _, err := r.ParsedDueDate(); err != nil {
		return err
	}
	return nil
}

func (r *CreateLoanRequest) ParsedCustomerID() (uuid.UUID, error) {
	id, err := uuid.Parse(r.CustomerID)
	if err != nil {
		return uuid.Nil, apperrors.NewValidationError("customerId", "must be a valid id")
	}
	return id, nil
}

// ParsedDueDate accepts RFC 3339 timestamps and plain dates; a plain date
// means midnight UTC.
func (r *CreateLoanRequest) ParsedDueDate() (time.Time, error) {
	s := strings.TrimSpace(r.DueDate)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, apperrors.NewValidationError("dueDate", fmt.Sprintf("invalid date %q (use YYYY-MM-DD or RFC 3339)", r.DueDate))
}

type RepaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

func (r *RepaymentRequest) Validate() error {
	if err := validateStruct(r); err != nil {
		return apperrors.NewValidationError("amount", "Amount must be positive")
	}
	return nil
}

type CustomerRef struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// FormatMoney renders an exact amount with two decimal places.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type RepaymentResponse struct {
	ID     string    `json:"id"`
	Amount string    `json:"amount"`
	Date   time.Time `json:"date"`
}

type LoanResponse struct {
	ID          string              `json:"id"`
	Customer    CustomerRef         `json:"customer"`
	Amount      string              `json:"amount"`
	DueDate     time.Time           `json:"dueDate"`
	Status      string              `json:"status"`
	Repayments  []RepaymentResponse `json:"repayments"`
	TotalRepaid string              `json:"totalRepaid"`
	Remaining   string              `json:"remaining"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

func NewLoanResponse(l *loan.Loan) LoanResponse {
	if l == nil {
		return LoanResponse{}
	}
	repayments := make([]RepaymentResponse, len(l.Repayments))
	for i, r := range l.Repayments {
		repayments[i] = RepaymentResponse{ID: r.ID.String(), Amount: FormatMoney(r.Amount), Date: r.PaidAt}
	}
	return LoanResponse{
		ID:          l.ID.String(),
		Customer:    CustomerRef{ID: l.CustomerID.String(), Name: l.CustomerName, Phone: l.CustomerPhone},
		Amount:      FormatMoney(l.Amount),
		DueDate:     l.DueDate,
		Status:      string(l.Status),
		Repayments:  repayments,
		TotalRepaid: FormatMoney(l.TotalRepaid()),
		Remaining:   FormatMoney(l.Remaining()),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func NewLoanListResponse(loans []*loan.Loan) []LoanResponse {
	resp := make([]LoanResponse, len(loans))
	for i, l := range loans {
		resp[i] = NewLoanResponse(l)
	}
	return resp
}

type LoanEnvelope struct {
	Message string       `json:"message"`
	Loan    LoanResponse `json:"loan"`
}

type LoansResponse struct {
	Loans []LoanResponse `json:"loans"`
}

type OverdueLoansResponse struct {
	OverdueLoans []LoanResponse `json:"overdueLoans"`
}

type RepaymentResultResponse struct {
	Message   string       `json:"message"`
	Remaining string       `json:"remaining"`
	Loan      LoanResponse `json:"loan"`
	Receipt   string       `json:"receipt,omitempty"`
}

type SummaryResponse struct {
	TotalLoaned            string  `json:"totalLoaned"`
	TotalCollected         string  `json:"totalCollected"`
	OverdueAmount          string  `json:"overdueAmount"`
	AvgRepaymentTimeInDays float64 `json:"avgRepaymentTimeInDays"`
}

func NewSummaryResponse(s loan.Summary) SummaryResponse {
	return SummaryResponse{
		TotalLoaned:            FormatMoney(s.TotalLoaned),
		TotalCollected:         FormatMoney(s.TotalCollected),
		OverdueAmount:          FormatMoney(s.OverdueAmount),
		AvgRepaymentTimeInDays: s.AvgRepaymentTimeInDays,
	}
}

type ErrorDetail struct {
	Message   string   `json:"message"`
	Field     string   `json:"field,omitempty"`
	Remaining *string `json:"remaining,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
