package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"lender-ledger/internal/domain/customer"
	"lender-ledger/internal/infrastructure/monitoring"
	"lender-ledger/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RepaymentResult struct {
	Loan      *Loan
	Repayment Repayment
	Remaining decimal.Decimal
}

type SweepResult struct {
	Tenants      int
	Transitioned int
}

type Service interface {
	CreateLoan(ctx context.Context, tenantID string, customerID uuid.UUID, amount decimal.Decimal, dueDate time.Time) (*Loan, error)

	GetLoan(ctx context.Context, tenantID string, loanID uuid.UUID) (*Loan, error)

	ListLoans(ctx context.Context, tenantID string, status *Status) ([]*Loan, error)

	ListOverdue(ctx context.Context, tenantID string) ([]*Loan, error)

	Summary(ctx context.Context, tenantID string) (Summary, error)

	ApplyRepayment(ctx context.Context, tenantID string, loanID uuid.UUID, amount decimal.Decimal) (*RepaymentResult, error)

	MarkPaid(ctx context.Context, tenantID string, loanID uuid.UUID) (*Loan, error)

	RefreshOverdue(ctx context.Context, tenantID string, notify bool) ([]*Loan, error)

	SweepOverdue(ctx context.Context) (SweepResult, error)
}

var _ Service = (*loanService)(nil)

type loanService struct {
	repo      Repository
	customers customer.Service
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
}

func NewLoanService(repo Repository, customers customer.Service, notifier Notifier, logger *slog.Logger) Service {
	if repo == nil {
		panic("loan repository cannot be nil")
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return &loanService{
		repo:      repo,
		customers: customers,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "loanService")),
		now:       time.Now,
	}
}

func (s *loanService) CreateLoan(ctx context.Context, tenantID string, customerID uuid.UUID, amount decimal.Decimal, dueDate time.Time) (*Loan, error) {
	log := s.logger.With(slog.String("tenantID", tenantID), slog.String("customerID", customerID.String()))
	log.InfoContext(ctx, "Creating new loan")

	cust, err := s.customers.GetCustomer(ctx, tenantID, customerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.WarnContext(ctx, "Customer not found under tenant")
			return nil, fmt.Errorf("%w: customer %s", apperrors.ErrNotFound, customerID)
		}
		log.ErrorContext(ctx, "Failed to verify customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to verify customer: %w", err)
	}

	l, err := NewLoan(tenantID, cust.ID, amount, dueDate)
	if err != nil {
		log.WarnContext(ctx, "Loan validation failed", slog.Any("error", err))
		return nil, err
	}
	l.CustomerName = cust.Name
	l.CustomerPhone = cust.Phone

	if err := s.repo.Create(ctx, l); err != nil {
		log.ErrorContext(ctx, "Failed to save loan", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save loan: %w", err)
	}

	log.InfoContext(ctx, "Loan created successfully", slog.String("loanID", l.ID.String()), slog.String("amount", l.Amount.String()))
	return l, nil
}

func (s *loanService) GetLoan(ctx context.Context, tenantID string, loanID uuid.UUID) (*Loan, error) {
	l, err := s.repo.Get(ctx, tenantID, loanID)
	if err != nil {
		return nil, s.lookupError(ctx, loanID, err)
	}

	now := s.now()
	if l.Status != StatusPending || !IsPastDue(l, now) {
		return l, nil
	}

	moved := false
	updated, err := s.repo.Update(ctx, tenantID, loanID, func(cur *Loan) error {
		moved = Evaluate(cur, now)
		return nil
	})
	if err != nil {
		return nil, s.lookupError(ctx, loanID, err)
	}
	if moved {
		monitoring.RecordOverdueTransitions(1)
	}
	return updated, nil
}

func (s *loanService) ListLoans(ctx context.Context, tenantID string, status *Status) ([]*Loan, error) {
	if _, err := s.RefreshOverdue(ctx, tenantID, false); err != nil {
		return nil, err
	}

	loans, err := s.repo.List(ctx, tenantID, Filter{Status: status})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list loans", slog.String("tenantID", tenantID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}

func (s *loanService) ListOverdue(ctx context.Context, tenantID string) ([]*Loan, error) {
	if _, err := s.RefreshOverdue(ctx, tenantID, true); err != nil {
		return nil, err
	}

	overdue := StatusOverdue
	loans, err := s.repo.List(ctx, tenantID, Filter{Status: &overdue})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list overdue loans", slog.String("tenantID", tenantID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to list overdue loans: %w", err)
	}
	return loans, nil
}

func (s *loanService) Summary(ctx context.Context, tenantID string) (Summary, error) {
	if _, err := s.RefreshOverdue(ctx, tenantID, false); err != nil {
		return Summary{}, err
	}

	loans, err := s.repo.List(ctx, tenantID, Filter{})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load loans for summary", slog.String("tenantID", tenantID), slog.Any("error", err))
		return Summary{}, fmt.Errorf("failed to load loans for summary: %w", err)
	}
	return Summarize(loans, s.now()), nil
}

func (s *loanService) ApplyRepayment(ctx context.Context, tenantID string, loanID uuid.UUID, amount decimal.Decimal) (result *RepaymentResult, err error) {
	log := s.logger.With(slog.String("tenantID", tenantID), slog.String("loanID", loanID.String()), slog.String("amount", amount.String()))
	log.InfoContext(ctx, "Applying repayment")

	defer func() {
		monitoring.RecordRepayment(repaymentOutcome(err), amount.InexactFloat64())
	}()

	if !amount.IsPositive() {
		log.WarnContext(ctx, "Rejected non-positive repayment")
		return nil, apperrors.NewValidationError("amount", "must be greater than zero")
	}

	now := s.now()
	var rep Repayment
	var becameOverdue bool
	updated, err := s.repo.Update(ctx, tenantID, loanID, func(l *Loan) error {
		r, applyErr := l.ApplyRepayment(amount, now)
		if applyErr != nil {
			return applyErr
		}
		rep = r
		becameOverdue = Evaluate(l, now)
		return nil
	})
	if err != nil {
		var overpayment *apperrors.OverpaymentError
		if errors.As(err, &overpayment) {
			log.WarnContext(ctx, "Repayment exceeds remaining balance", slog.String("remaining", overpayment.Remaining.String()))
			return nil, err
		}
		return nil, s.lookupError(ctx, loanID, err)
	}

	s.notifier.RepaymentRecorded(ctx, updated, rep)
	if becameOverdue {
		monitoring.RecordOverdueTransitions(1)
		s.notifier.LoanOverdue(ctx, updated)
	}

	remaining := updated.Remaining()
	log.InfoContext(ctx, "Repayment recorded", slog.String("remaining", remaining.String()), slog.String("status", string(updated.Status)))
	return &RepaymentResult{Loan: updated, Repayment: rep, Remaining: remaining}, nil
}

func (s *loanService) MarkPaid(ctx context.Context, tenantID string, loanID uuid.UUID) (*Loan, error) {
	log := s.logger.With(slog.String("tenantID", tenantID), slog.String("loanID", loanID.String()))

	now := s.now()
	var rep Repayment
	var settled bool
	updated, err := s.repo.Update(ctx, tenantID, loanID, func(l *Loan) error {
		rep, settled = l.Settle(now)
		return nil
	})
	if err != nil {
		return nil, s.lookupError(ctx, loanID, err)
	}

	if settled {
		log.InfoContext(ctx, "Loan settled", slog.String("settledAmount", rep.Amount.String()))
		s.notifier.RepaymentRecorded(ctx, updated, rep)
	} else {
		log.InfoContext(ctx, "Loan already paid, nothing to settle")
	}
	return updated, nil
}

// RefreshOverdue applies Evaluate to every pending loan of the tenant whose
// due date has passed and returns the loans that moved to overdue. Reminders
// are dispatched for them only when notify is set.
func (s *loanService) RefreshOverdue(ctx context.Context, tenantID string, notify bool) ([]*Loan, error) {
	now := s.now()
	pending := StatusPending
	candidates, err := s.repo.List(ctx, tenantID, Filter{Status: &pending, DueBefore: &now})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list overdue candidates", slog.String("tenantID", tenantID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to list overdue candidates: %w", err)
	}

	transitioned := make([]*Loan, 0, len(candidates))
	for _, c := range candidates {
		moved := false
		updated, err := s.repo.Update(ctx, tenantID, c.ID, func(l *Loan) error {
			moved = Evaluate(l, now)
			return nil
		})
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			s.logger.ErrorContext(ctx, "Failed to mark loan overdue", slog.String("loanID", c.ID.String()), slog.Any("error", err))
			return transitioned, fmt.Errorf("failed to mark loan %s overdue: %w", c.ID, err)
		}
		if !moved {
			continue
		}
		transitioned = append(transitioned, updated)
		if notify {
			s.notifier.LoanOverdue(ctx, updated)
		}
	}

	monitoring.RecordOverdueTransitions(len(transitioned))
	if len(transitioned) > 0 {
		s.logger.InfoContext(ctx, "Loans moved to overdue",
			slog.String("tenantID", tenantID), slog.Int("count", len(transitioned)), slog.Bool("notify", notify))
	}
	return transitioned, nil
}

func (s *loanService) SweepOverdue(ctx context.Context) (SweepResult, error) {
	tenants, err := s.repo.ListTenantsWithPastDue(ctx, s.now())
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to list tenants with past-due loans: %w", err)
	}

	result := SweepResult{Tenants: len(tenants)}
	var errs []error
	for _, tenantID := range tenants {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		moved, err := s.RefreshOverdue(ctx, tenantID, true)
		result.Transitioned += len(moved)
		if err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", tenantID, err))
		}
	}
	return result, errors.Join(errs...)
}

func (s *loanService) lookupError(ctx context.Context, loanID uuid.UUID, err error) error {
	if errors.Is(err, ErrNotFound) {
		s.logger.WarnContext(ctx, "Loan not found", slog.String("loanID", loanID.String()))
		return ErrNotFound
	}
	s.logger.ErrorContext(ctx, "Loan repository error", slog.String("loanID", loanID.String()), slog.Any("error", err))
	return fmt.Errorf("loan %s: %w", loanID, err)
}

func repaymentOutcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, apperrors.ErrOverpayment):
		return "overpayment"
	case errors.Is(err, apperrors.ErrValidation):
		return "invalid"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrConflict):
		return "conflict"
	}
	return "error"
}
