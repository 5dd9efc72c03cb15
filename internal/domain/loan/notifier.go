package loan

import "context"

// Notifier receives ledger events after they are committed. Implementations
// must not block the caller and must not report delivery failures back.
type Notifier interface {
	RepaymentRecorded(ctx context.Context, l *Loan, r Repayment)
	LoanOverdue(ctx context.Context, l *Loan)
}

type NopNotifier struct{}

func (NopNotifier) RepaymentRecorded(context.Context, *Loan, Repayment) {}

func (NopNotifier) LoanOverdue(context.Context, *Loan) {}
