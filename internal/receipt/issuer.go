package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lender-ledger/internal/domain/loan"
)

// Issuer renders a receipt for a repayment and stores it. The storage key
// depends only on the loan and the repayment, so the location is known
// before the background upload finishes.
type Issuer struct {
	storage Storage
	logger  *slog.Logger
	now     func() time.Time
}

func NewIssuer(storage Storage, logger *slog.Logger) *Issuer {
	return &Issuer{
		storage: storage,
		logger:  logger.With("component", "ReceiptIssuer"),
		now:     time.Now,
	}
}

func Key(l *loan.Loan, r loan.Repayment) string {
	return fmt.Sprintf("%s/receipt_%s_%s.pdf", l.TenantID, l.ID, r.ID)
}

func (i *Issuer) Location(l *loan.Loan, r loan.Repayment) string {
	return i.storage.Location(Key(l, r))
}

func (i *Issuer) Issue(ctx context.Context, l *loan.Loan, r loan.Repayment) (string, error) {
	doc, err := Render(l, r, i.now())
	if err != nil {
		return "", err
	}
	key := Key(l, r)
	if err := i.storage.Put(ctx, key, doc); err != nil {
		i.logger.ErrorContext(ctx, "Failed to store receipt", slog.String("key", key), slog.Any("error", err))
		return "", err
	}
	return i.storage.Location(key), nil
}
