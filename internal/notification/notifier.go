package notification

import (
	"context"
	"log/slog"

	"lender-ledger/internal/domain/loan"
	"lender-ledger/internal/event"
)

const (
	KindReminder = "reminder"
	KindReceipt  = "receipt"
	KindWebhook  = "webhook"
	KindEvent    = "event"
)

type Submitter interface {
	Submit(task Task) bool
}

type ReceiptIssuer interface {
	Issue(ctx context.Context, l *loan.Loan, r loan.Repayment) (string, error)
}

type WebhookPoster interface {
	PostRepayment(ctx context.Context, payload event.RepaymentWebhook) error
}

// LedgerNotifier turns ledger changes into background tasks. Optional
// collaborators left nil are skipped.
type LedgerNotifier struct {
	submitter Submitter
	sink      Sink
	channel   Channel
	receipts  ReceiptIssuer
	webhook   WebhookPoster
	events    event.EventPublisher
	logger    *slog.Logger
}

var _ loan.Notifier = (*LedgerNotifier)(nil)

type LedgerNotifierOption func(*LedgerNotifier)

func WithReceipts(r ReceiptIssuer) LedgerNotifierOption {
	return func(n *LedgerNotifier) { n.receipts = r }
}

func WithWebhook(w WebhookPoster) LedgerNotifierOption {
	return func(n *LedgerNotifier) { n.webhook = w }
}

func WithEvents(p event.EventPublisher) LedgerNotifierOption {
	return func(n *LedgerNotifier) { n.events = p }
}

func NewLedgerNotifier(submitter Submitter, sink Sink, channel Channel, logger *slog.Logger, opts ...LedgerNotifierOption) *LedgerNotifier {
	if submitter == nil || sink == nil {
		panic("LedgerNotifier dependencies cannot be nil")
	}
	n := &LedgerNotifier{
		submitter: submitter,
		sink:      sink,
		channel:   channel,
		logger:    logger.With("component", "LedgerNotifier"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *LedgerNotifier) RepaymentRecorded(ctx context.Context, l *loan.Loan, r loan.Repayment) {
	snapshot := l.Clone()
	repID := r.ID.String()

	if n.receipts != nil {
		n.submit(ctx, Task{
			Kind: KindReceipt,
			Key:  "receipt:" + repID,
			Run: func(ctx context.Context) error {
				location, err := n.receipts.Issue(ctx, snapshot, r)
				if err != nil {
					return err
				}
				n.logger.InfoContext(ctx, "Receipt issued", slog.String("repaymentID", repID), slog.String("location", location))
				return nil
			},
		})
	}

	if n.webhook != nil {
		payload := event.NewRepaymentWebhook(snapshot, r)
		n.submit(ctx, Task{
			Kind: KindWebhook,
			Key:  "webhook:repayment:" + repID,
			Run: func(ctx context.Context) error {
				return n.webhook.PostRepayment(ctx, payload)
			},
		})
	}

	if n.events != nil {
		evt := event.NewRepaymentRecordedEvent(snapshot, r)
		n.submit(ctx, Task{
			Kind: KindEvent,
			Key:  "event:repayment:" + repID,
			Run: func(ctx context.Context) error {
				return n.events.PublishRepaymentRecorded(ctx, evt)
			},
		})
	}
}

func (n *LedgerNotifier) LoanOverdue(ctx context.Context, l *loan.Loan) {
	snapshot := l.Clone()
	loanID := snapshot.ID.String()

	if snapshot.CustomerPhone == "" {
		n.logger.WarnContext(ctx, "Skipping overdue reminder, customer has no phone", slog.String("loanID", loanID))
	} else {
		message := loan.ReminderMessage(snapshot)
		n.submit(ctx, Task{
			Kind: KindReminder,
			Key:  "reminder:overdue:" + loanID,
			Run: func(ctx context.Context) error {
				id, err := n.sink.Send(ctx, n.channel, snapshot.CustomerPhone, message)
				if err != nil {
					return err
				}
				n.logger.InfoContext(ctx, "Overdue reminder sent",
					slog.String("loanID", loanID), slog.String("channel", string(n.channel)), slog.String("deliveryID", id))
				return nil
			},
		})
	}

	if n.events != nil {
		evt := event.NewLoanOverdueEvent(snapshot)
		n.submit(ctx, Task{
			Kind: KindEvent,
			Key:  "event:overdue:" + loanID,
			Run: func(ctx context.Context) error {
				return n.events.PublishLoanOverdue(ctx, evt)
			},
		})
	}
}

func (n *LedgerNotifier) submit(ctx context.Context, task Task) {
	if !n.submitter.Submit(task) {
		n.logger.WarnContext(ctx, "Side effect not queued", slog.String("kind", task.Kind), slog.String("key", task.Key))
	}
}
