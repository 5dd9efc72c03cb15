package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"lender-ledger/internal/domain/loan"
	"lender-ledger/internal/event"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSubmitter struct {
	tasks  []Task
	reject bool
}

func (c *captureSubmitter) Submit(task Task) bool {
	if c.reject {
		return false
	}
	c.tasks = append(c.tasks, task)
	return true
}

func (c *captureSubmitter) keys() []string {
	keys := make([]string, len(c.tasks))
	for i, t := range c.tasks {
		keys[i] = t.Key
	}
	return keys
}

func (c *captureSubmitter) runAll(t *testing.T) []error {
	t.Helper()
	errs := make([]error, len(c.tasks))
	for i, task := range c.tasks {
		errs[i] = task.Run(context.Background())
	}
	return errs
}

type recordingSink struct {
	channel   Channel
	recipient string
	message   string
	err       error
}

func (s *recordingSink) Send(_ context.Context, channel Channel, recipient, message string) (string, error) {
	s.channel, s.recipient, s.message = channel, recipient, message
	return "sms-1", s.err
}

type recordingReceipts struct {
	issued []uuid.UUID
}

func (r *recordingReceipts) Issue(_ context.Context, _ *loan.Loan, rep loan.Repayment) (string, error) {
	r.issued = append(r.issued, rep.ID)
	return "receipts/" + rep.ID.String() + ".pdf", nil
}

type recordingWebhook struct {
	payloads []event.RepaymentWebhook
}

func (w *recordingWebhook) PostRepayment(_ context.Context, p event.RepaymentWebhook) error {
	w.payloads = append(w.payloads, p)
	return nil
}

type recordingEvents struct {
	repayments []event.RepaymentRecordedEvent
	overdue    []event.LoanOverdueEvent
}

func (e *recordingEvents) PublishRepaymentRecorded(_ context.Context, evt event.RepaymentRecordedEvent) error {
	e.repayments = append(e.repayments, evt)
	return nil
}

func (e *recordingEvents) PublishLoanOverdue(_ context.Context, evt event.LoanOverdueEvent) error {
	e.overdue = append(e.overdue, evt)
	return nil
}

func overdueLoan() *loan.Loan {
	return &loan.Loan{
		ID:            uuid.New(),
		TenantID:      "tenant-1",
		CustomerID:    uuid.New(),
		Amount:        decimal.NewFromInt(1000),
		DueDate:       time.Now().Add(-24 * time.Hour),
		Status:        loan.StatusOverdue,
		Repayments:    []loan.Repayment{},
		CustomerName:  "Asha",
		CustomerPhone: "9876543210",
	}
}

func TestLedgerNotifier_LoanOverdue(t *testing.T) {
	t.Run("Queues reminder and event", func(t *testing.T) {
		sub := &captureSubmitter{}
		sink := &recordingSink{}
		events := &recordingEvents{}
		n := NewLedgerNotifier(sub, sink, ChannelWhatsApp, testLogger, WithEvents(events))
		l := overdueLoan()

		n.LoanOverdue(context.Background(), l)

		require.Equal(t, []string{"reminder:overdue:" + l.ID.String(), "event:overdue:" + l.ID.String()}, sub.keys())
		for _, err := range sub.runAll(t) {
			assert.NoError(t, err)
		}
		assert.Equal(t, ChannelWhatsApp, sink.channel)
		assert.Equal(t, "9876543210", sink.recipient)
		assert.Equal(t, "Dear Asha, your loan of 1000 is overdue. Please make a payment as soon as possible.", sink.message)
		require.Len(t, events.overdue, 1)
		assert.Equal(t, l.ID, events.overdue[0].LoanID)
	})

	t.Run("Skips reminder without phone", func(t *testing.T) {
		sub := &captureSubmitter{}
		n := NewLedgerNotifier(sub, &recordingSink{}, ChannelSMS, testLogger)
		l := overdueLoan()
		l.CustomerPhone = ""

		n.LoanOverdue(context.Background(), l)

		assert.Empty(t, sub.tasks)
	})

	t.Run("Sink failure surfaces from the task", func(t *testing.T) {
		sub := &captureSubmitter{}
		n := NewLedgerNotifier(sub, &recordingSink{err: errors.New("gateway down")}, ChannelSMS, testLogger)

		n.LoanOverdue(context.Background(), overdueLoan())

		errs := sub.runAll(t)
		require.Len(t, errs, 1)
		assert.EqualError(t, errs[0], "gateway down")
	})

	t.Run("Task sees a snapshot of the loan", func(t *testing.T) {
		sub := &captureSubmitter{}
		sink := &recordingSink{}
		n := NewLedgerNotifier(sub, sink, ChannelSMS, testLogger)
		l := overdueLoan()

		n.LoanOverdue(context.Background(), l)
		l.CustomerPhone = "0000000000"
		sub.runAll(t)

		assert.Equal(t, "9876543210", sink.recipient)
	})
}

func TestLedgerNotifier_RepaymentRecorded(t *testing.T) {
	sub := &captureSubmitter{}
	receipts := &recordingReceipts{}
	webhook := &recordingWebhook{}
	events := &recordingEvents{}
	n := NewLedgerNotifier(sub, &recordingSink{}, ChannelSMS, testLogger,
		WithReceipts(receipts), WithWebhook(webhook), WithEvents(events))

	l := overdueLoan()
	rep := loan.Repayment{ID: uuid.New(), LoanID: l.ID, Amount: decimal.NewFromInt(400), PaidAt: time.Now()}
	l.Repayments = append(l.Repayments, rep)

	n.RepaymentRecorded(context.Background(), l, rep)

	id := rep.ID.String()
	require.Equal(t, []string{"receipt:" + id, "webhook:repayment:" + id, "event:repayment:" + id}, sub.keys())
	for _, err := range sub.runAll(t) {
		assert.NoError(t, err)
	}

	assert.Equal(t, []uuid.UUID{rep.ID}, receipts.issued)
	require.Len(t, webhook.payloads, 1)
	assert.Equal(t, l.CustomerID, webhook.payloads[0].CustomerID)
	assert.True(t, webhook.payloads[0].Amount.Equal(decimal.NewFromInt(400)))
	assert.True(t, webhook.payloads[0].Remaining.Equal(decimal.NewFromInt(600)))
	require.Len(t, events.repayments, 1)
	assert.Equal(t, rep.ID, events.repayments[0].RepaymentID)
}

func TestLedgerNotifier_OptionalCollaborators(t *testing.T) {
	sub := &captureSubmitter{}
	n := NewLedgerNotifier(sub, &recordingSink{}, ChannelSMS, testLogger)
	l := overdueLoan()

	n.RepaymentRecorded(context.Background(), l, loan.Repayment{ID: uuid.New()})

	assert.Empty(t, sub.tasks)
}

func TestLedgerNotifier_RejectedSubmitDoesNotPanic(t *testing.T) {
	n := NewLedgerNotifier(&captureSubmitter{reject: true}, &recordingSink{}, ChannelSMS, testLogger)

	assert.NotPanics(t, func() { n.LoanOverdue(context.Background(), overdueLoan()) })
}

func TestLedgerNotifier_WithDispatcher(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{Workers: 1, QueueSize: 8, Timeout: time.Second}, NewMemoryGuard(time.Hour), testLogger)
	sink := &recordingSink{}
	n := NewLedgerNotifier(d, sink, ChannelSMS, testLogger)
	l := overdueLoan()

	// the second reminder for the same loan is suppressed by the guard
	n.LoanOverdue(context.Background(), l)
	n.LoanOverdue(context.Background(), l)

	d.Start(context.Background())
	require.NoError(t, d.Shutdown(context.Background()))

	assert.Equal(t, "9876543210", sink.recipient)
}
