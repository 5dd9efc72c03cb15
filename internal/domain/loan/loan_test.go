package loan

import (
	"errors"
	"testing"
	"time"

	"lender-ledger/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestLoan(t *testing.T, amount string, due time.Time) *Loan {
	t.Helper()
	l, err := NewLoan("tenant-1", uuid.New(), dec(amount), due)
	require.NoError(t, err)
	return l
}

func TestNewLoan(t *testing.T) {
	due := time.Now().Add(48 * time.Hour)
	l := newTestLoan(t, "1000", due)

	assert.Equal(t, StatusPending, l.Status)
	assert.Empty(t, l.Repayments)
	assert.True(t, l.Remaining().Equal(dec("1000")))
	assert.Equal(t, int64(0), l.Version)

	_, err := NewLoan("tenant-1", uuid.New(), dec("0"), due)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = NewLoan("tenant-1", uuid.New(), dec("-5"), due)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = NewLoan("tenant-1", uuid.New(), dec("10"), time.Time{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("overdue")
	require.NoError(t, err)
	assert.Equal(t, StatusOverdue, s)

	_, err = ParseStatus("settled")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusOverdue))
	assert.True(t, StatusPending.CanTransitionTo(StatusPaid))
	assert.True(t, StatusOverdue.CanTransitionTo(StatusPaid))
	assert.False(t, StatusOverdue.CanTransitionTo(StatusPending))
	assert.False(t, StatusPaid.CanTransitionTo(StatusPending))
	assert.False(t, StatusPaid.CanTransitionTo(StatusOverdue))
}

func TestApplyRepayment(t *testing.T) {
	now := time.Now()

	t.Run("partial repayment keeps loan pending", func(t *testing.T) {
		l := newTestLoan(t, "1000", now.Add(24*time.Hour))

		r, err := l.ApplyRepayment(dec("400"), now)

		require.NoError(t, err)
		assert.Equal(t, l.ID, r.LoanID)
		assert.Equal(t, StatusPending, l.Status)
		assert.Len(t, l.Repayments, 1)
		assert.True(t, l.Remaining().Equal(dec("600")))
	})

	t.Run("exact remaining marks loan paid", func(t *testing.T) {
		l := newTestLoan(t, "1000", now.Add(24*time.Hour))
		_, err := l.ApplyRepayment(dec("250.25"), now)
		require.NoError(t, err)

		_, err = l.ApplyRepayment(dec("749.75"), now)

		require.NoError(t, err)
		assert.Equal(t, StatusPaid, l.Status)
		assert.True(t, l.Remaining().IsZero())
	})

	t.Run("overpayment leaves loan unchanged", func(t *testing.T) {
		l := newTestLoan(t, "1000", now.Add(24*time.Hour))
		_, err := l.ApplyRepayment(dec("900"), now)
		require.NoError(t, err)

		_, err = l.ApplyRepayment(dec("100.01"), now)

		var overpayment *apperrors.OverpaymentError
		require.True(t, errors.As(err, &overpayment))
		assert.True(t, overpayment.Remaining.Equal(dec("100")))
		assert.Equal(t, "Only 100 is remaining on this loan.", err.Error())
		assert.Len(t, l.Repayments, 1)
		assert.Equal(t, StatusPending, l.Status)
	})

	t.Run("non-positive amount is rejected", func(t *testing.T) {
		l := newTestLoan(t, "1000", now.Add(24*time.Hour))

		_, err := l.ApplyRepayment(dec("0"), now)
		assert.ErrorIs(t, err, apperrors.ErrValidation)

		_, err = l.ApplyRepayment(dec("-1"), now)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Empty(t, l.Repayments)
	})

	t.Run("paid loan reports zero remaining", func(t *testing.T) {
		l := newTestLoan(t, "10", now.Add(24*time.Hour))
		_, err := l.ApplyRepayment(dec("10"), now)
		require.NoError(t, err)

		_, err = l.ApplyRepayment(dec("1"), now)
		assert.ErrorIs(t, err, apperrors.ErrOverpayment)
		assert.Equal(t, StatusPaid, l.Status)
	})

	t.Run("repayments never exceed the principal", func(t *testing.T) {
		l := newTestLoan(t, "100", now.Add(24*time.Hour))
		for _, a := range []string{"30", "50", "40", "20", "5"} {
			_, _ = l.ApplyRepayment(dec(a), now)
			assert.True(t, l.TotalRepaid().LessThanOrEqual(l.Amount))
		}
		assert.Equal(t, StatusPaid, l.Status)
		assert.True(t, l.TotalRepaid().Equal(l.Amount))
	})
}

func TestSettle(t *testing.T) {
	now := time.Now()

	t.Run("records remaining balance as final repayment", func(t *testing.T) {
		l := newTestLoan(t, "500", now.Add(-24*time.Hour))
		l.Status = StatusOverdue
		_, err := l.ApplyRepayment(dec("120"), now)
		require.NoError(t, err)

		r, ok := l.Settle(now)

		require.True(t, ok)
		assert.True(t, r.Amount.Equal(dec("380")))
		assert.Equal(t, StatusPaid, l.Status)
		assert.True(t, l.TotalRepaid().Equal(l.Amount))
	})

	t.Run("already paid loan is a no-op", func(t *testing.T) {
		l := newTestLoan(t, "500", now.Add(24*time.Hour))
		_, ok := l.Settle(now)
		require.True(t, ok)

		_, ok = l.Settle(now)

		assert.False(t, ok)
		assert.Len(t, l.Repayments, 1)
	})
}

func TestClone(t *testing.T) {
	l := newTestLoan(t, "500", time.Now().Add(time.Hour))
	_, err := l.ApplyRepayment(dec("100"), time.Now())
	require.NoError(t, err)

	c := l.Clone()
	c.Repayments[0].Amount = dec("1")
	c.Repayments = append(c.Repayments, Repayment{Amount: dec("5")})

	assert.True(t, l.Repayments[0].Amount.Equal(dec("100")))
	assert.Len(t, l.Repayments, 1)
}
