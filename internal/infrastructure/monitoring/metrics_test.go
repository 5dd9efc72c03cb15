package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRepayment(t *testing.T) {
	Business.RepaymentsTotal.Reset()

	RecordRepayment("accepted", 100)
	RecordRepayment("accepted", 50)
	RecordRepayment("overpayment", 900)

	assert.Equal(t, float64(2), testutil.ToFloat64(Business.RepaymentsTotal.WithLabelValues("accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(Business.RepaymentsTotal.WithLabelValues("overpayment")))
}

func TestRecordSideEffect(t *testing.T) {
	Business.SideEffectsTotal.Reset()

	RecordSideEffect("reminder", "success")
	RecordSideEffect("reminder", "failure")
	RecordSideEffect("reminder", "failure")

	assert.Equal(t, float64(1), testutil.ToFloat64(Business.SideEffectsTotal.WithLabelValues("reminder", "success")))
	assert.Equal(t, float64(2), testutil.ToFloat64(Business.SideEffectsTotal.WithLabelValues("reminder", "failure")))
}

func TestObserveDBQuery(t *testing.T) {
	DB.QueryDuration.Reset()

	var okErr error
	ObserveDBQuery("GetLoan", time.Now(), &okErr)
	failed := errors.New("boom")
	ObserveDBQuery("GetLoan", time.Now(), &failed)

	assert.Equal(t, 2, testutil.CollectAndCount(DB.QueryDuration))
}
