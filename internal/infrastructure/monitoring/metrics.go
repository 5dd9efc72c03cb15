package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	RepaymentsTotal         *prometheus.CounterVec
	RepaidAmountTotal       prometheus.Counter
	OverdueTransitionsTotal prometheus.Counter
	SideEffectsTotal        *prometheus.CounterVec
	SideEffectsDropped      prometheus.Counter
	SweepRunsTotal          *prometheus.CounterVec
}

var (
	HTTP = HTTPMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lender_ledger_http_requests_total",
				Help: "Total number of HTTP requests received.",
			},
			[]string{"method", "path", "code"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lender_ledger_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "code"},
		),
	}

	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lender_ledger_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		RepaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lender_ledger_repayments_total",
				Help: "Repayment attempts by outcome.",
			},
			[]string{"outcome"},
		),
		RepaidAmountTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lender_ledger_repaid_amount_total",
				Help: "Sum of accepted repayment amounts.",
			},
		),
		OverdueTransitionsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lender_ledger_overdue_transitions_total",
				Help: "Loans moved from pending to overdue.",
			},
		),
		SideEffectsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lender_ledger_side_effects_total",
				Help: "Background side-effect tasks by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		SideEffectsDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lender_ledger_side_effects_dropped_total",
				Help: "Side-effect tasks dropped because the dispatcher queue was full.",
			},
		),
		SweepRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lender_ledger_overdue_sweep_runs_total",
				Help: "Scheduled overdue sweep runs by status.",
			},
			[]string{"status"},
		),
	}
)

func RecordHTTPRequest(method, path, code string, duration time.Duration) {
	HTTP.RequestsTotal.WithLabelValues(method, path, code).Inc()
	HTTP.RequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

// ObserveDBQuery is meant to be deferred at the top of a repository method
// with a pointer to its named error return.
func ObserveDBQuery(queryName string, start time.Time, err *error) {
	status := "success"
	if err != nil && *err != nil {
		status = "error"
	}
	RecordDBQuery(queryName, status, time.Since(start))
}

func RecordRepayment(outcome string, amount float64) {
	Business.RepaymentsTotal.WithLabelValues(outcome).Inc()
	if outcome == "accepted" {
		Business.RepaidAmountTotal.Add(amount)
	}
}

func RecordOverdueTransitions(n int) {
	if n > 0 {
		Business.OverdueTransitionsTotal.Add(float64(n))
	}
}

func RecordSideEffect(kind, outcome string) {
	Business.SideEffectsTotal.WithLabelValues(kind, outcome).Inc()
}

func RecordSideEffectDropped() {
	Business.SideEffectsDropped.Inc()
}

func RecordSweepRun(status string) {
	Business.SweepRunsTotal.WithLabelValues(status).Inc()
}
