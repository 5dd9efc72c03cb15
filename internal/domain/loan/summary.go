package loan

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type Summary struct {
	TotalLoaned            decimal.Decimal
	TotalCollected         decimal.Decimal
	OverdueAmount          decimal.Decimal
	AvgRepaymentTimeInDays float64
}

// Summarize folds a tenant's loans into ledger totals. It does not mutate the
// loans; pending loans already past due count toward OverdueAmount.
func Summarize(loans []*Loan, now time.Time) Summary {
	s := Summary{
		TotalLoaned:    decimal.Zero,
		TotalCollected: decimal.Zero,
		OverdueAmount:  decimal.Zero,
	}

	var totalDays float64
	var paidLoans int
	for _, l := range loans {
		repaid := l.TotalRepaid()
		s.TotalLoaned = s.TotalLoaned.Add(l.Amount)
		s.TotalCollected = s.TotalCollected.Add(repaid)

		if IsPastDue(l, now) {
			s.OverdueAmount = s.OverdueAmount.Add(l.Amount.Sub(repaid))
		}

		if l.Status == StatusPaid && len(l.Repayments) > 0 {
			first := l.Repayments[0].PaidAt
			last := l.Repayments[len(l.Repayments)-1].PaidAt
			totalDays += last.Sub(first).Hours() / 24
			paidLoans++
		}
	}

	if paidLoans > 0 {
		s.AvgRepaymentTimeInDays = roundTo(totalDays/float64(paidLoans), 2)
	}
	return s
}

func roundTo(n float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(n*pow) / pow
}
