package receipt

import (
	"bytes"
	"fmt"
	"time"

	"lender-ledger/internal/domain/loan"

	"github.com/go-pdf/fpdf"
)

// Render lays out a one-page repayment receipt and returns the PDF bytes.
func Render(l *loan.Loan, r loan.Repayment, issuedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(issuedAt)
	pdf.SetTitle("Loan Repayment Receipt", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "Loan Repayment Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	customer := l.CustomerName
	if customer == "" {
		customer = l.CustomerID.String()
	}

	pdf.SetFont("Helvetica", "", 12)
	rows := [][2]string{
		{"Loan ID", l.ID.String()},
		{"Receipt No", r.ID.String()},
		{"Customer", customer},
		{"Loan Amount", l.Amount.StringFixed(2)},
		{"Amount Repaid", r.Amount.StringFixed(2)},
		{"Remaining", l.Remaining().StringFixed(2)},
		{"Status", string(l.Status)},
		{"Paid At", r.PaidAt.Format("2006-01-02 15:04 MST")},
		{"Date", issuedAt.Format("2006-01-02")},
	}
	for _, row := range rows {
		pdf.CellFormat(45, 8, row[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 8, row[1], "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
