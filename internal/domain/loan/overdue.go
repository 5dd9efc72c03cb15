package loan

import (
	"fmt"
	"time"
)

// Evaluate moves a pending loan past its due date to overdue and reports
// whether that transition happened. It never touches paid or overdue loans.
func Evaluate(l *Loan, now time.Time) bool {
	if l.Status != StatusPending || !now.After(l.DueDate) {
		return false
	}
	l.Status = StatusOverdue
	l.UpdatedAt = now.UTC()
	return true
}

// IsPastDue reports a loan that is overdue, or pending with its due date
// already behind now.
func IsPastDue(l *Loan, now time.Time) bool {
	switch l.Status {
	case StatusOverdue:
		return true
	case StatusPending:
		return now.After(l.DueDate)
	}
	return false
}

const reminderTemplate = "Dear %s, your loan of %s is overdue. Please make a payment as soon as possible."

func ReminderMessage(l *Loan) string {
	return fmt.Sprintf(reminderTemplate, l.CustomerName, l.Amount.String())
}
