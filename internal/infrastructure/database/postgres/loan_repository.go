package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lender-ledger/internal/domain/customer"
	"lender-ledger/internal/domain/loan"
	"lender-ledger/internal/infrastructure/monitoring"
	"lender-ledger/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

const loanSelect = `
        SELECT l.id, l.tenant_id, l.customer_id, l.amount, l.due_date, l.status, l.version,
               l.created_at, l.updated_at, c.name, c.phone
        FROM loans l
        JOIN customers c ON c.id = l.customer_id AND c.tenant_id = l.tenant_id`

func (r *LoanRepository) Create(ctx context.Context, l *loan.Loan) (err error) {
	defer monitoring.ObserveDBQuery("CreateLoan", time.Now(), &err)

	query := `
        INSERT INTO loans (id, tenant_id, customer_id, amount, due_date, status, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.Exec(ctx, query,
		l.ID, l.TenantID, l.CustomerID, l.Amount, l.DueDate, string(l.Status), l.Version, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		if violates(err, pgForeignKeyViolation, loanCustomerFK) {
			r.logger.WarnContext(ctx, "Loan references a customer outside the tenant", slog.String("customer_id", l.CustomerID.String()))
			return customer.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to insert loan", slog.Any("error", err))
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *LoanRepository) Get(ctx context.Context, tenantID string, id uuid.UUID) (l *loan.Loan, err error) {
	defer monitoring.ObserveDBQuery("GetLoan", time.Now(), &err)

	l, err = scanLoan(r.db.QueryRow(ctx, loanSelect+` WHERE l.id = $1 AND l.tenant_id = $2`, id, tenantID))
	if err != nil {
		return nil, r.lookupError(ctx, err)
	}

	l.Repayments, err = loadRepayments(ctx, r.db, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to load repayments", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return l, nil
}

func (r *LoanRepository) List(ctx context.Context, tenantID string, filter loan.Filter) (loans []*loan.Loan, err error) {
	defer monitoring.ObserveDBQuery("ListLoans", time.Now(), &err)

	conds := []string{"l.tenant_id = $1"}
	args := []any{tenantID}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conds = append(conds, fmt.Sprintf("l.status = $%d", len(args)))
	}
	if filter.DueBefore != nil {
		args = append(args, *filter.DueBefore)
		conds = append(conds, fmt.Sprintf("l.due_date < $%d", len(args)))
	}
	query := loanSelect + " WHERE " + strings.Join(conds, " AND ") + " ORDER BY l.created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loans", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query loans: %w", apperrors.ErrDatabase, err)
	}
	loans, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (*loan.Loan, error) {
		return scanLoan(row)
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to scan loan rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to scan loans: %w", apperrors.ErrDatabase, err)
	}
	if len(loans) == 0 {
		return loans, nil
	}

	if err := r.attachRepayments(ctx, loans); err != nil {
		return nil, err
	}
	return loans, nil
}

// Update locks the loan row for the life of the transaction, so concurrent
// updates to one loan run strictly one after another. The version predicate
// on the final UPDATE catches writers that bypass the row lock.
func (r *LoanRepository) Update(ctx context.Context, tenantID string, id uuid.UUID, fn loan.UpdateFunc) (updated *loan.Loan, err error) {
	defer monitoring.ObserveDBQuery("UpdateLoan", time.Now(), &err)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer func() {
		if err != nil {
			rollback(ctx, tx, r.logger)
		}
	}()

	l, err := scanLoan(tx.QueryRow(ctx, loanSelect+` WHERE l.id = $1 AND l.tenant_id = $2 FOR UPDATE OF l`, id, tenantID))
	if err != nil {
		return nil, r.lookupError(ctx, err)
	}
	l.Repayments, err = loadRepayments(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	before := l.Status
	persisted := len(l.Repayments)
	if err = fn(l); err != nil {
		return nil, err
	}

	if l.Status != before || len(l.Repayments) != persisted {
		for _, rep := range l.Repayments[persisted:] {
			_, err = tx.Exec(ctx, `INSERT INTO repayments (id, loan_id, amount, paid_at) VALUES ($1, $2, $3, $4)`,
				rep.ID, l.ID, rep.Amount, rep.PaidAt)
			if err != nil {
				r.logger.ErrorContext(ctx, "Failed to insert repayment", slog.Any("error", err))
				return nil, translateDBError(err, r.logger)
			}
		}

		tag, execErr := tx.Exec(ctx, `
        UPDATE loans
        SET status = $1,
            version = version + 1,
            updated_at = $2
        WHERE id = $3 AND tenant_id = $4 AND version = $5`,
			string(l.Status), l.UpdatedAt, l.ID, tenantID, l.Version)
		if execErr != nil {
			err = translateDBError(execErr, r.logger)
			return nil, err
		}
		if tag.RowsAffected() == 0 {
			err = loan.ErrVersionConflict
			r.logger.WarnContext(ctx, "Loan version changed under lock", slog.String("loanID", id.String()))
			return nil, err
		}
		l.Version++
	}

	if err = tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to commit transaction: %w", apperrors.ErrDatabase, err)
	}
	return l, nil
}

func (r *LoanRepository) ListTenantsWithPastDue(ctx context.Context, now time.Time) (tenants []string, err error) {
	defer monitoring.ObserveDBQuery("ListTenantsWithPastDue", time.Now(), &err)

	query := `SELECT DISTINCT tenant_id FROM loans WHERE status = $1 AND due_date < $2 ORDER BY tenant_id`

	rows, err := r.db.Query(ctx, query, string(loan.StatusPending), now)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query tenants with past-due loans", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query tenants: %w", apperrors.ErrDatabase, err)
	}
	tenants, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan tenants: %w", apperrors.ErrDatabase, err)
	}
	return tenants, nil
}

func (r *LoanRepository) attachRepayments(ctx context.Context, loans []*loan.Loan) error {
	ids := make([]string, len(loans))
	byID := make(map[uuid.UUID]*loan.Loan, len(loans))
	for i, l := range loans {
		ids[i] = l.ID.String()
		byID[l.ID] = l
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, loan_id, amount, paid_at FROM repayments WHERE loan_id = ANY($1::uuid[]) ORDER BY loan_id, seq`, ids)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query repayments", slog.Any("error", err))
		return fmt.Errorf("%w: failed to query repayments: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	for rows.Next() {
		var rep loan.Repayment
		if err := rows.Scan(&rep.ID, &rep.LoanID, &rep.Amount, &rep.PaidAt); err != nil {
			return fmt.Errorf("%w: failed to scan repayment: %w", apperrors.ErrDatabase, err)
		}
		if l, ok := byID[rep.LoanID]; ok {
			l.Repayments = append(l.Repayments, rep)
		}
	}
	return rows.Err()
}

func (r *LoanRepository) lookupError(ctx context.Context, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return loan.ErrNotFound
	}
	r.logger.ErrorContext(ctx, "Failed to query loan", slog.Any("error", err))
	return translateDBError(err, r.logger)
}

func loadRepayments(ctx context.Context, q querier, loanID uuid.UUID) ([]loan.Repayment, error) {
	rows, err := q.Query(ctx, `SELECT id, loan_id, amount, paid_at FROM repayments WHERE loan_id = $1 ORDER BY seq`, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	repayments := make([]loan.Repayment, 0)
	for rows.Next() {
		var rep loan.Repayment
		if err := rows.Scan(&rep.ID, &rep.LoanID, &rep.Amount, &rep.PaidAt); err != nil {
			return nil, err
		}
		repayments = append(repayments, rep)
	}
	return repayments, rows.Err()
}

func scanLoan(row pgx.Row) (*loan.Loan, error) {
	var l loan.Loan
	var status string
	err := row.Scan(&l.ID, &l.TenantID, &l.CustomerID, &l.Amount, &l.DueDate, &status, &l.Version,
		&l.CreatedAt, &l.UpdatedAt, &l.CustomerName, &l.CustomerPhone)
	if err != nil {
		return nil, err
	}
	if l.Status, err = loan.ParseStatus(status); err != nil {
		return nil, err
	}
	l.Repayments = []loan.Repayment{}
	return &l, nil
}
