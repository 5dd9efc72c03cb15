package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"lender-ledger/internal/domain/customer"
	"lender-ledger/internal/infrastructure/monitoring"
	"lender-ledger/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CustomerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ customer.Repository = (*CustomerRepository)(nil)

func NewCustomerRepository(db DBPool, logger *slog.Logger) *CustomerRepository {
	if db == nil {
		panic("DBPool cannot be nil for CustomerRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerRepository, using default stderr handler")
	}
	return &CustomerRepository{
		db:     db,
		logger: logger.With("component", "CustomerRepository"),
	}
}

const customerColumns = `id, tenant_id, name, phone, trust_score, created_at, updated_at`

func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) (err error) {
	defer monitoring.ObserveDBQuery("CreateCustomer", time.Now(), &err)

	query := `
        INSERT INTO customers (id, tenant_id, name, phone, trust_score, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.Exec(ctx, query, c.ID, c.TenantID, c.Name, c.Phone, c.TrustScore, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert customer", slog.Any("error", err))
		return translateDBError(err, r.logger)
	}

	r.logger.DebugContext(ctx, "Customer inserted", slog.String("customerID", c.ID.String()))
	return nil
}

func (r *CustomerRepository) Get(ctx context.Context, tenantID string, id uuid.UUID) (c *customer.Customer, err error) {
	defer monitoring.ObserveDBQuery("GetCustomer", time.Now(), &err)

	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 AND tenant_id = $2`

	c, err = scanCustomer(r.db.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query customer", slog.Any("error", err))
		return nil, translateDBError(err, r.logger)
	}
	return c, nil
}

func (r *CustomerRepository) List(ctx context.Context, tenantID string) (customers []*customer.Customer, err error) {
	defer monitoring.ObserveDBQuery("ListCustomers", time.Now(), &err)

	query := `SELECT ` + customerColumns + ` FROM customers WHERE tenant_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query customers", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query customers: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	customers = make([]*customer.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan customer row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed to scan customer: %w", apperrors.ErrDatabase, err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating customers: %w", apperrors.ErrDatabase, err)
	}
	return customers, nil
}

func (r *CustomerRepository) Update(ctx context.Context, c *customer.Customer) (err error) {
	defer monitoring.ObserveDBQuery("UpdateCustomer", time.Now(), &err)

	query := `
        UPDATE customers
        SET name = $1,
            phone = $2,
            trust_score = $3,
            updated_at = $4
        WHERE id = $5 AND tenant_id = $6`

	tag, err := r.db.Exec(ctx, query, c.Name, c.Phone, c.TrustScore, c.UpdatedAt, c.ID, c.TenantID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update customer", slog.Any("error", err))
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return customer.ErrNotFound
	}
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, tenantID string, id uuid.UUID) (err error) {
	defer monitoring.ObserveDBQuery("DeleteCustomer", time.Now(), &err)

	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		if violates(err, pgForeignKeyViolation, loanCustomerFK) {
			return customer.ErrHasLoans
		}
		r.logger.ErrorContext(ctx, "Failed to delete customer", slog.Any("error", err))
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return customer.ErrNotFound
	}
	return nil
}

func scanCustomer(row pgx.Row) (*customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Phone, &c.TrustScore, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
