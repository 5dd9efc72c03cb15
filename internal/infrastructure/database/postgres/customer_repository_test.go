package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"lender-ledger/internal/domain/customer"
	"lender-ledger/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var customerColumnNames = []string{"id", "tenant_id", "name", "phone", "trust_score", "created_at", "updated_at"}

func testCustomer() *customer.Customer {
	now := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)
	return &customer.Customer{
		ID:         uuid.New(),
		TenantID:   "tenant-1",
		Name:       "John Kamau",
		Phone:      "0712345678",
		TrustScore: 50,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func setupCustomerRepo(t *testing.T) (context.Context, *CustomerRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool := newMockPool(t)
	return context.Background(), NewCustomerRepository(mockPool, logger), mockPool
}

func TestCustomerRepository_Create(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	c := testCustomer()

	mockPool.ExpectExec(`INSERT INTO customers \(id, tenant_id, name, phone, trust_score, created_at, updated_at\)`).
		WithArgs(c.ID, c.TenantID, c.Name, c.Phone, c.TrustScore, c.CreatedAt, c.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(ctx, c))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestCustomerRepository_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		ctx, repo, mockPool := setupCustomerRepo(t)
		c := testCustomer()

		mockPool.ExpectQuery(`SELECT id, tenant_id, name, phone, trust_score, created_at, updated_at FROM customers WHERE id = \$1 AND tenant_id = \$2`).
			WithArgs(c.ID, c.TenantID).
			WillReturnRows(pgxmock.NewRows(customerColumnNames).
				AddRow(c.ID.String(), c.TenantID, c.Name, c.Phone, c.TrustScore, c.CreatedAt, c.UpdatedAt))

		got, err := repo.Get(ctx, c.TenantID, c.ID)

		require.NoError(t, err)
		assert.Equal(t, c, got)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("other tenant", func(t *testing.T) {
		ctx, repo, mockPool := setupCustomerRepo(t)
		id := uuid.New()

		mockPool.ExpectQuery(`FROM customers WHERE id = \$1 AND tenant_id = \$2`).
			WithArgs(id, "tenant-2").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.Get(ctx, "tenant-2", id)

		assert.ErrorIs(t, err, customer.ErrNotFound)
	})
}

func TestCustomerRepository_List(t *testing.T) {
	ctx, repo, mockPool := setupCustomerRepo(t)
	a, b := testCustomer(), testCustomer()

	mockPool.ExpectQuery(`FROM customers WHERE tenant_id = \$1 ORDER BY created_at DESC`).
		WithArgs("tenant-1").
		WillReturnRows(pgxmock.NewRows(customerColumnNames).
			AddRow(a.ID.String(), a.TenantID, a.Name, a.Phone, a.TrustScore, a.CreatedAt, a.UpdatedAt).
			AddRow(b.ID.String(), b.TenantID, b.Name, b.Phone, b.TrustScore, b.CreatedAt, b.UpdatedAt))

	got, err := repo.List(ctx, "tenant-1")

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, b.ID, got[1].ID)
}

func TestCustomerRepository_Update(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctx, repo, mockPool := setupCustomerRepo(t)
		c := testCustomer()

		mockPool.ExpectExec(`UPDATE customers\s+SET name = \$1,\s+phone = \$2,\s+trust_score = \$3,\s+updated_at = \$4\s+WHERE id = \$5 AND tenant_id = \$6`).
			WithArgs(c.Name, c.Phone, c.TrustScore, c.UpdatedAt, c.ID, c.TenantID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.Update(ctx, c))
	})

	t.Run("missing row", func(t *testing.T) {
		ctx, repo, mockPool := setupCustomerRepo(t)
		c := testCustomer()

		mockPool.ExpectExec(`UPDATE customers`).
			WithArgs(c.Name, c.Phone, c.TrustScore, c.UpdatedAt, c.ID, c.TenantID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.Update(ctx, c), customer.ErrNotFound)
	})
}

func TestCustomerRepository_Delete(t *testing.T) {
	t.Run("restricted by loans", func(t *testing.T) {
		ctx, repo, mockPool := setupCustomerRepo(t)
		id := uuid.New()

		mockPool.ExpectExec(`DELETE FROM customers WHERE id = \$1 AND tenant_id = \$2`).
			WithArgs(id, "tenant-1").
			WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation, ConstraintName: "loans_customer_fkey"})

		err := repo.Delete(ctx, "tenant-1", id)

		assert.ErrorIs(t, err, customer.ErrHasLoans)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("not found", func(t *testing.T) {
		ctx, repo, mockPool := setupCustomerRepo(t)
		id := uuid.New()

		mockPool.ExpectExec(`DELETE FROM customers`).
			WithArgs(id, "tenant-1").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, repo.Delete(ctx, "tenant-1", id), customer.ErrNotFound)
	})

	t.Run("database failure", func(t *testing.T) {
		ctx, repo, mockPool := setupCustomerRepo(t)
		id := uuid.New()

		mockPool.ExpectExec(`DELETE FROM customers`).
			WithArgs(id, "tenant-1").
			WillReturnError(errors.New("connection reset"))

		assert.ErrorIs(t, repo.Delete(ctx, "tenant-1", id), apperrors.ErrDatabase)
	})
}

func TestTranslateDBError(t *testing.T) {
	assert.Nil(t, translateDBError(nil, logger))
	assert.ErrorIs(t, translateDBError(pgx.ErrNoRows, logger), apperrors.ErrNotFound)
	assert.ErrorIs(t, translateDBError(&pgconn.PgError{Code: pgUniqueViolation}, logger), apperrors.ErrAlreadyExists)
	assert.ErrorIs(t, translateDBError(&pgconn.PgError{Code: pgForeignKeyViolation}, logger), apperrors.ErrConflict)
	assert.ErrorIs(t, translateDBError(&pgconn.PgError{Code: "42P01"}, logger), apperrors.ErrDatabase)
	assert.ErrorIs(t, translateDBError(errors.New("boom"), logger), apperrors.ErrDatabase)
}
