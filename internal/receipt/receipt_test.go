package receipt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lender-ledger/internal/domain/loan"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func sample() (*loan.Loan, loan.Repayment) {
	l := &loan.Loan{
		ID:           uuid.New(),
		TenantID:     uuid.NewString(),
		CustomerID:   uuid.New(),
		Amount:       decimal.NewFromInt(1000),
		Status:       loan.StatusPending,
		CustomerName: "Ravi",
	}
	r := loan.Repayment{ID: uuid.New(), LoanID: l.ID, Amount: decimal.NewFromInt(300), PaidAt: time.Now().UTC()}
	l.Repayments = []loan.Repayment{r}
	return l, r
}

func TestRender(t *testing.T) {
	l, r := sample()

	doc, err := Render(l, r, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF-")), "output should be a PDF document")
}

func TestFileSystemStorage(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	store, err := NewFileSystemStorage(base, testLogger)
	require.NoError(t, err)

	t.Run("Writes nested key", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "tenant/receipt_1.pdf", []byte("pdf")))

		data, err := os.ReadFile(filepath.Join(base, "tenant", "receipt_1.pdf"))
		require.NoError(t, err)
		assert.Equal(t, "pdf", string(data))
		assert.Equal(t, filepath.Join(base, "tenant", "receipt_1.pdf"), store.Location("tenant/receipt_1.pdf"))
	})

	t.Run("Rejects traversal", func(t *testing.T) {
		err := store.Put(ctx, "../escape.pdf", []byte("x"))
		assert.ErrorContains(t, err, "invalid receipt key")
	})

	t.Run("Honours cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, store.Put(cctx, "t/r.pdf", []byte("x")), context.Canceled)
	})
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Storage(t *testing.T) {
	ctx := context.Background()

	t.Run("Uploads under prefix", func(t *testing.T) {
		client := &fakeS3{}
		store := newS3Storage(client, "ledger", "/receipts/", testLogger)

		require.NoError(t, store.Put(ctx, "t1/r.pdf", []byte("pdf")))

		assert.Equal(t, "ledger", aws.ToString(client.input.Bucket))
		assert.Equal(t, "receipts/t1/r.pdf", aws.ToString(client.input.Key))
		assert.Equal(t, contentTypePDF, aws.ToString(client.input.ContentType))
		assert.Equal(t, "pdf", string(client.body))
		assert.Equal(t, "s3://ledger/receipts/t1/r.pdf", store.Location("t1/r.pdf"))
	})

	t.Run("Wraps upload errors", func(t *testing.T) {
		store := newS3Storage(&fakeS3{err: errors.New("access denied")}, "ledger", "", testLogger)

		err := store.Put(ctx, "t1/r.pdf", []byte("pdf"))
		assert.ErrorContains(t, err, "access denied")
		assert.Equal(t, "s3://ledger/t1/r.pdf", store.Location("t1/r.pdf"))
	})

	t.Run("Bucket is required", func(t *testing.T) {
		_, err := NewS3Storage(ctx, S3Config{}, testLogger)
		assert.EqualError(t, err, "receipt bucket is required")
	})
}

func TestIssuer_Issue(t *testing.T) {
	base := t.TempDir()
	store, err := NewFileSystemStorage(base, testLogger)
	require.NoError(t, err)
	issuer := NewIssuer(store, testLogger)
	l, r := sample()

	location, err := issuer.Issue(context.Background(), l, r)

	require.NoError(t, err)
	assert.Equal(t, issuer.Location(l, r), location)
	data, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestIssuer_StorageFailure(t *testing.T) {
	issuer := NewIssuer(newS3Storage(&fakeS3{err: errors.New("timeout")}, "b", "", testLogger), testLogger)
	l, r := sample()

	_, err := issuer.Issue(context.Background(), l, r)

	assert.ErrorContains(t, err, "timeout")
}
