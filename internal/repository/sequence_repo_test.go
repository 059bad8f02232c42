package repository

import (
	"context"
	"regexp"
	"sort"
	"sync"
	"testing"

	"weconnect-crm/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestSequenceRepo_NextIsMonotonicPerType(t *testing.T) {
	db := newTestDB(t)
	repo := NewSequenceRepository(db)
	ctx := context.Background()

	q1, err := repo.Next(ctx, nil, domain.DocumentTypeQuotation)
	require.NoError(t, err)
	q2, err := repo.Next(ctx, nil, domain.DocumentTypeQuotation)
	require.NoError(t, err)
	i1, err := repo.Next(ctx, nil, domain.DocumentTypeInvoice)
	require.NoError(t, err)

	assert.Equal(t, int64(1), q1.LastValue)
	assert.Equal(t, int64(2), q2.LastValue)
	assert.Equal(t, "QUO", q2.Prefix)
	assert.Equal(t, int64(1), i1.LastValue)
	assert.Equal(t, "INV", i1.Prefix)

	peek, err := repo.Peek(ctx, domain.DocumentTypeQuotation)
	require.NoError(t, err)
	assert.Equal(t, int64(2), peek.LastValue)
}

func TestSequenceRepo_RollbackReturnsValue(t *testing.T) {
	db := newTestDB(t)
	repo := NewSequenceRepository(db)
	ctx := context.Background()

	_ = db.Transaction(func(tx *gorm.DB) error {
		_, err := repo.Next(ctx, tx, domain.DocumentTypeInvoice)
		require.NoError(t, err)
		return assert.AnError // force rollback
	})

	seq, err := repo.Next(ctx, nil, domain.DocumentTypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq.LastValue)
}

func TestSequenceRepo_ConcurrentAllocationsAreUnique(t *testing.T) {
	db := newTestDB(t)
	const n = 25

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []string
		errs    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := createDocument(context.Background(), db, domain.DocumentTypeInvoice, "")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers = append(numbers, d.Number)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Len(t, numbers, n)
	sort.Strings(numbers)
	seen := make(map[string]bool, n)
	for _, num := range numbers {
		assert.False(t, seen[num], "duplicate number %s", num)
		seen[num] = true
	}
	assert.Equal(t, "INV-000001", numbers[0])
	assert.Equal(t, "INV-000025", numbers[n-1])
}

func TestSequenceRepo_PostgresStatement(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	repo := NewSequenceRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(
		`UPDATE document_sequences SET last_value = last_value + 1 WHERE document_type = $1 RETURNING document_type, prefix, last_value`,
	)).
		WithArgs("QUOTATION").
		WillReturnRows(sqlmock.NewRows([]string{"document_type", "prefix", "last_value"}).AddRow("QUOTATION", "QUO", 42))

	seq, err := repo.Next(context.Background(), nil, domain.DocumentTypeQuotation)
	require.NoError(t, err)
	assert.Equal(t, int64(42), seq.LastValue)
	assert.Equal(t, "QUO", seq.Prefix)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceRepo_NotSeeded(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	mock.ExpectQuery(`UPDATE document_sequences`).
		WillReturnRows(sqlmock.NewRows([]string{"document_type", "prefix", "last_value"}))

	_, err = NewSequenceRepository(gormDB).Next(context.Background(), nil, domain.DocumentTypeInvoice)
	assert.ErrorContains(t, err, "sequence not seeded")
}
