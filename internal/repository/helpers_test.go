package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"weconnect-crm/internal/domain"
	"weconnect-crm/internal/infra"
	"weconnect-crm/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB opens an isolated in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := infra.NewDatabase(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, infra.AutoMigrate(db))
	require.NoError(t, db.Create(&model.Currency{Code: "USD", Name: "US Dollar", Symbol: "$", ExchangeRate: decimal.NewFromInt(1), IsActive: true, IsDefault: true}).Error)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return db
}

// insertDocument allocates a number and inserts a DRAFT document with one item.
func insertDocument(t *testing.T, db *gorm.DB, dt domain.DocumentType, subject string) *model.SalesDocument {
	t.Helper()
	d, err := createDocument(context.Background(), db, dt, subject)
	require.NoError(t, err)
	return d
}

func createDocument(ctx context.Context, db *gorm.DB, dt domain.DocumentType, subject string) (*model.SalesDocument, error) {
	seqs := NewSequenceRepository(db)
	docs := NewDocumentRepository(db)

	var d *model.SalesDocument
	err := db.Transaction(func(tx *gorm.DB) error {
		seq, err := seqs.Next(ctx, tx, dt)
		if err != nil {
			return err
		}
		d = &model.SalesDocument{
			DocumentType: dt,
			Number:       fmt.Sprintf("%s-%06d", seq.Prefix, seq.LastValue),
			Sequence:     seq.LastValue,
			Subject:      subject,
			Party:        model.PartySnapshot{Name: "Acme Corp", Email: "buyer@acme.test"},
			CurrencyCode: "USD",
			Status:       domain.StatusDraft,
			DiscountType: domain.DiscountNone,
			Version:      1,
			Items: []model.DocumentItem{{
				Position: 0, Name: "Consulting", Quantity: decimal.NewFromInt(2),
				UnitPrice: decimal.NewFromInt(100), TaxRate: decimal.NewFromInt(10),
				DiscountRate: decimal.Zero, LineTotal: decimal.NewFromInt(220),
			}},
		}
		return docs.Create(ctx, tx, d)
	})
	return d, err
}

func daysAgo(n int) time.Time {
	return time.Now().UTC().Add(-time.Duration(n) * 24 * time.Hour)
}
