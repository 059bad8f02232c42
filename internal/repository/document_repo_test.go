package repository

import (
	"context"
	"testing"

	"weconnect-crm/internal/domain"
	"weconnect-crm/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDocumentRepo_FindByIDIsTypeScoped(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db)
	ctx := context.Background()
	q := insertDocument(t, db, domain.DocumentTypeQuotation, "Website redesign")

	got, err := repo.FindByID(ctx, domain.DocumentTypeQuotation, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "QUO-000001", got.Number)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Consulting", got.Items[0].Name)

	_, err = repo.FindByID(ctx, domain.DocumentTypeInvoice, q.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentRepo_UpdateVersioned(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db)
	ctx := context.Background()
	d := insertDocument(t, db, domain.DocumentTypeInvoice, "")

	v, err := repo.UpdateVersioned(ctx, nil, d.ID, 1, map[string]any{"status": domain.StatusSent})
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	// stale version: nothing applied
	_, err = repo.UpdateVersioned(ctx, nil, d.ID, 1, map[string]any{"status": domain.StatusPaid, "notes": "late"})
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)

	got, err := repo.FindByID(ctx, domain.DocumentTypeInvoice, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, got.Status)
	assert.Equal(t, "", got.Notes)
	assert.Equal(t, int64(2), got.Version)

	_, err = repo.UpdateVersioned(ctx, nil, uuid.New(), 1, map[string]any{"notes": "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentRepo_UpdateVersionedIgnoresTrashed(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db)
	trash := NewTrashable(db, TrashSpec{Kind: domain.EntityInvoice, Table: "sales_documents", NameExpr: "party_name", IdentifierExpr: "number", ScopeColumn: "document_type", ScopeValue: "INVOICE"})
	ctx := context.Background()
	d := insertDocument(t, db, domain.DocumentTypeInvoice, "")

	require.NoError(t, trash.SoftDelete(ctx, d.ID, daysAgo(0)))
	_, err := repo.UpdateVersioned(ctx, nil, d.ID, 1, map[string]any{"notes": "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentRepo_ReplaceItemsKeepsOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db)
	ctx := context.Background()
	d := insertDocument(t, db, domain.DocumentTypeQuotation, "")

	items := []model.DocumentItem{
		{Position: 0, Name: "B", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(5)},
		{Position: 1, Name: "A", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(7)},
	}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.ReplaceItems(ctx, tx, d.ID, items)
	}))

	got, err := repo.FindByID(ctx, domain.DocumentTypeQuotation, d.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "B", got.Items[0].Name)
	assert.Equal(t, "A", got.Items[1].Name)
}

func TestDocumentRepo_ListFiltersAndSearch(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db)
	ctx := context.Background()
	insertDocument(t, db, domain.DocumentTypeQuotation, "Website redesign")
	insertDocument(t, db, domain.DocumentTypeQuotation, "Hosting renewal")
	insertDocument(t, db, domain.DocumentTypeInvoice, "Website redesign")

	docs, total, err := repo.List(ctx, DocumentFilter{Type: domain.DocumentTypeQuotation, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, docs, 2)

	docs, total, err = repo.List(ctx, DocumentFilter{Type: domain.DocumentTypeQuotation, Search: "WEBSITE"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Website redesign", docs[0].Subject)

	_, total, err = repo.List(ctx, DocumentFilter{Type: domain.DocumentTypeQuotation, Status: domain.StatusSent})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestDocumentRepo_LinkAndEvents(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db)
	ctx := context.Background()
	q := insertDocument(t, db, domain.DocumentTypeQuotation, "")
	inv := insertDocument(t, db, domain.DocumentTypeInvoice, "")

	require.NoError(t, repo.SetConvertedInvoice(ctx, q.ID, inv.ID))
	got, err := repo.FindByID(ctx, domain.DocumentTypeQuotation, q.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ConvertedInvoiceID)
	assert.Equal(t, inv.ID, *got.ConvertedInvoiceID)
	assert.Equal(t, int64(1), got.Version)

	assert.ErrorIs(t, repo.SetConvertedInvoice(ctx, inv.ID, q.ID), domain.ErrNotFound)

	require.NoError(t, repo.AppendEvent(ctx, nil, &model.DocumentEvent{DocumentID: q.ID, Action: model.EventCreated, ToStatus: "DRAFT", Version: 1}))
	require.NoError(t, repo.AppendEvent(ctx, nil, &model.DocumentEvent{DocumentID: q.ID, Action: model.EventLinked, Version: 1}))
	events, err := repo.ListEvents(ctx, q.ID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
