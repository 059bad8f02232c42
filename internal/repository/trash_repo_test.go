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
)

func trashables(t *testing.T, all []Trashable) map[domain.EntityKind]Trashable {
	t.Helper()
	out := make(map[domain.EntityKind]Trashable, len(all))
	for _, tr := range all {
		out[tr.Kind()] = tr
	}
	require.Len(t, out, len(domain.EntityKinds))
	return out
}

func TestTrashable_SoftDeleteRestoreRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tr := trashables(t, DefaultTrashables(db))
	docs := NewDocumentRepository(db)
	inv := insertDocument(t, db, domain.DocumentTypeInvoice, "Annual support")

	before, err := docs.FindByID(ctx, domain.DocumentTypeInvoice, inv.ID)
	require.NoError(t, err)

	require.NoError(t, tr[domain.EntityInvoice].SoftDelete(ctx, inv.ID, daysAgo(0)))
	// idempotent
	require.NoError(t, tr[domain.EntityInvoice].SoftDelete(ctx, inv.ID, daysAgo(0)))

	_, err = docs.FindByID(ctx, domain.DocumentTypeInvoice, inv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	deleted, err := tr[domain.EntityInvoice].IsDeleted(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	require.NoError(t, tr[domain.EntityInvoice].Restore(ctx, inv.ID))
	after, err := docs.FindByID(ctx, domain.DocumentTypeInvoice, inv.ID)
	require.NoError(t, err)

	assert.Equal(t, before.Number, after.Number)
	assert.Equal(t, before.Version, after.Version)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
	assert.True(t, before.Total.Equal(after.Total))
	assert.Len(t, after.Items, len(before.Items))
	assert.False(t, after.DeletedAt.Valid)
}

func TestTrashable_PurgeThenRestoreFails(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tr := trashables(t, DefaultTrashables(db))
	inv := insertDocument(t, db, domain.DocumentTypeInvoice, "")
	docs := NewDocumentRepository(db)
	require.NoError(t, docs.AppendEvent(ctx, nil, &model.DocumentEvent{DocumentID: inv.ID, Action: model.EventCreated, Version: 1}))

	require.NoError(t, tr[domain.EntityInvoice].SoftDelete(ctx, inv.ID, daysAgo(0)))
	require.NoError(t, tr[domain.EntityInvoice].Purge(ctx, inv.ID))

	err := tr[domain.EntityInvoice].Restore(ctx, inv.ID)
	assert.ErrorIs(t, err, domain.ErrNotInTrash)
	var nt *domain.NotInTrashError
	require.ErrorAs(t, err, &nt)
	assert.Equal(t, domain.EntityInvoice, nt.Kind)

	var items, events int64
	require.NoError(t, db.Model(&model.DocumentItem{}).Where("document_id = ?", inv.ID).Count(&items).Error)
	require.NoError(t, db.Model(&model.DocumentEvent{}).Where("document_id = ?", inv.ID).Count(&events).Error)
	assert.Zero(t, items)
	assert.Zero(t, events)

	// the number is not handed out again
	next := insertDocument(t, db, domain.DocumentTypeInvoice, "")
	assert.Equal(t, "INV-000002", next.Number)
}

func TestTrashable_PurgeLiveRecordFails(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tr := trashables(t, DefaultTrashables(db))
	q := insertDocument(t, db, domain.DocumentTypeQuotation, "")

	assert.ErrorIs(t, tr[domain.EntityQuotation].Purge(ctx, q.ID), domain.ErrNotInTrash)
	assert.ErrorIs(t, tr[domain.EntityQuotation].Restore(ctx, q.ID), domain.ErrNotInTrash)

	// live record and its items survive the failed purge
	var items int64
	require.NoError(t, db.Model(&model.DocumentItem{}).Where("document_id = ?", q.ID).Count(&items).Error)
	assert.Equal(t, int64(1), items)
}

func TestTrashable_KindScopeIsolation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tr := trashables(t, DefaultTrashables(db))
	q := insertDocument(t, db, domain.DocumentTypeQuotation, "")

	assert.ErrorIs(t, tr[domain.EntityInvoice].SoftDelete(ctx, q.ID, daysAgo(0)), domain.ErrNotFound)
	assert.ErrorIs(t, tr[domain.EntityLead].SoftDelete(ctx, uuid.New(), daysAgo(0)), domain.ErrNotFound)
}

func TestTrashable_SweepSkipsRestoredRecord(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tr := trashables(t, DefaultTrashables(db))
	old := insertDocument(t, db, domain.DocumentTypeQuotation, "old")
	recent := insertDocument(t, db, domain.DocumentTypeQuotation, "recent")
	restored := insertDocument(t, db, domain.DocumentTypeQuotation, "restored")

	quo := tr[domain.EntityQuotation]
	require.NoError(t, quo.SoftDelete(ctx, old.ID, daysAgo(45)))
	require.NoError(t, quo.SoftDelete(ctx, recent.ID, daysAgo(3)))
	require.NoError(t, quo.SoftDelete(ctx, restored.ID, daysAgo(40)))

	cutoff := daysAgo(30)
	ids, err := quo.ExpiredIDs(ctx, cutoff, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{old.ID, restored.ID}, ids)

	// restore lands between selection and purge
	require.NoError(t, quo.Restore(ctx, restored.ID))

	removed, err := quo.PurgeExpired(ctx, old.ID, cutoff)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = quo.PurgeExpired(ctx, restored.ID, cutoff)
	require.NoError(t, err)
	assert.False(t, removed)
	removed, err = quo.PurgeExpired(ctx, recent.ID, cutoff)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = NewDocumentRepository(db).FindByID(ctx, domain.DocumentTypeQuotation, restored.ID)
	assert.NoError(t, err)
}

func TestTrashable_ListAndSearch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tr := trashables(t, DefaultTrashables(db))

	lead := &model.Lead{FirstName: "Ada", LastName: "Lovelace", Email: "ada@engines.test"}
	require.NoError(t, NewPartyRepository(db).CreateLead(ctx, lead))
	p1 := &model.Product{SKU: "SKU-1", Name: "Widget", Price: decimal.NewFromInt(10), Unit: "unit"}
	p2 := &model.Product{SKU: "SKU-2", Name: "Gadget", Price: decimal.NewFromInt(20), Unit: "unit"}
	products := NewProductRepository(db)
	require.NoError(t, products.Create(ctx, p1))
	require.NoError(t, products.Create(ctx, p2))

	require.NoError(t, tr[domain.EntityLead].SoftDelete(ctx, lead.ID, daysAgo(1)))
	require.NoError(t, tr[domain.EntityProduct].SoftDelete(ctx, p1.ID, daysAgo(2)))
	require.NoError(t, tr[domain.EntityProduct].SoftDelete(ctx, p2.ID, daysAgo(1)))

	rows, total, err := tr[domain.EntityProduct].ListTrashed(ctx, TrashQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, rows, 2)
	assert.Equal(t, "Gadget", rows[0].Name) // most recently deleted first
	assert.Equal(t, domain.EntityProduct, rows[0].Kind)

	rows, total, err = tr[domain.EntityProduct].ListTrashed(ctx, TrashQuery{Search: "sku-1", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, p1.ID, rows[0].ID)

	rows, _, err = tr[domain.EntityLead].ListTrashed(ctx, TrashQuery{Search: "lovelace"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ada Lovelace", rows[0].Name)
	assert.Equal(t, "ada@engines.test", rows[0].Identifier)

	n, err := tr[domain.EntityUser].CountTrashed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// trashed leads are invisible to the party boundary
	_, err = NewPartyRepository(db).FindLead(ctx, lead.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
