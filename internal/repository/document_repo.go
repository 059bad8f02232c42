package repository

import (
	"context"
	"fmt"
	"time"

	"weconnect-crm/internal/domain"
	"weconnect-crm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentFilter narrows a document listing.
type DocumentFilter struct {
	Type     domain.DocumentType
	Status   domain.Status
	Search   string
	SourceID *uuid.UUID
	Page     int
	Limit    int
}

type DocumentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, d *model.SalesDocument) error
	FindByID(ctx context.Context, t domain.DocumentType, id uuid.UUID) (*model.SalesDocument, error)
	List(ctx context.Context, f DocumentFilter) ([]model.SalesDocument, int64, error)
	// UpdateVersioned writes fields only if the stored version still equals
	// expected, bumping version and updated_at. It returns the new version,
	// ErrConcurrentModification on a stale version, or ErrNotFound.
	UpdateVersioned(ctx context.Context, tx *gorm.DB, id uuid.UUID, expected int64, fields map[string]any) (int64, error)
	ReplaceItems(ctx context.Context, tx *gorm.DB, documentID uuid.UUID, items []model.DocumentItem) error
	// SetConvertedInvoice records the quotation -> invoice link. It does not
	// bump the quotation's version.
	SetConvertedInvoice(ctx context.Context, quotationID, invoiceID uuid.UUID) error
	AppendEvent(ctx context.Context, tx *gorm.DB, e *model.DocumentEvent) error
	ListEvents(ctx context.Context, documentID uuid.UUID) ([]model.DocumentEvent, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type documentRepo struct{ db *gorm.DB }

func NewDocumentRepository(db *gorm.DB) DocumentRepository { return &documentRepo{db: db} }

func (r *documentRepo) DB() *gorm.DB { return r.db }

func (r *documentRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *documentRepo) Create(ctx context.Context, tx *gorm.DB, d *model.SalesDocument) error {
	return r.conn(tx).WithContext(ctx).Create(d).Error
}

func (r *documentRepo) FindByID(ctx context.Context, t domain.DocumentType, id uuid.UUID) (*model.SalesDocument, error) {
	var d model.SalesDocument
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ? AND document_type = ?", id, t).
		First(&d).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *documentRepo) List(ctx context.Context, f DocumentFilter) ([]model.SalesDocument, int64, error) {
	var docs []model.SalesDocument
	var total int64
	offset, limit := Page(f.Page, f.Limit)

	q := r.db.WithContext(ctx).Model(&model.SalesDocument{}).Where("document_type = ?", f.Type)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.SourceID != nil {
		q = q.Where("source_id = ?", *f.SourceID)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where("(LOWER(number) LIKE ? OR LOWER(party_name) LIKE ? OR LOWER(subject) LIKE ?)", p, p, p)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").Order("sequence DESC").
		Offset(offset).Limit(limit).
		Find(&docs).Error
	return docs, total, err
}

func (r *documentRepo) UpdateVersioned(ctx context.Context, tx *gorm.DB, id uuid.UUID, expected int64, fields map[string]any) (int64, error) {
	db := r.conn(tx).WithContext(ctx)

	updates := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = time.Now().UTC()

	res := db.Model(&model.SalesDocument{}).
		Where("id = ? AND version = ?", id, expected).
		UpdateColumns(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := db.Model(&model.SalesDocument{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, domain.ErrNotFound
		}
		return 0, domain.ErrConcurrentModification
	}
	return expected + 1, nil
}

func (r *documentRepo) ReplaceItems(ctx context.Context, tx *gorm.DB, documentID uuid.UUID, items []model.DocumentItem) error {
	db := r.conn(tx).WithContext(ctx)
	if err := db.Where("document_id = ?", documentID).Delete(&model.DocumentItem{}).Error; err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].DocumentID = documentID
	}
	return db.Create(&items).Error
}

func (r *documentRepo) SetConvertedInvoice(ctx context.Context, quotationID, invoiceID uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&model.SalesDocument{}).
		Where("id = ? AND document_type = ?", quotationID, domain.DocumentTypeQuotation).
		UpdateColumn("converted_invoice_id", invoiceID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *documentRepo) AppendEvent(ctx context.Context, tx *gorm.DB, e *model.DocumentEvent) error {
	return r.conn(tx).WithContext(ctx).Create(e).Error
}

func (r *documentRepo) ListEvents(ctx context.Context, documentID uuid.UUID) ([]model.DocumentEvent, error) {
	var events []model.DocumentEvent
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC").Order("version ASC").
		Find(&events).Error
	return events, err
}
