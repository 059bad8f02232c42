package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"weconnect-crm/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TrashedRecord is the kind-agnostic view of a soft-deleted row.
type TrashedRecord struct {
	Kind       domain.EntityKind `json:"kind"`
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	Identifier string            `json:"identifier"`
	DeletedAt  time.Time         `json:"deleted_at"`
}

// TrashQuery filters a trash listing for a single kind.
type TrashQuery struct {
	Search string
	Offset int
	Limit  int
}

// Trashable is the soft-delete capability every governed entity kind
// exposes. Restore and purge share one guard (deleted_at IS NOT NULL) that
// is evaluated atomically by the database, so a purge never removes a row a
// concurrent restore already brought back.
type Trashable interface {
	Kind() domain.EntityKind
	// SoftDelete marks the record deleted. Deleting an already-deleted record
	// is a no-op; a missing record yields ErrNotFound.
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	Restore(ctx context.Context, id uuid.UUID) error
	Purge(ctx context.Context, id uuid.UUID) error
	IsDeleted(ctx context.Context, id uuid.UUID) (bool, error)
	ListTrashed(ctx context.Context, q TrashQuery) ([]TrashedRecord, int64, error)
	CountTrashed(ctx context.Context) (int64, error)
	// ExpiredIDs lists records deleted at or before cutoff, oldest first.
	ExpiredIDs(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
	// PurgeExpired hard-deletes id only if it is still deleted at or before
	// cutoff. It reports whether a row was removed.
	PurgeExpired(ctx context.Context, id uuid.UUID, cutoff time.Time) (bool, error)
}

// TrashSpec describes how a table participates in the trash.
type TrashSpec struct {
	Kind  domain.EntityKind
	Table string
	// NameExpr and IdentifierExpr are SQL expressions rendered in listings
	// and matched by search.
	NameExpr       string
	IdentifierExpr string
	// ScopeColumn/ScopeValue restrict the table to one discriminator value,
	// e.g. document_type = 'INVOICE'.
	ScopeColumn string
	ScopeValue  any
	// Children are (table, foreign key) pairs removed together with a purge.
	Children []ChildTable
}

type ChildTable struct {
	Table      string
	ForeignKey string
}

type gormTrashable struct {
	db   *gorm.DB
	spec TrashSpec
}

// NewTrashable returns the GORM implementation of Trashable for spec.
func NewTrashable(db *gorm.DB, spec TrashSpec) Trashable {
	return &gormTrashable{db: db, spec: spec}
}

// DefaultTrashables wires every entity kind the CRM exposes in the trash.
func DefaultTrashables(db *gorm.DB) []Trashable {
	docChildren := []ChildTable{
		{Table: "document_items", ForeignKey: "document_id"},
		{Table: "document_events", ForeignKey: "document_id"},
	}
	return []Trashable{
		NewTrashable(db, TrashSpec{Kind: domain.EntityUser, Table: "users", NameExpr: "name", IdentifierExpr: "email"}),
		NewTrashable(db, TrashSpec{Kind: domain.EntityLead, Table: "leads", NameExpr: "TRIM(first_name || ' ' || last_name)", IdentifierExpr: "email"}),
		NewTrashable(db, TrashSpec{Kind: domain.EntityProduct, Table: "products", NameExpr: "name", IdentifierExpr: "sku"}),
		NewTrashable(db, TrashSpec{
			Kind: domain.EntityQuotation, Table: "sales_documents",
			NameExpr: "COALESCE(NULLIF(subject, ''), party_name)", IdentifierExpr: "number",
			ScopeColumn: "document_type", ScopeValue: string(domain.DocumentTypeQuotation),
			Children: docChildren,
		}),
		NewTrashable(db, TrashSpec{
			Kind: domain.EntityInvoice, Table: "sales_documents",
			NameExpr: "COALESCE(NULLIF(subject, ''), party_name)", IdentifierExpr: "number",
			ScopeColumn: "document_type", ScopeValue: string(domain.DocumentTypeInvoice),
			Children: docChildren,
		}),
	}
}

func (t *gormTrashable) Kind() domain.EntityKind { return t.spec.Kind }

// scoped appends the discriminator condition to a WHERE clause.
func (t *gormTrashable) scoped(where string, args ...any) (string, []any) {
	if t.spec.ScopeColumn == "" {
		return where, args
	}
	return where + " AND " + t.spec.ScopeColumn + " = ?", append(args, t.spec.ScopeValue)
}

func (t *gormTrashable) notInTrash(id uuid.UUID) error {
	return &domain.NotInTrashError{Kind: t.spec.Kind, ID: id}
}

func (t *gormTrashable) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	where, args := t.scoped("id = ? AND deleted_at IS NULL", id)
	res := t.db.WithContext(ctx).Exec(
		"UPDATE "+t.spec.Table+" SET deleted_at = ? WHERE "+where,
		append([]any{at.UTC()}, args...)...,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	exists, err := t.exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return nil
}

func (t *gormTrashable) Restore(ctx context.Context, id uuid.UUID) error {
	where, args := t.scoped("id = ? AND deleted_at IS NOT NULL", id)
	res := t.db.WithContext(ctx).Exec("UPDATE "+t.spec.Table+" SET deleted_at = NULL WHERE "+where, args...)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return t.notInTrash(id)
	}
	return nil
}

func (t *gormTrashable) Purge(ctx context.Context, id uuid.UUID) error {
	removed, err := t.purge(ctx, id, nil)
	if err != nil {
		return err
	}
	if !removed {
		return t.notInTrash(id)
	}
	return nil
}

func (t *gormTrashable) PurgeExpired(ctx context.Context, id uuid.UUID, cutoff time.Time) (bool, error) {
	c := cutoff.UTC()
	return t.purge(ctx, id, &c)
}

// errNothingPurged rolls back child deletes when the guarded parent delete
// matched no row.
var errNothingPurged = errors.New("nothing purged")

func (t *gormTrashable) purge(ctx context.Context, id uuid.UUID, cutoff *time.Time) (bool, error) {
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range t.spec.Children {
			if err := tx.Exec("DELETE FROM "+c.Table+" WHERE "+c.ForeignKey+" = ?", id).Error; err != nil {
				return fmt.Errorf("purge %s: %w", c.Table, err)
			}
		}
		cond := "id = ? AND deleted_at IS NOT NULL"
		args := []any{id}
		if cutoff != nil {
			cond += " AND deleted_at <= ?"
			args = append(args, *cutoff)
		}
		where, args := t.scoped(cond, args...)
		res := tx.Exec("DELETE FROM "+t.spec.Table+" WHERE "+where, args...)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNothingPurged
		}
		return nil
	})
	if errors.Is(err, errNothingPurged) {
		return false, nil
	}
	return err == nil, err
}

func (t *gormTrashable) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	where, args := t.scoped("id = ?", id)
	err := t.db.WithContext(ctx).Table(t.spec.Table).Where(where, args...).Count(&n).Error
	return n > 0, err
}

func (t *gormTrashable) IsDeleted(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	where, args := t.scoped("id = ? AND deleted_at IS NOT NULL", id)
	err := t.db.WithContext(ctx).Table(t.spec.Table).Where(where, args...).Count(&n).Error
	return n > 0, err
}

func (t *gormTrashable) trashedQuery(ctx context.Context, search string) *gorm.DB {
	where, args := t.scoped("deleted_at IS NOT NULL")
	q := t.db.WithContext(ctx).Table(t.spec.Table).Where(where, args...)
	if search != "" {
		p := likePattern(search)
		q = q.Where("(LOWER("+t.spec.NameExpr+") LIKE ? OR LOWER("+t.spec.IdentifierExpr+") LIKE ?)", p, p)
	}
	return q
}

func (t *gormTrashable) ListTrashed(ctx context.Context, q TrashQuery) ([]TrashedRecord, int64, error) {
	var total int64
	if err := t.trashedQuery(ctx, q.Search).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []TrashedRecord
	query := t.trashedQuery(ctx, q.Search).
		Select("id, " + t.spec.NameExpr + " AS name, " + t.spec.IdentifierExpr + " AS identifier, deleted_at").
		Order("deleted_at DESC").
		Offset(q.Offset)
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	for i := range rows {
		rows[i].Kind = t.spec.Kind
	}
	return rows, total, nil
}

func (t *gormTrashable) CountTrashed(ctx context.Context) (int64, error) {
	var n int64
	err := t.trashedQuery(ctx, "").Count(&n).Error
	return n, err
}

func (t *gormTrashable) ExpiredIDs(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	where, args := t.scoped("deleted_at IS NOT NULL AND deleted_at <= ?", cutoff.UTC())
	q := t.db.WithContext(ctx).Table(t.spec.Table).Where(where, args...).Order("deleted_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Pluck("id", &ids).Error
	return ids, err
}
