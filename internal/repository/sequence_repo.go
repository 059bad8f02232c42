package repository

import (
	"context"
	"fmt"

	"weconnect-crm/internal/domain"
	"weconnect-crm/internal/model"

	"gorm.io/gorm"
)

// SequenceRepository hands out document numbers.
type SequenceRepository interface {
	// Next increments the counter for t inside tx and returns the new value.
	// The row stays locked until tx ends, so concurrent callers queue and a
	// rollback gives the value back.
	Next(ctx context.Context, tx *gorm.DB, t domain.DocumentType) (model.DocumentSequence, error)
	// Peek returns the counter without changing it.
	Peek(ctx context.Context, t domain.DocumentType) (model.DocumentSequence, error)
}

type sequenceRepo struct{ db *gorm.DB }

func NewSequenceRepository(db *gorm.DB) SequenceRepository { return &sequenceRepo{db: db} }

func (r *sequenceRepo) Next(ctx context.Context, tx *gorm.DB, t domain.DocumentType) (model.DocumentSequence, error) {
	if tx == nil {
		tx = r.db
	}
	var seq model.DocumentSequence
	res := tx.WithContext(ctx).Raw(
		`UPDATE document_sequences SET last_value = last_value + 1 WHERE document_type = ? RETURNING document_type, prefix, last_value`,
		t,
	).Scan(&seq)
	if res.Error != nil {
		return seq, fmt.Errorf("allocate %s number: %w", t, res.Error)
	}
	if res.RowsAffected == 0 {
		return seq, fmt.Errorf("allocate %s number: sequence not seeded", t)
	}
	return seq, nil
}

func (r *sequenceRepo) Peek(ctx context.Context, t domain.DocumentType) (model.DocumentSequence, error) {
	var seq model.DocumentSequence
	err := r.db.WithContext(ctx).Where("document_type = ?", t).First(&seq).Error
	return seq, notFound(err)
}
