package repository

import (
	"context"

	"weconnect-crm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PartyRepository is the read boundary onto leads and deals. Trashed records
// are invisible through it.
type PartyRepository interface {
	FindLead(ctx context.Context, id uuid.UUID) (*model.Lead, error)
	FindDeal(ctx context.Context, id uuid.UUID) (*model.Deal, error)
	CreateLead(ctx context.Context, l *model.Lead) error
	CreateDeal(ctx context.Context, d *model.Deal) error
}

type partyRepo struct{ db *gorm.DB }

func NewPartyRepository(db *gorm.DB) PartyRepository { return &partyRepo{db: db} }

func (r *partyRepo) FindLead(ctx context.Context, id uuid.UUID) (*model.Lead, error) {
	var l model.Lead
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (r *partyRepo) FindDeal(ctx context.Context, id uuid.UUID) (*model.Deal, error) {
	var d model.Deal
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *partyRepo) CreateLead(ctx context.Context, l *model.Lead) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *partyRepo) CreateDeal(ctx context.Context, d *model.Deal) error {
	return r.db.WithContext(ctx).Create(d).Error
}
