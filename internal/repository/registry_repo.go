package repository

import (
	"context"
	"strings"

	"weconnect-crm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegistryRepository reads the currency and tax-rate reference tables.
type RegistryRepository interface {
	ListCurrencies(ctx context.Context, activeOnly bool) ([]model.Currency, error)
	FindCurrency(ctx context.Context, code string) (*model.Currency, error)
	ListTaxRates(ctx context.Context, activeOnly bool) ([]model.TaxRate, error)
	FindTaxRate(ctx context.Context, id uuid.UUID) (*model.TaxRate, error)
	UpsertCurrency(ctx context.Context, c *model.Currency) error
	CreateTaxRate(ctx context.Context, t *model.TaxRate) error
}

type registryRepo struct{ db *gorm.DB }

func NewRegistryRepository(db *gorm.DB) RegistryRepository { return &registryRepo{db: db} }

func (r *registryRepo) ListCurrencies(ctx context.Context, activeOnly bool) ([]model.Currency, error) {
	var out []model.Currency
	q := r.db.WithContext(ctx)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("is_default DESC").Order("code ASC").Find(&out).Error
	return out, err
}

func (r *registryRepo) FindCurrency(ctx context.Context, code string) (*model.Currency, error) {
	var c model.Currency
	err := r.db.WithContext(ctx).Where("code = ?", strings.ToUpper(code)).First(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *registryRepo) ListTaxRates(ctx context.Context, activeOnly bool) ([]model.TaxRate, error) {
	var out []model.TaxRate
	q := r.db.WithContext(ctx)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("rate ASC").Order("name ASC").Find(&out).Error
	return out, err
}

func (r *registryRepo) FindTaxRate(ctx context.Context, id uuid.UUID) (*model.TaxRate, error) {
	var t model.TaxRate
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *registryRepo) UpsertCurrency(ctx context.Context, c *model.Currency) error {
	c.Code = strings.ToUpper(c.Code)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "symbol", "exchange_rate", "is_active", "is_default"}),
	}).Create(c).Error
}

func (r *registryRepo) CreateTaxRate(ctx context.Context, t *model.TaxRate) error {
	return r.db.WithContext(ctx).Create(t).Error
}
