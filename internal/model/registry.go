package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Currency is a registry entry keyed by its ISO 4217 code.
type Currency struct {
	Code         string          `gorm:"type:varchar(3);primaryKey"`
	Name         string          `gorm:"not null"`
	Symbol       string          `gorm:"type:varchar(8);not null"`
	ExchangeRate decimal.Decimal `gorm:"type:numeric(20,8);not null;default:1"`
	IsActive     bool            `gorm:"not null"`
	IsDefault    bool            `gorm:"not null;default:false"`
}

// TaxRate is a named percentage that can be applied to line items.
type TaxRate struct {
	ID       uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name     string          `gorm:"not null"`
	Rate     decimal.Decimal `gorm:"type:numeric(9,4);not null"`
	IsActive bool            `gorm:"not null"`
}

func (t *TaxRate) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
