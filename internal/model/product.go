package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry. Documents reference it weakly: its values are
// copied into a line item and later catalog edits never reach the document.
type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	SKU         string    `gorm:"column:sku;uniqueIndex;not null"`
	Name        string    `gorm:"index;not null"`
	Description *string
	Price       decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	Unit        string          `gorm:"not null;default:'unit'"`
	// TaxRate is a percentage, 0-100.
	TaxRate   decimal.Decimal `gorm:"type:numeric(9,4);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
