package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Lead is a prospective customer. Only the fields a sales document copies
// into its party snapshot are modelled here.
type Lead struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	FirstName string    `gorm:"not null"`
	LastName  string
	Company   string
	Email     string `gorm:"index"`
	Phone     string
	Address   string
	City      string
	State     string
	Country   string
	ZipCode   string
	// Currency is the lead's preferred ISO code, if any.
	Currency  *string `gorm:"type:varchar(3)"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (l *Lead) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// FullName joins first and last name, skipping blanks.
func (l *Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// Deal is an opportunity, optionally attached to a lead.
type Deal struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Title     string          `gorm:"not null"`
	LeadID    *uuid.UUID      `gorm:"type:uuid;index"`
	Amount    decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	Currency  *string         `gorm:"type:varchar(3)"`
	Stage     string          `gorm:"type:varchar(30)"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (d *Deal) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
