package model

import (
	"time"

	"weconnect-crm/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PartySnapshot is the counterparty data copied into a document when it is
// created. It never follows later edits of the source lead.
type PartySnapshot struct {
	Name    string
	Email   string
	Phone   string
	Address string
	City    string
	State   string
	Country string
	ZipCode string
}

// SalesDocument stores quotations and invoices in one table, discriminated
// by DocumentType. Number is unique per type and is never reassigned.
//
// The monetary columns after Adjustment are a cache of the pricing engine's
// output and are rewritten on every create/update.
type SalesDocument struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey"`
	DocumentType domain.DocumentType `gorm:"type:varchar(20);not null;uniqueIndex:idx_sales_documents_type_number,priority:1"`
	Number       string              `gorm:"type:varchar(32);not null;uniqueIndex:idx_sales_documents_type_number,priority:2"`
	Sequence     int64               `gorm:"not null"`

	SourceKind        *domain.SourceKind `gorm:"type:varchar(20)"`
	SourceID          *uuid.UUID         `gorm:"type:uuid;index"`
	SourceQuotationID *uuid.UUID         `gorm:"type:uuid;index"`
	// ConvertedInvoiceID is written on a quotation after it was promoted.
	ConvertedInvoiceID *uuid.UUID `gorm:"type:uuid"`

	Subject string
	Party   PartySnapshot `gorm:"embedded;embeddedPrefix:party_"`

	CurrencyCode    string        `gorm:"type:varchar(3);not null"`
	Status          domain.Status `gorm:"type:varchar(20);not null;index"`
	StatusChangedAt *time.Time

	DiscountType  domain.DiscountType `gorm:"type:varchar(10);not null;default:'NONE'"`
	DiscountValue decimal.Decimal     `gorm:"type:numeric(20,6);not null;default:0"`
	Adjustment    decimal.Decimal     `gorm:"type:numeric(20,6);not null;default:0"`

	Subtotal               decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	ItemDiscountTotal      decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	DocumentDiscountAmount decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	TaxTotal               decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	GrossTotal             decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	Total                  decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`

	ValidUntil *time.Time `gorm:"type:date"`
	DueDate    *time.Time `gorm:"type:date"`
	Notes      string     `gorm:"type:text"`
	Terms      string     `gorm:"type:text"`

	Version   int64      `gorm:"not null;default:1"`
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	Items []DocumentItem `gorm:"foreignKey:DocumentID"`
}

func (d *SalesDocument) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// DocumentItem is one priced line. ProductID is informational only.
type DocumentItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	DocumentID   uuid.UUID       `gorm:"type:uuid;index;not null"`
	Position     int             `gorm:"not null"`
	ProductID    *uuid.UUID      `gorm:"type:uuid"`
	Name         string          `gorm:"not null"`
	Description  string          `gorm:"type:text"`
	Quantity     decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	Unit         string          `gorm:"type:varchar(20)"`
	UnitPrice    decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	TaxRate      decimal.Decimal `gorm:"type:numeric(9,4);not null;default:0"`
	DiscountRate decimal.Decimal `gorm:"type:numeric(9,4);not null;default:0"`
	LineTotal    decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
}

func (i *DocumentItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// DocumentSequence holds the last number handed out per document type.
type DocumentSequence struct {
	DocumentType domain.DocumentType `gorm:"type:varchar(20);primaryKey"`
	Prefix       string              `gorm:"type:varchar(8);not null"`
	LastValue    int64               `gorm:"not null;default:0"`
}

// Document event actions.
const (
	EventCreated      = "CREATED"
	EventUpdated      = "UPDATED"
	EventNotesUpdated = "NOTES_UPDATED"
	EventTransition   = "TRANSITION"
	EventReverted     = "REVERTED"
	EventLinked       = "LINKED"
)

// DocumentEvent is the audit trail of a sales document.
type DocumentEvent struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	DocumentID uuid.UUID  `gorm:"type:uuid;index;not null"`
	Action     string     `gorm:"type:varchar(20);not null"`
	FromStatus string     `gorm:"type:varchar(20)"`
	ToStatus   string     `gorm:"type:varchar(20)"`
	Version    int64      `gorm:"not null"`
	ActorID    *uuid.UUID `gorm:"type:uuid"`
	Reason     string     `gorm:"type:text"`
	CreatedAt  time.Time  `gorm:"index"`
}

func (e *DocumentEvent) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// All lists every persisted model, in dependency order, for AutoMigrate in
// tests and local sqlite runs.
func All() []any {
	return []any{
		&User{}, &Lead{}, &Deal{}, &Product{}, &Currency{}, &TaxRate{},
		&DocumentSequence{}, &SalesDocument{}, &DocumentItem{}, &DocumentEvent{},
	}
}
