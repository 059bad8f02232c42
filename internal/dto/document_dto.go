package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────
// Requests never carry computed totals; the server always reprices.

type PartyInput struct {
	Name    string `json:"name"     validate:"max=200"`
	Email   string `json:"email"    validate:"omitempty,email"`
	Phone   string `json:"phone"    validate:"max=50"`
	Address string `json:"address"  validate:"max=300"`
	City    string `json:"city"     validate:"max=100"`
	State   string `json:"state"    validate:"max=100"`
	Country string `json:"country"  validate:"max=100"`
	ZipCode string `json:"zip_code" validate:"max=20"`
}

type LineItemInput struct {
	ProductID *string `json:"product_id,omitempty" validate:"omitempty,uuid"`
	// TaxRateID picks a registry tax rate; it overrides TaxRate when set.
	TaxRateID    *string         `json:"tax_rate_id,omitempty" validate:"omitempty,uuid"`
	Name         string          `json:"name"          validate:"max=200"`
	Description  string          `json:"description"   validate:"max=2000"`
	Quantity     decimal.Decimal `json:"quantity"      validate:"gte=0"`
	Unit         string          `json:"unit"          validate:"max=20"`
	UnitPrice    decimal.Decimal `json:"unit_price"    validate:"gte=0"`
	TaxRate      decimal.Decimal `json:"tax_rate"      validate:"gte=0,lte=100"`
	DiscountRate decimal.Decimal `json:"discount_rate" validate:"gte=0,lte=100"`
}

// DocumentFields are the editable fields shared by create and update.
type DocumentFields struct {
	Subject       string          `json:"subject"        validate:"max=200"`
	Party         PartyInput      `json:"party"`
	CurrencyCode  string          `json:"currency_code"  validate:"required,len=3"`
	Items         []LineItemInput `json:"items"          validate:"dive"`
	DiscountType  string          `json:"discount_type"  validate:"omitempty,oneof=NONE PERCENT FIXED"`
	DiscountValue decimal.Decimal `json:"discount_value" validate:"gte=0"`
	Adjustment    decimal.Decimal `json:"adjustment"`
	ValidUntil    string          `json:"valid_until"    validate:"omitempty,datetime=2006-01-02"`
	DueDate       string          `json:"due_date"       validate:"omitempty,datetime=2006-01-02"`
	Notes         string          `json:"notes"          validate:"max=5000"`
	Terms         string          `json:"terms"          validate:"max=5000"`
}

type CreateDocumentRequest struct {
	DocumentFields
	SourceKind        string `json:"source_kind"         validate:"omitempty,oneof=LEAD DEAL"`
	SourceID          string `json:"source_id"           validate:"omitempty,uuid"`
	SourceQuotationID string `json:"source_quotation_id" validate:"omitempty,uuid"`
}

type UpdateDocumentRequest struct {
	DocumentFields
	Version int64 `json:"version" validate:"required,min=1"`
}

type UpdateNotesRequest struct {
	Notes   string `json:"notes"   validate:"max=5000"`
	Version int64  `json:"version" validate:"required,min=1"`
}

type TransitionRequest struct {
	Status         string `json:"status"  validate:"required,oneof=SENT VIEWED ACCEPTED REJECTED PAID"`
	Version        int64  `json:"version" validate:"required,min=1"`
	Reconciliation bool   `json:"reconciliation"`
}

type RevertRequest struct {
	Version int64  `json:"version" validate:"required,min=1"`
	Reason  string `json:"reason"  validate:"max=500"`
}

type DocumentListQuery struct {
	Status   string `form:"status"`
	Search   string `form:"search"`
	SourceID string `form:"source_id"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type PartyResponse struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	ZipCode string `json:"zip_code"`
}

type LineItemResponse struct {
	ID             string          `json:"id"`
	Position       int             `json:"position"`
	ProductID      *string         `json:"product_id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	DiscountRate   decimal.Decimal `json:"discount_rate"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	LineTotal      decimal.Decimal `json:"line_total"`
}

type DocumentResponse struct {
	ID                 string             `json:"id"`
	DocumentType       string             `json:"document_type"`
	Number             string             `json:"number"`
	SourceKind         *string            `json:"source_kind"`
	SourceID           *string            `json:"source_id"`
	SourceQuotationID  *string            `json:"source_quotation_id"`
	ConvertedInvoiceID *string            `json:"converted_invoice_id"`
	Subject            string             `json:"subject"`
	Party              PartyResponse      `json:"party"`
	CurrencyCode       string             `json:"currency_code"`
	Status             string             `json:"status"`
	NextStatuses       []string           `json:"next_statuses"`
	StatusChangedAt    *time.Time         `json:"status_changed_at"`
	Items              []LineItemResponse `json:"items"`

	DiscountType           string          `json:"discount_type"`
	DiscountValue          decimal.Decimal `json:"discount_value"`
	Adjustment             decimal.Decimal `json:"adjustment"`
	Subtotal               decimal.Decimal `json:"subtotal"`
	ItemDiscountTotal      decimal.Decimal `json:"item_discount_total"`
	DocumentDiscountAmount decimal.Decimal `json:"document_discount_amount"`
	TaxTotal               decimal.Decimal `json:"tax_total"`
	GrossTotal             decimal.Decimal `json:"gross_total"`
	Total                  decimal.Decimal `json:"total"`
	TotalClamped           bool            `json:"total_clamped"`
	FormattedTotal         string          `json:"formatted_total"`

	ValidUntil *string   `json:"valid_until"`
	DueDate    *string   `json:"due_date"`
	Notes      string    `json:"notes"`
	Terms      string    `json:"terms"`
	Version    int64     `json:"version"`
	CreatedBy  *string   `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Warnings report secondary writes that failed after the document itself
	// was saved.
	Warnings []string `json:"warnings,omitempty"`
}

type DocumentListResponse struct {
	Data  []DocumentResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

type DocumentEventResponse struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	Version    int64     `json:"version"`
	ActorID    *string   `json:"actor_id"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type NextNumberResponse struct {
	DocumentType string `json:"document_type"`
	Number       string `json:"number"`
	// Binding is always false: the number is only reserved on create.
	Binding bool `json:"binding"`
}
