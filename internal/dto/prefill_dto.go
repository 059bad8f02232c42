package dto

import "github.com/shopspring/decimal"

type PrefillQuery struct {
	SourceKind   string `form:"source_kind"   validate:"required,oneof=LEAD DEAL QUOTATION"`
	SourceID     string `form:"source_id"     validate:"required,uuid"`
	DocumentType string `form:"document_type" validate:"required"`
}

// DocumentDraft is an unsaved document proposed from a source record. Its
// shape matches CreateDocumentRequest so a client can post it back as is.
type DocumentDraft struct {
	DocumentType      string          `json:"document_type"`
	SourceKind        string          `json:"source_kind,omitempty"`
	SourceID          string          `json:"source_id,omitempty"`
	SourceQuotationID string          `json:"source_quotation_id,omitempty"`
	Subject           string          `json:"subject"`
	Party             PartyInput      `json:"party"`
	CurrencyCode      string          `json:"currency_code"`
	Items             []LineItemInput `json:"items"`
	DiscountType      string          `json:"discount_type"`
	DiscountValue     decimal.Decimal `json:"discount_value"`
	Adjustment        decimal.Decimal `json:"adjustment"`
	Notes             string          `json:"notes"`
	Terms             string          `json:"terms"`
}

// CreateRequest turns the draft into a create payload.
func (d DocumentDraft) CreateRequest() CreateDocumentRequest {
	items := make([]LineItemInput, len(d.Items))
	copy(items, d.Items)
	return CreateDocumentRequest{
		DocumentFields: DocumentFields{
			Subject:       d.Subject,
			Party:         d.Party,
			CurrencyCode:  d.CurrencyCode,
			Items:         items,
			DiscountType:  d.DiscountType,
			DiscountValue: d.DiscountValue,
			Adjustment:    d.Adjustment,
			Notes:         d.Notes,
			Terms:         d.Terms,
		},
		SourceKind:        d.SourceKind,
		SourceID:          d.SourceID,
		SourceQuotationID: d.SourceQuotationID,
	}
}
