// Package domain holds the enumerations, lifecycle rules and error kinds
// shared by every layer of the sales document engine. It has no I/O.
package domain

import (
	"strings"
	"time"
)

// DocumentType discriminates the two sales document variants that share
// pricing, numbering and prefill logic.
type DocumentType string

const (
	DocumentTypeQuotation DocumentType = "QUOTATION"
	DocumentTypeInvoice   DocumentType = "INVOICE"
)

// IsValid reports whether t is a known document type.
func (t DocumentType) IsValid() bool {
	return t == DocumentTypeQuotation || t == DocumentTypeInvoice
}

// Prefix returns the number prefix used by the sequence allocator.
func (t DocumentType) Prefix() string {
	switch t {
	case DocumentTypeQuotation:
		return "QUO"
	case DocumentTypeInvoice:
		return "INV"
	}
	return ""
}

// Kind maps the document type onto the trash entity kind.
func (t DocumentType) Kind() EntityKind {
	if t == DocumentTypeInvoice {
		return EntityInvoice
	}
	return EntityQuotation
}

// ParseDocumentType accepts both the enum value and the plural route segment
// ("quotations", "invoices").
func ParseDocumentType(s string) (DocumentType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quotation", "quotations":
		return DocumentTypeQuotation, true
	case "invoice", "invoices":
		return DocumentTypeInvoice, true
	}
	return "", false
}

// SourceKind identifies the party record a document was created from.
type SourceKind string

const (
	SourceLead      SourceKind = "LEAD"
	SourceDeal      SourceKind = "DEAL"
	SourceQuotation SourceKind = "QUOTATION"
)

func (k SourceKind) IsValid() bool {
	return k == SourceLead || k == SourceDeal || k == SourceQuotation
}

// IsParty reports whether the source is a party record (as opposed to a
// quotation being promoted).
func (k SourceKind) IsParty() bool {
	return k == SourceLead || k == SourceDeal
}

// DiscountType selects how a document-level discount is interpreted.
type DiscountType string

const (
	DiscountNone    DiscountType = "NONE"
	DiscountPercent DiscountType = "PERCENT"
	DiscountFixed   DiscountType = "FIXED"
)

func (d DiscountType) IsValid() bool {
	return d == DiscountNone || d == DiscountPercent || d == DiscountFixed
}

// EntityKind enumerates every record type the trash manager governs.
type EntityKind string

const (
	EntityUser      EntityKind = "USER"
	EntityLead      EntityKind = "LEAD"
	EntityProduct   EntityKind = "PRODUCT"
	EntityQuotation EntityKind = "QUOTATION"
	EntityInvoice   EntityKind = "INVOICE"
)

// EntityKinds lists the trashable kinds in display order.
var EntityKinds = []EntityKind{EntityUser, EntityLead, EntityProduct, EntityQuotation, EntityInvoice}

// ParseEntityKind accepts the enum value or its plural lower-case route form.
func ParseEntityKind(s string) (EntityKind, bool) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.TrimSuffix(v, "S")
	for _, k := range EntityKinds {
		if string(k) == v {
			return k, true
		}
	}
	return "", false
}

// TrashRetention is how long a soft-deleted record stays restorable.
const TrashRetention = 30 * 24 * time.Hour

// NumberPadding is the zero-padded width of the numeric part of a document number.
const NumberPadding = 6
