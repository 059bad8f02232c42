package domain

// Status is the lifecycle state of a sales document.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusSent     Status = "SENT"
	StatusViewed   Status = "VIEWED"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
	StatusPaid     Status = "PAID"
)

func (s Status) String() string { return string(s) }

// IsValidFor reports whether s is a state the given document type can be in.
func (s Status) IsValidFor(t DocumentType) bool {
	switch t {
	case DocumentTypeQuotation:
		switch s {
		case StatusDraft, StatusSent, StatusViewed, StatusAccepted, StatusRejected:
			return true
		}
	case DocumentTypeInvoice:
		switch s {
		case StatusDraft, StatusSent, StatusPaid:
			return true
		}
	}
	return false
}

// TransitionOptions carries the flags a caller may attach to a transition.
type TransitionOptions struct {
	// Reconciliation allows an invoice to go straight from DRAFT to PAID
	// when a payment is recorded against a document that was never sent.
	Reconciliation bool
}

// CanTransition reports whether a document of type t may move from one state
// to another. Reverting to DRAFT is not a transition; see CanRevert.
//
//	QUOTATION: DRAFT -> SENT -> VIEWED -> ACCEPTED | REJECTED
//	INVOICE:   DRAFT -> SENT -> PAID  (DRAFT -> PAID with reconciliation)
func CanTransition(t DocumentType, from, to Status, opts TransitionOptions) bool {
	switch t {
	case DocumentTypeQuotation:
		switch from {
		case StatusDraft:
			return to == StatusSent
		case StatusSent:
			return to == StatusViewed
		case StatusViewed:
			return to == StatusAccepted || to == StatusRejected
		}
	case DocumentTypeInvoice:
		switch from {
		case StatusDraft:
			return to == StatusSent || (to == StatusPaid && opts.Reconciliation)
		case StatusSent:
			return to == StatusPaid
		}
	}
	return false
}

// CanRevert reports whether an explicit revert to DRAFT is allowed.
func CanRevert(t DocumentType, from Status) bool {
	return from != StatusDraft && from.IsValidFor(t)
}

// AllowsFinancialEdit reports whether items, discounts, currency, party or
// dates may be changed. Only notes are editable outside DRAFT.
func AllowsFinancialEdit(s Status) bool {
	return s == StatusDraft
}

// NextStatuses lists the states reachable from s without a revert.
func NextStatuses(t DocumentType, from Status) []Status {
	candidates := []Status{StatusSent, StatusViewed, StatusAccepted, StatusRejected, StatusPaid}
	var out []Status
	for _, to := range candidates {
		if CanTransition(t, from, to, TransitionOptions{Reconciliation: true}) {
			out = append(out, to)
		}
	}
	return out
}
