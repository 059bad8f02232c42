// Package pricing computes line and document totals for sales documents.
//
// All arithmetic is exact base-10 (shopspring/decimal) and nothing is rounded
// while accumulating; rounding to a currency's minor unit happens only in
// Format. The functions are pure so the same code prices a client preview,
// a quotation and an invoice.
package pricing

import (
	"fmt"

	"weconnect-crm/internal/domain"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Item is the pricing-relevant subset of a document line.
type Item struct {
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	TaxRate      decimal.Decimal // percent, 0-100
	DiscountRate decimal.Decimal // percent, 0-100
}

// ItemPrice is the breakdown of a single line.
type ItemPrice struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxableAmount  decimal.Decimal `json:"taxable_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	LineTotal      decimal.Decimal `json:"line_total"`
}

// Discount is a document-level discount applied to the pre-tax subtotal.
type Discount struct {
	Type  domain.DiscountType
	Value decimal.Decimal
}

// Totals is the derived pricing of a whole document.
type Totals struct {
	Items                  []ItemPrice     `json:"items"`
	Subtotal               decimal.Decimal `json:"subtotal"`
	ItemDiscountTotal      decimal.Decimal `json:"item_discount_total"`
	DocumentDiscountAmount decimal.Decimal `json:"document_discount_amount"`
	TaxTotal               decimal.Decimal `json:"tax_total"`
	Adjustment             decimal.Decimal `json:"adjustment"`
	// GrossTotal is the signed result before clamping.
	GrossTotal decimal.Decimal `json:"gross_total"`
	// Total is GrossTotal floored at zero.
	Total decimal.Decimal `json:"total"`
}

// Negative reports whether discounts or adjustment pushed the total below
// zero and it was clamped.
func (t Totals) Negative() bool { return t.GrossTotal.IsNegative() }

// PriceItem applies the line discount before tax:
//
//	subtotal = qty * unitPrice
//	discount = subtotal * discountRate / 100
//	taxable  = subtotal - discount
//	tax      = taxable * taxRate / 100
//	total    = taxable + tax
func PriceItem(it Item) ItemPrice {
	subtotal := it.Quantity.Mul(it.UnitPrice)
	discount := subtotal.Mul(it.DiscountRate).Div(hundred)
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(it.TaxRate).Div(hundred)
	return ItemPrice{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxableAmount:  taxable,
		TaxAmount:      tax,
		LineTotal:      taxable.Add(tax),
	}
}

// PriceDocument aggregates the lines and applies the document discount and
// the signed adjustment. It is deterministic for a given input.
func PriceDocument(items []Item, d Discount, adjustment decimal.Decimal) Totals {
	t := Totals{
		Items:                  make([]ItemPrice, len(items)),
		Subtotal:               decimal.Zero,
		ItemDiscountTotal:      decimal.Zero,
		DocumentDiscountAmount: decimal.Zero,
		TaxTotal:               decimal.Zero,
		Adjustment:             adjustment,
	}
	for i, it := range items {
		p := PriceItem(it)
		t.Items[i] = p
		t.Subtotal = t.Subtotal.Add(p.Subtotal)
		t.ItemDiscountTotal = t.ItemDiscountTotal.Add(p.DiscountAmount)
		t.TaxTotal = t.TaxTotal.Add(p.TaxAmount)
	}

	switch d.Type {
	case domain.DiscountPercent:
		t.DocumentDiscountAmount = t.Subtotal.Mul(d.Value).Div(hundred)
	case domain.DiscountFixed:
		t.DocumentDiscountAmount = d.Value
	}

	t.GrossTotal = t.Subtotal.
		Sub(t.ItemDiscountTotal).
		Sub(t.DocumentDiscountAmount).
		Add(t.TaxTotal).
		Add(adjustment)
	t.Total = decimal.Max(t.GrossTotal, decimal.Zero)
	return t
}

// ValidateItems checks the numeric ranges the engine relies on and returns a
// ValidationError keyed by item index, or nil.
func ValidateItems(items []Item) error {
	ve := domain.NewValidationError()
	for i, it := range items {
		if it.Quantity.IsNegative() {
			ve.Add(fmt.Sprintf("items[%d].quantity", i), "must be >= 0")
		}
		if it.UnitPrice.IsNegative() {
			ve.Add(fmt.Sprintf("items[%d].unit_price", i), "must be >= 0")
		}
		if !inPercentRange(it.TaxRate) {
			ve.Add(fmt.Sprintf("items[%d].tax_rate", i), "must be between 0 and 100")
		}
		if !inPercentRange(it.DiscountRate) {
			ve.Add(fmt.Sprintf("items[%d].discount_rate", i), "must be between 0 and 100")
		}
	}
	return ve.OrNil()
}

// ValidateDiscount checks the document discount against its type.
func ValidateDiscount(d Discount) error {
	ve := domain.NewValidationError()
	switch d.Type {
	case domain.DiscountNone, "":
	case domain.DiscountPercent:
		if !inPercentRange(d.Value) {
			ve.Add("discount_value", "must be between 0 and 100")
		}
	case domain.DiscountFixed:
		if d.Value.IsNegative() {
			ve.Add("discount_value", "must be >= 0")
		}
	default:
		ve.Add("discount_type", "must be one of NONE PERCENT FIXED")
	}
	return ve.OrNil()
}

func inPercentRange(v decimal.Decimal) bool {
	return !v.IsNegative() && v.LessThanOrEqual(hundred)
}
