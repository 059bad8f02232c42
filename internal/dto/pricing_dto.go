package dto

import "github.com/shopspring/decimal"

type PricingPreviewRequest struct {
	CurrencyCode  string          `json:"currency_code"  validate:"omitempty,len=3"`
	Items         []LineItemInput `json:"items"          validate:"dive"`
	DiscountType  string          `json:"discount_type"  validate:"omitempty,oneof=NONE PERCENT FIXED"`
	DiscountValue decimal.Decimal `json:"discount_value" validate:"gte=0"`
	Adjustment    decimal.Decimal `json:"adjustment"`
}

type PricedItemResponse struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxableAmount  decimal.Decimal `json:"taxable_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	LineTotal      decimal.Decimal `json:"line_total"`
}

type PricingPreviewResponse struct {
	Items                  []PricedItemResponse `json:"items"`
	Subtotal               decimal.Decimal      `json:"subtotal"`
	ItemDiscountTotal      decimal.Decimal      `json:"item_discount_total"`
	DocumentDiscountAmount decimal.Decimal      `json:"document_discount_amount"`
	TaxTotal               decimal.Decimal      `json:"tax_total"`
	Adjustment             decimal.Decimal      `json:"adjustment"`
	GrossTotal             decimal.Decimal      `json:"gross_total"`
	Total                  decimal.Decimal      `json:"total"`
	TotalClamped           bool                 `json:"total_clamped"`
	FormattedTotal         string               `json:"formatted_total"`
}
