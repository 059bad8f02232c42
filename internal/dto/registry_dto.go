package dto

import "github.com/shopspring/decimal"

type CurrencyResponse struct {
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Symbol       string          `json:"symbol"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	MinorUnits   int             `json:"minor_units"`
	IsDefault    bool            `json:"is_default"`
}

type TaxRateResponse struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Rate decimal.Decimal `json:"rate"`
}
