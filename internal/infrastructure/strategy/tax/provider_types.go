package tax

import "github.com/shopspring/decimal"

// providerRequest is the body posted to the provider's tax endpoint
type providerRequest struct {
	Currency  string                `json:"currency"`
	Country   string                `json:"country"`
	TaxState  string                `json:"tax_state"`
	LineItems []providerRequestItem `json:"line_items"`
}

type providerRequestItem struct {
	ID         string          `json:"id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// providerResponse is the provider's quote
type providerResponse struct {
	TransactionID string                 `json:"transaction_id"`
	LineItems     []providerResponseItem `json:"line_items"`
}

type providerResponseItem struct {
	ID      string          `json:"id"`
	TaxRate decimal.Decimal `json:"tax_rate"`
	Tax     decimal.Decimal `json:"tax"`
}

// providerErrorResponse is returned by providers on failure
type providerErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
