package tax

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taxbridge/backend/internal/domain/checkout"
	"github.com/taxbridge/backend/internal/domain/shared/strategy"
	"github.com/taxbridge/backend/internal/domain/taxprovider"
)

// TaxRuleInput is a rate placeholder of a line item
type TaxRuleInput struct {
	TaxRate decimal.Decimal
	// Percentage of the price the rate applies to, 100 when nil
	Percentage *decimal.Decimal
}

// LineItemInput is one line item of a calculation request
type LineItemInput struct {
	// ID is generated when nil
	ID           *uuid.UUID
	ReferencedID string
	Label        string
	Quantity     int
	UnitPrice    decimal.Decimal
	// TotalPrice defaults to UnitPrice * Quantity
	TotalPrice *decimal.Decimal
	TaxRules   []TaxRuleInput
}

// CalculateInput is a calculation request. Empty context fields are taken
// from the channel's stored setting.
type CalculateInput struct {
	SalesChannelID string
	CartToken      string
	Capability     string
	TaxState       string
	Currency       string
	Country        string
	Locale         string
	LineItems      []LineItemInput
}

// TaxRuleResponse represents a tax rule in API responses
type TaxRuleResponse struct {
	TaxRate    decimal.Decimal `json:"tax_rate"`
	Percentage decimal.Decimal `json:"percentage"`
}

// CalculatedTaxResponse represents a calculated tax in API responses
type CalculatedTaxResponse struct {
	Tax     decimal.Decimal `json:"tax"`
	TaxRate decimal.Decimal `json:"tax_rate"`
	Price   decimal.Decimal `json:"price"`
}

// TaxProviderResponse names the provider that produced the taxes of a line item
type TaxProviderResponse struct {
	Provider       string `json:"provider"`
	TransactionRef string `json:"transaction_ref,omitempty"`
}

// LineItemResponse represents a calculated line item in API responses
type LineItemResponse struct {
	ID              uuid.UUID               `json:"id"`
	ReferencedID    string                  `json:"referenced_id,omitempty"`
	Label           string                  `json:"label,omitempty"`
	Quantity        int                     `json:"quantity"`
	UnitPrice       decimal.Decimal         `json:"unit_price"`
	TotalPrice      decimal.Decimal         `json:"total_price"`
	TaxRules        []TaxRuleResponse       `json:"tax_rules"`
	CalculatedTaxes []CalculatedTaxResponse `json:"calculated_taxes"`
	TaxProvider     *TaxProviderResponse    `json:"tax_provider,omitempty"`
}

// CartPriceResponse represents the cart totals in API responses
type CartPriceResponse struct {
	NetPrice        decimal.Decimal         `json:"net_price"`
	TotalPrice      decimal.Decimal         `json:"total_price"`
	PositionPrice   decimal.Decimal         `json:"position_price"`
	TaxState        string                  `json:"tax_state"`
	CalculatedTaxes []CalculatedTaxResponse `json:"calculated_taxes"`
}

// CalculateOutput is the result of a calculation request
type CalculateOutput struct {
	SalesChannelID string `json:"sales_channel_id"`
	Capability     string `json:"capability"`
	// Calculator is empty when no calculator supports the capability
	Calculator string             `json:"calculator,omitempty"`
	Matched    bool               `json:"matched"`
	TaxState   string             `json:"tax_state"`
	Currency   string             `json:"currency"`
	LineItems  []LineItemResponse `json:"line_items"`
	Price      CartPriceResponse  `json:"price"`
}

// ChannelSettingResponse represents a channel tax setting in API responses
type ChannelSettingResponse struct {
	ID             uuid.UUID `json:"id"`
	SalesChannelID string    `json:"sales_channel_id"`
	Capability     string    `json:"capability"`
	TaxState       string    `json:"tax_state"`
	Currency       string    `json:"currency"`
	Country        string    `json:"country,omitempty"`
	Locale         string    `json:"locale,omitempty"`
	Active         bool      `json:"active"`
	Version        int       `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UpsertChannelSettingInput creates or replaces a channel setting
type UpsertChannelSettingInput struct {
	Capability string
	TaxState   string
	Currency   string
	Country    string
	Locale     string
	Active     bool
	// ExpectedVersion, when set, must match the stored version. Zero means
	// the setting must not exist yet.
	ExpectedVersion *int
}

// ChannelSettingListFilter filters the channel setting list
type ChannelSettingListFilter struct {
	Page       int
	PageSize   int
	Search     string
	OrderBy    string
	OrderDir   string
	Active     *bool
	Capability string
}

// CalculatorResponse describes a registered calculator
type CalculatorResponse struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	// Priority is the position in the registry, 0 resolves first
	Priority int `json:"priority"`
}

// ToChannelSettingResponse converts a domain setting
func ToChannelSettingResponse(s *taxprovider.ChannelSetting) ChannelSettingResponse {
	return ChannelSettingResponse{
		ID:             s.ID,
		SalesChannelID: s.SalesChannelID,
		Capability:     s.Capability.String(),
		TaxState:       string(s.TaxState),
		Currency:       s.Currency,
		Country:        s.Country,
		Locale:         s.Locale,
		Active:         s.Active,
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// ToLineItemResponse converts a domain line item
func ToLineItemResponse(item checkout.LineItem) LineItemResponse {
	resp := LineItemResponse{
		ID:              item.ID,
		ReferencedID:    item.ReferencedID,
		Label:           item.Label,
		Quantity:        item.Quantity,
		UnitPrice:       item.UnitPrice,
		TotalPrice:      item.TotalPrice,
		TaxRules:        make([]TaxRuleResponse, len(item.TaxRules)),
		CalculatedTaxes: toCalculatedTaxResponses(item.CalculatedTaxes),
	}
	for i, rule := range item.TaxRules {
		resp.TaxRules[i] = TaxRuleResponse{TaxRate: rule.TaxRate, Percentage: rule.Percentage}
	}
	if item.TaxProvider != nil {
		resp.TaxProvider = &TaxProviderResponse{
			Provider:       item.TaxProvider.Provider,
			TransactionRef: item.TaxProvider.TransactionRef,
		}
	}
	return resp
}

// ToCartPriceResponse converts cart totals
func ToCartPriceResponse(p checkout.CartPrice) CartPriceResponse {
	return CartPriceResponse{
		NetPrice:        p.NetPrice,
		TotalPrice:      p.TotalPrice,
		PositionPrice:   p.PositionPrice,
		TaxState:        string(p.TaxState),
		CalculatedTaxes: toCalculatedTaxResponses(p.CalculatedTaxes),
	}
}

func toCalculatedTaxResponses(taxes checkout.CalculatedTaxCollection) []CalculatedTaxResponse {
	out := make([]CalculatedTaxResponse, len(taxes))
	for i, t := range taxes {
		out[i] = CalculatedTaxResponse{Tax: t.Tax, TaxRate: t.TaxRate, Price: t.Price}
	}
	return out
}

// ToCalculatorResponse describes calculator registered at priority
func ToCalculatorResponse(c strategy.TaxCalculator, priority int) CalculatorResponse {
	resp := CalculatorResponse{
		Name:         c.Name(),
		Description:  c.Description(),
		Capabilities: []string{},
		Priority:     priority,
	}
	if lister, ok := c.(strategy.CapabilityLister); ok {
		for _, capability := range lister.Capabilities() {
			resp.Capabilities = append(resp.Capabilities, capability.String())
		}
	}
	return resp
}
