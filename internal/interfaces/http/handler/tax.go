package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	taxapp "github.com/taxbridge/backend/internal/application/tax"
	"github.com/taxbridge/backend/internal/infrastructure/logger"
	"github.com/taxbridge/backend/internal/interfaces/http/middleware"
)

// TaxHandler serves tax calculation and the calculator catalog
type TaxHandler struct {
	BaseHandler
	calculation *taxapp.CalculationService
	settings    *taxapp.SettingsService
}

// NewTaxHandler creates a new TaxHandler
func NewTaxHandler(calculation *taxapp.CalculationService, settings *taxapp.SettingsService) *TaxHandler {
	return &TaxHandler{
		calculation: calculation,
		settings:    settings,
	}
}

// TaxRuleRequest is a rate placeholder of a line item
type TaxRuleRequest struct {
	TaxRate decimal.Decimal `json:"tax_rate"`
	// Percentage of the price the rate applies to, 100 when omitted
	Percentage *decimal.Decimal `json:"percentage"`
}

// LineItemRequest is one line item to calculate
type LineItemRequest struct {
	ID           *uuid.UUID       `json:"id"`
	ReferencedID string           `json:"referenced_id" binding:"max=255"`
	Label        string           `json:"label" binding:"max=255"`
	Quantity     int              `json:"quantity" binding:"min=1"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	TotalPrice   *decimal.Decimal `json:"total_price"`
	TaxRules     []TaxRuleRequest `json:"tax_rules" binding:"max=10"`
}

// CalculateTaxRequest is the body of POST /tax/calculate. Context fields
// left empty come from the channel's tax setting.
type CalculateTaxRequest struct {
	SalesChannelID string            `json:"sales_channel_id" binding:"required,max=64"`
	CartToken      string            `json:"cart_token" binding:"max=128"`
	Capability     string            `json:"capability" binding:"omitempty,capability"`
	TaxState       string            `json:"tax_state" binding:"omitempty,tax_state"`
	Currency       string            `json:"currency" binding:"omitempty,len=3"`
	Country        string            `json:"country" binding:"omitempty,len=2"`
	Locale         string            `json:"locale" binding:"max=35"`
	LineItems      []LineItemRequest `json:"line_items" binding:"required,min=1,max=500,dive"`
}

// ToInput converts the request to the application input
func (r CalculateTaxRequest) ToInput() taxapp.CalculateInput {
	input := taxapp.CalculateInput{
		SalesChannelID: r.SalesChannelID,
		CartToken:      r.CartToken,
		Capability:     r.Capability,
		TaxState:       r.TaxState,
		Currency:       r.Currency,
		Country:        r.Country,
		Locale:         r.Locale,
		LineItems:      make([]taxapp.LineItemInput, len(r.LineItems)),
	}
	for i, item := range r.LineItems {
		rules := make([]taxapp.TaxRuleInput, len(item.TaxRules))
		for j, rule := range item.TaxRules {
			rules[j] = taxapp.TaxRuleInput{TaxRate: rule.TaxRate, Percentage: rule.Percentage}
		}
		input.LineItems[i] = taxapp.LineItemInput{
			ID:           item.ID,
			ReferencedID: item.ReferencedID,
			Label:        item.Label,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			TotalPrice:   item.TotalPrice,
			TaxRules:     rules,
		}
	}
	return input
}

// Calculate runs the line items of a cart through the calculator
// registered for the channel's capability. Unmatched carts come back as sent.
func (h *TaxHandler) Calculate(c *gin.Context) {
	var req CalculateTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	ctx := logger.WithSalesChannelID(c.Request.Context(), req.SalesChannelID)
	c.Request = c.Request.WithContext(ctx)

	out, err := h.calculation.Calculate(ctx, req.ToInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}

// ListCalculators returns the registered calculators in resolution order
func (h *TaxHandler) ListCalculators(c *gin.Context) {
	h.Success(c, h.settings.ListCalculators())
}
