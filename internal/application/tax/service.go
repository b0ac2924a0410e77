package tax

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taxbridge/backend/internal/domain/checkout"
	"github.com/taxbridge/backend/internal/domain/shared"
	"github.com/taxbridge/backend/internal/domain/taxprovider"
	"github.com/taxbridge/backend/internal/infrastructure/logger"
	"github.com/taxbridge/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CalculationService builds the calculation context of a cart and runs it
// through the Dispatcher
type CalculationService struct {
	dispatcher        *Dispatcher
	settings          taxprovider.ChannelSettingRepository
	defaultCapability checkout.Capability
}

// NewCalculationService creates a new CalculationService. defaultCapability
// is used when neither the request nor the channel setting names one.
func NewCalculationService(
	dispatcher *Dispatcher,
	settings taxprovider.ChannelSettingRepository,
	defaultCapability string,
) *CalculationService {
	return &CalculationService{
		dispatcher:        dispatcher,
		settings:          settings,
		defaultCapability: checkout.Capability(defaultCapability),
	}
}

// Calculate computes the taxes of the request's line items. The capability
// is the request's, then the active channel setting's, then the one named
// by the tax state, then the default.
func (s *CalculationService) Calculate(ctx context.Context, input CalculateInput) (*CalculateOutput, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "CalculationService", "Calculate",
		telemetry.WithAttribute(telemetry.SpanAttrSalesChannelID, input.SalesChannelID))
	defer span.End()

	sc, err := s.resolveContext(ctx, input)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	items, err := buildLineItems(input.LineItems)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	original := checkout.NewCart(input.CartToken, items)

	result, err := s.dispatcher.Dispatch(ctx, items, sc, original)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)

	out := &CalculateOutput{
		SalesChannelID: sc.SalesChannelID,
		Capability:     sc.Capability.String(),
		Calculator:     result.Calculator,
		Matched:        result.Matched(),
		TaxState:       string(sc.TaxState),
		Currency:       sc.Currency.String(),
		LineItems:      make([]LineItemResponse, len(result.Items)),
		Price:          ToCartPriceResponse(original.WithLineItems(result.Items).Totals(sc.TaxState)),
	}
	for i, item := range result.Items {
		out.LineItems[i] = ToLineItemResponse(item)
	}

	logger.L(ctx).Info("Cart taxes calculated",
		zap.String("capability", out.Capability),
		zap.String("calculator", out.Calculator),
		zap.Int("line_items", len(out.LineItems)),
		zap.String("total_price", out.Price.TotalPrice.String()),
	)
	return out, nil
}

// resolveContext merges the request with the channel's active setting
func (s *CalculationService) resolveContext(ctx context.Context, input CalculateInput) (checkout.SalesChannelContext, error) {
	channelID := strings.TrimSpace(input.SalesChannelID)
	if channelID == "" {
		return checkout.SalesChannelContext{}, fmt.Errorf("%w: sales channel id is required", shared.ErrInvalidInput)
	}

	values := taxprovider.SettingValues{
		Capability: checkout.Capability(input.Capability),
		TaxState:   checkout.TaxState(input.TaxState),
		Currency:   input.Currency,
		Country:    input.Country,
		Locale:     input.Locale,
	}

	setting, err := s.findActiveSetting(ctx, channelID)
	if err != nil {
		return checkout.SalesChannelContext{}, err
	}
	if setting != nil {
		values.Capability = firstCapability(values.Capability, setting.Capability)
		values.TaxState = firstTaxState(values.TaxState, setting.TaxState)
		values.Currency = firstNonEmpty(values.Currency, setting.Currency)
		values.Country = firstNonEmpty(values.Country, setting.Country)
		values.Locale = firstNonEmpty(values.Locale, setting.Locale)
	}
	values.Capability, values.TaxState = s.resolveModes(values.Capability, values.TaxState)
	if err := checkModes(values.Capability, values.TaxState); err != nil {
		return checkout.SalesChannelContext{}, err
	}

	if values.Currency == "" {
		return checkout.SalesChannelContext{}, fmt.Errorf("%w: currency is required for sales channel %q without a tax setting",
			shared.ErrInvalidInput, channelID)
	}

	return checkout.NewSalesChannelContext(channelID, values.Currency, values.Locale, values.Country, values.TaxState, values.Capability)
}

// resolveModes fills a missing capability from the tax state and a missing
// tax state from a capability named after one. The configured default
// applies only when both are missing.
func (s *CalculationService) resolveModes(capability checkout.Capability, state checkout.TaxState) (checkout.Capability, checkout.TaxState) {
	if capability == "" && state.IsValid() {
		capability = checkout.Capability(state)
	}
	capability = firstCapability(capability, s.defaultCapability)
	if state == "" {
		state = checkout.TaxStateGross
		if derived := checkout.TaxState(capability); derived.IsValid() {
			state = derived
		}
	}
	return capability, state
}

// checkModes rejects a gross or net capability on a cart in another tax state
func checkModes(capability checkout.Capability, state checkout.TaxState) error {
	mode := checkout.TaxState(capability)
	if !state.IsValid() || (mode != checkout.TaxStateGross && mode != checkout.TaxStateNet) {
		return nil
	}
	if mode != state {
		return fmt.Errorf("%w: capability %q cannot calculate a %s cart", shared.ErrInvalidInput, capability, state)
	}
	return nil
}

func (s *CalculationService) findActiveSetting(ctx context.Context, channelID string) (*taxprovider.ChannelSetting, error) {
	if s.settings == nil {
		return nil, nil
	}
	setting, err := s.settings.FindBySalesChannel(ctx, channelID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !setting.Active {
		logger.L(ctx).Debug("Ignoring inactive channel tax setting", zap.String("sales_channel_id", channelID))
		return nil, nil
	}
	return setting, nil
}

func buildLineItems(inputs []LineItemInput) ([]checkout.LineItem, error) {
	items := make([]checkout.LineItem, len(inputs))
	seen := make(map[uuid.UUID]struct{}, len(inputs))
	for i, in := range inputs {
		rules := make([]checkout.TaxRule, len(in.TaxRules))
		for j, r := range in.TaxRules {
			rules[j] = checkout.NewTaxRule(r.TaxRate)
			if r.Percentage != nil {
				rules[j].Percentage = *r.Percentage
			}
			if rules[j].Percentage.IsNegative() || rules[j].Percentage.GreaterThan(decimal.NewFromInt(100)) {
				return nil, fmt.Errorf("%w: line item %d tax rule percentage must be between 0 and 100", shared.ErrInvalidInput, i)
			}
		}

		item, err := checkout.NewLineItem(in.ReferencedID, in.Label, in.Quantity, in.UnitPrice, rules...)
		if err != nil {
			return nil, err
		}
		if in.ID != nil {
			item.ID = *in.ID
		}
		if in.TotalPrice != nil {
			if in.TotalPrice.IsNegative() {
				return nil, fmt.Errorf("%w: line item %s total price cannot be negative", shared.ErrInvalidInput, item.ID)
			}
			item.TotalPrice = *in.TotalPrice
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("%w: line item id %s is used twice", shared.ErrInvalidInput, item.ID)
		}
		seen[item.ID] = struct{}{}
		items[i] = item
	}
	return items, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstCapability(a, b checkout.Capability) checkout.Capability {
	if a != "" {
		return a
	}
	return b
}

func firstTaxState(a, b checkout.TaxState) checkout.TaxState {
	if a != "" {
		return a
	}
	return b
}
