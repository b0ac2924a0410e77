package tax

import (
	"context"
	"errors"
	"fmt"

	"github.com/taxbridge/backend/internal/domain/checkout"
	"github.com/taxbridge/backend/internal/domain/shared"
	"github.com/taxbridge/backend/internal/domain/shared/strategy"
	"github.com/taxbridge/backend/internal/domain/taxprovider"
	"github.com/taxbridge/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// CalculatorCatalog lists registered calculators in priority order
type CalculatorCatalog interface {
	CalculatorResolver
	Calculators() []strategy.TaxCalculator
}

// SettingsService manages channel tax settings for the admin API
type SettingsService struct {
	repo        taxprovider.ChannelSettingRepository
	calculators CalculatorCatalog
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(repo taxprovider.ChannelSettingRepository, calculators CalculatorCatalog) *SettingsService {
	return &SettingsService{
		repo:        repo,
		calculators: calculators,
	}
}

// Get retrieves the setting of a sales channel
func (s *SettingsService) Get(ctx context.Context, salesChannelID string) (*ChannelSettingResponse, error) {
	setting, err := s.repo.FindBySalesChannel(ctx, salesChannelID)
	if err != nil {
		return nil, err
	}
	resp := ToChannelSettingResponse(setting)
	return &resp, nil
}

// List retrieves one page of settings and the total count
func (s *SettingsService) List(ctx context.Context, filter ChannelSettingListFilter) ([]ChannelSettingResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Search = filter.Search
	if filter.Active != nil {
		domainFilter.Filters["active"] = *filter.Active
	}
	if filter.Capability != "" {
		domainFilter.Filters["capability"] = filter.Capability
	}

	settings, total, err := s.repo.List(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]ChannelSettingResponse, len(settings))
	for i := range settings {
		out[i] = ToChannelSettingResponse(&settings[i])
	}
	return out, total, nil
}

// Upsert creates the setting of a sales channel or replaces its values. The
// boolean result is true when the setting was created.
func (s *SettingsService) Upsert(ctx context.Context, salesChannelID string, input UpsertChannelSettingInput) (*ChannelSettingResponse, bool, error) {
	values := taxprovider.SettingValues{
		Capability: checkout.Capability(input.Capability),
		TaxState:   checkout.TaxState(input.TaxState),
		Currency:   input.Currency,
		Country:    input.Country,
		Locale:     input.Locale,
		Active:     input.Active,
	}

	setting, err := s.repo.FindBySalesChannel(ctx, salesChannelID)
	created := false
	switch {
	case errors.Is(err, shared.ErrNotFound):
		if input.ExpectedVersion != nil && *input.ExpectedVersion != 0 {
			return nil, false, fmt.Errorf("%w: sales channel %q has no tax setting at version %d",
				shared.ErrConcurrencyConflict, salesChannelID, *input.ExpectedVersion)
		}
		setting, err = taxprovider.NewChannelSetting(salesChannelID, values)
		if err != nil {
			return nil, false, err
		}
		created = true
	case err != nil:
		return nil, false, err
	default:
		if input.ExpectedVersion != nil && *input.ExpectedVersion != setting.Version {
			return nil, false, fmt.Errorf("%w: tax setting of sales channel %q is at version %d, not %d",
				shared.ErrConcurrencyConflict, salesChannelID, setting.Version, *input.ExpectedVersion)
		}
		if err := setting.Update(values); err != nil {
			return nil, false, err
		}
	}

	if err := s.repo.Save(ctx, setting); err != nil {
		return nil, false, err
	}

	log := logger.L(ctx).With(
		zap.String("sales_channel_id", setting.SalesChannelID),
		zap.String("capability", setting.Capability.String()),
		zap.Int("version", setting.Version),
	)
	if s.calculators != nil {
		if _, found := s.calculators.Resolve(setting.Capability); !found {
			log.Warn("No tax calculator supports the channel capability, carts will pass through unchanged")
		}
	}
	log.Info("Channel tax setting saved", zap.Bool("created", created))

	resp := ToChannelSettingResponse(setting)
	return &resp, created, nil
}

// Delete removes the setting of a sales channel
func (s *SettingsService) Delete(ctx context.Context, salesChannelID string) error {
	if err := s.repo.Delete(ctx, salesChannelID); err != nil {
		return err
	}
	logger.L(ctx).Info("Channel tax setting deleted", zap.String("sales_channel_id", salesChannelID))
	return nil
}

// ListCalculators returns the registered calculators in priority order
func (s *SettingsService) ListCalculators() []CalculatorResponse {
	if s.calculators == nil {
		return []CalculatorResponse{}
	}
	calculators := s.calculators.Calculators()
	out := make([]CalculatorResponse, len(calculators))
	for i, c := range calculators {
		out[i] = ToCalculatorResponse(c, i)
	}
	return out
}
