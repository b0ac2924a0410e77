package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/taxbridge/backend/internal/domain/shared"
	"github.com/taxbridge/backend/internal/domain/taxprovider"
	"github.com/taxbridge/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormChannelSettingRepository implements taxprovider.ChannelSettingRepository using GORM
type GormChannelSettingRepository struct {
	db *gorm.DB
}

var _ taxprovider.ChannelSettingRepository = (*GormChannelSettingRepository)(nil)

// NewGormChannelSettingRepository creates a new GormChannelSettingRepository
func NewGormChannelSettingRepository(db *gorm.DB) *GormChannelSettingRepository {
	return &GormChannelSettingRepository{db: db}
}

// FindBySalesChannel finds the setting of a sales channel
func (r *GormChannelSettingRepository) FindBySalesChannel(ctx context.Context, salesChannelID string) (*taxprovider.ChannelSetting, error) {
	var model models.ChannelSettingModel
	if err := r.db.WithContext(ctx).
		Where("sales_channel_id = ?", salesChannelID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns one page of settings matching filter and the total match count.
// Supported filters: "active" (bool) and "capability" (string).
func (r *GormChannelSettingRepository) List(ctx context.Context, filter shared.Filter) ([]taxprovider.ChannelSetting, int64, error) {
	filter = filter.Normalized()
	scoped := func() *gorm.DB {
		return r.applyConditions(r.db.WithContext(ctx).Model(&models.ChannelSettingModel{}), filter)
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, ChannelSettingSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var rows []models.ChannelSettingModel
	if err := scoped().
		Order(orderBy + " " + orderDir).
		Order("sales_channel_id ASC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	settings := make([]taxprovider.ChannelSetting, len(rows))
	for i := range rows {
		settings[i] = *rows[i].ToDomain()
	}
	return settings, total, nil
}

func (r *GormChannelSettingRepository) applyConditions(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(sales_channel_id) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	for key, value := range filter.Filters {
		switch key {
		case "active":
			query = query.Where("active = ?", value)
		case "capability":
			query = query.Where("capability = ?", value)
		}
	}
	return query
}

// Save inserts a version 1 setting, or updates a changed one when the stored
// row is still at the previous version.
func (r *GormChannelSettingRepository) Save(ctx context.Context, setting *taxprovider.ChannelSetting) error {
	model := models.ChannelSettingModelFromDomain(setting)

	if setting.IsNew() {
		if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: sales channel %q already has a tax setting",
					shared.ErrAlreadyExists, setting.SalesChannelID)
			}
			return err
		}
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.ChannelSettingModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]any{
			"capability": model.Capability,
			"tax_state":  model.TaxState,
			"currency":   model.Currency,
			"country":    model.Country,
			"locale":     model.Locale,
			"active":     model.Active,
			"version":    model.Version,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.ChannelSettingModel{}).
			Where("id = ?", model.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return fmt.Errorf("%w: tax setting of sales channel %q", shared.ErrConcurrencyConflict, setting.SalesChannelID)
	}
	return nil
}

// Delete removes the setting of a sales channel
func (r *GormChannelSettingRepository) Delete(ctx context.Context, salesChannelID string) error {
	result := r.db.WithContext(ctx).
		Where("sales_channel_id = ?", salesChannelID).
		Delete(&models.ChannelSettingModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
