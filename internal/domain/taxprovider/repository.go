package taxprovider

import (
	"context"

	"github.com/taxbridge/backend/internal/domain/shared"
)

// ChannelSettingRepository persists channel settings
type ChannelSettingRepository interface {
	// FindBySalesChannel returns shared.ErrNotFound when the channel has no setting
	FindBySalesChannel(ctx context.Context, salesChannelID string) (*ChannelSetting, error)
	// List returns one page of settings and the total count
	List(ctx context.Context, filter shared.Filter) ([]ChannelSetting, int64, error)
	// Save inserts a new setting or updates an existing one. Updates only
	// succeed when the stored version is the one the setting was loaded at,
	// otherwise shared.ErrConcurrencyConflict is returned.
	Save(ctx context.Context, setting *ChannelSetting) error
	// Delete returns shared.ErrNotFound when nothing was deleted
	Delete(ctx context.Context, salesChannelID string) error
}
