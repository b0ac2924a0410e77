package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes orderDir to ASC or DESC, defaulting to DESC
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is whitelisted, otherwise defaultField
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// ChannelSettingSortFields are the columns channel settings can be ordered by
var ChannelSettingSortFields = map[string]bool{
	"created_at":       true,
	"updated_at":       true,
	"sales_channel_id": true,
	"capability":       true,
	"country":          true,
	"currency":         true,
}
