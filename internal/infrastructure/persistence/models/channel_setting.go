package models

import (
	"github.com/taxbridge/backend/internal/domain/checkout"
	"github.com/taxbridge/backend/internal/domain/taxprovider"
)

// ChannelSettingModel is the persistence model of taxprovider.ChannelSetting
type ChannelSettingModel struct {
	AggregateModel
	SalesChannelID string `gorm:"type:varchar(64);not null;uniqueIndex"`
	Capability     string `gorm:"type:varchar(64);not null"`
	TaxState       string `gorm:"type:varchar(16);not null"`
	Currency       string `gorm:"type:varchar(3);not null"`
	Country        string `gorm:"type:varchar(2)"`
	Locale         string `gorm:"type:varchar(35)"`
	Active         bool   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ChannelSettingModel) TableName() string {
	return "channel_tax_settings"
}

// ChannelSettingModelFromDomain converts a domain setting
func ChannelSettingModelFromDomain(s *taxprovider.ChannelSetting) *ChannelSettingModel {
	m := &ChannelSettingModel{
		SalesChannelID: s.SalesChannelID,
		Capability:     s.Capability.String(),
		TaxState:       string(s.TaxState),
		Currency:       s.Currency,
		Country:        s.Country,
		Locale:         s.Locale,
		Active:         s.Active,
	}
	m.AggregateModel.FromDomain(s.BaseAggregateRoot)
	return m
}

// ToDomain converts the model to a domain setting
func (m *ChannelSettingModel) ToDomain() *taxprovider.ChannelSetting {
	return &taxprovider.ChannelSetting{
		BaseAggregateRoot: m.AggregateModel.ToDomain(),
		SalesChannelID:    m.SalesChannelID,
		Capability:        checkout.Capability(m.Capability),
		TaxState:          checkout.TaxState(m.TaxState),
		Currency:          m.Currency,
		Country:           m.Country,
		Locale:            m.Locale,
		Active:            m.Active,
	}
}
