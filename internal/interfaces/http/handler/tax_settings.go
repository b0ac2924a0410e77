package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	taxapp "github.com/taxbridge/backend/internal/application/tax"
	"github.com/taxbridge/backend/internal/infrastructure/logger"
	"github.com/taxbridge/backend/internal/interfaces/http/dto"
	"github.com/taxbridge/backend/internal/interfaces/http/middleware"
)

// TaxSettingsHandler serves the admin API of channel tax settings
type TaxSettingsHandler struct {
	BaseHandler
	settings *taxapp.SettingsService
}

// NewTaxSettingsHandler creates a new TaxSettingsHandler
func NewTaxSettingsHandler(settings *taxapp.SettingsService) *TaxSettingsHandler {
	return &TaxSettingsHandler{settings: settings}
}

// ListChannelSettingsRequest holds the query of GET /admin/tax/channels
type ListChannelSettingsRequest struct {
	dto.ListRequest
	Active     *bool  `form:"active"`
	Capability string `form:"capability" binding:"omitempty,capability"`
}

// UpsertChannelSettingRequest is the body of PUT /admin/tax/channels/:channel_id
type UpsertChannelSettingRequest struct {
	Capability string `json:"capability" binding:"required,capability"`
	TaxState   string `json:"tax_state" binding:"required,tax_state"`
	Currency   string `json:"currency" binding:"required,len=3"`
	Country    string `json:"country" binding:"omitempty,len=2"`
	Locale     string `json:"locale" binding:"max=35"`
	Active     *bool  `json:"active"`
	// Version guards against lost updates: when set it must equal the
	// stored version, 0 meaning the setting must not exist yet
	Version *int `json:"version" binding:"omitempty,min=0"`
}

// ToInput converts the request to the application input. Settings are
// active unless the request says otherwise.
func (r UpsertChannelSettingRequest) ToInput() taxapp.UpsertChannelSettingInput {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return taxapp.UpsertChannelSettingInput{
		Capability:      r.Capability,
		TaxState:        r.TaxState,
		Currency:        r.Currency,
		Country:         r.Country,
		Locale:          r.Locale,
		Active:          active,
		ExpectedVersion: r.Version,
	}
}

// List returns one page of channel settings
func (h *TaxSettingsHandler) List(c *gin.Context) {
	req := ListChannelSettingsRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	settings, total, err := h.settings.List(c.Request.Context(), taxapp.ChannelSettingListFilter{
		Page:       req.Page,
		PageSize:   req.PageSize,
		Search:     req.Search,
		OrderBy:    req.OrderBy,
		OrderDir:   req.OrderDir,
		Active:     req.Active,
		Capability: req.Capability,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, settings, total, req.Page, req.PageSize)
}

// Get returns the setting of one sales channel
func (h *TaxSettingsHandler) Get(c *gin.Context) {
	channelID, ok := h.channelID(c)
	if !ok {
		return
	}

	setting, err := h.settings.Get(c.Request.Context(), channelID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, setting)
}

// Upsert creates or replaces the setting of a sales channel. It answers 201
// when the setting was created.
func (h *TaxSettingsHandler) Upsert(c *gin.Context) {
	channelID, ok := h.channelID(c)
	if !ok {
		return
	}

	var req UpsertChannelSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	setting, created, err := h.settings.Upsert(c.Request.Context(), channelID, req.ToInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if created {
		h.Created(c, setting)
		return
	}
	h.Success(c, setting)
}

// Delete removes the setting of a sales channel
func (h *TaxSettingsHandler) Delete(c *gin.Context) {
	channelID, ok := h.channelID(c)
	if !ok {
		return
	}

	if err := h.settings.Delete(c.Request.Context(), channelID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// channelID reads the :channel_id path parameter and tags the request
// context with it
func (h *TaxSettingsHandler) channelID(c *gin.Context) (string, bool) {
	channelID := strings.TrimSpace(c.Param("channel_id"))
	if channelID == "" || len(channelID) > 64 {
		h.BadRequest(c, "channel_id must be 1-64 characters")
		return "", false
	}
	c.Request = c.Request.WithContext(logger.WithSalesChannelID(c.Request.Context(), channelID))
	return channelID, true
}
