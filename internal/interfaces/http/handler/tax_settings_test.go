package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	taxapp "github.com/taxbridge/backend/internal/application/tax"
	"github.com/taxbridge/backend/internal/interfaces/http/dto"
)

func newSettingsRouter(t *testing.T) *gin.Engine {
	t.Helper()
	h := NewTaxSettingsHandler(newTaxServices(t).settings)

	r := gin.New()
	channels := r.Group("/admin/tax/channels")
	channels.GET("", h.List)
	channels.GET("/:channel_id", h.Get)
	channels.PUT("/:channel_id", h.Upsert)
	channels.DELETE("/:channel_id", h.Delete)
	return r
}

func sendJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeSetting(t *testing.T, w *httptest.ResponseRecorder) taxapp.ChannelSettingResponse {
	t.Helper()
	var body struct {
		Data taxapp.ChannelSettingResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Data
}

func TestUpsertChannelSettingRequest_ToInput(t *testing.T) {
	inactive := false
	version := 3

	input := UpsertChannelSettingRequest{Capability: "net", TaxState: "net", Currency: "EUR"}.ToInput()
	assert.True(t, input.Active, "settings are active by default")
	assert.Nil(t, input.ExpectedVersion)

	input = UpsertChannelSettingRequest{
		Capability: "gross", TaxState: "gross", Currency: "CHF", Active: &inactive, Version: &version,
	}.ToInput()
	assert.False(t, input.Active)
	require.NotNil(t, input.ExpectedVersion)
	assert.Equal(t, 3, *input.ExpectedVersion)
}

func TestTaxSettingsHandler_UpsertCreatesThenUpdates(t *testing.T) {
	r := newSettingsRouter(t)

	w := sendJSON(r, http.MethodPut, "/admin/tax/channels/b2b-eu",
		`{"capability":"net","tax_state":"net","currency":"EUR","country":"DE"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeSetting(t, w)
	assert.Equal(t, "b2b-eu", created.SalesChannelID)
	assert.Equal(t, "net", created.Capability)
	assert.True(t, created.Active)
	assert.Equal(t, 1, created.Version)

	w = sendJSON(r, http.MethodPut, "/admin/tax/channels/b2b-eu",
		`{"capability":"gross","tax_state":"gross","currency":"EUR","active":false,"version":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeSetting(t, w)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "gross", updated.Capability)
	assert.False(t, updated.Active)
	assert.Equal(t, 2, updated.Version)

	w = sendJSON(r, http.MethodGet, "/admin/tax/channels/b2b-eu", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decodeSetting(t, w).Version)
}

func TestTaxSettingsHandler_UpsertStaleVersion(t *testing.T) {
	r := newSettingsRouter(t)

	w := sendJSON(r, http.MethodPut, "/admin/tax/channels/web",
		`{"capability":"gross","tax_state":"gross","currency":"EUR","version":4}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeConcurrencyConflict, decodeResponse(t, w).Error.Code)
}

func TestTaxSettingsHandler_UpsertValidation(t *testing.T) {
	r := newSettingsRouter(t)

	tests := []struct {
		name string
		path string
		body string
		code string
	}{
		{
			name: "missing currency",
			path: "/admin/tax/channels/web",
			body: `{"capability":"gross","tax_state":"gross"}`,
			code: dto.ErrCodeValidation,
		},
		{
			name: "unknown tax state",
			path: "/admin/tax/channels/web",
			body: `{"capability":"gross","tax_state":"reverse","currency":"EUR"}`,
			code: dto.ErrCodeValidation,
		},
		{
			name: "channel id too long",
			path: "/admin/tax/channels/" + strings.Repeat("x", 65),
			body: `{"capability":"gross","tax_state":"gross","currency":"EUR"}`,
			code: dto.ErrCodeBadRequest,
		},
		{
			name: "malformed body",
			path: "/admin/tax/channels/web",
			body: `capability=gross`,
			code: dto.ErrCodeInvalidJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := sendJSON(r, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, decodeResponse(t, w).Error.Code)
		})
	}
}

func TestTaxSettingsHandler_List(t *testing.T) {
	r := newSettingsRouter(t)

	for _, channel := range []string{"web-de", "web-at", "pos-de"} {
		w := sendJSON(r, http.MethodPut, "/admin/tax/channels/"+channel,
			`{"capability":"gross","tax_state":"gross","currency":"EUR"}`)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := sendJSON(r, http.MethodPut, "/admin/tax/channels/b2b",
		`{"capability":"net","tax_state":"net","currency":"EUR","active":false}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = sendJSON(r, http.MethodGet, "/admin/tax/channels?page_size=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(4), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)
	assert.Len(t, resp.Data, 2)

	w = sendJSON(r, http.MethodGet, "/admin/tax/channels?capability=net", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decodeResponse(t, w).Meta.Total)

	w = sendJSON(r, http.MethodGet, "/admin/tax/channels?active=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), decodeResponse(t, w).Meta.Total)

	w = sendJSON(r, http.MethodGet, "/admin/tax/channels?page_size=500", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaxSettingsHandler_Delete(t *testing.T) {
	r := newSettingsRouter(t)

	w := sendJSON(r, http.MethodDelete, "/admin/tax/channels/web", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = sendJSON(r, http.MethodPut, "/admin/tax/channels/web",
		`{"capability":"gross","tax_state":"gross","currency":"EUR"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = sendJSON(r, http.MethodDelete, "/admin/tax/channels/web", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = sendJSON(r, http.MethodGet, "/admin/tax/channels/web", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, decodeResponse(t, w).Error.Code)
}
