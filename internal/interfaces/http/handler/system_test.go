package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err   error
	delay time.Duration
}

func (p fakePinger) Ping(ctx context.Context) error {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.err
}

func TestNewSystemHandler(t *testing.T) {
	h := NewSystemHandler(nil, "1.2.0")
	assert.NotNil(t, h)
	assert.Equal(t, "1.2.0", h.version)
	assert.False(t, h.startTime.IsZero())
}

func TestSystemHandler_Health(t *testing.T) {
	tests := []struct {
		name           string
		db             Pinger
		expectedStatus int
		expected       HealthResponse
	}{
		{
			name:           "database reachable",
			db:             fakePinger{},
			expectedStatus: http.StatusOK,
			expected:       HealthResponse{Status: "healthy", Database: "ok"},
		},
		{
			name:           "no database configured",
			db:             nil,
			expectedStatus: http.StatusOK,
			expected:       HealthResponse{Status: "healthy", Database: "ok"},
		},
		{
			name:           "database down",
			db:             fakePinger{err: errors.New("connection refused")},
			expectedStatus: http.StatusServiceUnavailable,
			expected:       HealthResponse{Status: "unhealthy", Database: "unreachable"},
		},
		{
			name:           "ping times out",
			db:             fakePinger{delay: time.Second},
			expectedStatus: http.StatusServiceUnavailable,
			expected:       HealthResponse{Status: "unhealthy", Database: "unreachable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler(tt.db, "test")
			h.pingTimeout = 20 * time.Millisecond
			c, w := newTestContext(http.MethodGet, "/health")

			h.Health(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			var body struct {
				Success bool           `json:"success"`
				Data    HealthResponse `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedStatus == http.StatusOK, body.Success)
			assert.Equal(t, tt.expected, body.Data)
		})
	}
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler(nil, "1.0.0")
	c, w := newTestContext(http.MethodGet, "/system/info")

	h.GetSystemInfo(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "TaxBridge API", data["name"])
	assert.Equal(t, "1.0.0", data["version"])
	assert.NotEmpty(t, data["go_version"])
	assert.NotEmpty(t, data["uptime"])
	assert.NotContains(t, data, "plugins")
}

type pluginList []string

func (p pluginList) ListPlugins() []string { return p }

func TestSystemHandler_GetSystemInfoListsPlugins(t *testing.T) {
	h := NewSystemHandler(nil, "1.0.0", WithPlugins(pluginList{"core", "providers"}))
	c, w := newTestContext(http.MethodGet, "/system/info")

	h.GetSystemInfo(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, []any{"core", "providers"}, data["plugins"])
}
