package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taxbridge/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Pinger checks that a dependency answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// PluginLister names the tax plugins loaded into the registry
type PluginLister interface {
	ListPlugins() []string
}

// SystemHandler serves the health check and system information
type SystemHandler struct {
	BaseHandler
	db          Pinger
	plugins     PluginLister
	version     string
	pingTimeout time.Duration
	startTime   time.Time
}

// SystemHandlerOption configures a SystemHandler
type SystemHandlerOption func(*SystemHandler)

// WithPlugins reports the loaded tax plugins in the system information
func WithPlugins(plugins PluginLister) SystemHandlerOption {
	return func(h *SystemHandler) {
		h.plugins = plugins
	}
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db Pinger, version string, opts ...SystemHandlerOption) *SystemHandler {
	h := &SystemHandler{
		db:          db,
		version:     version,
		pingTimeout: 2 * time.Second,
		startTime:   time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthResponse is the body of the health check
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	GoVersion string   `json:"go_version"`
	Uptime    string   `json:"uptime"`
	Plugins   []string `json:"plugins,omitempty"`
}

// Health pings the database and answers 503 when it does not respond
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.pingTimeout)
	defer cancel()

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			logger.L(ctx).Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"data":    HealthResponse{Status: "unhealthy", Database: "unreachable"},
			})
			return
		}
	}

	h.Success(c, HealthResponse{Status: "healthy", Database: "ok"})
}

// GetSystemInfo returns the service version, uptime and loaded tax plugins
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "TaxBridge API",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.plugins != nil {
		info.Plugins = h.plugins.ListPlugins()
	}
	h.Success(c, info)
}
