package router

import (
	"github.com/gin-gonic/gin"
	"github.com/taxbridge/backend/internal/infrastructure/config"
	"github.com/taxbridge/backend/internal/infrastructure/logger"
	"github.com/taxbridge/backend/internal/infrastructure/telemetry"
	"github.com/taxbridge/backend/internal/interfaces/http/handler"
	"github.com/taxbridge/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// EngineConfig holds what NewEngine needs to build the gin engine
type EngineConfig struct {
	HTTP          config.HTTPConfig
	Logger        *zap.Logger
	Tracing       middleware.TracingConfig
	Profiling     middleware.ProfilingConfig
	MeterProvider *telemetry.MeterProvider
	// Health serves GET /health outside the versioned API, skipped when nil
	Health *handler.SystemHandler
}

// NewEngine creates a gin engine with the global middleware chain.
// Order: request id, recovery, access log, tracing, profiling labels,
// metrics, security headers, CORS, body limit.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(cfg.Tracing))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.Profiling(cfg.Profiling))
	engine.Use(middleware.HTTPMetrics(cfg.MeterProvider))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFromHTTP(cfg.HTTP)))
	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}

	if cfg.Health != nil {
		engine.GET("/health", cfg.Health.Health)
	}

	return engine, nil
}
