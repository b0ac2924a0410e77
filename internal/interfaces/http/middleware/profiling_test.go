package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/taxbridge/backend/internal/infrastructure/telemetry"
)

func profiledLabels(t *testing.T, cfg ProfilingConfig, register func(r *gin.Engine, h gin.HandlerFunc), target string) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	labels := map[string]string{}
	r := gin.New()
	r.Use(Profiling(cfg))
	register(r, func(c *gin.Context) {
		pprof.ForLabels(c.Request.Context(), func(key, value string) bool {
			labels[key] = value
			return true
		})
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	return labels
}

func TestProfiling_LabelsMatchedRoute(t *testing.T) {
	labels := profiledLabels(t, DefaultProfilingConfig(), func(r *gin.Engine, h gin.HandlerFunc) {
		r.GET("/api/v1/admin/tax/channels/:channel_id", h)
	}, "/api/v1/admin/tax/channels/web-de")

	assert.Equal(t, map[string]string{
		telemetry.ProfilingLabelEndpoint: "admin",
		telemetry.ProfilingLabelRoute:    "/api/v1/admin/tax/channels/:channel_id",
		telemetry.ProfilingLabelMethod:   http.MethodGet,
	}, labels)
}

func TestProfiling_SkipsHealthAndDisabled(t *testing.T) {
	labels := profiledLabels(t, DefaultProfilingConfig(), func(r *gin.Engine, h gin.HandlerFunc) {
		r.GET("/health", h)
	}, "/health")
	assert.Empty(t, labels)

	labels = profiledLabels(t, ProfilingConfig{}, func(r *gin.Engine, h gin.HandlerFunc) {
		r.GET("/api/v1/tax/calculators", h)
	}, "/api/v1/tax/calculators")
	assert.Empty(t, labels)
}

func TestEndpointFromRoute(t *testing.T) {
	tests := map[string]string{
		"/api/v1/tax/calculate":          "tax",
		"/api/v2/system/info":            "system",
		"/api/v1/admin/tax/channels":     "admin",
		"/health":                        "health",
		"/api/v1/:id":                    "",
		"":                               "",
		"/api/version/tax/calculators/x": "version",
	}
	for route, want := range tests {
		assert.Equal(t, want, endpointFromRoute(route), route)
	}
}
