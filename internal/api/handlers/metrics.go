package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/gstin-api/internal/models"
	"github.com/nexconsult/gstin-api/internal/services"
	"github.com/sirupsen/logrus"
)

// LookupStats is what the metrics endpoint reads from the GSTIN service
type LookupStats interface {
	Stats() models.LookupMetrics
	PendingChallenge() (string, bool)
	Mode() services.CaptchaMode
}

// MetricsHandler handles metrics requests
type MetricsHandler struct {
	lookups LookupStats
	session services.SessionManager
	logger  *logrus.Logger
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(lookups LookupStats, session services.SessionManager, logger *logrus.Logger) *MetricsHandler {
	return &MetricsHandler{
		lookups: lookups,
		session: session,
		logger:  logger,
	}
}

// GetMetrics handles metrics request
// @Summary Get application metrics
// @Description Lookup counters, browser session state and runtime figures
// @Tags Metrics
// @Produce json
// @Success 200 {object} models.MetricsResponse
// @Router /metrics [get]
func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	h.logger.WithField("request_id", c.GetString("request_id")).Debug("Getting application metrics")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	_, pending := h.lookups.PendingChallenge()
	initialized, _ := h.session.Health()["initialized"].(bool)

	c.JSON(http.StatusOK, models.MetricsResponse{
		Lookups: h.lookups.Stats(),
		Session: models.SessionInfo{
			Initialized:      initialized,
			Mode:             string(h.lookups.Mode()),
			PendingChallenge: pending,
		},
		System: models.SystemMetrics{
			MemoryUsage: float64(m.Alloc) / 1024 / 1024, // MB
			Goroutines:  runtime.NumGoroutine(),
		},
		Timestamp: time.Now(),
	})
}
