package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/gstin-api/internal/models"
	"github.com/nexconsult/gstin-api/internal/services"
	"github.com/sirupsen/logrus"
)

// SessionHandler handles browser session management requests
type SessionHandler struct {
	session services.SessionManager
	logger  *logrus.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(session services.SessionManager, logger *logrus.Logger) *SessionHandler {
	return &SessionHandler{
		session: session,
		logger:  logger,
	}
}

// GetHealth handles browser session health check request
// @Summary Get browser session health
// @Description Get the health status of the portal browser session
// @Tags Session
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /session/health [get]
func (h *SessionHandler) GetHealth(c *gin.Context) {
	health := h.session.Health()

	httpStatus := http.StatusOK
	if status, exists := health["status"]; exists && status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, map[string]interface{}{
		"health":    health,
		"timestamp": time.Now(),
	})
}

// Restart handles browser session restart request
// @Summary Restart browser session
// @Description Close the browser and open a fresh session with the saved cookies
// @Tags Session
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} models.ErrorResponse
// @Router /session/restart [post]
func (h *SessionHandler) Restart(c *gin.Context) {
	requestID := c.GetString("request_id")

	h.logger.WithField("request_id", requestID).Info("Restarting browser session")

	if err := h.session.Restart(c.Request.Context()); err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to restart browser session")

		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:     "Internal server error",
			Message:   "Failed to restart browser session",
			Code:      "SESSION_RESTART_ERROR",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"message":   "Browser session restarted successfully",
		"timestamp": time.Now(),
		"success":   true,
		"health":    h.session.Health(),
	})
}

// SaveCookies handles a cookie snapshot request
// @Summary Save session cookies
// @Description Persist the browser cookies so a restart keeps the portal session
// @Tags Session
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} models.ErrorResponse
// @Router /session/cookies [post]
func (h *SessionHandler) SaveCookies(c *gin.Context) {
	requestID := c.GetString("request_id")

	if err := h.session.SaveCookies(c.Request.Context()); err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to save cookies")

		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:     "Internal server error",
			Message:   "Failed to save cookies",
			Code:      "COOKIE_SAVE_ERROR",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"message":   "Cookies saved",
		"timestamp": time.Now(),
		"success":   true,
	})
}
