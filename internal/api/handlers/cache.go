package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/gstin-api/internal/models"
	"github.com/nexconsult/gstin-api/internal/services"
	"github.com/nexconsult/gstin-api/internal/utils"
	"github.com/sirupsen/logrus"
)

// CacheHandler handles record store requests
type CacheHandler struct {
	store  services.RecordStore
	logger *logrus.Logger
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(store services.RecordStore, logger *logrus.Logger) *CacheHandler {
	return &CacheHandler{
		store:  store,
		logger: logger,
	}
}

// GetStats handles cache statistics request
// @Summary Get cache statistics
// @Description Get record store statistics
// @Tags Cache
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} models.ErrorResponse
// @Router /cache/stats [get]
func (h *CacheHandler) GetStats(c *gin.Context) {
	requestID := c.GetString("request_id")

	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to get cache statistics")

		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:     "Internal server error",
			Message:   "Failed to retrieve cache statistics",
			Code:      "CACHE_STATS_ERROR",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"stats":     stats,
		"timestamp": time.Now(),
		"health":    h.store.Health(),
	})
}

// Get handles a cache entry read
// @Summary Get a cached GSTIN
// @Description Return the stored record without touching the portal
// @Tags Cache
// @Param gstin path string true "GSTIN"
// @Produce json
// @Success 200 {object} models.CacheEntry
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /cache/{gstin} [get]
func (h *CacheHandler) Get(c *gin.Context) {
	gstin, ok := h.gstinParam(c)
	if !ok {
		return
	}

	entry, err := h.store.Get(c.Request.Context(), gstin)
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:     "Not found",
			Message:   "GSTIN not found in cache",
			Code:      "GSTIN_NOT_IN_CACHE",
			GSTIN:     gstin,
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("gstin", gstin).Error("Failed to read cache")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:     "Internal server error",
			Message:   "Failed to read cache",
			Code:      "CACHE_READ_ERROR",
			GSTIN:     gstin,
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	c.JSON(http.StatusOK, entry)
}

// Delete handles specific cache entry deletion
// @Summary Delete a cached GSTIN
// @Description Delete a GSTIN entry so the next lookup goes to the portal
// @Tags Cache
// @Param gstin path string true "GSTIN"
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /cache/{gstin} [delete]
func (h *CacheHandler) Delete(c *gin.Context) {
	requestID := c.GetString("request_id")
	gstin, ok := h.gstinParam(c)
	if !ok {
		return
	}

	if _, err := h.store.Get(c.Request.Context(), gstin); errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:     "Not found",
			Message:   "GSTIN not found in cache",
			Code:      "GSTIN_NOT_IN_CACHE",
			GSTIN:     gstin,
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	if err := h.store.Delete(c.Request.Context(), gstin); err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"gstin":      gstin,
			"error":      err.Error(),
		}).Error("Failed to delete GSTIN from cache")

		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:     "Internal server error",
			Message:   "Failed to delete from cache",
			Code:      "CACHE_DELETE_ERROR",
			GSTIN:     gstin,
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"gstin":      gstin,
	}).Info("GSTIN deleted from cache")

	c.JSON(http.StatusOK, map[string]interface{}{
		"message":   "GSTIN deleted from cache",
		"gstin":     gstin,
		"timestamp": time.Now(),
		"success":   true,
	})
}

func (h *CacheHandler) gstinParam(c *gin.Context) (string, bool) {
	gstin := utils.NormalizeGSTIN(c.Param("gstin"))
	if utils.IsValidGSTIN(gstin) {
		return gstin, true
	}
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:     "Invalid GSTIN format",
		Message:   "GSTIN must be 15 characters of digits and upper-case letters",
		Code:      string(services.KindInvalidIdentifier),
		GSTIN:     c.Param("gstin"),
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
	return "", false
}
