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

const notAvailable = "N/A"

// GSTINHandler handles GSTIN verification requests
type GSTINHandler struct {
	gstinService services.GSTINServiceInterface
	logger       *logrus.Logger
}

// NewGSTINHandler creates a new GSTIN handler
func NewGSTINHandler(gstinService services.GSTINServiceInterface, logger *logrus.Logger) *GSTINHandler {
	return &GSTINHandler{
		gstinService: gstinService,
		logger:       logger,
	}
}

// Verify handles GSTIN verification from a JSON body
// @Summary Verify a GSTIN
// @Description Look a GSTIN up on the GST portal. Returns 202 with a CAPTCHA image when the portal asks for one.
// @Tags GSTIN
// @Accept json
// @Produce json
// @Param request body models.VerifyRequest true "GSTIN to verify"
// @Success 200 {object} models.VerifyResponse
// @Success 202 {object} models.ChallengeResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Failure 504 {object} models.ErrorResponse
// @Router /gstin/verify [post]
func (h *GSTINHandler) Verify(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:     "Invalid request",
			Message:   "Request body must be JSON with a gstin field",
			Code:      string(services.KindInvalidIdentifier),
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}
	h.lookup(c, req.GSTIN)
}

// GetGSTIN handles GSTIN verification from the URL
// @Summary Get GSTIN details
// @Description Same as POST /gstin/verify with the GSTIN in the path
// @Tags GSTIN
// @Produce json
// @Param gstin path string true "GSTIN (15 characters)" example(27ABCDE1234F1Z5)
// @Success 200 {object} models.VerifyResponse
// @Success 202 {object} models.ChallengeResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Failure 504 {object} models.ErrorResponse
// @Router /gstin/{gstin} [get]
func (h *GSTINHandler) GetGSTIN(c *gin.Context) {
	h.lookup(c, c.Param("gstin"))
}

// SubmitCaptcha handles a CAPTCHA solution for the pending verification
// @Summary Submit CAPTCHA solution
// @Description Resume the verification that returned a challenge
// @Tags GSTIN
// @Accept json
// @Produce json
// @Param request body models.CaptchaRequest true "CAPTCHA solution"
// @Success 200 {object} models.VerifyResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 504 {object} models.ErrorResponse
// @Router /gstin/captcha [post]
func (h *GSTINHandler) SubmitCaptcha(c *gin.Context) {
	requestID := c.GetString("request_id")

	var req models.CaptchaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:     "Invalid request",
			Message:   "Request body must be JSON with a solution field",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	gstin, _ := h.gstinService.PendingChallenge()
	h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"gstin":      gstin,
	}).Info("Processing CAPTCHA solution")

	result, err := h.gstinService.Resume(c.Request.Context(), req.Solution)
	if err != nil {
		h.writeError(c, gstin, err)
		return
	}
	h.writeResult(c, result)
}

func (h *GSTINHandler) lookup(c *gin.Context, raw string) {
	start := time.Now()
	requestID := c.GetString("request_id")

	gstin := utils.NormalizeGSTIN(raw)
	if !utils.IsValidGSTIN(gstin) {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"gstin":      raw,
		}).Warn("Invalid GSTIN format")

		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:      "Invalid GSTIN format",
			Message:    "GSTIN must be 15 characters of digits and upper-case letters",
			Code:       string(services.KindInvalidIdentifier),
			GSTIN:      raw,
			Suggestion: "Check the GSTIN and try again.",
			Timestamp:  time.Now(),
			Path:       c.Request.URL.Path,
		})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"gstin":      gstin,
	}).Info("Processing GSTIN verification")

	result, err := h.gstinService.Lookup(c.Request.Context(), gstin)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"gstin":      gstin,
			"error":      err.Error(),
			"duration":   time.Since(start),
		}).Error("GSTIN verification failed")
		h.writeError(c, gstin, err)
		return
	}

	h.writeResult(c, result)
}

func (h *GSTINHandler) writeResult(c *gin.Context, result *services.LookupResult) {
	if result.Cached {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}

	if result.Challenge != nil {
		c.JSON(http.StatusAccepted, models.ChallengeResponse{
			Status:  "challenge",
			GSTIN:   result.GSTIN,
			Image:   result.Challenge.Image,
			Message: "Solve the CAPTCHA and submit it to /api/v1/gstin/captcha",
		})
		return
	}

	c.JSON(http.StatusOK, toVerifyResponse(result))
}

func toVerifyResponse(result *services.LookupResult) models.VerifyResponse {
	rec := result.Record
	return models.VerifyResponse{
		GSTIN:      result.GSTIN,
		LegalName:  models.Deref(rec.LegalName, notAvailable),
		TradeName:  models.Deref(rec.TradeName, notAvailable),
		Address:    models.Deref(rec.Address, notAvailable),
		Status:     models.Deref(rec.Status, notAvailable),
		VerifiedAt: result.VerifiedAt,
		Cached:     result.Cached,
		Details:    rec,
	}
}

func (h *GSTINHandler) writeError(c *gin.Context, gstin string, err error) {
	status, resp := errorResponse(err)
	resp.GSTIN = gstin
	resp.Path = c.Request.URL.Path
	c.JSON(status, resp)
}

// errorResponse maps a lookup failure onto a status code and body
func errorResponse(err error) (int, models.ErrorResponse) {
	resp := models.ErrorResponse{
		Error:     "Verification failed",
		Message:   err.Error(),
		Timestamp: time.Now(),
	}

	lerr, ok := services.AsLookupError(err)
	if !ok {
		resp.Error = "Internal server error"
		resp.Code = "INTERNAL_ERROR"
		return http.StatusInternalServerError, resp
	}

	resp.Code = string(lerr.Kind)
	resp.Message = lerr.Error()
	resp.Suggestion = lerr.Suggestion
	resp.Artifacts = lerr.Artifacts

	switch {
	case lerr.Kind == services.KindInvalidIdentifier:
		resp.Error = "Invalid GSTIN format"
		return http.StatusBadRequest, resp
	case errors.Is(err, services.ErrPayloadTimeout):
		resp.Code = string(services.KindPayloadTimeout)
		return http.StatusGatewayTimeout, resp
	case lerr.Kind == services.KindSessionExpired, lerr.Kind == services.KindNoPendingChallenge:
		return http.StatusConflict, resp
	case lerr.Kind == services.KindNavigation, lerr.Kind == services.KindInputNotFound,
		lerr.Kind == services.KindPortal, lerr.Kind == services.KindEmptyExtraction:
		return http.StatusBadGateway, resp
	}
	resp.Error = "Internal server error"
	return http.StatusInternalServerError, resp
}
