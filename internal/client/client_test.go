package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nexconsult/gstin-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestVerifyRecord(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/gstin/verify", r.URL.Path)

		var req models.VerifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "27ABCDE1234F1Z5", req.GSTIN)

		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, http.StatusOK, models.VerifyResponse{GSTIN: req.GSTIN, LegalName: "ACME TRADING PRIVATE LIMITED", Cached: true})
	})

	res, err := c.Verify(context.Background(), "27ABCDE1234F1Z5")
	require.NoError(t, err)
	require.NotNil(t, res.Record)
	assert.Nil(t, res.Challenge)
	assert.Equal(t, "HIT", res.Cache)
	assert.Equal(t, "ACME TRADING PRIVATE LIMITED", res.Record.LegalName)
}

func TestVerifyChallengeThenResume(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/gstin/verify":
			writeJSON(w, http.StatusAccepted, models.ChallengeResponse{Status: "challenge", GSTIN: "27ABCDE1234F1Z5", Image: "data:image/png;base64,iVBO"})
		case "/api/v1/gstin/captcha":
			var req models.CaptchaRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "AB12C", req.Solution)
			writeJSON(w, http.StatusOK, models.VerifyResponse{GSTIN: "27ABCDE1234F1Z5", Status: "Active"})
		}
	})

	res, err := c.Verify(context.Background(), "27ABCDE1234F1Z5")
	require.NoError(t, err)
	require.NotNil(t, res.Challenge)
	assert.Nil(t, res.Record)
	assert.Equal(t, "data:image/png;base64,iVBO", res.Challenge.Image)

	res, err = c.Resume(context.Background(), "AB12C")
	require.NoError(t, err)
	assert.Equal(t, "Active", res.Record.Status)
}

func TestVerifyAPIError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusGatewayTimeout, models.ErrorResponse{
			Error:   "Verification failed",
			Message: "Timeout waiting for GST details",
			Code:    "PAYLOAD_TIMEOUT",
		})
	})

	_, err := c.Verify(context.Background(), "27ABCDE1234F1Z5")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusGatewayTimeout, apiErr.StatusCode)
	assert.Equal(t, "PAYLOAD_TIMEOUT", apiErr.Body.Code)
	assert.Equal(t, "504 PAYLOAD_TIMEOUT: Timeout waiting for GST details", apiErr.Error())
}

func TestHealthReportsUnhealthy(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, models.HealthResponse{
			Status:   "unhealthy",
			Version:  "1.0.0",
			Services: map[string]models.ServiceInfo{"store": {Status: "unhealthy", Error: "database is locked"}},
		})
	})

	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "database is locked", health.Services["store"].Error)
}

func TestHealthUnexpectedStatus(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Health(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestAPIErrorFallsBackToErrorField(t *testing.T) {
	err := &APIError{StatusCode: 429, Body: models.ErrorResponse{Error: "Rate limit exceeded"}}
	assert.Equal(t, "429: Rate limit exceeded", err.Error())
}
