// Package client talks to the GSTIN API over HTTP
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/nexconsult/gstin-api/internal/models"
)

// Result is a verification outcome. Exactly one of Record and Challenge is set.
type Result struct {
	Record    *models.VerifyResponse
	Challenge *models.ChallengeResponse
	Cache     string
}

// APIError is a non-2xx response from the API
type APIError struct {
	StatusCode int
	Body       models.ErrorResponse
}

func (e *APIError) Error() string {
	msg := e.Body.Message
	if msg == "" {
		msg = e.Body.Error
	}
	if e.Body.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Body.Code, msg)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, msg)
}

// Client is a thin wrapper over resty
type Client struct {
	http *resty.Client
}

// New creates a client for the API at baseURL. Lookups wait on the portal,
// so timeout should be generous.
func New(baseURL string, timeout time.Duration) *Client {
	c := resty.New()
	c.SetBaseURL(baseURL)
	c.SetTimeout(timeout)
	c.SetHeader("Accept", "application/json")
	return &Client{http: c}
}

// Verify submits gstin for verification
func (c *Client) Verify(ctx context.Context, gstin string) (*Result, error) {
	return c.lookup(ctx, "/api/v1/gstin/verify", models.VerifyRequest{GSTIN: gstin})
}

// Resume submits a CAPTCHA solution for the pending verification
func (c *Client) Resume(ctx context.Context, solution string) (*Result, error) {
	return c.lookup(ctx, "/api/v1/gstin/captcha", models.CaptchaRequest{Solution: solution})
}

func (c *Client) lookup(ctx context.Context, path string, body interface{}) (*Result, error) {
	var (
		record    models.VerifyResponse
		challenge models.ChallengeResponse
		apiErr    models.ErrorResponse
	)

	// The body shape depends on the status, so decode it by hand
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if res.IsError() {
		return nil, &APIError{StatusCode: res.StatusCode(), Body: apiErr}
	}

	out := &Result{Cache: res.Header().Get("X-Cache")}
	switch res.StatusCode() {
	case http.StatusAccepted:
		if err := decode(res, &challenge); err != nil {
			return nil, err
		}
		out.Challenge = &challenge
	default:
		if err := decode(res, &record); err != nil {
			return nil, err
		}
		out.Record = &record
	}
	return out, nil
}

// Health returns the API health report
func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	var health models.HealthResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&health).
		Get("/health")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	// 503 still carries a health report
	if res.IsError() && res.StatusCode() != http.StatusServiceUnavailable {
		return nil, &APIError{StatusCode: res.StatusCode()}
	}
	if res.StatusCode() == http.StatusServiceUnavailable {
		if err := decode(res, &health); err != nil {
			return nil, err
		}
	}
	return &health, nil
}
