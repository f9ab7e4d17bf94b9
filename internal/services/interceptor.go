package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nexconsult/gstin-api/internal/config"
	"github.com/sirupsen/logrus"
)

// PayloadKind tells the two intercepted JSON responses apart
type PayloadKind int

const (
	PayloadPrimary PayloadKind = iota + 1
	PayloadSecondary
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadPrimary:
		return "primary"
	case PayloadSecondary:
		return "secondary"
	}
	return "unknown"
}

// InterceptedPayload is a JSON body captured from the portal's API
type InterceptedPayload struct {
	Kind PayloadKind
	URL  string
	Body json.RawMessage
}

var errorBannerSelectors = []string{".error-msg", ".alert-danger"}

// ResponseInterceptor captures the portal's taxpayer JSON responses.
// Each attempt gets its own AttemptCapture.
type ResponseInterceptor struct {
	primaryPattern   string
	secondaryPattern string
	logger           *logrus.Logger

	mu      sync.Mutex
	current *AttemptCapture
}

// NewResponseInterceptor creates an interceptor for the configured URL patterns
func NewResponseInterceptor(cfg config.PortalConfig, logger *logrus.Logger) *ResponseInterceptor {
	return &ResponseInterceptor{
		primaryPattern:   cfg.PrimaryPattern,
		secondaryPattern: cfg.SecondaryPattern,
		logger:           logger,
	}
}

// RegisterForAttempt tears down the previous capture and attaches a fresh
// observer to page. The capture outlives ctx cancellation so a pending
// CAPTCHA can be resumed by a later request; only Teardown detaches it.
func (i *ResponseInterceptor) RegisterForAttempt(ctx context.Context, page Page) *AttemptCapture {
	i.mu.Lock()
	prev := i.current
	i.current = nil
	i.mu.Unlock()
	if prev != nil {
		prev.Teardown()
	}

	attemptCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &AttemptCapture{
		id:     uuid.New().String(),
		done:   make(chan struct{}),
		cancel: cancel,
		logger: i.logger,
	}
	c.release = func() {
		i.mu.Lock()
		if i.current == c {
			i.current = nil
		}
		i.mu.Unlock()
	}

	page.ObserveResponses(attemptCtx, i.matches, c.handle(i.kindOf))

	i.mu.Lock()
	i.current = c
	i.mu.Unlock()

	i.logger.WithFields(logrus.Fields{
		"attempt_id": c.id,
		"page_id":    page.ID(),
	}).Debug("Response interceptor registered")
	return c
}

func (i *ResponseInterceptor) matches(url string) bool {
	return i.kindOf(url) != 0
}

func (i *ResponseInterceptor) kindOf(url string) PayloadKind {
	switch {
	case i.primaryPattern != "" && strings.Contains(url, i.primaryPattern):
		return PayloadPrimary
	case i.secondaryPattern != "" && strings.Contains(url, i.secondaryPattern):
		return PayloadSecondary
	}
	return 0
}

// AttemptCapture holds the payloads of one attempt. The primary payload is
// a one-shot future: the observer resolves it, AwaitPrimary waits on it.
type AttemptCapture struct {
	id     string
	logger *logrus.Logger

	mu        sync.Mutex
	primary   *InterceptedPayload
	secondary *InterceptedPayload
	done      chan struct{}
	resolve   sync.Once

	cancel   context.CancelFunc
	release  func()
	teardown sync.Once
	closed   bool
}

// ID identifies the attempt in logs
func (c *AttemptCapture) ID() string { return c.id }

func (c *AttemptCapture) handle(kindOf func(string) PayloadKind) func(ResponseEvent) {
	return func(ev ResponseEvent) {
		log := c.logger.WithFields(logrus.Fields{"attempt_id": c.id, "url": ev.URL})
		if ev.Err != nil {
			log.WithError(ev.Err).Warn("Failed to read intercepted response body")
			return
		}
		if !json.Valid(ev.Body) {
			log.Warn("Intercepted response is not valid JSON, ignoring")
			return
		}

		payload := &InterceptedPayload{Kind: kindOf(ev.URL), URL: ev.URL, Body: json.RawMessage(ev.Body)}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return
		}

		switch payload.Kind {
		case PayloadPrimary:
			c.resolve.Do(func() {
				c.primary = payload
				close(c.done)
			})
			log.Info("Captured taxpayer details response")
		case PayloadSecondary:
			c.secondary = payload
			log.Debug("Captured goods and services response")
		}
	}
}

// AwaitPrimary waits for the primary payload. It checks the page for an
// error banner every poll and fails fast with its text.
func (c *AttemptCapture) AwaitPrimary(ctx context.Context, page Page, timeout, poll time.Duration) (*InterceptedPayload, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	if poll <= 0 {
		poll = timeout
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			c.mu.Lock()
			p := c.primary
			c.mu.Unlock()
			return p, nil
		case <-ticker.C:
			if text := errorBanner(ctx, page); text != "" {
				return nil, newLookupError(KindPortal, "GST Portal Error: "+text, nil)
			}
		case <-timer.C:
			return nil, newLookupError(KindPayloadTimeout,
				"Timeout waiting for GST details. CAPTCHA might be incorrect or service unavailable.", nil)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Primary returns the primary payload if it arrived
func (c *AttemptCapture) Primary() *InterceptedPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.primary
}

// Secondary returns the secondary payload if it arrived
func (c *AttemptCapture) Secondary() *InterceptedPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.secondary
}

// Teardown detaches the observer. Late responses are dropped.
func (c *AttemptCapture) Teardown() {
	c.teardown.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.cancel()
		if c.release != nil {
			c.release()
		}
		c.logger.WithField("attempt_id", c.id).Debug("Response interceptor torn down")
	})
}

func errorBanner(ctx context.Context, page Page) string {
	for _, selector := range errorBannerSelectors {
		state, err := page.Probe(ctx, selector)
		if err != nil || !state.Visible {
			continue
		}
		if text := strings.TrimSpace(state.Text); text != "" {
			return text
		}
	}
	return ""
}
