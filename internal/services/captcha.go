package services

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/nexconsult/gstin-api/internal/config"
	"github.com/nexconsult/gstin-api/internal/models"
	"github.com/sirupsen/logrus"
)

// CaptchaMode names a CAPTCHA strategy
type CaptchaMode string

const (
	// ModeHandoff returns the challenge image to the caller and waits for Resume
	ModeHandoff CaptchaMode = "handoff"
	// ModeInteractive blocks while a human solves the challenge in a visible window
	ModeInteractive CaptchaMode = "interactive"
)

var (
	captchaImageSelectors = []string{"#imgCaptcha", "img.captcha", `img[src*="captcha"]`}
	captchaInputSelectors = []string{"#fo-captcha", `input[name="cap"]`, "#captcha"}
	captchaTextMarkers    = []string{"captcha", "enter the characters", "type the characters", "verify you are human"}
)

// CaptchaGate detects and resolves the portal's visual challenge
type CaptchaGate interface {
	Mode() CaptchaMode

	// Detect probes the page for a challenge. A returned challenge with
	// Detected set must be handed to the caller; anything else means the
	// lookup can continue.
	Detect(ctx context.Context, page Page) (*models.Challenge, error)

	// Resolve applies a solution obtained out of band
	Resolve(ctx context.Context, page Page, solution string) error
}

// NewCaptchaGate picks the strategy from the rendering mode
func NewCaptchaGate(browser config.BrowserConfig, portal config.PortalConfig, session SessionManager, logger *logrus.Logger) CaptchaGate {
	if browser.Headless {
		return NewHandoffGate(logger)
	}
	return NewInteractiveGate(portal, session, logger)
}

// HandoffGate captures the challenge image and lets the caller solve it
type HandoffGate struct {
	logger *logrus.Logger
}

// NewHandoffGate creates the offscreen strategy
func NewHandoffGate(logger *logrus.Logger) *HandoffGate {
	return &HandoffGate{logger: logger}
}

func (g *HandoffGate) Mode() CaptchaMode { return ModeHandoff }

// Detect captures the first visible challenge image. It never waits.
func (g *HandoffGate) Detect(ctx context.Context, page Page) (*models.Challenge, error) {
	for _, selector := range captchaImageSelectors {
		state, err := page.Probe(ctx, selector)
		if err != nil || !state.Visible {
			continue
		}

		png, err := page.ElementScreenshot(ctx, selector)
		if err != nil || len(png) == 0 {
			g.logger.WithError(err).WithField("selector", selector).Warn("CAPTCHA visible but screenshot failed")
			continue
		}

		g.logger.WithField("selector", selector).Info("CAPTCHA detected, handing off to caller")
		return &models.Challenge{
			Detected: true,
			Image:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &models.Challenge{Detected: false}, nil
}

// Resolve types the solution into the answer field. A missing field means
// the portal no longer wants it, which is not an error.
func (g *HandoffGate) Resolve(ctx context.Context, page Page, solution string) error {
	for _, selector := range captchaInputSelectors {
		state, err := page.Probe(ctx, selector)
		if err != nil || !state.Visible {
			continue
		}
		if err := page.Fill(ctx, selector, solution); err != nil {
			return newLookupError(KindNavigation, "failed to enter the CAPTCHA solution", err)
		}
		g.logger.WithField("selector", selector).Debug("CAPTCHA solution entered")
		return nil
	}

	g.logger.Info("CAPTCHA field not present anymore, continuing without it")
	return nil
}

// InteractiveGate waits for a human to clear the challenge in a visible window
type InteractiveGate struct {
	poll    time.Duration
	timeout time.Duration
	session SessionManager
	logger  *logrus.Logger
}

// NewInteractiveGate creates the visible-window strategy
func NewInteractiveGate(cfg config.PortalConfig, session SessionManager, logger *logrus.Logger) *InteractiveGate {
	return &InteractiveGate{
		poll:    cfg.CaptchaPoll,
		timeout: cfg.CaptchaWaitTimeout,
		session: session,
		logger:  logger,
	}
}

func (g *InteractiveGate) Mode() CaptchaMode { return ModeInteractive }

// Detect blocks until the challenge is cleared or the wait ceiling passes.
// On timeout it proceeds anyway and lets the data wait decide.
func (g *InteractiveGate) Detect(ctx context.Context, page Page) (*models.Challenge, error) {
	deadline := time.Now().Add(g.timeout)
	seen := false

	for {
		blocked := g.indicatorsPresent(ctx, page)
		if blocked && !seen {
			seen = true
			g.logger.WithField("timeout", g.timeout.String()).Warn("CAPTCHA detected, solve it in the browser window")
		}

		if !blocked && g.inputReady(ctx, page) {
			if seen {
				g.logger.Info("CAPTCHA cleared")
				// Authenticated state is easiest to lose right now
				if err := g.session.SaveCookies(ctx); err != nil {
					g.logger.WithError(err).Warn("Failed to persist cookies after CAPTCHA")
				}
			}
			return &models.Challenge{Detected: false}, nil
		}

		if time.Now().After(deadline) {
			g.logger.Warn("CAPTCHA wait timed out, proceeding anyway")
			return &models.Challenge{Detected: false}, nil
		}

		if err := sleepCtx(ctx, g.poll); err != nil {
			return nil, err
		}
	}
}

// Resolve is a no-op: the operator answers in the window
func (g *InteractiveGate) Resolve(ctx context.Context, page Page, solution string) error {
	g.logger.Debug("Interactive mode ignores out-of-band CAPTCHA solutions")
	return nil
}

func (g *InteractiveGate) indicatorsPresent(ctx context.Context, page Page) bool {
	for _, selector := range append(append([]string{}, captchaImageSelectors...), captchaInputSelectors...) {
		if state, err := page.Probe(ctx, selector); err == nil && state.Visible {
			return true
		}
	}

	text, err := page.BodyText(ctx)
	if err != nil {
		return false
	}
	lower := strings.ToLower(text)
	for _, marker := range captchaTextMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func (g *InteractiveGate) inputReady(ctx context.Context, page Page) bool {
	for _, selector := range identifierSelectors {
		if state, err := page.Probe(ctx, selector); err == nil && state.Visible && state.Enabled {
			return true
		}
	}
	return false
}
