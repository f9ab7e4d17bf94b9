package services

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp/kb"
	"github.com/nexconsult/gstin-api/internal/config"
	"github.com/sirupsen/logrus"
)

var (
	identifierSelectors = []string{"#for_gstin", `input[name="for_gstin"]`, "#gstin"}
	submitSelectors     = []string{"#lotsearch", `button[type="submit"]`, `input[type="submit"]`}
)

const selectorPoll = 250 * time.Millisecond

// Navigator drives the portal search form
type Navigator struct {
	config      config.PortalConfig
	diagnostics *DiagnosticsWriter
	logger      *logrus.Logger
}

// NewNavigator creates a navigator for the configured portal
func NewNavigator(cfg config.PortalConfig, diagnostics *DiagnosticsWriter, logger *logrus.Logger) *Navigator {
	return &Navigator{config: cfg, diagnostics: diagnostics, logger: logger}
}

// OpenPortal loads the search page and waits for the portal scripts to settle
func (n *Navigator) OpenPortal(ctx context.Context, page Page) error {
	navCtx, cancel := context.WithTimeout(ctx, n.config.NavigationTimeout)
	defer cancel()

	n.logger.WithField("url", n.config.URL).Debug("Opening portal")
	if err := page.Navigate(navCtx, n.config.URL); err != nil {
		return newLookupError(KindNavigation, "failed to load the GST portal", err)
	}

	// The input exists after DOM ready but ignores input until the portal initializes
	return sleepCtx(ctx, n.config.SettleDelay)
}

// FillIdentifier types the GSTIN into the search field and replays the key
// events the portal listens to before it enables its own validation
func (n *Navigator) FillIdentifier(ctx context.Context, page Page, gstin string) error {
	selector, err := firstVisible(ctx, page, identifierSelectors, n.config.InputTimeout)
	if err != nil {
		lerr := newLookupError(KindInputNotFound, "GSTIN input field not found", err)
		if path, serr := n.diagnostics.CaptureScreenshot(ctx, page, "input-not-found"); serr == nil {
			lerr.Artifacts = append(lerr.Artifacts, path)
		}
		return lerr
	}

	log := n.logger.WithField("selector", selector)
	if err := page.Fill(ctx, selector, gstin); err != nil {
		return newLookupError(KindInputNotFound, "failed to fill GSTIN input", err)
	}
	if err := sleepCtx(ctx, n.config.PostFillDelay); err != nil {
		return err
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"focus", func() error { return page.Click(ctx, selector) }},
		{"end", func() error { return page.PressKeys(ctx, selector, kb.End) }},
		{"space", func() error { return page.PressKeys(ctx, selector, " ") }},
		{"backspace", func() error { return page.PressKeys(ctx, selector, kb.Backspace) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			log.WithError(err).WithField("step", step.name).Debug("Input interaction failed")
		}
	}

	log.Debug("GSTIN entered")
	return nil
}

// Submit clicks the first visible search button, or presses Enter on the
// focused field when there is none
func (n *Navigator) Submit(ctx context.Context, page Page) error {
	for _, selector := range submitSelectors {
		state, err := page.Probe(ctx, selector)
		if err != nil || !state.Visible {
			continue
		}
		if err := page.Click(ctx, selector); err != nil {
			n.logger.WithError(err).WithField("selector", selector).Debug("Submit click failed")
			continue
		}
		n.logger.WithField("selector", selector).Debug("Search submitted")
		return nil
	}

	n.logger.Debug("No submit control found, pressing Enter")
	target := ":focus"
	if state, err := page.Probe(ctx, target); err != nil || !state.Present {
		target = identifierSelectors[0]
		for _, sel := range identifierSelectors {
			if st, err := page.Probe(ctx, sel); err == nil && st.Present {
				target = sel
				break
			}
		}
	}
	if err := page.PressKeys(ctx, target, kb.Enter); err != nil {
		return newLookupError(KindNavigation, "failed to submit the search", err)
	}
	return nil
}

// firstVisible polls the candidates in order until one is visible
func firstVisible(ctx context.Context, page Page, selectors []string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		for _, selector := range selectors {
			state, err := page.Probe(ctx, selector)
			if err == nil && state.Visible {
				return selector, nil
			}
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("none of %v visible within %s", selectors, timeout)
		}
		if err := sleepCtx(ctx, selectorPoll); err != nil {
			return "", err
		}
	}
}

// sleepCtx waits for d or until ctx is done
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
