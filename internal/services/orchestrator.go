package services

import (
	"context"
	"errors"
	"sync"

	"github.com/nexconsult/gstin-api/internal/config"
	"github.com/nexconsult/gstin-api/internal/logger"
	"github.com/nexconsult/gstin-api/internal/models"
	"github.com/sirupsen/logrus"
)

// Outcome is the result of a run or a resume. Exactly one of Record and
// Challenge is set.
type Outcome struct {
	GSTIN     string
	Record    *models.Record
	Challenge *models.Challenge
}

// pendingAttempt is an attempt suspended on a handed-off CAPTCHA
type pendingAttempt struct {
	gstin   string
	attempt int
	page    Page
	capture *AttemptCapture
}

// RetryOrchestrator runs lookup attempts against the portal and decides
// between retrying and surfacing a failure
type RetryOrchestrator struct {
	config      config.PortalConfig
	session     SessionManager
	navigator   *Navigator
	gate        CaptchaGate
	interceptor *ResponseInterceptor
	engine      *ExtractionEngine
	diagnostics *DiagnosticsWriter
	logger      *logrus.Logger

	mu      sync.Mutex
	pending *pendingAttempt
}

// NewRetryOrchestrator wires the attempt pipeline
func NewRetryOrchestrator(
	cfg config.PortalConfig,
	session SessionManager,
	navigator *Navigator,
	gate CaptchaGate,
	interceptor *ResponseInterceptor,
	engine *ExtractionEngine,
	diagnostics *DiagnosticsWriter,
	logger *logrus.Logger,
) *RetryOrchestrator {
	return &RetryOrchestrator{
		config:      cfg,
		session:     session,
		navigator:   navigator,
		gate:        gate,
		interceptor: interceptor,
		engine:      engine,
		diagnostics: diagnostics,
		logger:      logger,
	}
}

// Mode returns the CAPTCHA strategy in use
func (o *RetryOrchestrator) Mode() CaptchaMode { return o.gate.Mode() }

// Pending returns the GSTIN of the suspended attempt, if any
func (o *RetryOrchestrator) Pending() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending == nil {
		return "", false
	}
	return o.pending.gstin, true
}

// Run looks gstin up with bounded retries. A handed-off CAPTCHA suspends
// the attempt and returns an Outcome carrying the challenge.
func (o *RetryOrchestrator) Run(ctx context.Context, gstin string) (*Outcome, error) {
	o.discardPending()

	maxAttempts := o.config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		lastErr  error
		lastPage Page
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		log := logger.ForLookup(o.logger, gstin, logrus.Fields{"attempt": attempt})
		log.Info("Starting lookup attempt")

		outcome, page, err := o.attempt(ctx, gstin, attempt)
		if page != nil {
			lastPage = page
		}
		if err == nil {
			return outcome, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, err
		}
		lerr, ok := AsLookupError(err)
		if !ok || !lerr.Kind.Retryable() {
			return nil, err
		}

		log.WithError(err).WithField("kind", lerr.Kind).Warn("Lookup attempt failed")
		if attempt < maxAttempts {
			if serr := sleepCtx(ctx, o.config.RetryDelay); serr != nil {
				return nil, err
			}
		}
	}

	o.logger.WithFields(logrus.Fields{
		"gstin":    gstin,
		"attempts": maxAttempts,
	}).Error("Lookup failed after all attempts")
	return nil, o.withFailureArtifacts(ctx, lastPage, lastErr)
}

// Resume applies a CAPTCHA solution to the suspended attempt and finishes
// it. It runs once; a failure here is terminal.
func (o *RetryOrchestrator) Resume(ctx context.Context, solution string) (*Outcome, error) {
	o.mu.Lock()
	p := o.pending
	o.pending = nil
	o.mu.Unlock()

	if p == nil {
		return nil, newLookupError(KindNoPendingChallenge, "No pending CAPTCHA challenge. Submit a verification first.", nil)
	}
	defer p.capture.Teardown()

	log := logger.ForLookup(o.logger, p.gstin, logrus.Fields{"attempt": p.attempt, "attempt_id": p.capture.ID()})
	if p.page.Closed() {
		log.Warn("Page closed while waiting for the CAPTCHA solution")
		return nil, newLookupError(KindSessionExpired, "Browser session expired or closed. Please start over.", ErrPageClosed)
	}

	log.Info("Resuming lookup with CAPTCHA solution")
	if err := o.gate.Resolve(ctx, p.page, solution); err != nil {
		return nil, o.withFailureArtifacts(ctx, p.page, err)
	}
	if err := o.navigator.Submit(ctx, p.page); err != nil {
		return nil, o.withFailureArtifacts(ctx, p.page, err)
	}

	rec, err := o.collect(ctx, p.gstin, p.page, p.capture)
	if err != nil {
		log.WithError(err).Error("Resumed lookup failed")
		return nil, o.withFailureArtifacts(ctx, p.page, err)
	}

	o.saveCookies(ctx)
	return &Outcome{GSTIN: p.gstin, Record: rec}, nil
}

// Discard drops a suspended attempt and detaches its observer
func (o *RetryOrchestrator) Discard() { o.discardPending() }

func (o *RetryOrchestrator) discardPending() {
	o.mu.Lock()
	p := o.pending
	o.pending = nil
	o.mu.Unlock()
	if p != nil {
		o.logger.WithField("gstin", p.gstin).Debug("Discarding pending CAPTCHA challenge")
		p.capture.Teardown()
	}
}

// attempt runs one pass of the pipeline. The capture is torn down on every
// exit except a handed-off challenge, which keeps it for Resume.
func (o *RetryOrchestrator) attempt(ctx context.Context, gstin string, n int) (*Outcome, Page, error) {
	page, err := o.session.Page(ctx)
	if err != nil {
		return nil, nil, newLookupError(KindNavigation, "browser session unavailable", err)
	}

	capture := o.interceptor.RegisterForAttempt(ctx, page)
	suspended := false
	defer func() {
		if !suspended {
			capture.Teardown()
		}
	}()

	if err := o.navigator.OpenPortal(ctx, page); err != nil {
		return nil, page, err
	}
	if err := o.navigator.FillIdentifier(ctx, page, gstin); err != nil {
		return nil, page, err
	}
	if err := sleepCtx(ctx, o.config.CaptchaCheckDelay); err != nil {
		return nil, page, err
	}

	challenge, err := o.gate.Detect(ctx, page)
	if err != nil {
		return nil, page, err
	}
	if challenge != nil && challenge.Detected {
		suspended = true
		o.mu.Lock()
		o.pending = &pendingAttempt{gstin: gstin, attempt: n, page: page, capture: capture}
		o.mu.Unlock()
		return &Outcome{GSTIN: gstin, Challenge: challenge}, page, nil
	}

	if err := o.navigator.Submit(ctx, page); err != nil {
		return nil, page, err
	}

	rec, err := o.collect(ctx, gstin, page, capture)
	if err != nil {
		return nil, page, err
	}
	o.saveCookies(ctx)
	return &Outcome{GSTIN: gstin, Record: rec}, page, nil
}

// collect waits for the primary payload and falls back to scraping the
// rendered page when it never comes or carries no target fields
func (o *RetryOrchestrator) collect(ctx context.Context, gstin string, page Page, capture *AttemptCapture) (*models.Record, error) {
	log := logger.ForLookup(o.logger, gstin, logrus.Fields{"attempt_id": capture.ID()})

	var (
		base    models.Record
		waitErr error
	)
	payload, err := capture.AwaitPrimary(ctx, page, o.config.PayloadTimeout, o.config.PayloadPoll)
	switch {
	case err == nil:
		rec, perr := RecordFromPayloads(gstin, payload, capture.Secondary())
		if perr != nil {
			if errors.Is(perr, ErrPortal) {
				return nil, perr
			}
			log.WithError(perr).Warn("Failed to map taxpayer payload, falling back to page extraction")
			waitErr = perr
			break
		}
		if rec.HasTargets() {
			return &rec, nil
		}
		log.Warn("Taxpayer payload carries no names or address, falling back to page extraction")
		base = rec
	case errors.Is(err, ErrPortal) || ctx.Err() != nil:
		return nil, err
	default:
		log.WithError(err).Warn("No taxpayer payload, falling back to page extraction")
		waitErr = err
	}

	snapshot, err := SnapshotPage(ctx, page)
	if err != nil {
		return nil, newLookupError(KindEmptyExtraction, "failed to read the result page", err)
	}

	extracted, ok := o.engine.Extract(snapshot, gstin)
	if !ok {
		// errors.Is still reaches a PayloadTimeout through the chain
		return nil, newLookupError(KindEmptyExtraction, "No GST details found on the page", waitErr)
	}

	if base.Source != "" {
		merged := MergeUnset(base, extracted)
		return &merged, nil
	}
	return &extracted, nil
}

func (o *RetryOrchestrator) withFailureArtifacts(ctx context.Context, page Page, err error) error {
	artifacts := o.diagnostics.CaptureFailure(context.WithoutCancel(ctx), page)
	if len(artifacts) == 0 {
		return err
	}
	if lerr, ok := AsLookupError(err); ok {
		lerr.Artifacts = append(lerr.Artifacts, artifacts...)
		return lerr
	}
	wrapped := newLookupError(KindNavigation, "lookup failed", err)
	wrapped.Artifacts = artifacts
	return wrapped
}

func (o *RetryOrchestrator) saveCookies(ctx context.Context) {
	if err := o.session.SaveCookies(ctx); err != nil {
		o.logger.WithError(err).Warn("Failed to persist cookies")
	}
}
