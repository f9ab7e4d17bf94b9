package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// ElementState is the result of probing a selector on the live page
type ElementState struct {
	Present bool   `json:"present"`
	Visible bool   `json:"visible"`
	Enabled bool   `json:"enabled"`
	Text    string `json:"text"`
}

// ResponseEvent is a network response whose URL matched an observer
type ResponseEvent struct {
	URL  string
	Body []byte
	Err  error
}

// Page is the browser tab the automation drives
type Page interface {
	// Navigate loads url and returns once the DOM is ready
	Navigate(ctx context.Context, url string) error

	// Probe reports whether selector matches, is visible and is enabled.
	// A missing element is not an error.
	Probe(ctx context.Context, selector string) (ElementState, error)

	// Fill replaces the value of an input
	Fill(ctx context.Context, selector, value string) error

	// PressKeys sends key strokes to the element (chromedp/kb encoding)
	PressKeys(ctx context.Context, selector string, keys ...string) error

	// Click clicks on an element
	Click(ctx context.Context, selector string) error

	// ElementScreenshot scrolls the element into view and captures it as PNG
	ElementScreenshot(ctx context.Context, selector string) ([]byte, error)

	// Screenshot captures the full page as PNG
	Screenshot(ctx context.Context) ([]byte, error)

	// HTML returns the document markup
	HTML(ctx context.Context) (string, error)

	// BodyText returns the rendered text of the body
	BodyText(ctx context.Context) (string, error)

	// Cookies returns every cookie of the browser context
	Cookies(ctx context.Context) ([]Cookie, error)

	// SetCookies installs cookies into the browser context
	SetCookies(ctx context.Context, cookies []Cookie) error

	// ObserveResponses calls fn for each finished response whose URL
	// satisfies match. Observation stops when ctx is done.
	ObserveResponses(ctx context.Context, match func(url string) bool, fn func(ResponseEvent))

	// Closed reports whether the tab is gone
	Closed() bool

	// ID identifies the tab in logs
	ID() string
}

const probeScript = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el) { return {present: false, visible: false, enabled: false, text: ""}; }
	const r = el.getBoundingClientRect();
	const st = window.getComputedStyle(el);
	const visible = r.width > 0 && r.height > 0 && st.visibility !== 'hidden' && st.display !== 'none';
	return {
		present: true,
		visible: visible,
		enabled: !el.disabled && !el.readOnly,
		text: (el.innerText || el.textContent || '').trim()
	};
})(%s)`

const bodyTextScript = `document.body ? document.body.innerText : ""`

const responseBodyTimeout = 10 * time.Second

// ChromePage implements Page on a chromedp tab
type ChromePage struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *logrus.Logger
	closed atomic.Bool
}

func newChromePage(id string, ctx context.Context, cancel context.CancelFunc, logger *logrus.Logger) *ChromePage {
	return &ChromePage{id: id, ctx: ctx, cancel: cancel, logger: logger}
}

// run executes actions on the tab, bounded by the caller's context
func (p *ChromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	if p.Closed() {
		return ErrPageClosed
	}

	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// Navigate navigates to a URL
func (p *ChromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

// Probe evaluates the element state without waiting for it
func (p *ChromePage) Probe(ctx context.Context, selector string) (ElementState, error) {
	arg, err := json.Marshal(selector)
	if err != nil {
		return ElementState{}, err
	}
	var state ElementState
	err = p.run(ctx, chromedp.Evaluate(fmt.Sprintf(probeScript, arg), &state))
	return state, err
}

// Fill clears the input and types value into it
func (p *ChromePage) Fill(ctx context.Context, selector, value string) error {
	return p.run(ctx,
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

// PressKeys sends keys to the element
func (p *ChromePage) PressKeys(ctx context.Context, selector string, keys ...string) error {
	return p.run(ctx, chromedp.SendKeys(selector, strings.Join(keys, ""), chromedp.ByQuery))
}

// Click clicks on an element
func (p *ChromePage) Click(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

// ElementScreenshot captures one element
func (p *ChromePage) ElementScreenshot(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	err := p.run(ctx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Screenshot(selector, &buf, chromedp.ByQuery, chromedp.NodeVisible),
	)
	return buf, err
}

// Screenshot captures the whole page
func (p *ChromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, chromedp.FullScreenshot(&buf, 100))
	return buf, err
}

// HTML gets HTML content from the page
func (p *ChromePage) HTML(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// BodyText gets the rendered text of the page
func (p *ChromePage) BodyText(ctx context.Context) (string, error) {
	var text string
	err := p.run(ctx, chromedp.Evaluate(bodyTextScript, &text))
	return text, err
}

// Cookies reads all cookies of the browser context
func (p *ChromePage) Cookies(ctx context.Context) ([]Cookie, error) {
	var raw []*network.Cookie
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}

	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return cookies, nil
}

// SetCookies installs cookies
func (p *ChromePage) SetCookies(ctx context.Context, cookies []Cookie) error {
	if len(cookies) == 0 {
		return nil
	}

	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if c.SameSite != "" {
			param.SameSite = network.CookieSameSite(c.SameSite)
		}
		if c.Expires > 0 {
			sec := int64(c.Expires)
			nsec := int64((c.Expires - float64(sec)) * float64(time.Second))
			expires := cdp.TimeSinceEpoch(time.Unix(sec, nsec))
			param.Expires = &expires
		}
		params = append(params, param)
	}

	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies(params).Do(ctx)
	}))
}

// ObserveResponses attaches a target listener that lives until ctx is done.
// Bodies are fetched after loading finishes, off the event goroutine.
func (p *ChromePage) ObserveResponses(ctx context.Context, match func(url string) bool, fn func(ResponseEvent)) {
	listenCtx, cancel := context.WithCancel(p.ctx)
	context.AfterFunc(ctx, cancel)

	var pending sync.Map
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if match(e.Response.URL) {
				pending.Store(e.RequestID, e.Response.URL)
			}
		case *network.EventLoadingFailed:
			pending.Delete(e.RequestID)
		case *network.EventLoadingFinished:
			url, ok := pending.LoadAndDelete(e.RequestID)
			if !ok {
				return
			}
			go func(id network.RequestID, url string) {
				bodyCtx, bodyCancel := context.WithTimeout(listenCtx, responseBodyTimeout)
				defer bodyCancel()

				var body []byte
				err := chromedp.Run(bodyCtx, chromedp.ActionFunc(func(ctx context.Context) error {
					var err error
					body, err = network.GetResponseBody(id).Do(ctx)
					return err
				}))
				if listenCtx.Err() != nil {
					return
				}
				fn(ResponseEvent{URL: url, Body: body, Err: err})
			}(e.RequestID, url.(string))
		}
	})

	p.logger.WithField("page_id", p.id).Debug("Response observer attached")
}

// Closed reports whether the tab is gone
func (p *ChromePage) Closed() bool {
	return p.closed.Load() || p.ctx.Err() != nil
}

// ID returns the page ID
func (p *ChromePage) ID() string {
	return p.id
}

// markClosed flags the tab as gone without touching chromedp
func (p *ChromePage) markClosed() {
	p.closed.Store(true)
}

// close releases the tab
func (p *ChromePage) close() {
	p.closed.Store(true)
	if p.cancel != nil {
		p.cancel()
	}
}
