package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nexconsult/gstin-api/internal/config"
	"github.com/nexconsult/gstin-api/internal/logger"
	"github.com/sirupsen/logrus"
)

type observer struct {
	ctx   context.Context
	match func(string) bool
	fn    func(ResponseEvent)
}

// fakePage is a scriptable Page. Selectors missing from states probe as absent.
type fakePage struct {
	mu        sync.Mutex
	id        string
	states    map[string]ElementState
	html      string
	text      string
	png       []byte
	cookies   []Cookie
	observers []*observer

	navigateErr error
	closed      atomic.Bool

	navigations int
	fills       map[string]string
	clicks      []string
	keys        [][]string

	// onClick runs after a click is recorded, e.g. to emit a response
	onClick func(selector string)
}

func newFakePage() *fakePage {
	return &fakePage{
		id:     "page-1",
		states: make(map[string]ElementState),
		fills:  make(map[string]string),
		png:    []byte{0x89, 'P', 'N', 'G'},
	}
}

func (p *fakePage) show(selector, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[selector] = ElementState{Present: true, Visible: true, Enabled: true, Text: text}
}

func (p *fakePage) hide(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.states, selector)
}

func (p *fakePage) setState(selector string, st ElementState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[selector] = st
}

func (p *fakePage) setPage(html, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.html = html
	p.text = text
}

// emit delivers a response to every live observer that matches url
func (p *fakePage) emit(url string, body []byte) {
	p.mu.Lock()
	obs := append([]*observer(nil), p.observers...)
	p.mu.Unlock()
	for _, o := range obs {
		if o.ctx.Err() == nil && o.match(url) {
			o.fn(ResponseEvent{URL: url, Body: body})
		}
	}
}

func (p *fakePage) liveObservers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, o := range p.observers {
		if o.ctx.Err() == nil {
			n++
		}
	}
	return n
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	p.navigations++
	err := p.navigateErr
	p.mu.Unlock()
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (p *fakePage) Probe(ctx context.Context, selector string) (ElementState, error) {
	if p.closed.Load() {
		return ElementState{}, ErrPageClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.states[selector], nil
}

func (p *fakePage) Fill(ctx context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fills[selector] = value
	return nil
}

func (p *fakePage) PressKeys(ctx context.Context, selector string, keys ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, append([]string{selector}, keys...))
	return nil
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	p.clicks = append(p.clicks, selector)
	hook := p.onClick
	p.mu.Unlock()
	if hook != nil {
		hook(selector)
	}
	return nil
}

func (p *fakePage) ElementScreenshot(ctx context.Context, selector string) ([]byte, error) {
	return p.png, nil
}

func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error) {
	if p.closed.Load() {
		return nil, ErrPageClosed
	}
	return p.png, nil
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	if p.closed.Load() {
		return "", ErrPageClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

func (p *fakePage) BodyText(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text, nil
}

func (p *fakePage) Cookies(ctx context.Context) ([]Cookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cookies, nil
}

func (p *fakePage) SetCookies(ctx context.Context, cookies []Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cookies = cookies
	return nil
}

func (p *fakePage) ObserveResponses(ctx context.Context, match func(string) bool, fn func(ResponseEvent)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, &observer{ctx: ctx, match: match, fn: fn})
}

func (p *fakePage) Closed() bool { return p.closed.Load() }

func (p *fakePage) ID() string { return p.id }

// fakeSession hands out a single fakePage
type fakeSession struct {
	page    *fakePage
	pageErr error
	saves   atomic.Int32
}

func (s *fakeSession) Initialize(ctx context.Context) error { return s.pageErr }

func (s *fakeSession) Page(ctx context.Context) (Page, error) {
	if s.pageErr != nil {
		return nil, s.pageErr
	}
	return s.page, nil
}

func (s *fakeSession) SaveCookies(ctx context.Context) error {
	s.saves.Add(1)
	return nil
}

func (s *fakeSession) KeepAlive(ctx context.Context) error { return nil }

func (s *fakeSession) Restart(ctx context.Context) error { return nil }

func (s *fakeSession) Close() error { return nil }

func (s *fakeSession) Health() map[string]interface{} {
	return map[string]interface{}{"status": "healthy", "initialized": s.pageErr == nil}
}

var errBoom = errors.New("boom")

func testLogger() *logrus.Logger {
	return logger.Discard()
}

// fastPortalConfig has every delay at zero and short waits
func fastPortalConfig() config.PortalConfig {
	return config.PortalConfig{
		URL:                "https://services.gst.gov.in/services/searchtp",
		PrimaryPattern:     "/api/search/taxpayerDetails",
		SecondaryPattern:   "/api/search/goodservice",
		NavigationTimeout:  time.Second,
		InputTimeout:       0,
		PayloadTimeout:     200 * time.Millisecond,
		PayloadPoll:        20 * time.Millisecond,
		CaptchaPoll:        10 * time.Millisecond,
		CaptchaWaitTimeout: 100 * time.Millisecond,
		MaxAttempts:        3,
	}
}
