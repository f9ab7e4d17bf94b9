package services

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/nexconsult/gstin-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCaptchaGatePicksStrategy(t *testing.T) {
	session := &fakeSession{}

	gate := NewCaptchaGate(config.BrowserConfig{Headless: true}, fastPortalConfig(), session, testLogger())
	assert.Equal(t, ModeHandoff, gate.Mode())

	gate = NewCaptchaGate(config.BrowserConfig{Headless: false}, fastPortalConfig(), session, testLogger())
	assert.Equal(t, ModeInteractive, gate.Mode())
}

func TestHandoffGateDetect(t *testing.T) {
	gate := NewHandoffGate(testLogger())
	page := newFakePage()
	page.show("img.captcha", "")

	challenge, err := gate.Detect(context.Background(), page)
	require.NoError(t, err)
	assert.True(t, challenge.Detected)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(page.png), challenge.Image)
}

func TestHandoffGateNoChallenge(t *testing.T) {
	gate := NewHandoffGate(testLogger())
	page := newFakePage()
	page.setState("#imgCaptcha", ElementState{Present: true})

	challenge, err := gate.Detect(context.Background(), page)
	require.NoError(t, err)
	assert.False(t, challenge.Detected)
	assert.Empty(t, challenge.Image)
}

func TestHandoffGateResolve(t *testing.T) {
	gate := NewHandoffGate(testLogger())
	page := newFakePage()
	page.show("#fo-captcha", "")

	require.NoError(t, gate.Resolve(context.Background(), page, "AB12C"))
	assert.Equal(t, map[string]string{"#fo-captcha": "AB12C"}, page.fills)
}

func TestHandoffGateResolveWithoutField(t *testing.T) {
	gate := NewHandoffGate(testLogger())
	page := newFakePage()

	assert.NoError(t, gate.Resolve(context.Background(), page, "AB12C"))
	assert.Empty(t, page.fills)
}

func TestInteractiveGateNoChallenge(t *testing.T) {
	session := &fakeSession{}
	gate := NewInteractiveGate(fastPortalConfig(), session, testLogger())
	page := newFakePage()
	page.show("#for_gstin", "")

	challenge, err := gate.Detect(context.Background(), page)
	require.NoError(t, err)
	assert.False(t, challenge.Detected)
	assert.Zero(t, session.saves.Load())
}

func TestInteractiveGateWaitsForHuman(t *testing.T) {
	cfg := fastPortalConfig()
	cfg.CaptchaWaitTimeout = 2 * time.Second
	session := &fakeSession{}
	gate := NewInteractiveGate(cfg, session, testLogger())

	page := newFakePage()
	page.show("#for_gstin", "")
	page.show("#imgCaptcha", "")
	page.show("#fo-captcha", "")

	go func() {
		time.Sleep(50 * time.Millisecond)
		page.hide("#imgCaptcha")
		page.hide("#fo-captcha")
	}()

	start := time.Now()
	challenge, err := gate.Detect(context.Background(), page)
	require.NoError(t, err)
	assert.False(t, challenge.Detected)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	// cleared challenges persist the session cookies right away
	assert.Equal(t, int32(1), session.saves.Load())
}

func TestInteractiveGateTimesOutOptimistically(t *testing.T) {
	session := &fakeSession{}
	gate := NewInteractiveGate(fastPortalConfig(), session, testLogger())

	page := newFakePage()
	page.show("#for_gstin", "")
	page.setPage("", "Please type the characters you see in the image")

	challenge, err := gate.Detect(context.Background(), page)
	require.NoError(t, err)
	assert.False(t, challenge.Detected)
	assert.Zero(t, session.saves.Load())
}

func TestInteractiveGateHonoursContext(t *testing.T) {
	cfg := fastPortalConfig()
	cfg.CaptchaWaitTimeout = time.Minute
	gate := NewInteractiveGate(cfg, &fakeSession{}, testLogger())
	page := newFakePage()
	page.show("#imgCaptcha", "")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := gate.Detect(ctx, page)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInteractiveGateResolveIsNoop(t *testing.T) {
	gate := NewInteractiveGate(fastPortalConfig(), &fakeSession{}, testLogger())
	page := newFakePage()

	assert.NoError(t, gate.Resolve(context.Background(), page, "AB12C"))
	assert.Empty(t, page.fills)
}
