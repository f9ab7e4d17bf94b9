package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	primaryURL   = "https://services.gst.gov.in/services/api/search/taxpayerDetails"
	secondaryURL = "https://services.gst.gov.in/services/api/search/goodservice?gstin=27ABCDE1234F1Z5"
	primaryBody  = `{"gstin":"27ABCDE1234F1Z5","lgnm":"ACME TRADING PRIVATE LIMITED","tradeNam":"ACME TRADERS","sts":"Active","rgdt":"01/07/2017"}`
)

func newTestInterceptor() *ResponseInterceptor {
	return NewResponseInterceptor(fastPortalConfig(), testLogger())
}

func TestInterceptorResolvesPrimary(t *testing.T) {
	defer goleak.VerifyNone(t)

	page := newFakePage()
	capture := newTestInterceptor().RegisterForAttempt(context.Background(), page)
	defer capture.Teardown()

	page.emit(secondaryURL, []byte(`{"bzgddtls":[{"hsncd":"8471","gdes":"Computers"}]}`))
	go func() {
		time.Sleep(30 * time.Millisecond)
		page.emit(primaryURL, []byte(primaryBody))
	}()

	payload, err := capture.AwaitPrimary(context.Background(), page, time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, PayloadPrimary, payload.Kind)
	assert.JSONEq(t, primaryBody, string(payload.Body))

	require.NotNil(t, capture.Secondary())
	assert.Equal(t, PayloadSecondary, capture.Secondary().Kind)
}

func TestInterceptorIgnoresUnrelatedAndInvalidBodies(t *testing.T) {
	defer goleak.VerifyNone(t)

	page := newFakePage()
	capture := newTestInterceptor().RegisterForAttempt(context.Background(), page)
	defer capture.Teardown()

	page.emit("https://services.gst.gov.in/services/api/captcha", []byte(`{"ok":true}`))
	page.emit(primaryURL, []byte(`<html>Service Unavailable</html>`))

	_, err := capture.AwaitPrimary(context.Background(), page, 60*time.Millisecond, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrPayloadTimeout)
	assert.Nil(t, capture.Primary())
}

func TestInterceptorFirstPrimaryWins(t *testing.T) {
	page := newFakePage()
	capture := newTestInterceptor().RegisterForAttempt(context.Background(), page)
	defer capture.Teardown()

	page.emit(primaryURL, []byte(primaryBody))
	page.emit(primaryURL, []byte(`{"lgnm":"SOMEONE ELSE"}`))

	require.NotNil(t, capture.Primary())
	assert.JSONEq(t, primaryBody, string(capture.Primary().Body))
}

func TestInterceptorErrorBanner(t *testing.T) {
	defer goleak.VerifyNone(t)

	page := newFakePage()
	page.show(".error-msg", "  Enter valid Letters shown. ")
	capture := newTestInterceptor().RegisterForAttempt(context.Background(), page)
	defer capture.Teardown()

	_, err := capture.AwaitPrimary(context.Background(), page, time.Second, 10*time.Millisecond)
	require.ErrorIs(t, err, ErrPortal)
	lerr, _ := AsLookupError(err)
	assert.Equal(t, "GST Portal Error: Enter valid Letters shown.", lerr.Message)
}

func TestInterceptorHiddenBannerIsIgnored(t *testing.T) {
	page := newFakePage()
	page.setState(".alert-danger", ElementState{Present: true, Visible: false, Text: "stale"})
	capture := newTestInterceptor().RegisterForAttempt(context.Background(), page)
	defer capture.Teardown()

	_, err := capture.AwaitPrimary(context.Background(), page, 50*time.Millisecond, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrPayloadTimeout)
}

func TestInterceptorContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	page := newFakePage()
	capture := newTestInterceptor().RegisterForAttempt(context.Background(), page)
	defer capture.Teardown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := capture.AwaitPrimary(ctx, page, time.Second, 10*time.Millisecond)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestInterceptorDropsLateResponsesAfterTeardown(t *testing.T) {
	defer goleak.VerifyNone(t)

	page := newFakePage()
	capture := newTestInterceptor().RegisterForAttempt(context.Background(), page)
	assert.Equal(t, 1, page.liveObservers())

	capture.Teardown()
	capture.Teardown()
	assert.Zero(t, page.liveObservers())

	// a response already in flight when the observer detached
	capture.handle(newTestInterceptor().kindOf)(ResponseEvent{URL: primaryURL, Body: []byte(primaryBody)})
	assert.Nil(t, capture.Primary())
}

func TestInterceptorReRegisterTearsDownPrevious(t *testing.T) {
	defer goleak.VerifyNone(t)

	page := newFakePage()
	interceptor := newTestInterceptor()

	first := interceptor.RegisterForAttempt(context.Background(), page)
	second := interceptor.RegisterForAttempt(context.Background(), page)
	defer second.Teardown()

	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, 1, page.liveObservers())

	page.emit(primaryURL, []byte(primaryBody))
	assert.Nil(t, first.Primary())
	assert.NotNil(t, second.Primary())
}

func TestInterceptorOutlivesRequestContext(t *testing.T) {
	page := newFakePage()
	ctx, cancel := context.WithCancel(context.Background())
	capture := newTestInterceptor().RegisterForAttempt(ctx, page)
	defer capture.Teardown()

	cancel()
	page.emit(primaryURL, []byte(primaryBody))
	assert.NotNil(t, capture.Primary())
}
