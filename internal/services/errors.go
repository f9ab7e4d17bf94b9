package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies lookup failures
type ErrorKind string

const (
	KindInvalidIdentifier  ErrorKind = "INVALID_GSTIN"
	KindNavigation         ErrorKind = "NAVIGATION_FAILURE"
	KindInputNotFound      ErrorKind = "INPUT_NOT_FOUND"
	KindPortal             ErrorKind = "PORTAL_ERROR"
	KindPayloadTimeout     ErrorKind = "PAYLOAD_TIMEOUT"
	KindEmptyExtraction    ErrorKind = "EMPTY_EXTRACTION"
	KindSessionExpired     ErrorKind = "SESSION_EXPIRED"
	KindNoPendingChallenge ErrorKind = "NO_PENDING_CHALLENGE"
)

const defaultSuggestion = "Please check if the GSTIN is correct and try again. If the issue persists, the GST portal structure may have changed."

// Sentinels for errors.Is. Only the kind is compared.
var (
	ErrInvalidIdentifier  = &LookupError{Kind: KindInvalidIdentifier}
	ErrNavigation         = &LookupError{Kind: KindNavigation}
	ErrInputNotFound      = &LookupError{Kind: KindInputNotFound}
	ErrPortal             = &LookupError{Kind: KindPortal}
	ErrPayloadTimeout     = &LookupError{Kind: KindPayloadTimeout}
	ErrEmptyExtraction    = &LookupError{Kind: KindEmptyExtraction}
	ErrSessionExpired     = &LookupError{Kind: KindSessionExpired}
	ErrNoPendingChallenge = &LookupError{Kind: KindNoPendingChallenge}

	ErrNotFound   = errors.New("record not found")
	ErrPageClosed = errors.New("page is closed")
)

// LookupError is a classified failure of a lookup or resume
type LookupError struct {
	Kind       ErrorKind
	Message    string
	Suggestion string
	Artifacts  []string
	Err        error
}

func newLookupError(kind ErrorKind, message string, err error) *LookupError {
	return &LookupError{
		Kind:       kind,
		Message:    message,
		Suggestion: suggestionFor(kind),
		Err:        err,
	}
}

func (e *LookupError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *LookupError) Unwrap() error { return e.Err }

// Is matches any LookupError of the same kind
func (e *LookupError) Is(target error) bool {
	t, ok := target.(*LookupError)
	return ok && t.Kind == e.Kind
}

// Retryable reports whether the orchestrator may spend another attempt on it
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindNavigation, KindInputNotFound, KindPortal, KindPayloadTimeout, KindEmptyExtraction:
		return true
	}
	return false
}

func suggestionFor(kind ErrorKind) string {
	switch kind {
	case KindInvalidIdentifier:
		return "A GSTIN is 15 characters long and contains only digits and upper-case letters."
	case KindPayloadTimeout:
		return "The CAPTCHA might be incorrect or the GST portal unavailable. Submit the verification again."
	case KindSessionExpired, KindNoPendingChallenge:
		return "Submit the verification again to receive a new CAPTCHA."
	}
	return defaultSuggestion
}

// AsLookupError returns the LookupError in err's chain, if any
func AsLookupError(err error) (*LookupError, bool) {
	var le *LookupError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}
