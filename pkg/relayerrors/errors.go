// Package relayerrors defines the typed failure modes the relay and
// translation subsystem raise, each wrapping an optional cause and exposing
// the errors.As-compatible accessors callers need to pick a response status.
package relayerrors

import (
	"errors"
	"fmt"
)

// Kind identifies which failure mode an error represents, independent of
// its message text.
type Kind string

const (
	KindAccountNotFound       Kind = "account_not_found"
	KindAccountNotConfigured  Kind = "account_not_configured"
	KindAccountMissingKey     Kind = "account_missing_key"
	KindAccountMissingBaseUrl Kind = "account_missing_base_url"
	KindUnsupportedLanguage   Kind = "unsupported_language"
	KindUnauthorized          Kind = "unauthorized"
	KindRateLimit             Kind = "rate_limit"
	KindUpstreamTransport     Kind = "upstream_transport"
	KindHttpError             Kind = "http_error"
	KindParseError            Kind = "parse_error"
	KindTimeout               Kind = "timeout"
)

// RelayError is the single error type the relay core and translation
// subsystem raise. Kind drives response-status selection; the remaining
// fields carry whatever context that Kind needs.
type RelayError struct {
	Kind Kind

	// AccountID identifies the account involved, when applicable.
	AccountID string

	// Provider is the provider tag associated with the account, when known.
	Provider string

	// StatusCode is the upstream HTTP status that produced this error, when
	// applicable (HttpError, Unauthorized, RateLimit).
	StatusCode int

	// RetryAfterSeconds is the parsed reset window for a rate-limit error,
	// when the upstream provided one.
	RetryAfterSeconds *int

	// Message is a human-readable description, often extracted from the
	// upstream error body.
	Message string

	// Cause is the underlying error, if any (a transport error, a JSON
	// decode error, a context deadline).
	Cause error
}

// Error implements the error interface.
func (e *RelayError) Error() string {
	base := fmt.Sprintf("%s", e.Kind)
	if e.AccountID != "" {
		base += fmt.Sprintf(" (account %s)", e.AccountID)
	}
	if e.Message != "" {
		base += ": " + e.Message
	}
	if e.Cause != nil {
		base += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return base
}

// Unwrap returns the underlying cause, if any.
func (e *RelayError) Unwrap() error {
	return e.Cause
}

// Is reports whether err is a *RelayError of the given kind.
func Is(err error, kind Kind) bool {
	var relayErr *RelayError
	if !errors.As(err, &relayErr) {
		return false
	}
	return relayErr.Kind == kind
}

func newError(kind Kind) *RelayError {
	return &RelayError{Kind: kind}
}

// AccountNotFound reports that no account exists for the given id.
func AccountNotFound(accountID string) *RelayError {
	e := newError(KindAccountNotFound)
	e.AccountID = accountID
	e.Message = fmt.Sprintf("account %q not found", accountID)
	return e
}

// AccountNotConfigured reports that translation is enabled but no
// translator account id is configured.
func AccountNotConfigured() *RelayError {
	e := newError(KindAccountNotConfigured)
	e.Message = "no translator account configured"
	return e
}

// AccountMissingKey reports that the resolved account has no API key.
func AccountMissingKey(accountID string) *RelayError {
	e := newError(KindAccountMissingKey)
	e.AccountID = accountID
	e.Message = fmt.Sprintf("account %q has no API key", accountID)
	return e
}

// AccountMissingBaseUrl reports that the resolved account has no base URL.
func AccountMissingBaseUrl(accountID string) *RelayError {
	e := newError(KindAccountMissingBaseUrl)
	e.AccountID = accountID
	e.Message = fmt.Sprintf("account %q has no base API URL", accountID)
	return e
}

// UnsupportedLanguage reports that a requested language pair cannot be
// translated.
func UnsupportedLanguage(source, target string) *RelayError {
	e := newError(KindUnsupportedLanguage)
	e.Message = fmt.Sprintf("unsupported language pair %s -> %s", source, target)
	return e
}

// Unauthorized reports a 401 from the upstream provider.
func Unauthorized(accountID, provider, reason string) *RelayError {
	e := newError(KindUnauthorized)
	e.AccountID = accountID
	e.Provider = provider
	e.StatusCode = 401
	e.Message = reason
	return e
}

// RateLimit reports a 429 or in-stream rate-limit signal from the upstream
// provider.
func RateLimit(accountID, provider string, retryAfterSeconds *int) *RelayError {
	e := newError(KindRateLimit)
	e.AccountID = accountID
	e.Provider = provider
	e.StatusCode = 429
	e.RetryAfterSeconds = retryAfterSeconds
	if retryAfterSeconds != nil {
		e.Message = fmt.Sprintf("rate limited, resets in %ds", *retryAfterSeconds)
	} else {
		e.Message = "rate limited"
	}
	return e
}

// UpstreamTransport reports a connection-level failure reaching the
// upstream provider (refused, reset, DNS failure).
func UpstreamTransport(accountID string, cause error) *RelayError {
	e := newError(KindUpstreamTransport)
	e.AccountID = accountID
	e.Cause = cause
	e.Message = "upstream transport failure"
	return e
}

// HttpError reports a non-200 upstream response whose body could not be
// classified as unauthorized or rate-limited.
func HttpError(statusCode int, message string) *RelayError {
	e := newError(KindHttpError)
	e.StatusCode = statusCode
	e.Message = message
	return e
}

// ParseError reports a malformed upstream response body.
func ParseError(cause error) *RelayError {
	e := newError(KindParseError)
	e.Cause = cause
	e.Message = "malformed upstream response"
	return e
}

// Timeout reports that an upstream call exceeded its deadline.
func Timeout(cause error) *RelayError {
	e := newError(KindTimeout)
	e.Cause = cause
	e.Message = "upstream call timed out"
	return e
}
