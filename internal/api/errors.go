package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"golang.org/x/oauth2"
)

// Application-level response codes used by the mail service. Any code
// above CodeOK on a 200 response is a logical failure.
const (
	CodeOK                = 1000
	CodeOKMulti           = 1001
	CodeInvalidCursor     = 18001
	CodeHumanVerification = 9001
)

// Error is a classified failure from the mail service. StatusCode is
// the HTTP status; Code is the application-level code carried in the
// response body (zero when the body was unreadable).
type Error struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s (status %d, code %d)", e.Message, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("api: status %d, code %d", e.StatusCode, e.Code)
}

// StatusCode extracts the HTTP status from an error chain, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// Code extracts the application-level code from an error chain, or 0.
func Code(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsConnectivity reports whether an error stems from connectivity
// loss rather than a server verdict: timeouts, refused connections,
// DNS failures, cancelled contexts. Such failures leave queued
// actions untouched for a verbatim retry.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	// A token-refresh rejection means the auth server answered: the
	// session is bad, not the network.
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// A URL error wrapping a non-API failure is transport trouble.
		var apiErr *Error
		return !errors.As(urlErr.Err, &apiErr)
	}
	return false
}

// IsHumanVerification reports whether the service demands an
// interactive verification challenge before accepting writes.
func IsHumanVerification(err error) bool {
	return Code(err) == CodeHumanVerification
}
