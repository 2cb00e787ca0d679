package mailerr

import (
	"context"
	"errors"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Kind identifies one semantic failure class. The set is closed: every
// error leaving the service carries exactly one of these.
type Kind string

const (
	KindAuthFailed       Kind = "AUTH_FAILED"
	KindTokenExpired     Kind = "TOKEN_EXPIRED"
	KindInvalidRecipient Kind = "INVALID_RECIPIENT"
	KindQuotaExceeded    Kind = "QUOTA_EXCEEDED"
	KindRateLimited      Kind = "RATE_LIMITED"
	KindThreadNotFound   Kind = "THREAD_NOT_FOUND"
	KindNetworkError     Kind = "NETWORK_ERROR"
	KindUnknown          Kind = "UNKNOWN"
)

// Error is a classified failure: one Kind plus free-text detail. The
// original transport error, if any, stays reachable through Unwrap for
// logging but is never required for caller-side branching.
type Error struct {
	Kind   Kind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Detail
}

func (e *Error) Unwrap() error { return e.cause }

// New returns a classified error with the given kind and detail.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap classifies cause under kind, keeping cause for Unwrap. The
// detail defaults to the cause's message.
func Wrap(kind Kind, cause error) *Error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &Error{Kind: kind, Detail: detail, cause: cause}
}

// KindOf extracts the semantic kind from err, or KindUnknown if err was
// never classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Translate maps a transport failure to a classified error. Already
// classified errors pass through unchanged; nil stays nil.
//
// Status mapping: 401 unauthorized means the token was rejected,
// 403 covers permission and quota failures, 404 means the referenced
// thread or message does not exist, 429 is provider-side throttling.
// DNS failures, timeouts and cancelled contexts become NETWORK_ERROR.
// Everything else is UNKNOWN with the original message preserved.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return Wrap(KindAuthFailed, err)
		case http.StatusForbidden:
			return Wrap(KindQuotaExceeded, err)
		case http.StatusNotFound:
			return Wrap(KindThreadNotFound, err)
		case http.StatusTooManyRequests:
			return Wrap(KindRateLimited, err)
		}
		return Wrap(KindUnknown, err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Wrap(KindNetworkError, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Wrap(KindNetworkError, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Wrap(KindNetworkError, err)
	}

	return Wrap(KindUnknown, err)
}
