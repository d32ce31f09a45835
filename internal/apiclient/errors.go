package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"syscall"
)

var (
	ErrUnsupportedMethod = errors.New("unsupported http method")
	ErrSessionExpired    = errors.New("session expired")
)

// Error is implemented by every failure Send returns.
type Error interface {
	error
	// Message is the text shown to the operator.
	Message() string
}

// BusinessError is an envelope with success=false.
type BusinessError struct {
	Msg      string
	Code     int
	Status   int
	Envelope *Envelope
}

func (e *BusinessError) Error() string   { return "business error: " + e.Msg }
func (e *BusinessError) Message() string { return e.Msg }

// AuthError is a 401 that could not be recovered by a token refresh.
type AuthError struct {
	Msg    string
	Status int
	cause  error
	// expired is set when the session was dropped because of this 401.
	expired bool
}

func (e *AuthError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("auth error: %s: %v", e.Msg, e.cause)
	}
	return "auth error: " + e.Msg
}
func (e *AuthError) Message() string { return e.Msg }
func (e *AuthError) Unwrap() error   { return e.cause }

// SessionExpired reports whether the session has been cleared, in which case
// the session itself tells the operator.
func (e *AuthError) SessionExpired() bool { return e.expired }

type PermissionError struct {
	Msg string
}

func (e *PermissionError) Error() string   { return "permission error: " + e.Msg }
func (e *PermissionError) Message() string { return e.Msg }

// ValidationError carries field level errors, from a 422 response or from
// client side payload validation.
type ValidationError struct {
	Msg    string
	Fields map[string][]string
}

func NewValidationError(fields map[string][]string) *ValidationError {
	return &ValidationError{Msg: flattenFieldErrors(fields), Fields: fields}
}

func (e *ValidationError) Error() string   { return "validation error: " + e.Msg }
func (e *ValidationError) Message() string { return e.Msg }

// StatusError covers the remaining HTTP failures with a fixed message.
type StatusError struct {
	Status   int
	Msg      string
	Envelope *Envelope
}

func (e *StatusError) Error() string   { return fmt.Sprintf("http %d: %s", e.Status, e.Msg) }
func (e *StatusError) Message() string { return e.Msg }

type TransportKind string

const (
	TransportTimeout  TransportKind = "timeout"
	TransportNetwork  TransportKind = "network"
	TransportCanceled TransportKind = "canceled"
	TransportUnknown  TransportKind = "unknown"
)

type TransportError struct {
	Kind  TransportKind
	Msg   string
	cause error
}

func (e *TransportError) Error() string   { return fmt.Sprintf("transport %s: %v", e.Kind, e.cause) }
func (e *TransportError) Message() string { return e.Msg }
func (e *TransportError) Unwrap() error   { return e.cause }

const (
	msgRequestFailed   = "Request failed"
	msgBadRequest      = "Invalid request parameters"
	msgUnauthorized    = "Unauthorized, please log in again"
	msgForbidden       = "Insufficient permission, access denied"
	msgNotFound        = "The requested resource does not exist"
	msgTimeout         = "Request timed out"
	msgValidation      = "Data validation failed"
	msgTooManyRequests = "Too many requests, please try again later"
	msgServerError     = "Internal server error"
	msgBadGateway      = "Bad gateway"
	msgUnavailable     = "Service unavailable"
	msgGatewayTimeout  = "Gateway timeout"
	msgNetworkFailed   = "Network connection failed"
	msgCanceled        = "Request canceled"
	msgNetworkError    = "Network error, please try again later"
)

// MessageOf returns the operator facing text for any error.
func MessageOf(err error, fallback string) string {
	var e Error
	if errors.As(err, &e) && e.Message() != "" {
		return e.Message()
	}
	return fallback
}

func statusError(status int, env *Envelope) error {
	serverMsg := ""
	if env != nil {
		serverMsg = strings.TrimSpace(env.Message)
	}
	switch status {
	case 400:
		return &StatusError{Status: status, Msg: firstNonEmpty(serverMsg, msgBadRequest), Envelope: env}
	case 401:
		return &AuthError{Msg: msgUnauthorized, Status: status}
	case 403:
		return &PermissionError{Msg: msgForbidden}
	case 404:
		return &StatusError{Status: status, Msg: msgNotFound, Envelope: env}
	case 408:
		return &StatusError{Status: status, Msg: msgTimeout, Envelope: env}
	case 422:
		var fields map[string][]string
		if env != nil {
			fields = env.Errors
		}
		msg := flattenFieldErrors(fields)
		if msg == "" {
			msg = msgValidation
		}
		return &ValidationError{Msg: msg, Fields: fields}
	case 429:
		return &StatusError{Status: status, Msg: msgTooManyRequests, Envelope: env}
	case 500:
		return &StatusError{Status: status, Msg: msgServerError, Envelope: env}
	case 502:
		return &StatusError{Status: status, Msg: msgBadGateway, Envelope: env}
	case 503:
		return &StatusError{Status: status, Msg: msgUnavailable, Envelope: env}
	case 504:
		return &StatusError{Status: status, Msg: msgGatewayTimeout, Envelope: env}
	default:
		return &StatusError{Status: status, Msg: firstNonEmpty(serverMsg, fmt.Sprintf("%s (%d)", msgRequestFailed, status)), Envelope: env}
	}
}

// flattenFieldErrors joins every field message, fields sorted by name.
func flattenFieldErrors(fields map[string][]string) string {
	if len(fields) == 0 {
		return ""
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	var msgs []string
	for _, name := range names {
		for _, m := range fields[name] {
			if m = strings.TrimSpace(m); m != "" {
				msgs = append(msgs, m)
			}
		}
	}
	return strings.Join(msgs, ", ")
}

func transportError(err error) *TransportError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &TransportError{Kind: TransportTimeout, Msg: msgTimeout, cause: err}
	case errors.Is(err, context.Canceled):
		return &TransportError{Kind: TransportCanceled, Msg: msgCanceled, cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{Kind: TransportTimeout, Msg: msgTimeout, cause: err}
	}
	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return &TransportError{Kind: TransportNetwork, Msg: msgNetworkFailed, cause: err}
	}
	return &TransportError{Kind: TransportUnknown, Msg: msgNetworkError, cause: err}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
