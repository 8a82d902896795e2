package apperrors

import (
	"errors"
	"net/http"
	"strings"
)

type Kind string

const (
	// Upstream failures raised by the model clients.
	KindTransient  Kind = "transient"
	KindRateLimit  Kind = "rate_limit"
	KindAuth       Kind = "auth"
	KindBadRequest Kind = "bad_request"

	// Failures raised while preparing or finishing an analysis.
	KindValidation       Kind = "validation"
	KindEncoding         Kind = "encoding"
	KindFetch            Kind = "fetch"
	KindEmptyResponse    Kind = "empty_response"
	KindRetriesExhausted Kind = "retries_exhausted"
	KindConnectivity     Kind = "connectivity"
	KindCanceled         Kind = "canceled"
	KindUnexpected       Kind = "unexpected"
)

// Messages shown to users for kinds whose wording callers rely on.
const (
	MsgRetriesExhausted = "AI service temporarily unavailable, retried multiple times, try again later"
	MsgConnectivity     = "failed to connect to the analysis service"
	MsgUnexpected       = "unexpected error during analysis"
	MsgEmptyResponse    = "no response received from the analysis service"
	MsgCanceled         = "analysis canceled"
)

type Error struct {
	Kind Kind
	// SafeMessage is intended for user-facing output and logs.
	SafeMessage string
	// Cause keeps the original internal error for troubleshooting.
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.SafeMessage); msg != "" {
		return msg
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func defaultSafeMessage(kind Kind) string {
	switch kind {
	case KindTransient:
		return "Temporary upstream error. Please try again."
	case KindRateLimit:
		return "Rate limit exceeded. Please try again later."
	case KindAuth:
		return "Authentication failed. Please verify your API key and permissions."
	case KindBadRequest:
		return "Request rejected by upstream API."
	case KindValidation:
		return "Invalid request."
	case KindEncoding:
		return "The image could not be read."
	case KindFetch:
		return "The image could not be fetched."
	case KindEmptyResponse:
		return MsgEmptyResponse
	case KindRetriesExhausted:
		return MsgRetriesExhausted
	case KindConnectivity:
		return MsgConnectivity
	case KindCanceled:
		return MsgCanceled
	case KindUnexpected:
		return MsgUnexpected
	default:
		return "Request failed."
	}
}

func New(kind Kind, safeMessage string, cause error) error {
	msg := strings.TrimSpace(safeMessage)
	if msg == "" {
		msg = defaultSafeMessage(kind)
	}
	return &Error{
		Kind:        kind,
		SafeMessage: msg,
		Cause:       cause,
	}
}

func Transient(err error) error {
	return New(KindTransient, "", err)
}

func RateLimit(err error) error {
	return New(KindRateLimit, "", err)
}

func Auth(err error) error {
	return New(KindAuth, "", err)
}

func BadRequest(err error) error {
	return New(KindBadRequest, "", err)
}

func Validation(msg string) error {
	return New(KindValidation, msg, nil)
}

func Encoding(msg string, err error) error {
	return New(KindEncoding, msg, err)
}

func Fetch(msg string, err error) error {
	return New(KindFetch, msg, err)
}

func EmptyResponse() error {
	return New(KindEmptyResponse, "", nil)
}

func RetriesExhausted(last error) error {
	return New(KindRetriesExhausted, "", last)
}

func Connectivity(err error) error {
	return New(KindConnectivity, "", err)
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

// IsRetryable reports whether err is a transient upstream failure.
// Overload, rate limiting and per-attempt timeouts are worth another attempt;
// malformed requests and auth failures are not. Only the kind is consulted:
// whether the caller gave up is decided from the caller's context.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == KindTransient || e.Kind == KindRateLimit
}

func IsRateLimit(err error) bool {
	return Is(err, KindRateLimit)
}

// HTTPStatus maps a kind to the status code used by the HTTP API.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindEncoding:
		return http.StatusBadRequest
	case KindFetch:
		return http.StatusUnprocessableEntity
	case KindAuth:
		return http.StatusUnauthorized
	case KindBadRequest:
		return http.StatusBadRequest
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindTransient, KindRetriesExhausted, KindConnectivity:
		return http.StatusServiceUnavailable
	case KindEmptyResponse:
		return http.StatusBadGateway
	case KindCanceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}
