package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	CodeEmptyCart           Code = "EMPTY_CART"
	CodeMaintenance         Code = "MAINTENANCE_MODE"
	CodeGatewayUnavailable  Code = "GATEWAY_UNAVAILABLE"
	CodeGatewayRejected     Code = "GATEWAY_REJECTED"
	CodePaymentVerification Code = "PAYMENT_VERIFICATION_FAILED"
	CodeInsufficientStock   Code = "INSUFFICIENT_STOCK"
	CodeDuplicateSettlement Code = "DUPLICATE_SETTLEMENT"
	CodeInvalidTransition   Code = "INVALID_TRANSITION"
	CodeSettlementFailed    Code = "SETTLEMENT_FAILED"
)

// Metadata decides how a code is rendered to API clients. Messages of codes
// with ExposeMessage are shown verbatim; every other code answers with
// PublicMessage so internal wording never leaks.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	ExposeMessage  bool
}

type flag uint8

const (
	retryable flag = 1 << iota
	details
	expose
)

func meta(status int, public string, flags flag) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		Retryable:      flags&retryable != 0,
		DetailsAllowed: flags&details != 0,
		ExposeMessage:  flags&expose != 0,
	}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    meta(http.StatusBadRequest, "validation failed", details|expose),
	CodeUnauthorized:  meta(http.StatusUnauthorized, "authentication required", expose),
	CodeForbidden:     meta(http.StatusForbidden, "access denied", expose),
	CodeNotFound:      meta(http.StatusNotFound, "resource not found", expose),
	CodeConflict:      meta(http.StatusConflict, "conflict detected", expose),
	CodeStateConflict: meta(http.StatusUnprocessableEntity, "state transition disallowed", details|expose),
	CodeIdempotency:   meta(http.StatusConflict, "idempotency key reused", details|expose),
	CodeRateLimit:     meta(http.StatusTooManyRequests, "rate limit exceeded", expose),
	CodeInternal:      meta(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:    meta(http.StatusServiceUnavailable, "dependency unavailable", retryable|details),

	CodeEmptyCart:           meta(http.StatusConflict, "cart is empty", 0),
	CodeMaintenance:         meta(http.StatusServiceUnavailable, "checkout is temporarily unavailable for maintenance", retryable),
	CodeGatewayUnavailable:  meta(http.StatusServiceUnavailable, "payment gateway unavailable, please retry", retryable),
	CodeGatewayRejected:     meta(http.StatusBadGateway, "payment gateway rejected the request", details),
	CodePaymentVerification: meta(http.StatusPaymentRequired, "payment verification failed", 0),
	CodeInsufficientStock:   meta(http.StatusConflict, "insufficient stock", details|expose),
	// A lost settlement race is reported as a retryable 500; the retry
	// replays the order written by the winner.
	CodeDuplicateSettlement: meta(http.StatusInternalServerError, "internal server error", retryable),
	CodeInvalidTransition:   meta(http.StatusUnprocessableEntity, "order status transition not allowed", details|expose),
	CodeSettlementFailed:    meta(http.StatusInternalServerError, "your payment was received but the order could not be completed; please contact support", details),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

// PublicMessage is what an API client may see for err.
func (e *Error) PublicMessage() string {
	m := MetadataFor(e.Code())
	if m.ExposeMessage && e.Message() != "" {
		return e.Message()
	}
	return m.PublicMessage
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

// Error includes the cause so log lines carry the whole chain.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// IsCode reports whether err carries a typed error with the given code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
