package ierr

import (
	"encoding/json"
	"errors"
)

type ErrorCode string

const (
	ErrorCodeInvalidArgument    ErrorCode = "InvalidArgument"
	ErrorCodeNotFound           ErrorCode = "NotFound"
	ErrorCodeAlreadyExists      ErrorCode = "AlreadyExists"
	ErrorCodeFailedPrecondition ErrorCode = "FailedPrecondition"
	ErrorCodePermissionDenied   ErrorCode = "PermissionDenied"
	ErrorCodeUnauthenticated    ErrorCode = "Unauthenticated"
	ErrorCodeInternal           ErrorCode = "Internal"

	// Delivery-layer failure classes. None of them is fatal: a transport
	// failure drops the connection, a sync failure keeps last-known state,
	// a protocol failure drops the frame.
	ErrorCodeTransport ErrorCode = "Transport"
	ErrorCodeSync      ErrorCode = "Sync"
	ErrorCodeMarkRead  ErrorCode = "MarkRead"
	ErrorCodeProtocol  ErrorCode = "Protocol"
)

type Error struct {
	Code    ErrorCode       `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`

	cause error
}

func New(code ErrorCode, cause error) Error {
	return Error{
		Code:    code,
		Message: cause.Error(),
		cause:   cause,
	}
}

func (e Error) Error() string {
	return string(e.Code) + ": " + e.cause.Error()
}

func (e Error) Unwrap() error {
	return e.cause
}

// CodeOf extracts the error code from err, defaulting to Internal for
// untyped errors.
func CodeOf(err error) ErrorCode {
	var typed Error
	if errors.As(err, &typed) {
		return typed.Code
	}

	return ErrorCodeInternal
}
