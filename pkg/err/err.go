package errprocess

import (
	"errors"
	"fmt"

	"github.com/LajoLouis/lajospacesbackend-sub000/pkg/logger"
)

// Code classifies an error for the client-facing error event.
type Code string

const (
	// AuthenticationFailed bad or missing credential token
	AuthenticationFailed Code = "AUTHENTICATION_FAILED"
	// PermissionDenied requester is not allowed to perform the operation
	PermissionDenied Code = "PERMISSION_DENIED"
	// NotFound message, conversation or reply target missing or deleted
	NotFound Code = "NOT_FOUND"
	// ValidationFailed malformed or empty input
	ValidationFailed Code = "VALIDATION_FAILED"
	// Transient store round-trip failed, safe to retry
	Transient Code = "TRANSIENT"
)

// CodedError carries the taxonomy code alongside the message.
type CodedError struct {
	Code    Code
	Message string
}

func (e *CodedError) Error() string {
	return e.Message
}

// New build a coded error
func New(code Code, msg string) error {
	return &CodedError{Code: code, Message: msg}
}

// Newf build a coded error with formatting
func Newf(code Code, format string, args ...interface{}) error {
	return &CodedError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of err. Uncoded errors count as Transient,
// the only class a client may blindly retry.
func CodeOf(err error) Code {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return Transient
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}
