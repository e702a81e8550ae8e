package registry

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes registry failures.
type ErrorCode string

const (
	CodeAlreadyExists  ErrorCode = "ALREADY_EXISTS"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	CodeInvalidData    ErrorCode = "INVALID_DATA"
	CodeAlreadyRevoked ErrorCode = "ALREADY_REVOKED"

	CodeTransferNotFound   ErrorCode = "TRANSFER_NOT_FOUND"
	CodeTransferNotPending ErrorCode = "TRANSFER_NOT_PENDING"
	// CodeTransferNotAuthorized is reserved; no operation returns it.
	CodeTransferNotAuthorized ErrorCode = "TRANSFER_NOT_AUTHORIZED"
	// CodeInsufficientBalance is reserved for fee settlement, which is not performed.
	CodeInsufficientBalance   ErrorCode = "INSUFFICIENT_BALANCE"
	CodeInvalidTransferStatus ErrorCode = "INVALID_TRANSFER_STATUS"

	// CodeUnauthenticated means the caller could not prove control of the identity.
	CodeUnauthenticated ErrorCode = "UNAUTHENTICATED"
)

// Codes lists every defined code in declaration order.
var Codes = []ErrorCode{
	CodeAlreadyExists,
	CodeNotFound,
	CodeUnauthorized,
	CodeInvalidData,
	CodeAlreadyRevoked,
	CodeTransferNotFound,
	CodeTransferNotPending,
	CodeTransferNotAuthorized,
	CodeInsufficientBalance,
	CodeInvalidTransferStatus,
	CodeUnauthenticated,
}

// Error is a categorical registry failure.
//
// Fatal marks the certificate-ledger class: the transaction is aborted and
// the caller gets no result value. Transfer operations return non-fatal
// errors that callers are expected to branch on by Code.
type Error struct {
	Code    ErrorCode
	Message string
	Fatal   bool
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code, so errors.Is works against
// the sentinel values below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

// Sentinels for errors.Is comparisons.
var (
	ErrAlreadyExists         = &Error{Code: CodeAlreadyExists}
	ErrNotFound              = &Error{Code: CodeNotFound}
	ErrUnauthorized          = &Error{Code: CodeUnauthorized}
	ErrInvalidData           = &Error{Code: CodeInvalidData}
	ErrAlreadyRevoked        = &Error{Code: CodeAlreadyRevoked}
	ErrTransferNotFound      = &Error{Code: CodeTransferNotFound}
	ErrTransferNotPending    = &Error{Code: CodeTransferNotPending}
	ErrInvalidTransferStatus = &Error{Code: CodeInvalidTransferStatus}
	ErrUnauthenticated       = &Error{Code: CodeUnauthenticated}
)

// CodeOf returns the registry code carried by err, or "" if err is not a
// registry error.
func CodeOf(err error) ErrorCode {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsFatal reports whether err is a fatal certificate-ledger failure.
func IsFatal(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Fatal
	}
	return false
}

// IsDomain reports whether err is a categorical registry error, as opposed
// to a storage or infrastructure failure.
func IsDomain(err error) bool {
	var re *Error
	return errors.As(err, &re)
}

func fatalf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Fatal: true}
}

func rejectf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func unauthenticated(identity string, fatal bool, err error) *Error {
	return &Error{
		Code:    CodeUnauthenticated,
		Message: fmt.Sprintf("caller cannot prove control of %q", identity),
		Fatal:   fatal,
		Err:     err,
	}
}
