// Package domainerrors provides coded errors for the scholar domain.
//
// Services and models return these so transport layers can translate them
// into HTTP responses without string matching. Infrastructure facts (row
// missing, key expired) use pkg/platform/sentinel instead; services translate
// sentinels into coded errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for transport mapping and branching.
type Code string

const (
	// CodeBadRequest marks a malformed request (unparseable body, missing field).
	CodeBadRequest Code = "bad_request"
	// CodeInvalidInput marks a value that failed parsing at a trust boundary.
	CodeInvalidInput Code = "invalid_input"
	// CodeValidation marks a well-formed field whose value is out of range.
	CodeValidation Code = "validation"
	// CodeUnauthorized marks missing or failed authentication.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an authenticated caller without permission,
	// including authors reviewing their own work.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks a missing entity.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a uniqueness clash (pseudonym already registered).
	CodeConflict Code = "conflict"
	// CodeDuplicate marks a second review from the same reviewer on the same
	// work version.
	CodeDuplicate Code = "duplicate"
	// CodeWrongState marks an operation against a work whose status does not
	// permit it.
	CodeWrongState Code = "wrong_state"
	// CodeSafetyBlock marks a submission rejected by the safety classifier.
	CodeSafetyBlock Code = "safety_block"
	// CodeInvariantViolation marks a domain invariant breach inside a model.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeTimeout marks a cancelled or deadline-exceeded operation.
	CodeTimeout Code = "timeout"
	// CodeUnavailable marks a temporarily unreachable collaborator.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks an unexpected failure; details stay server-side.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. It optionally wraps a cause and carries
// structured details (e.g. safety findings) for the response body.
type Error struct {
	Code    Code
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// WithDetails creates a coded error carrying structured details for the
// caller (safety findings, validation issues).
func WithDetails(code Code, message string, details any) error {
	return &Error{Code: code, Message: message, Details: details}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readability alias for HasCode used in handlers.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the user-facing message from err. Internal errors get a
// generic message so infrastructure details never leak.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Code != CodeInternal {
		return de.Message
	}
	return "internal error"
}

// DetailsOf extracts structured details from err, if any.
func DetailsOf(err error) any {
	var de *Error
	if errors.As(err, &de) {
		return de.Details
	}
	return nil
}

// ToHTTPStatus maps a domain error code to an HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidInput, CodeValidation, CodeSafetyBlock:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeDuplicate, CodeWrongState, CodeInvariantViolation:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
