package errors

import (
	"errors"
	"fmt"
)

// New creates a new Error with the specified code and message.
// Use this for creating errors without an underlying cause.
//
// Example:
//
//	err := errors.New(errors.CodeMalformedHeader, "missing 'identity' field")
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with the specified code and formatted message.
// Use this for creating errors with dynamic content in the message.
//
// Example:
//
//	err := errors.Newf(errors.CodeEntitlementMissing, "missing entitlement %q", name)
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
// The wrapped error becomes the Cause of the new error.
// If err is nil, Wrap returns nil.
//
// Example:
//
//	body, err := io.ReadAll(resp.Body)
//	if err != nil {
//	    return errors.Wrap(err, errors.CodeKeyUnavailable, "failed to read key set response")
//	}
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with a formatted message.
// The wrapped error becomes the Cause of the new error.
// If err is nil, Wrapf returns nil.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// CredentialMissing creates a new credential-absent error.
// Use this when the caller presented no authentication artifact at all.
//
// Example:
//
//	err := errors.CredentialMissing("Missing x-rh-identity header")
func CredentialMissing(message string) *Error {
	return New(CodeCredentialMissing, message)
}

// Unauthenticated creates a new authentication error.
// Use this when a structurally valid credential is rejected.
func Unauthenticated(message string) *Error {
	return New(CodeUnauthenticated, message)
}

// EntitlementMissing creates a new entitlement policy error.
// Use this when the resolved identity lacks a required entitlement.
//
// Example:
//
//	err := errors.EntitlementMissing("missing entitlement 'rhel'")
func EntitlementMissing(message string) *Error {
	return New(CodeEntitlementMissing, message)
}

// Validation creates a new validation error.
// This is a convenience function equivalent to New(CodeValidation, message).
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// Validationf creates a new validation error with a formatted message.
//
// Example:
//
//	err := errors.Validationf("unknown resolver method %q", method)
func Validationf(format string, args ...any) *Error {
	return Newf(CodeValidation, format, args...)
}

// Internal creates a new internal error.
// Use this for unexpected system failures that should not expose details to callers.
func Internal(message string) *Error {
	return New(CodeInternal, message)
}

// Internalf creates a new internal error with a formatted message.
func Internalf(format string, args ...any) *Error {
	return Newf(CodeInternal, format, args...)
}

// Timeout creates a new timeout error.
// Use this when an operation exceeds its time limit.
func Timeout(message string) *Error {
	return New(CodeTimeout, message)
}

// FromError converts a standard error to an Error.
// If the error is already an *Error, it is returned as-is.
// Otherwise, it is wrapped as an internal error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return Wrap(err, CodeInternal, "an unexpected error occurred")
}
