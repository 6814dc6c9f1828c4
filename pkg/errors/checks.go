package errors

import (
	"errors"
)

// AsError attempts to convert an error to an *Error.
// Returns the Error and true if successful, nil and false otherwise.
// This function traverses the error chain using errors.As.
//
// Example:
//
//	if e, ok := errors.AsError(err); ok {
//	    log.Printf("error code: %s, message: %s", e.Code, e.Message)
//	}
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetCode returns the error code from an error.
// If the error is not an *Error or is nil, returns an empty string.
func GetCode(err error) Code {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// HasCode checks if an error has the specified error code.
// Returns false if the error is nil or not an *Error.
//
// Example:
//
//	if errors.HasCode(err, errors.CodeSignatureInvalid) {
//	    // never refetch keys for a forged signature
//	}
func HasCode(err error, code Code) bool {
	return GetCode(err) == code
}

// IsCredentialMissing checks if the error indicates an entirely absent
// credential (CRED_xxx). Returns true if the error code starts with "CRED".
//
// Example:
//
//	if errors.IsCredentialMissing(err) {
//	    // return 401 Unauthorized
//	}
func IsCredentialMissing(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "CRED"
}

// IsMalformed checks if the error indicates a structurally invalid
// credential (MAL_xxx). Returns true if the error code starts with "MAL".
//
// Example:
//
//	if errors.IsMalformed(err) {
//	    // return 400 Bad Request; never retry
//	}
func IsMalformed(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "MAL"
}

// IsAuthentication checks if the error indicates a rejected credential
// (AUTH_xxx). Returns true if the error code starts with "AUTH".
func IsAuthentication(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "AUTH"
}

// IsEntitlement checks if the error is an entitlement policy denial
// (ENT_xxx). Returns true if the error code starts with "ENT".
//
// Example:
//
//	if errors.IsEntitlement(err) {
//	    // return 403 Forbidden, distinct from unauthenticated
//	}
func IsEntitlement(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "ENT"
}

// IsValidation checks if the error is a validation error (VAL_xxx).
// Returns true if the error code starts with "VAL".
func IsValidation(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "VAL"
}

// IsInternal checks if the error is an internal error (INT_xxx).
// Returns true if the error code starts with "INT".
func IsInternal(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "INT"
}

// IsUnavailable checks if the error indicates an unreachable trust
// authority (UNAVAIL_xxx). Returns true if the error code starts with
// "UNAVAIL".
//
// Example:
//
//	if errors.IsUnavailable(err) {
//	    // return 503 Service Unavailable, never 401
//	}
func IsUnavailable(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "UNAVAIL"
}

// IsTimeout checks if the error is a timeout error (TIMEOUT_xxx).
// Returns true if the error code starts with "TIMEOUT".
func IsTimeout(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "TIMEOUT"
}

// IsRetryable checks if the error is potentially retryable by an outer
// caller. Timeout and unavailable errors are considered retryable; every
// per-caller failure (missing, malformed, rejected, forbidden) is not.
func IsRetryable(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	switch e.Code.Category() {
	case "TIMEOUT", "UNAVAIL":
		return true
	default:
		return false
	}
}

// IsClientError checks if the error is a client error (4xx HTTP status).
// Client errors include absent, malformed, and rejected credentials,
// entitlement denials, and validation failures.
func IsClientError(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	switch e.Code.Category() {
	case "CRED", "MAL", "AUTH", "ENT", "VAL":
		return true
	default:
		return false
	}
}

// IsServerError checks if the error is a server error (5xx HTTP status).
// Server errors include internal, unavailable, and timeout errors.
func IsServerError(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	switch e.Code.Category() {
	case "INT", "UNAVAIL", "TIMEOUT":
		return true
	default:
		return false
	}
}
