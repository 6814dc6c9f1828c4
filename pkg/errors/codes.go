package errors

// Code represents a machine-readable error code for categorizing errors.
// Error codes follow the pattern CATEGORY_XXX where CATEGORY is a short
// identifier (e.g., CRED, MAL, AUTH) and XXX is a three-digit numeric code.
//
// Error codes are designed to be:
//   - Stable: Codes do not change once assigned
//   - Unique: Each error condition has a distinct code
//   - Machine-readable: Suitable for automated status mapping
type Code string

// Error code categories and their transport status mapping:
//
//	CRED_xxx    - No credential presented (401 Unauthorized)
//	MAL_xxx     - Credential structurally invalid (400 Bad Request)
//	AUTH_xxx    - Credential rejected (401 Unauthorized)
//	ENT_xxx     - Entitlement policy denial (403 Forbidden)
//	UNAVAIL_xxx - Trust authority unreachable (503 Service Unavailable)
//	VAL_xxx     - Validation errors (400 Bad Request)
//	INT_xxx     - Internal errors (500 Internal Server Error)
//	TIMEOUT_xxx - Timeout errors (504 Gateway Timeout)
const (
	// Credential-absent errors (CRED_xxx) - HTTP 401
	// Used when the caller presented no authentication artifact at all.

	// CodeCredentialMissing indicates the expected credential (header or
	// bearer token) is entirely absent from the request.
	CodeCredentialMissing Code = "CRED_001"

	// Malformed-credential errors (MAL_xxx) - HTTP 400
	// Used when a credential was presented but is structurally invalid.
	// These are client-input errors and are never retried.

	// CodeMalformedHeader indicates the structured identity header is not
	// valid base64/JSON or is missing a required field.
	CodeMalformedHeader Code = "MAL_001"

	// CodeMalformedToken indicates the bearer token is not a well-formed
	// signed token, uses an unsupported algorithm, or lacks mandatory claims.
	CodeMalformedToken Code = "MAL_002"

	// Authentication errors (AUTH_xxx) - HTTP 401
	// Used when a structurally valid credential is not accepted.

	// CodeUnauthenticated indicates the cluster authority rejected the token.
	CodeUnauthenticated Code = "AUTH_001"

	// CodeTokenExpired indicates the token's expiry claim is in the past.
	CodeTokenExpired Code = "AUTH_002"

	// CodeSignatureInvalid indicates the token signature failed verification
	// against the resolved key. Never grounds for a key refetch.
	CodeSignatureInvalid Code = "AUTH_003"

	// Entitlement errors (ENT_xxx) - HTTP 403
	// Used when identity resolution succeeded but policy denies the action.

	// CodeEntitlementMissing indicates a required entitlement is absent or
	// not granted for the caller's organization.
	CodeEntitlementMissing Code = "ENT_001"

	// Unavailable errors (UNAVAIL_xxx) - HTTP 503
	// Used when the trust authority could not be reached or consulted.
	// These are infrastructure failures, never statements about the caller.

	// CodeKeyUnavailable indicates no verification key could be obtained
	// from the key-set endpoint and none is cached.
	CodeKeyUnavailable Code = "UNAVAIL_001"

	// CodeAuthorityUnavailable indicates the cluster token-review call
	// could not be completed (network error, timeout, or 5xx).
	CodeAuthorityUnavailable Code = "UNAVAIL_002"

	// Validation errors (VAL_xxx) - HTTP 400
	// Used when configuration or input fails validation rules.

	// CodeValidation indicates a general validation failure.
	CodeValidation Code = "VAL_001"

	// CodeValidationRequired indicates a required field is missing.
	CodeValidationRequired Code = "VAL_002"

	// Internal errors (INT_xxx) - HTTP 500
	// Used for unexpected internal failures.

	// CodeInternal indicates a general internal error.
	CodeInternal Code = "INT_001"

	// CodeInternalConfiguration indicates a configuration error.
	CodeInternalConfiguration Code = "INT_002"

	// Timeout errors (TIMEOUT_xxx) - HTTP 504
	// Used when an operation exceeds its time limit.

	// CodeTimeout indicates a general timeout error.
	CodeTimeout Code = "TIMEOUT_001"
)

// String returns the string representation of the error code.
func (c Code) String() string {
	return string(c)
}

// Category returns the category prefix of the error code (e.g., "MAL", "AUTH").
func (c Code) Category() string {
	s := string(c)
	for i, r := range s {
		if r == '_' {
			return s[:i]
		}
	}
	return s
}
