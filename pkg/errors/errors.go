// Package errors provides standardized error types and error handling
// utilities for the Arclight platform. It defines the failure taxonomy of
// the identity resolution layer, machine-readable error codes, and helper
// functions for creating, wrapping, and inspecting errors.
//
// # Failure Taxonomy
//
// The codes are ordered from least to most severe and map one-to-one onto
// transport status codes, which the request framework relies on:
//
//   - Credential missing: no credential was presented at all (401)
//   - Malformed credential: a credential was presented but is structurally
//     invalid (400)
//   - Authentication: a structurally valid credential was not accepted —
//     expired, bad signature, or rejected by the cluster authority (401)
//   - Entitlement: identity resolved, but policy denies the action (403)
//   - Unavailable: the trust authority itself could not be consulted; an
//     infrastructure failure, never a statement about the caller (503)
//
// Validation, internal, and timeout categories cover configuration and
// unexpected failures outside the per-request taxonomy.
//
// # Usage
//
// Create a new error with context:
//
//	err := errors.New(errors.CodeMalformedHeader, "missing 'identity' field")
//
// Wrap an existing error:
//
//	err := errors.Wrap(err, errors.CodeKeyUnavailable, "key set fetch failed")
//
// Check error category:
//
//	if errors.IsUnavailable(err) {
//	    // return 503, never 401
//	}
package errors
