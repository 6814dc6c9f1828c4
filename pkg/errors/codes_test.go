package errors

import (
	"testing"
)

func TestCode_String(t *testing.T) {
	tests := []struct {
		name string
		code Code
		want string
	}{
		{name: "credential missing code", code: CodeCredentialMissing, want: "CRED_001"},
		{name: "malformed header code", code: CodeMalformedHeader, want: "MAL_001"},
		{name: "malformed token code", code: CodeMalformedToken, want: "MAL_002"},
		{name: "unauthenticated code", code: CodeUnauthenticated, want: "AUTH_001"},
		{name: "token expired code", code: CodeTokenExpired, want: "AUTH_002"},
		{name: "signature invalid code", code: CodeSignatureInvalid, want: "AUTH_003"},
		{name: "entitlement missing code", code: CodeEntitlementMissing, want: "ENT_001"},
		{name: "key unavailable code", code: CodeKeyUnavailable, want: "UNAVAIL_001"},
		{name: "authority unavailable code", code: CodeAuthorityUnavailable, want: "UNAVAIL_002"},
		{name: "validation code", code: CodeValidation, want: "VAL_001"},
		{name: "internal code", code: CodeInternal, want: "INT_001"},
		{name: "timeout code", code: CodeTimeout, want: "TIMEOUT_001"},
		{name: "empty code", code: Code(""), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.code.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCode_Category(t *testing.T) {
	tests := []struct {
		name string
		code Code
		want string
	}{
		{name: "CRED category", code: CodeCredentialMissing, want: "CRED"},
		{name: "MAL category", code: CodeMalformedToken, want: "MAL"},
		{name: "AUTH category", code: CodeSignatureInvalid, want: "AUTH"},
		{name: "ENT category", code: CodeEntitlementMissing, want: "ENT"},
		{name: "UNAVAIL category", code: CodeAuthorityUnavailable, want: "UNAVAIL"},
		{name: "VAL category", code: CodeValidationRequired, want: "VAL"},
		{name: "INT category", code: CodeInternalConfiguration, want: "INT"},
		{name: "TIMEOUT category", code: CodeTimeout, want: "TIMEOUT"},
		{name: "code without underscore", code: Code("ORPHAN"), want: "ORPHAN"},
		{name: "empty code", code: Code(""), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.code.Category(); got != tt.want {
				t.Errorf("Category() = %q, want %q", got, tt.want)
			}
		})
	}
}
