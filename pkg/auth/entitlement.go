package auth

import (
	acerr "github.com/arclight-platform/arclight-core/pkg/errors"
)

// EntitlementStatus is one entitlement grant as published by the identity
// provider: whether the caller's organization holds the entitlement, and
// whether the grant is a trial.
type EntitlementStatus struct {
	IsEntitled bool `json:"is_entitled"`
	IsTrial    bool `json:"is_trial"`
}

// Entitlements maps entitlement names to their grant status for the
// caller's organization.
type Entitlements map[string]EntitlementStatus

// Entitled reports whether the named entitlement is present and granted.
// A trial grant still counts as entitled.
func (e Entitlements) Entitled(name string) bool {
	status, ok := e[name]
	return ok && status.IsEntitled
}

// EntitlementPolicy is the set of entitlement names a caller's
// organization must hold for a request to proceed. Policy evaluation is a
// distinct stage applied only after identity extraction succeeds, so a
// policy denial is always [acerr.CodeEntitlementMissing] and never shadows
// a structural error.
//
// The zero value is a policy requiring nothing.
type EntitlementPolicy struct {
	// Required is the set of entitlement names that must be granted.
	Required []string
}

// Check verifies every required entitlement against the held set. It
// short-circuits on the first entitlement that is absent or not granted,
// failing with [acerr.CodeEntitlementMissing] naming that entitlement.
func (p EntitlementPolicy) Check(held Entitlements) error {
	for _, name := range p.Required {
		if !held.Entitled(name) {
			return acerr.Newf(acerr.CodeEntitlementMissing,
				"missing entitlement '%s'", name).WithDetail("entitlement", name)
		}
	}
	return nil
}
