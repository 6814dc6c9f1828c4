package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	acerr "github.com/arclight-platform/arclight-core/pkg/errors"
)

// Identity variant tags carried in the structured header's
// identity.type field.
const (
	// IdentityTypeUser marks a human user resolved by the edge gateway.
	IdentityTypeUser = "User"

	// IdentityTypeSystem marks a cluster-service caller identified by a
	// certificate common name.
	IdentityTypeSystem = "System"
)

// UserIdentityData is the "user" branch of the structured identity header.
type UserIdentityData struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// SystemIdentityData is the "system" branch of the structured identity
// header. CN is the certificate subject common name.
type SystemIdentityData struct {
	CN string `json:"cn"`
}

// StructuredIdentity is the decoded "identity" object: a tagged union over
// the User and System variants. Exactly one variant is populated per
// decoded header; the Type tag determines which required-field set is
// enforced.
type StructuredIdentity struct {
	Type          string              `json:"type"`
	OrgID         string              `json:"org_id"`
	AccountNumber string              `json:"account_number"`
	User          *UserIdentityData   `json:"user,omitempty"`
	System        *SystemIdentityData `json:"system,omitempty"`
}

// identityEnvelope is the full decoded header payload.
type identityEnvelope struct {
	Identity     *StructuredIdentity `json:"identity"`
	Entitlements Entitlements        `json:"entitlements"`
}

// HeaderResolver decodes and validates the provider-supplied structured
// identity header, branching on the identity variant, and enforces an
// entitlement policy. It implements the [Resolver] interface.
//
// The error ordering is a contract: header absence (401-class) is
// distinguished from structural invalidity (400-class), which is
// distinguished from policy denial (403-class), and structural checks are
// never shadowed by entitlement checks on malformed input.
//
// HeaderResolver is safe for concurrent use by multiple goroutines.
type HeaderResolver struct {
	policy EntitlementPolicy
	tracer trace.Tracer
}

// Compile-time assertion that HeaderResolver implements Resolver.
var _ Resolver = (*HeaderResolver)(nil)

// NewHeaderResolver creates a HeaderResolver enforcing the given
// entitlement policy after identity extraction.
func NewHeaderResolver(policy EntitlementPolicy) *HeaderResolver {
	return &HeaderResolver{
		policy: policy,
		tracer: otel.Tracer(tracerName),
	}
}

// Resolve decodes the structured identity header in creds, in this order:
//
//  1. Absent header → credential-missing.
//  2. Not valid base64/JSON, or no top-level identity key →
//     malformed-header citing the 'identity' field.
//  3. "User" variant: user_id and username are required; each missing
//     field is cited by name.
//  4. "System" variant: cn is required and becomes UserID; the account
//     number serves as the display name.
//  5. Only after extraction succeeds, the entitlement policy is evaluated.
func (r *HeaderResolver) Resolve(ctx context.Context, creds Credentials) (*Identity, error) {
	_, span := r.tracer.Start(ctx, "auth.HeaderResolver.Resolve")
	defer span.End()

	if creds.IdentityHeader == "" {
		err := acerr.CredentialMissing("Missing " + HeaderIdentity + " header")
		finishSpan(span, err)
		return nil, err
	}

	envelope, err := decodeIdentityHeader(creds.IdentityHeader)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}

	identity, err := identityFromEnvelope(envelope.Identity)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("auth.identity_type", envelope.Identity.Type),
		attribute.String("auth.org_id", identity.OrgID),
	)

	if err := r.policy.Check(envelope.Entitlements); err != nil {
		finishSpan(span, err)
		return nil, err
	}

	return identity, nil
}

// decodeIdentityHeader base64-decodes and JSON-parses the raw header
// value. Any decode failure, and the absence of the top-level identity
// key, collapse to the same malformed-header error citing the 'identity'
// field — the caller presented something, but not a usable envelope.
func decodeIdentityHeader(raw string) (*identityEnvelope, error) {
	malformed := acerr.New(acerr.CodeMalformedHeader, "missing 'identity' field").
		WithDetail("field", "identity")

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, malformed.WithDetail("cause", "invalid base64")
	}

	var envelope identityEnvelope
	if err := json.Unmarshal(decoded, &envelope); err != nil {
		return nil, malformed.WithDetail("cause", "invalid JSON")
	}
	if envelope.Identity == nil {
		return nil, malformed
	}
	return &envelope, nil
}

// identityFromEnvelope enforces the variant-specific required fields and
// builds the canonical Identity. The variant tag determines which field
// set is checked, so missing-field errors always cite the exact field.
func identityFromEnvelope(structured *StructuredIdentity) (*Identity, error) {
	switch structured.Type {
	case IdentityTypeUser:
		var user UserIdentityData
		if structured.User != nil {
			user = *structured.User
		}
		if err := requireField(user.UserID, "user_id", "user data"); err != nil {
			return nil, err
		}
		if err := requireField(user.Username, "username", "user data"); err != nil {
			return nil, err
		}
		return &Identity{
			UserID:          user.UserID,
			Username:        user.Username,
			OrgID:           structured.OrgID,
			SkipUserIDCheck: false,
		}, nil

	case IdentityTypeSystem:
		var system SystemIdentityData
		if structured.System != nil {
			system = *structured.System
		}
		if err := requireField(system.CN, "cn", "system data"); err != nil {
			return nil, err
		}
		// Cluster-service identities use the account number as a display
		// name; the common name is the stable subject.
		return &Identity{
			UserID:          system.CN,
			Username:        structured.AccountNumber,
			OrgID:           structured.OrgID,
			SkipUserIDCheck: false,
		}, nil

	default:
		return nil, acerr.Newf(acerr.CodeMalformedHeader,
			"unsupported identity type %q", structured.Type).
			WithDetail("field", "type")
	}
}
