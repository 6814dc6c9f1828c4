// Package auth provides the identity resolution and entitlement enforcement
// layer for services running on the Arclight platform.
//
// Given an inbound request, this package determines who is calling and
// whether they are permitted to proceed, independent of which trust
// mechanism the deployment chooses. Each trust mechanism is a [Resolver]:
//
//   - TokenVerifier: validates a signed bearer token against keys fetched
//     from a remote key-set endpoint
//   - ClusterReviewer: delegates an opaque bearer token to the cluster
//     authority's token-review endpoint
//   - HeaderResolver: decodes a provider-supplied structured identity
//     header and enforces an entitlement policy
//   - StaticResolver: fixed identity for local/dev/test deployments
//
// A [Dispatcher] holds exactly one resolver, selected at startup from
// configuration, and exposes the single Authenticate contract to the
// request-handling framework. Resolver failures are typed
// [github.com/arclight-platform/arclight-core/pkg/errors] values whose
// codes the framework maps to transport status codes.
//
// Security:
//
// Raw credentials are carried in the [Secret] type, which redacts its value
// in String(), GoString(), and MarshalText() so that tokens never leak into
// logs or serialized output. Error messages carry short, non-sensitive
// details only (field names, entitlement names), never credential bytes.
package auth

import (
	"context"
	"net/http"
	"strings"

	acerr "github.com/arclight-platform/arclight-core/pkg/errors"
)

// Header names for the authentication artifacts this layer consumes.
const (
	// HeaderAuthorization is the standard authorization header carrying a
	// bearer token.
	HeaderAuthorization = "Authorization"

	// HeaderIdentity is the provider-supplied structured identity header:
	// base64-encoded JSON set by the trusted edge gateway.
	HeaderIdentity = "x-rh-identity"
)

// bearerPrefix is the expected prefix of a bearer Authorization header.
const bearerPrefix = "Bearer "

// ---------------------------------------------------------------------------
// Secret type — prevents accidental logging of sensitive values
// ---------------------------------------------------------------------------

// Secret is a string type that redacts its value in String(), GoString(),
// and MarshalText() to prevent accidental exposure in logs, JSON output,
// or fmt.Printf. The actual value is only accessible via [Secret.Value],
// which should be called only where the raw value is truly needed (e.g.,
// re-presenting the caller's token to a downstream service).
type Secret string

// secretRedacted is the placeholder text shown instead of the actual
// secret value when the secret is printed, formatted, or serialized.
const secretRedacted = "[REDACTED]"

// String returns the redacted placeholder, preventing the secret from
// being printed via fmt.Println, log.Printf, or similar functions.
func (s Secret) String() string { return secretRedacted }

// GoString returns the redacted placeholder, preventing the secret from
// being printed via fmt.Printf("%#v", secret).
func (s Secret) GoString() string { return secretRedacted }

// Value returns the actual secret string. This is the only way to access
// the underlying value.
func (s Secret) Value() string { return string(s) }

// MarshalText implements [encoding.TextMarshaler], returning the redacted
// placeholder. This prevents the secret from leaking into JSON, YAML, or
// any other text-based serialization format.
func (s Secret) MarshalText() ([]byte, error) { return []byte(secretRedacted), nil }

// ---------------------------------------------------------------------------
// Identity — the canonical resolved-caller record
// ---------------------------------------------------------------------------

// Identity is the result of a successful resolution: the canonical record
// of who is calling. An Identity is returned to callers only fully
// populated; partially constructed identities never escape a resolver.
type Identity struct {
	// UserID is the stable subject identifier. Non-empty.
	UserID string `json:"user_id"`

	// Username is the human/display identifier. Non-empty.
	Username string `json:"username"`

	// OrgID is the owning organization, when the trust domain provides one.
	OrgID string `json:"org_id,omitempty"`

	// SkipUserIDCheck signals to downstream authorization logic that UserID
	// should not be used for per-user ownership filtering. Set when the
	// resolver cannot vouch for per-user identity (pure API-key or no-op
	// resolution).
	SkipUserIDCheck bool `json:"skip_userid_check"`

	// Token is the raw credential, retained only when downstream calls must
	// re-present it. The Secret type keeps it out of logs and serialized
	// output.
	Token Secret `json:"-"`
}

// ---------------------------------------------------------------------------
// Resolver contract
// ---------------------------------------------------------------------------

// Credentials carries the authentication artifacts extracted from an
// inbound request. A request may carry zero or more artifacts; each
// resolver consumes the one relevant to its trust mechanism. Keeping the
// extraction separate from resolution keeps resolvers transport-agnostic.
type Credentials struct {
	// BearerToken is the token from the Authorization header, with the
	// "Bearer " prefix stripped. Empty when absent.
	BearerToken string

	// IdentityHeader is the raw (still base64-encoded) structured identity
	// header value. Empty when absent.
	IdentityHeader string
}

// CredentialsFromRequest extracts the authentication artifacts from an
// inbound HTTP request.
func CredentialsFromRequest(r *http.Request) Credentials {
	return Credentials{
		BearerToken:    ExtractBearerToken(r.Header.Get(HeaderAuthorization)),
		IdentityHeader: r.Header.Get(HeaderIdentity),
	}
}

// ExtractBearerToken extracts the token from a "Bearer <token>"
// authorization value. Returns an empty string if the value does not have
// a bearer prefix (case-insensitive) or carries no token.
func ExtractBearerToken(authHeader string) string {
	if len(authHeader) <= len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return authHeader[len(bearerPrefix):]
}

// Resolver resolves the caller identity for one trust mechanism. A
// resolver either returns a fully populated [Identity] or fails with a
// typed *[acerr.Error]; it never performs local recovery beyond what its
// own contract allows.
//
// Implementations must be safe for concurrent use by multiple goroutines:
// the layer is invoked once per inbound request, concurrently across many
// in-flight requests.
type Resolver interface {
	// Resolve determines the caller identity from the given credentials.
	// The context carries the enclosing request's deadline and cancellation;
	// resolvers must abandon in-flight verification work when it is
	// cancelled.
	Resolve(ctx context.Context, creds Credentials) (*Identity, error)
}

// ---------------------------------------------------------------------------
// Shared field predicates
// ---------------------------------------------------------------------------

// requireField fails with a malformed-header error naming the missing
// field and the section it was expected in. The message format is part of
// the layer's tested contract ("missing 'user_id' in user data").
func requireField(value, field, section string) *acerr.Error {
	if value != "" {
		return nil
	}
	return acerr.Newf(acerr.CodeMalformedHeader, "missing '%s' in %s", field, section).
		WithDetail("field", field)
}

// requireClaim fails with a malformed-token error naming the missing claim.
func requireClaim(value, claim string) *acerr.Error {
	if value != "" {
		return nil
	}
	return acerr.Newf(acerr.CodeMalformedToken, "missing '%s' claim in token", claim).
		WithDetail("claim", claim)
}
