package auth

import (
	"time"

	acerr "github.com/arclight-platform/arclight-core/pkg/errors"
)

// Method names the resolver variant a deployment activates. Exactly one
// variant is active per process; there is no runtime switching.
type Method string

const (
	// MethodNoop resolves every request to a fixed identity.
	MethodNoop Method = "noop"

	// MethodNoopWithToken resolves to a fixed identity but retains the
	// caller's bearer token for downstream pass-through.
	MethodNoopWithToken Method = "noop-with-token"

	// MethodToken verifies a signed bearer token against a remote key set.
	MethodToken Method = "token"

	// MethodCluster delegates an opaque bearer token to the cluster
	// authority's token-review endpoint.
	MethodCluster Method = "cluster"

	// MethodHeader decodes the provider-supplied structured identity
	// header and enforces an entitlement policy.
	MethodHeader Method = "header"
)

// Valid reports whether the method is one of the recognized values.
func (m Method) Valid() bool {
	switch m {
	case MethodNoop, MethodNoopWithToken, MethodToken, MethodCluster, MethodHeader:
		return true
	default:
		return false
	}
}

// TokenConfig configures the signed-token verifier.
type TokenConfig struct {
	// KeySetURL is the endpoint publishing the issuer's verification keys.
	// Required when the token method is active.
	KeySetURL string `json:"keyset_url,omitempty" yaml:"keyset_url" env:"KEYSET_URL"`

	// KeySetTTL is the maximum age of a fetched key set before a refresh
	// is attempted. Must be non-negative. Defaults to 10 minutes.
	KeySetTTL time.Duration `json:"keyset_ttl" yaml:"keyset_ttl" env:"KEYSET_TTL" envDefault:"10m"`

	// Issuer is the expected "iss" claim. When empty, the issuer claim
	// must still be present but its value is not pinned.
	Issuer string `json:"issuer,omitempty" yaml:"issuer" env:"ISSUER"`

	// UsernameClaim is the claim carrying the display identifier.
	// Defaults to "preferred_username".
	UsernameClaim string `json:"username_claim" yaml:"username_claim" env:"USERNAME_CLAIM" envDefault:"preferred_username"`

	// ClockSkew is the tolerated clock difference for time-based claims.
	// Must be non-negative. Defaults to 30 seconds.
	ClockSkew time.Duration `json:"clock_skew" yaml:"clock_skew" env:"CLOCK_SKEW" envDefault:"30s"`
}

// ClusterConfig configures the cluster token reviewer.
type ClusterConfig struct {
	// Endpoint is the cluster authority's token-review URL. Required when
	// the cluster method is active.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint" env:"ENDPOINT"`

	// Credential is the service's own privileged bearer token for the
	// review call. When empty, it is read from CredentialPath at startup.
	// The Secret type prevents accidental logging of the value.
	Credential Secret `json:"-" yaml:"-" env:"CREDENTIAL"`

	// CredentialPath is the filesystem path to the privileged credential.
	// Defaults to the standard ServiceAccount token mount path.
	CredentialPath string `json:"credential_path,omitempty" yaml:"credential_path" env:"CREDENTIAL_PATH"`

	// Timeout bounds a single token-review call. Must be non-negative.
	// Defaults to 5 seconds.
	Timeout time.Duration `json:"timeout" yaml:"timeout" env:"TIMEOUT" envDefault:"5s"`
}

// HeaderConfig configures the structured-identity header resolver.
type HeaderConfig struct {
	// RequiredEntitlements is the set of entitlement names the caller's
	// organization must hold.
	RequiredEntitlements []string `json:"required_entitlements,omitempty" yaml:"required_entitlements" env:"REQUIRED_ENTITLEMENTS"`
}

// StaticConfig configures the no-op resolvers.
type StaticConfig struct {
	// UserID is the fixed subject id. An empty value is replaced with a
	// process-stable generated id.
	UserID string `json:"user_id,omitempty" yaml:"user_id" env:"USER_ID"`

	// Username is the fixed display identifier. Defaults to
	// [DefaultStaticUsername].
	Username string `json:"username,omitempty" yaml:"username" env:"USERNAME"`
}

// Config selects and configures the active resolver variant. It is
// typically loaded with pkg/config:
//
//	cfg := config.MustLoad[auth.Config](
//	    config.New().WithEnvPrefix("ARCLIGHT_AUTH"),
//	)
type Config struct {
	// Method is the active resolver variant, fixed at startup.
	// Defaults to "header".
	Method string `json:"method" yaml:"method" env:"METHOD" envDefault:"header"`

	Token   TokenConfig   `json:"token" yaml:"token" env:"TOKEN"`
	Cluster ClusterConfig `json:"cluster" yaml:"cluster" env:"CLUSTER"`
	Header  HeaderConfig  `json:"header" yaml:"header" env:"HEADER"`
	Static  StaticConfig  `json:"static" yaml:"static" env:"STATIC"`
}

// Validate checks the configuration for logical correctness and returns a
// *[acerr.Error] with code [acerr.CodeValidation] if any field is invalid.
//
// Validation rules:
//   - Method must be a recognized resolver variant
//   - If Method is "token": Token.KeySetURL must not be empty
//   - If Method is "cluster": Cluster.Endpoint must not be empty
//   - Durations must be non-negative
func (c *Config) Validate() error {
	if !Method(c.Method).Valid() {
		return acerr.Validationf("auth: unknown resolver method %q", c.Method)
	}

	switch Method(c.Method) {
	case MethodToken:
		if c.Token.KeySetURL == "" {
			return acerr.Validation("auth: key set URL must not be empty when the token method is active")
		}
	case MethodCluster:
		if c.Cluster.Endpoint == "" {
			return acerr.Validation("auth: cluster endpoint must not be empty when the cluster method is active")
		}
	}

	if c.Token.KeySetTTL < 0 {
		return acerr.Validation("auth: key set TTL must be non-negative")
	}
	if c.Token.ClockSkew < 0 {
		return acerr.Validation("auth: clock skew must be non-negative")
	}
	if c.Cluster.Timeout < 0 {
		return acerr.Validation("auth: cluster review timeout must be non-negative")
	}

	return nil
}
