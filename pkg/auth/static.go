package auth

import (
	"context"

	"github.com/google/uuid"
)

// DefaultStaticUsername is the display identifier used by static resolvers
// when none is configured.
const DefaultStaticUsername = "arclight-user"

// StaticResolver always succeeds with a fixed configured identity. It is
// used for local, dev, and test deployments to exercise downstream code
// paths without a real trust authority.
//
// Because no real per-user guarantee is established, resolved identities
// carry SkipUserIDCheck = true: downstream authorization must not use the
// fixed UserID for per-user ownership filtering.
type StaticResolver struct {
	identity Identity

	// retainToken controls whether the caller's bearer token, if any, is
	// passed through on the resolved identity for downstream calls that
	// must re-present it.
	retainToken bool
}

// Compile-time assertion that StaticResolver implements Resolver.
var _ Resolver = (*StaticResolver)(nil)

// NewNoopResolver creates a resolver that returns a fixed identity and
// ignores any credentials on the request. An empty userID is replaced
// with a process-stable generated id; an empty username falls back to
// [DefaultStaticUsername].
func NewNoopResolver(userID, username string) *StaticResolver {
	return newStaticResolver(userID, username, false)
}

// NewNoopTokenResolver creates a resolver that returns a fixed identity
// but retains the caller's bearer token on it, so downstream calls (MCP
// servers, outbound API forwarding) can re-present the token while the
// identity itself stays synthetic.
func NewNoopTokenResolver(userID, username string) *StaticResolver {
	return newStaticResolver(userID, username, true)
}

func newStaticResolver(userID, username string, retainToken bool) *StaticResolver {
	if userID == "" {
		userID = uuid.NewString()
	}
	if username == "" {
		username = DefaultStaticUsername
	}
	return &StaticResolver{
		identity: Identity{
			UserID:          userID,
			Username:        username,
			SkipUserIDCheck: true,
		},
		retainToken: retainToken,
	}
}

// Resolve returns a copy of the fixed identity. It never fails.
func (s *StaticResolver) Resolve(_ context.Context, creds Credentials) (*Identity, error) {
	identity := s.identity
	if s.retainToken {
		identity.Token = Secret(creds.BearerToken)
	}
	return &identity, nil
}
