package auth

import (
	"context"
	"crypto/rsa"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arclight-platform/arclight-core/internal/testutil"
	acerr "github.com/arclight-platform/arclight-core/pkg/errors"
)

// ---------------------------------------------------------------------------
// Mock Resolver for dispatcher tests
// ---------------------------------------------------------------------------

// mockResolver implements Resolver with a canned result.
type mockResolver struct {
	identity *Identity
	err      error

	// lastCreds records the credentials the dispatcher handed over.
	lastCreds Credentials
}

func (m *mockResolver) Resolve(_ context.Context, creds Credentials) (*Identity, error) {
	m.lastCreds = creds
	if m.err != nil {
		return nil, m.err
	}
	return m.identity, nil
}

func headerConfig(entitlements ...string) Config {
	return Config{
		Method: string(MethodHeader),
		Header: HeaderConfig{RequiredEntitlements: entitlements},
	}
}

// ---------------------------------------------------------------------------
// Dispatcher tests
// ---------------------------------------------------------------------------

func TestNewDispatcher_BuildsConfiguredResolver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want any
	}{
		{
			name: "noop",
			cfg:  Config{Method: string(MethodNoop)},
			want: &StaticResolver{},
		},
		{
			name: "noop with token",
			cfg:  Config{Method: string(MethodNoopWithToken)},
			want: &StaticResolver{},
		},
		{
			name: "token",
			cfg: Config{
				Method: string(MethodToken),
				Token:  TokenConfig{KeySetURL: "https://sso.example.com/certs"},
			},
			want: &TokenVerifier{},
		},
		{
			name: "cluster",
			cfg: Config{
				Method: string(MethodCluster),
				Cluster: ClusterConfig{
					Endpoint:   "https://kubernetes.default.svc/apis/authentication.k8s.io/v1/tokenreviews",
					Credential: Secret("sa-token"),
				},
			},
			want: &ClusterReviewer{},
		},
		{
			name: "header",
			cfg:  headerConfig("rhel"),
			want: &HeaderResolver{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, err := NewDispatcher(tt.cfg, nil)
			require.NoError(t, err)
			assert.IsType(t, tt.want, d.resolver)
			assert.Equal(t, Method(tt.cfg.Method), d.Method())
		})
	}
}

func TestNewDispatcher_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := NewDispatcher(Config{Method: "saml"}, nil)
	testutil.RequireErrorCode(t, err, acerr.CodeValidation)

	_, err = NewDispatcher(Config{Method: string(MethodToken)}, nil)
	testutil.RequireErrorCode(t, err, acerr.CodeValidation)
}

func TestNewDispatcher_ClusterCredentialFromFile(t *testing.T) {
	path := testutil.TempFile(t, "token", "file-sa-token\n")

	cfg := Config{
		Method: string(MethodCluster),
		Cluster: ClusterConfig{
			Endpoint:       "https://kubernetes.default.svc/apis/authentication.k8s.io/v1/tokenreviews",
			CredentialPath: path,
		},
	}

	d, err := NewDispatcher(cfg, nil)
	require.NoError(t, err)

	reviewer, ok := d.resolver.(*ClusterReviewer)
	require.True(t, ok)
	assert.Equal(t, "file-sa-token", reviewer.credential.Value())
}

func TestNewDispatcher_ClusterCredentialUnreadable(t *testing.T) {
	cfg := Config{
		Method: string(MethodCluster),
		Cluster: ClusterConfig{
			Endpoint:       "https://kubernetes.default.svc/apis/authentication.k8s.io/v1/tokenreviews",
			CredentialPath: t.TempDir() + "/missing",
		},
	}

	_, err := NewDispatcher(cfg, nil)
	testutil.RequireErrorCode(t, err, acerr.CodeValidation)
}

func TestDispatcher_AuthenticatePassesCredentials(t *testing.T) {
	t.Parallel()

	mock := &mockResolver{identity: &Identity{UserID: "u-1", Username: "user"}}
	d, err := NewDispatcher(headerConfig(), nil, WithResolver(mock))
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/resource", nil)
	req.Header.Set(HeaderAuthorization, "Bearer tok-1")
	req.Header.Set(HeaderIdentity, "encoded-header")

	identity, err := d.Authenticate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "u-1", identity.UserID)
	assert.Equal(t, "tok-1", mock.lastCreds.BearerToken)
	assert.Equal(t, "encoded-header", mock.lastCreds.IdentityHeader)
}

func TestDispatcher_PropagatesTypedErrors(t *testing.T) {
	t.Parallel()

	mock := &mockResolver{err: acerr.CredentialMissing("Missing x-rh-identity header")}
	d, err := NewDispatcher(headerConfig(), nil, WithResolver(mock))
	require.NoError(t, err)

	_, err = d.Resolve(context.Background(), Credentials{})
	testutil.RequireErrorCode(t, err, acerr.CodeCredentialMissing)
	assert.Equal(t, "Missing x-rh-identity header", acerr.FromError(err).Message)
}

func TestDispatcher_RecordsMetrics(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))

	mock := &mockResolver{identity: &Identity{UserID: "u-1", Username: "user"}}
	d, err := NewDispatcher(headerConfig(), nil, WithResolver(mock), WithMetrics(metrics))
	require.NoError(t, err)

	_, err = d.Resolve(context.Background(), Credentials{})
	require.NoError(t, err)

	mock.err = acerr.New(acerr.CodeAuthorityUnavailable, "authority down")
	_, err = d.Resolve(context.Background(), Credentials{})
	require.Error(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	var sawOK, sawUnavail bool
	for _, mf := range families {
		if mf.GetName() != "arclight_auth_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" {
					switch label.GetValue() {
					case "ok":
						sawOK = true
					case "UNAVAIL":
						sawUnavail = true
					}
				}
			}
		}
	}
	assert.True(t, sawOK, "expected an ok-labeled request sample")
	assert.True(t, sawUnavail, "expected an UNAVAIL-labeled request sample")
}

// A dispatcher without metrics must not panic: the collectors are optional.
func TestDispatcher_NilMetricsSafe(t *testing.T) {
	t.Parallel()

	mock := &mockResolver{identity: &Identity{UserID: "u-1", Username: "user"}}
	d, err := NewDispatcher(headerConfig(), nil, WithResolver(mock))
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		_, _ = d.Resolve(context.Background(), Credentials{})
	})
}

func TestDispatcher_EndToEndHeaderMethod(t *testing.T) {
	t.Parallel()

	d, err := NewDispatcher(headerConfig("rhel"), nil)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/resource", nil)
	req.Header.Set(HeaderIdentity, testutil.EncodeBase64JSON(t, testUserEnvelope()))

	identity, err := d.Authenticate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "test-user-123", identity.UserID)
	assert.Equal(t, "321", identity.OrgID)
}

func TestDispatcher_EndToEndTokenMethod(t *testing.T) {
	t.Parallel()

	key := testGenerateRSAKey(t)
	doc := testJWKSDocument(t, map[string]*rsa.PublicKey{"k1": &key.PublicKey}, nil)
	srv := testServeJWKS(t, doc, nil)

	cfg := Config{
		Method: string(MethodToken),
		Token: TokenConfig{
			KeySetURL: srv.URL,
			KeySetTTL: time.Minute,
			Issuer:    testIssuer,
		},
	}
	d, err := NewDispatcher(cfg, srv.Client())
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/resource", nil)
	req.Header.Set(HeaderAuthorization, "Bearer "+testSignRSAToken(t, key, "k1", testClaims()))

	identity, err := d.Authenticate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "test-user-123", identity.UserID)
}
