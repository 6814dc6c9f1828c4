package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	acerr "github.com/arclight-platform/arclight-core/pkg/errors"
)

func newMockDispatcher(t *testing.T, mock *mockResolver) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(headerConfig(), nil, WithResolver(mock))
	require.NoError(t, err)
	return d
}

func TestUnaryInterceptor_Success(t *testing.T) {
	t.Parallel()

	mock := &mockResolver{identity: &Identity{UserID: "u-1", Username: "user"}}
	interceptor := UnaryServerInterceptor(newMockDispatcher(t, mock))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		metadataAuthorization, "Bearer tok-1",
		metadataIdentity, "encoded-header",
	))

	var handlerCtx context.Context
	resp, err := interceptor(ctx, "request",
		&grpc.UnaryServerInfo{FullMethod: "/arclight.v1.Service/Get"},
		func(ctx context.Context, req any) (any, error) {
			handlerCtx = ctx
			return "response", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "response", resp)

	identity := MustIdentityFromContext(handlerCtx)
	assert.Equal(t, "u-1", identity.UserID)
	assert.Equal(t, "tok-1", mock.lastCreds.BearerToken)
	assert.Equal(t, "encoded-header", mock.lastCreds.IdentityHeader)
}

func TestUnaryInterceptor_StatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *acerr.Error
		wantCode codes.Code
	}{
		{
			name:     "missing credential",
			err:      acerr.CredentialMissing("Missing bearer token"),
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "rejected credential",
			err:      acerr.Unauthenticated("token rejected by cluster authority"),
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "expired token",
			err:      acerr.New(acerr.CodeTokenExpired, "token has expired"),
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "malformed header",
			err:      acerr.New(acerr.CodeMalformedHeader, "missing 'identity' field"),
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "entitlement denied",
			err:      acerr.New(acerr.CodeEntitlementMissing, "missing entitlement 'rhel'"),
			wantCode: codes.PermissionDenied,
		},
		{
			name:     "authority unreachable",
			err:      acerr.New(acerr.CodeAuthorityUnavailable, "token review call failed"),
			wantCode: codes.Unavailable,
		},
		{
			name:     "timed out",
			err:      acerr.Timeout("abandoned key set fetch"),
			wantCode: codes.DeadlineExceeded,
		},
		{
			name:     "internal failure",
			err:      acerr.Internal("unexpected"),
			wantCode: codes.Internal,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			interceptor := UnaryServerInterceptor(newMockDispatcher(t, &mockResolver{err: tt.err}))

			_, err := interceptor(context.Background(), "request",
				&grpc.UnaryServerInfo{FullMethod: "/arclight.v1.Service/Get"},
				func(ctx context.Context, req any) (any, error) {
					t.Error("handler must not run when authentication fails")
					return nil, nil
				})
			require.Error(t, err)

			st, ok := status.FromError(err)
			require.True(t, ok, "expected a gRPC status error, got %T", err)
			assert.Equal(t, tt.wantCode, st.Code())
			assert.Equal(t, tt.err.Message, st.Message())
		})
	}
}

func TestUnaryInterceptor_HealthCheckExempt(t *testing.T) {
	t.Parallel()

	mock := &mockResolver{err: acerr.CredentialMissing("Missing bearer token")}
	interceptor := UnaryServerInterceptor(newMockDispatcher(t, mock))

	resp, err := interceptor(context.Background(), "request",
		&grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"},
		func(ctx context.Context, req any) (any, error) {
			return "healthy", nil
		})
	require.NoError(t, err, "health checks must pass without credentials")
	assert.Equal(t, "healthy", resp)
}

// mockServerStream implements grpc.ServerStream for interceptor tests.
type mockServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *mockServerStream) Context() context.Context { return s.ctx }

func TestStreamInterceptor_Success(t *testing.T) {
	t.Parallel()

	mock := &mockResolver{identity: &Identity{UserID: "u-1", Username: "user"}}
	interceptor := StreamServerInterceptor(newMockDispatcher(t, mock))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		metadataAuthorization, "Bearer tok-1",
	))

	var handlerCtx context.Context
	err := interceptor("server", &mockServerStream{ctx: ctx},
		&grpc.StreamServerInfo{FullMethod: "/arclight.v1.Service/Watch"},
		func(srv any, ss grpc.ServerStream) error {
			handlerCtx = ss.Context()
			return nil
		})
	require.NoError(t, err)

	identity := MustIdentityFromContext(handlerCtx)
	assert.Equal(t, "u-1", identity.UserID)
}

func TestStreamInterceptor_Failure(t *testing.T) {
	t.Parallel()

	mock := &mockResolver{err: acerr.CredentialMissing("Missing bearer token")}
	interceptor := StreamServerInterceptor(newMockDispatcher(t, mock))

	err := interceptor("server", &mockServerStream{ctx: context.Background()},
		&grpc.StreamServerInfo{FullMethod: "/arclight.v1.Service/Watch"},
		func(srv any, ss grpc.ServerStream) error {
			t.Error("handler must not run when authentication fails")
			return nil
		})
	require.Error(t, err)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Unauthenticated, st.Code())
}

func TestCredentialsFromMetadata_NoMetadata(t *testing.T) {
	t.Parallel()

	creds := credentialsFromMetadata(context.Background())
	assert.Empty(t, creds.BearerToken)
	assert.Empty(t, creds.IdentityHeader)
}
