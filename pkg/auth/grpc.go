package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	acerr "github.com/arclight-platform/arclight-core/pkg/errors"
)

// Metadata keys for the authentication artifacts on gRPC calls. gRPC
// metadata keys are lowercase by convention.
const (
	metadataAuthorization = "authorization"
	metadataIdentity      = "x-rh-identity"
)

// credentialsFromMetadata extracts authentication artifacts from incoming
// gRPC metadata, mirroring [CredentialsFromRequest] for HTTP.
func credentialsFromMetadata(ctx context.Context) Credentials {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return Credentials{}
	}
	var creds Credentials
	if values := md.Get(metadataAuthorization); len(values) > 0 {
		creds.BearerToken = ExtractBearerToken(values[0])
	}
	if values := md.Get(metadataIdentity); len(values) > 0 {
		creds.IdentityHeader = values[0]
	}
	return creds
}

// UnaryServerInterceptor returns a gRPC unary interceptor that
// authenticates every call through the dispatcher. On success the resolved
// Identity is attached to the call context; on failure the call ends with
// a gRPC status derived from the typed error.
//
// Health-check methods are exempt, matching the usual practice of probing
// without credentials.
func UnaryServerInterceptor(d *Dispatcher) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if isHealthCheck(info.FullMethod) {
			return handler(ctx, req)
		}

		identity, err := d.Resolve(ctx, credentialsFromMetadata(ctx))
		if err != nil {
			return nil, grpcStatusError(err)
		}
		return handler(ContextWithIdentity(ctx, identity), req)
	}
}

// StreamServerInterceptor returns the streaming counterpart of
// [UnaryServerInterceptor]. The identity is attached to the stream's
// context via a wrapped ServerStream.
func StreamServerInterceptor(d *Dispatcher) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if isHealthCheck(info.FullMethod) {
			return handler(srv, ss)
		}

		identity, err := d.Resolve(ss.Context(), credentialsFromMetadata(ss.Context()))
		if err != nil {
			return grpcStatusError(err)
		}
		return handler(srv, &identityServerStream{
			ServerStream: ss,
			ctx:          ContextWithIdentity(ss.Context(), identity),
		})
	}
}

// identityServerStream wraps a ServerStream to carry the authenticated
// context to the handler.
type identityServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *identityServerStream) Context() context.Context { return s.ctx }

// isHealthCheck reports whether the full method belongs to the standard
// gRPC health service.
func isHealthCheck(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, "/grpc.health.v1.Health/")
}

// grpcStatusError converts a resolution failure to a gRPC status error,
// mirroring the HTTP status mapping:
//
//	credential missing, authentication → Unauthenticated
//	malformed, validation              → InvalidArgument
//	entitlement                        → PermissionDenied
//	unavailable                        → Unavailable
//	timeout                            → DeadlineExceeded
//	anything else                      → Internal
func grpcStatusError(err error) error {
	typed, ok := acerr.AsError(err)
	if !ok {
		return status.Error(codes.Internal, "internal error")
	}

	var code codes.Code
	switch {
	case acerr.IsCredentialMissing(typed), acerr.IsAuthentication(typed):
		code = codes.Unauthenticated
	case acerr.IsMalformed(typed), acerr.IsValidation(typed):
		code = codes.InvalidArgument
	case acerr.IsEntitlement(typed):
		code = codes.PermissionDenied
	case acerr.IsUnavailable(typed):
		code = codes.Unavailable
	case acerr.IsTimeout(typed):
		code = codes.DeadlineExceeded
	default:
		code = codes.Internal
	}
	return status.Error(code, typed.Message)
}
