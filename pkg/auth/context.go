package auth

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// contextKey is an unexported type used for context keys in this package.
// Using a distinct type prevents collisions with keys from other packages.
type contextKey int

// identityKey stores the resolved Identity in the context.
const identityKey contextKey = iota

// ContextWithIdentity returns a new context with the given Identity
// attached. The identity can later be retrieved with [IdentityFromContext].
//
// This is typically called by the HTTP middleware and gRPC interceptors
// after the dispatcher successfully resolves the caller.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext retrieves the Identity from the context.
// Returns the identity and true if present, or nil and false if no
// identity has been set.
//
// Example:
//
//	identity, ok := auth.IdentityFromContext(ctx)
//	if !ok {
//	    return errors.Unauthenticated("no identity in context")
//	}
//	log.Info("request", "user", identity.UserID, "org", identity.OrgID)
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*Identity)
	return identity, ok
}

// MustIdentityFromContext retrieves the Identity from the context,
// panicking if none is present. Use only in code paths that run strictly
// after the authentication middleware.
func MustIdentityFromContext(ctx context.Context) *Identity {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		panic("auth: no identity in context; ensure authentication middleware is configured")
	}
	return identity
}

// TraceIDFromContext extracts the OpenTelemetry trace ID from the context.
// Returns the trace ID as a hex string and true if a valid trace is
// active. This allows correlating resolution outcomes with distributed
// traces when handing timing data to the telemetry collaborator.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.HasTraceID() {
		return "", false
	}
	return spanCtx.TraceID().String(), true
}
