package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	acerr "github.com/arclight-platform/arclight-core/pkg/errors"
)

// Dispatcher routes authentication to the single resolver variant selected
// at startup. The active method is fixed for the life of the process;
// there is no per-request switching, so behavior is predictable per
// deployment.
//
// The dispatcher is the layer's composition root: it builds the resolver
// from [Config], extracts credentials from the transport, records metrics
// and logs, and returns the resolver's typed errors unchanged.
//
// Dispatcher is safe for concurrent use by multiple goroutines.
type Dispatcher struct {
	method   Method
	resolver Resolver
	metrics  *Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

// DispatcherOption customizes dispatcher construction.
type DispatcherOption func(*Dispatcher)

// WithMetrics attaches Prometheus metrics to the dispatcher and, for the
// token method, to the underlying key store.
func WithMetrics(m *Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithLogger sets the structured logger. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithResolver overrides the configured resolver. Used by tests and by
// callers composing a custom resolver; when set, the Config's method
// selection is bypassed but its Method label is kept for observability.
func WithResolver(r Resolver) DispatcherOption {
	return func(d *Dispatcher) { d.resolver = r }
}

// NewDispatcher validates cfg, constructs the resolver the configured
// method names, and returns a dispatcher bound to it. The HTTP client is
// used for outbound calls (key-set fetches, token reviews); a nil client
// falls back to each resolver's default.
func NewDispatcher(cfg Config, client HTTPClient, opts ...DispatcherOption) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Dispatcher{
		method: Method(cfg.Method),
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.resolver != nil {
		return d, nil
	}

	switch d.method {
	case MethodNoop:
		d.resolver = NewNoopResolver(cfg.Static.UserID, cfg.Static.Username)

	case MethodNoopWithToken:
		d.resolver = NewNoopTokenResolver(cfg.Static.UserID, cfg.Static.Username)

	case MethodToken:
		keys := NewKeyStore(cfg.Token.KeySetURL, cfg.Token.KeySetTTL, client).
			WithMetrics(d.metrics)
		d.resolver = NewTokenVerifier(keys, cfg.Token.Issuer, cfg.Token.UsernameClaim, cfg.Token.ClockSkew)

	case MethodCluster:
		credential := cfg.Cluster.Credential
		if credential.Value() == "" {
			var err error
			credential, err = ReadServiceAccountToken(cfg.Cluster.CredentialPath)
			if err != nil {
				return nil, acerr.Wrap(err, acerr.CodeValidation,
					"auth: failed to load cluster review credential")
			}
		}
		d.resolver = NewClusterReviewer(cfg.Cluster.Endpoint, credential, cfg.Cluster.Timeout, client)

	case MethodHeader:
		d.resolver = NewHeaderResolver(EntitlementPolicy{
			Required: cfg.Header.RequiredEntitlements,
		})
	}

	return d, nil
}

// Method returns the active resolver method.
func (d *Dispatcher) Method() Method { return d.method }

// Resolve runs the active resolver on already-extracted credentials,
// recording the outcome. Transport adapters that are not HTTP (e.g. gRPC
// interceptors) extract credentials themselves and call this directly.
func (d *Dispatcher) Resolve(ctx context.Context, creds Credentials) (*Identity, error) {
	ctx, span := d.tracer.Start(ctx, "auth.Dispatcher.Resolve",
		trace.WithAttributes(attribute.String("auth.method", string(d.method))))
	defer span.End()

	start := time.Now()
	identity, err := d.resolver.Resolve(ctx, creds)
	elapsed := time.Since(start)

	if err != nil {
		outcome := "error"
		if typed, ok := acerr.AsError(err); ok {
			outcome = typed.Code.Category()
		}
		d.metrics.observeRequest(d.method, outcome, elapsed)
		d.logger.WarnContext(ctx, "authentication failed",
			slog.String("method", string(d.method)),
			slog.String("code", string(acerr.GetCode(err))),
			slog.String("error", err.Error()),
		)
		finishSpan(span, err)
		return nil, err
	}

	d.metrics.observeRequest(d.method, "ok", elapsed)
	d.logger.DebugContext(ctx, "authentication succeeded",
		slog.String("method", string(d.method)),
		slog.String("user_id", identity.UserID),
		slog.String("org_id", identity.OrgID),
	)
	span.SetAttributes(attribute.String("auth.user_id", identity.UserID))
	return identity, nil
}

// Authenticate extracts credentials from an inbound HTTP request and
// resolves them with the active resolver. On success the returned Identity
// is fully populated; on failure the error is a typed *[acerr.Error] whose
// HTTPStatus() the caller should answer with.
func (d *Dispatcher) Authenticate(ctx context.Context, r *http.Request) (*Identity, error) {
	return d.Resolve(ctx, CredentialsFromRequest(r))
}
