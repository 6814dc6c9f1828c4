package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	acerr "github.com/arclight-platform/arclight-core/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for auth spans.
const tracerName = "github.com/arclight-platform/arclight-core/pkg/auth"

// maxTokenSize is the maximum accepted size for a bearer token string
// (8 KB). Larger tokens are rejected to prevent resource exhaustion.
const maxTokenSize = 8192

// supportedAlgorithms lists the only signing algorithms the verifier
// accepts. Anything else — including HMAC methods and "none" — is
// rejected before key lookup to prevent algorithm-substitution attacks.
var supportedAlgorithms = []string{"RS256", "ES256"}

// DefaultUsernameClaim is the claim carrying the display identifier when
// no claim name is configured.
const DefaultUsernameClaim = "preferred_username"

// TokenVerifier validates a signed bearer token against keys from a
// [KeyStore] and standard claims, and maps the token's subject to an
// [Identity]. It implements the [Resolver] interface.
//
// TokenVerifier is safe for concurrent use by multiple goroutines.
type TokenVerifier struct {
	keys          *KeyStore
	issuer        string
	usernameClaim string
	leeway        time.Duration
	tracer        trace.Tracer
}

// Compile-time assertion that TokenVerifier implements Resolver.
var _ Resolver = (*TokenVerifier)(nil)

// NewTokenVerifier creates a TokenVerifier using the given key store.
// If issuer is non-empty, the token's "iss" claim must match it exactly.
// An empty usernameClaim falls back to [DefaultUsernameClaim]. The leeway
// is the tolerated clock skew for time-based claims.
func NewTokenVerifier(keys *KeyStore, issuer, usernameClaim string, leeway time.Duration) *TokenVerifier {
	if usernameClaim == "" {
		usernameClaim = DefaultUsernameClaim
	}
	return &TokenVerifier{
		keys:          keys,
		issuer:        issuer,
		usernameClaim: usernameClaim,
		leeway:        leeway,
		tracer:        otel.Tracer(tracerName),
	}
}

// Resolve verifies the bearer token in creds and returns the Identity it
// represents.
//
// The method performs the following steps:
//  1. Rejects an absent, empty, or oversized token
//  2. Decodes the token header and rejects unsupported algorithms
//  3. Fetches the declared key id from the key store
//  4. Verifies the signature over the header+payload bytes
//  5. Validates expiry and the issuer, and extracts mandatory claims
//
// A signature that fails against the resolved key is
// [acerr.CodeSignatureInvalid] and never triggers a speculative key
// refetch — a forged signature is not grounds for a cache refresh.
func (v *TokenVerifier) Resolve(ctx context.Context, creds Credentials) (*Identity, error) {
	ctx, span := v.tracer.Start(ctx, "auth.TokenVerifier.Resolve")
	defer span.End()

	tokenStr := creds.BearerToken
	if tokenStr == "" {
		err := acerr.CredentialMissing("Missing bearer token")
		finishSpan(span, err)
		return nil, err
	}
	if len(tokenStr) > maxTokenSize {
		err := acerr.New(acerr.CodeMalformedToken, "token exceeds maximum size")
		finishSpan(span, err)
		return nil, err
	}

	// Inspect the header without verification to reject unsupported
	// algorithms before any key lookup.
	parser := jwt.NewParser()
	unverified, _, err := parser.ParseUnverified(tokenStr, jwt.MapClaims{})
	if err != nil || unverified == nil {
		parseErr := acerr.New(acerr.CodeMalformedToken, "token is malformed")
		finishSpan(span, parseErr)
		return nil, parseErr
	}

	algStr, _ := unverified.Header["alg"].(string)
	if !isSupportedAlgorithm(algStr) {
		err := acerr.Newf(acerr.CodeMalformedToken, "unsupported signing algorithm %q", algStr)
		finishSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("auth.token_alg", algStr))

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(supportedAlgorithms),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, acerr.New(acerr.CodeMalformedToken, "token header missing key id")
		}
		return v.keys.Key(ctx, kid)
	}, parserOpts...)
	if err != nil {
		classified := classifyTokenError(err)
		finishSpan(span, classified)
		return nil, classified
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		err := acerr.New(acerr.CodeMalformedToken, "unable to extract token claims")
		finishSpan(span, err)
		return nil, err
	}

	sub, _ := mc["sub"].(string)
	if err := requireClaim(sub, "sub"); err != nil {
		finishSpan(span, err)
		return nil, err
	}
	iss, _ := mc["iss"].(string)
	if err := requireClaim(iss, "iss"); err != nil {
		finishSpan(span, err)
		return nil, err
	}
	username, _ := mc[v.usernameClaim].(string)
	if err := requireClaim(username, v.usernameClaim); err != nil {
		finishSpan(span, err)
		return nil, err
	}
	orgID, _ := mc["org_id"].(string)

	span.SetAttributes(attribute.String("auth.user_id", sub))

	return &Identity{
		UserID:          sub,
		Username:        username,
		OrgID:           orgID,
		SkipUserIDCheck: false,
		Token:           Secret(tokenStr),
	}, nil
}

// isSupportedAlgorithm reports whether alg is one of the accepted signing
// algorithms, case-insensitively.
func isSupportedAlgorithm(alg string) bool {
	for _, supported := range supportedAlgorithms {
		if strings.EqualFold(alg, supported) {
			return true
		}
	}
	return false
}

// classifyTokenError converts a JWT library error or other error to an
// appropriate *acerr.Error. Errors that are already typed (e.g., a
// key-unavailable failure surfaced through the keyfunc) pass through
// unchanged.
func classifyTokenError(err error) *acerr.Error {
	if err == nil {
		return nil
	}

	var typed *acerr.Error
	if errors.As(err, &typed) {
		return typed
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return acerr.Wrap(err, acerr.CodeTokenExpired, "token has expired")
	}
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return acerr.Wrap(err, acerr.CodeSignatureInvalid, "token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenNotValidYet) {
		return acerr.Wrap(err, acerr.CodeMalformedToken, "token is not yet valid")
	}
	if errors.Is(err, jwt.ErrTokenInvalidIssuer) {
		return acerr.Wrap(err, acerr.CodeMalformedToken, "token issuer is invalid")
	}
	if errors.Is(err, jwt.ErrTokenMalformed) {
		return acerr.Wrap(err, acerr.CodeMalformedToken, "token is malformed")
	}

	return acerr.Wrap(err, acerr.CodeMalformedToken, "token validation failed")
}

// finishSpan records an error on the span if err is non-nil and sets the
// span status to Error. This is a helper for consistent error recording
// across resolvers.
func finishSpan(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
