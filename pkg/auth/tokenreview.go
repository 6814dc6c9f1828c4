package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	acerr "github.com/arclight-platform/arclight-core/pkg/errors"
)

const (
	// DefaultServiceAccountTokenPath is the standard Kubernetes mount path
	// for the pod's own ServiceAccount token, used as the privileged
	// credential for token-review calls.
	DefaultServiceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

	// DefaultReviewTimeout bounds a single token-review call so a hung
	// cluster authority degrades to authority-unavailable rather than
	// blocking the calling request indefinitely.
	DefaultReviewTimeout = 5 * time.Second
)

// ReadServiceAccountToken reads the pod's ServiceAccount token from the
// filesystem at the given path. If path is empty,
// [DefaultServiceAccountTokenPath] is used.
//
// The token is trimmed of surrounding whitespace. Returns an error if the
// file does not exist, cannot be read, or is empty after trimming.
func ReadServiceAccountToken(path string) (Secret, error) {
	if path == "" {
		path = DefaultServiceAccountTokenPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read service account token from %s: %w", path, err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("service account token file %s is empty", path)
	}

	return Secret(token), nil
}

// tokenReviewRequest is the body presented to the cluster authority's
// token-review endpoint. The caller's token travels as data in the spec;
// it is never the call's own authentication.
type tokenReviewRequest struct {
	APIVersion string              `json:"apiVersion"`
	Kind       string              `json:"kind"`
	Spec       tokenReviewSpecBody `json:"spec"`
}

type tokenReviewSpecBody struct {
	Token string `json:"token"`
}

// tokenReviewResponse is the authority's verdict.
type tokenReviewResponse struct {
	Status struct {
		Authenticated bool   `json:"authenticated"`
		Error         string `json:"error,omitempty"`
		User          struct {
			Username string   `json:"username"`
			UID      string   `json:"uid"`
			Groups   []string `json:"groups"`
		} `json:"user"`
	} `json:"status"`
}

// ClusterReviewer validates an opaque bearer token by delegating to the
// cluster authority's token-review endpoint, using the service's own
// privileged credential to make the call. It implements the [Resolver]
// interface.
//
// The two failure modes are deliberately distinct: a token the authority
// rejects is [acerr.CodeUnauthenticated]; a review call that could not be
// completed (network error, timeout, 5xx) is
// [acerr.CodeAuthorityUnavailable] so the dispatcher can answer
// service-unavailable rather than unauthorized.
//
// ClusterReviewer is safe for concurrent use by multiple goroutines.
type ClusterReviewer struct {
	endpoint   string
	credential Secret
	client     HTTPClient
	timeout    time.Duration
	tracer     trace.Tracer
}

// Compile-time assertion that ClusterReviewer implements Resolver.
var _ Resolver = (*ClusterReviewer)(nil)

// NewClusterReviewer creates a ClusterReviewer for the given token-review
// endpoint (e.g. "https://kubernetes.default.svc/apis/authentication.k8s.io/v1/tokenreviews").
// The credential is the service's own privileged bearer token. A
// non-positive timeout falls back to [DefaultReviewTimeout]; a nil client
// falls back to a default [http.Client].
func NewClusterReviewer(endpoint string, credential Secret, timeout time.Duration, client HTTPClient) *ClusterReviewer {
	if timeout <= 0 {
		timeout = DefaultReviewTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &ClusterReviewer{
		endpoint:   endpoint,
		credential: credential,
		client:     client,
		timeout:    timeout,
		tracer:     otel.Tracer(tracerName),
	}
}

// Resolve presents the caller's opaque token to the cluster authority and
// maps the verdict to an Identity. Cluster identities have no separate
// display name, so the authenticated subject becomes both UserID and
// Username.
func (r *ClusterReviewer) Resolve(ctx context.Context, creds Credentials) (*Identity, error) {
	ctx, span := r.tracer.Start(ctx, "auth.ClusterReviewer.Resolve")
	defer span.End()

	if creds.BearerToken == "" {
		err := acerr.CredentialMissing("Missing bearer token")
		finishSpan(span, err)
		return nil, err
	}

	review, err := r.review(ctx, creds.BearerToken)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}

	if !review.Status.Authenticated {
		err := acerr.Unauthenticated("token rejected by cluster authority")
		finishSpan(span, err)
		return nil, err
	}

	subject := review.Status.User.Username
	if subject == "" {
		err := acerr.Unauthenticated("cluster authority returned no subject")
		finishSpan(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("auth.user_id", subject),
		attribute.Int("auth.group_count", len(review.Status.User.Groups)),
	)

	return &Identity{
		UserID:          subject,
		Username:        subject,
		SkipUserIDCheck: false,
		Token:           Secret(creds.BearerToken),
	}, nil
}

// review performs the bounded outbound call to the token-review endpoint.
// Every failure to complete the call — transport error, timeout, non-2xx
// response, unparsable body — is authority-unavailable, never a statement
// about the caller.
func (r *ClusterReviewer) review(ctx context.Context, token string) (*tokenReviewResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	payload, err := json.Marshal(tokenReviewRequest{
		APIVersion: "authentication.k8s.io/v1",
		Kind:       "TokenReview",
		Spec:       tokenReviewSpecBody{Token: token},
	})
	if err != nil {
		return nil, acerr.Wrap(err, acerr.CodeInternal, "failed to encode token review request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, acerr.Wrap(err, acerr.CodeInternal, "failed to create token review request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderAuthorization, bearerPrefix+r.credential.Value())

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, acerr.Wrap(err, acerr.CodeAuthorityUnavailable,
			"token review call failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, acerr.Newf(acerr.CodeAuthorityUnavailable,
			"token review endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, acerr.Wrap(err, acerr.CodeAuthorityUnavailable,
			"failed to read token review response")
	}

	var review tokenReviewResponse
	if err := json.Unmarshal(body, &review); err != nil {
		return nil, acerr.Wrap(err, acerr.CodeAuthorityUnavailable,
			"failed to parse token review response")
	}

	return &review, nil
}
