package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	acerr "github.com/arclight-platform/arclight-core/pkg/errors"
)

// HTTPClient abstracts the HTTP client used for outbound trust-authority
// calls (key-set fetch, cluster token review). This allows callers to
// provide custom clients with specific timeouts, transport settings, or
// middleware (mTLS, proxies, request tracing).
//
// The standard [http.Client] satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultKeySetTTL is the default maximum age of a fetched key set before
// a refresh is attempted.
const DefaultKeySetTTL = 10 * time.Minute

// defaultFetchTimeout bounds a single outbound key-set fetch so a hung
// endpoint degrades to a key-unavailable error rather than blocking the
// calling request indefinitely.
const defaultFetchTimeout = 10 * time.Second

// keySet is one immutable fetched key collection. Replacement is a
// whole-set pointer swap, never an in-place edit, so concurrent readers
// are safe without per-key locking.
type keySet struct {
	keys      map[string]any // kid -> *rsa.PublicKey or *ecdsa.PublicKey
	fetchedAt time.Time
}

// KeyStore fetches and caches asymmetric verification keys from a remote
// key-set (JWKS) endpoint. It is process-wide state with an explicit
// lifecycle: populated lazily on first miss, replaced on TTL expiry or
// verification-time key-id miss, never torn down before process shutdown.
//
// Concurrent callers that miss simultaneously coalesce into a single
// in-flight fetch; the second and subsequent callers await the first's
// result rather than issuing duplicate network calls. A fetch that fails
// leaves the previous cache contents in place — stale-but-available is
// preferred over hard failure.
//
// KeyStore is safe for concurrent use by multiple goroutines.
type KeyStore struct {
	url          string
	ttl          time.Duration
	fetchTimeout time.Duration
	client       HTTPClient
	metrics      *Metrics

	mu      sync.RWMutex
	current *keySet // nil until first successful fetch

	group singleflight.Group
}

// NewKeyStore creates a KeyStore for the given key-set endpoint URL.
// A non-positive ttl falls back to [DefaultKeySetTTL]. If client is nil,
// a default [http.Client] with a 10-second timeout is used.
func NewKeyStore(url string, ttl time.Duration, client HTTPClient) *KeyStore {
	if ttl <= 0 {
		ttl = DefaultKeySetTTL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &KeyStore{
		url:          url,
		ttl:          ttl,
		fetchTimeout: defaultFetchTimeout,
		client:       client,
	}
}

// WithMetrics attaches a Metrics instance that counts outbound fetches.
// Returns the KeyStore for fluent chaining.
func (s *KeyStore) WithMetrics(m *Metrics) *KeyStore {
	s.metrics = m
	return s
}

// Key returns the verification key with the given key id, fetching or
// refreshing the key set as needed. It fails with
// [acerr.CodeKeyUnavailable] when the key cannot be obtained and no
// usable cached key exists.
//
// A key id absent from a fresh (non-expired) set triggers exactly one
// refresh to handle key rotation. Callers must not invoke Key again after
// a signature verification failure — a forged signature is not grounds
// for a cache refresh.
func (s *KeyStore) Key(ctx context.Context, kid string) (any, error) {
	s.mu.RLock()
	cached := s.current
	s.mu.RUnlock()

	if cached != nil && time.Since(cached.fetchedAt) < s.ttl {
		if key, ok := cached.keys[kid]; ok {
			return key, nil
		}
		// Kid not in a fresh set — may be a key rotation; refresh once.
	}

	fresh, err := s.refresh(ctx, cached)
	if err != nil {
		// The refresh failed. Serve a stale key if one exists for this kid;
		// surface key-unavailable only when nothing cached can answer.
		if cached != nil {
			if key, ok := cached.keys[kid]; ok {
				return key, nil
			}
		}
		return nil, err
	}

	key, ok := fresh.keys[kid]
	if !ok {
		return nil, acerr.Newf(acerr.CodeKeyUnavailable,
			"key %q not found in key set", kid).WithDetail("kid", kid)
	}
	return key, nil
}

// refresh performs the deduplicated fetch-and-swap. The prev parameter is
// the set the caller observed; if another waiter already swapped in a
// newer set, that set is returned without a network call.
//
// The fetch itself runs on a context detached from the caller's
// cancellation: an in-flight fetch shared with other waiters must not be
// cancelled on one waiter's behalf. The calling request can still abandon
// its own wait when its context is cancelled.
func (s *KeyStore) refresh(ctx context.Context, prev *keySet) (*keySet, error) {
	ch := s.group.DoChan("keyset", func() (any, error) {
		// Re-check: a fetch completed between the caller's miss and now.
		s.mu.RLock()
		current := s.current
		s.mu.RUnlock()
		if current != prev && current != nil && time.Since(current.fetchedAt) < s.ttl {
			return current, nil
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()

		keys, err := s.fetch(fetchCtx)
		if err != nil {
			s.metrics.observeKeySetFetch("error")
			return nil, acerr.Wrap(err, acerr.CodeKeyUnavailable,
				"failed to fetch key set")
		}
		s.metrics.observeKeySetFetch("ok")

		fresh := &keySet{keys: keys, fetchedAt: time.Now()}
		s.mu.Lock()
		s.current = fresh
		s.mu.Unlock()
		return fresh, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*keySet), nil
	case <-ctx.Done():
		// Abandon this request's wait; the shared fetch continues for the
		// remaining waiters.
		return nil, acerr.Wrap(ctx.Err(), acerr.CodeTimeout,
			"abandoned key set fetch: request cancelled")
	}
}

// fetch performs the outbound GET to the key-set endpoint and parses the
// returned key collection. A transport-level failure is retried once;
// malformed responses are not.
func (s *KeyStore) fetch(ctx context.Context) (map[string]any, error) {
	resp, err := s.doGet(ctx)
	if err != nil {
		// One retry for transient network failures.
		resp, err = s.doGet(ctx)
		if err != nil {
			return nil, fmt.Errorf("key set request failed: %w", err)
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("key set endpoint returned status %d", resp.StatusCode)
	}

	// Limit response body to 1 MB.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read key set response: %w", err)
	}

	var doc jwksResponse
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse key set JSON: %w", err)
	}

	keys := make(map[string]any, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kid == "" {
			continue
		}
		switch k.Kty {
		case "RSA":
			pubKey, err := parseRSAPublicKey(k.N, k.E)
			if err != nil {
				continue // Skip malformed keys.
			}
			keys[k.Kid] = pubKey
		case "EC":
			pubKey, err := parseECPublicKey(k.Crv, k.X, k.Y)
			if err != nil {
				continue // Skip malformed keys.
			}
			keys[k.Kid] = pubKey
		}
	}
	return keys, nil
}

func (s *KeyStore) doGet(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create key set request: %w", err)
	}
	return s.client.Do(req)
}

// jwksResponse represents the JSON structure of a key-set endpoint response.
type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

// jwkKey represents a single key in a key-set response. Only the fields
// needed for RSA and EC key reconstruction are included.
type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	// RSA fields
	N string `json:"n"`
	E string `json:"e"`
	// EC fields
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// parseRSAPublicKey constructs an *rsa.PublicKey from base64url-encoded
// modulus (n) and exponent (e) values.
func parseRSAPublicKey(nBase64, eBase64 string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode RSA modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode RSA exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{
		N: n,
		E: int(e.Int64()),
	}, nil
}

// parseECPublicKey constructs an *ecdsa.PublicKey from a curve name and
// base64url-encoded x and y coordinates.
func parseECPublicKey(crv, xBase64, yBase64 string) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("unsupported EC curve %q", crv)
	}

	xBytes, err := base64.RawURLEncoding.DecodeString(xBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode EC x coordinate: %w", err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(yBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode EC y coordinate: %w", err)
	}

	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}
