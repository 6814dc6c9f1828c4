package auth

import (
	"encoding/json"
	"net/http"

	acerr "github.com/arclight-platform/arclight-core/pkg/errors"
)

// errorBody is the JSON shape returned on an authentication failure. The
// single "detail" field carries the error message and is part of the
// layer's tested surface (clients match on it).
type errorBody struct {
	Detail string `json:"detail"`
}

// Middleware returns HTTP middleware that authenticates every request
// through the dispatcher before it reaches the handler. On success the
// resolved Identity is attached to the request context; on failure the
// response status comes from the typed error's HTTPStatus() and the body
// is a JSON object with a "detail" message, e.g.:
//
//	{"detail": "Missing x-rh-identity header"}
//
// Usage:
//
//	dispatcher, err := auth.NewDispatcher(cfg, nil)
//	...
//	mux.Handle("/api/", auth.Middleware(dispatcher)(apiHandler))
func Middleware(d *Dispatcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := d.Authenticate(r.Context(), r)
			if err != nil {
				writeAuthError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

// writeAuthError renders a resolution failure as an HTTP response. Typed
// errors map through their category to a status code; anything untyped is
// an internal error.
func writeAuthError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	detail := "internal error"
	if typed, ok := acerr.AsError(err); ok {
		status = typed.HTTPStatus()
		detail = typed.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Detail: detail})
}
