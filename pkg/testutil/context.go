package testutil

import (
	"net/http"

	"penmatch/pkg/requestcontext"
)

// WithClient adds a client ID and scopes to the request context.
// This simulates what the auth middleware does for authenticated requests.
func WithClient(req *http.Request, clientID string, scopes ...string) *http.Request {
	ctx := requestcontext.WithClientID(req.Context(), clientID)
	ctx = requestcontext.WithScopes(ctx, scopes)
	return req.WithContext(ctx)
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
