package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"penmatch/pkg/requestcontext"
	"penmatch/pkg/testutil"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (v stubValidator) ValidateToken(string) (*JWTClaims, error) {
	return v.claims, v.err
}

func echoClient() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		_, _ = io.WriteString(w, requestcontext.ClientID(ctx))
		if requestcontext.HasScope(ctx, "READ_PEN_MATCH") {
			_, _ = io.WriteString(w, " scoped")
		}
	})
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	valid := stubValidator{claims: &JWTClaims{ClientID: "sis", Scopes: []string{"READ_PEN_MATCH"}}}

	testutil.Given(t, "a valid bearer token", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/")
		req.Header.Set("Authorization", "Bearer abc")
		rr := testutil.DoRequest(RequireAuth(valid, logger)(echoClient()), req)

		testutil.AssertStatusOK(t, rr)
		assert.Equal(t, "sis scoped", rr.Body.String())
	})

	testutil.Given(t, "no authorization header", func(t *testing.T) {
		rr := testutil.DoRequest(RequireAuth(valid, logger)(echoClient()), testutil.NewRequest(t, http.MethodGet, "/"))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	testutil.Given(t, "a basic auth header", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/")
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rr := testutil.DoRequest(RequireAuth(valid, logger)(echoClient()), req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	testutil.Given(t, "a token the validator rejects", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/")
		req.Header.Set("Authorization", "Bearer expired")
		rr := testutil.DoRequest(RequireAuth(stubValidator{err: errors.New("expired")}, logger)(echoClient()), req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})
}

func TestAnonymous(t *testing.T) {
	rr := httptest.NewRecorder()
	Anonymous("READ_PEN_MATCH")(echoClient()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "anonymous scoped", rr.Body.String())
}
