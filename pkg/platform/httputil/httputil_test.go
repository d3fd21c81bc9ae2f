package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "penmatch/pkg/domain-errors"
)

type probeRequest struct {
	Surname string `json:"surname"`
}

func (p *probeRequest) Validate() error {
	p.Surname = strings.TrimSpace(p.Surname)
	if p.Surname == "" {
		return dErrors.Validation("surname is required")
	}
	return nil
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Wrap(errors.New("pq: connection refused"), dErrors.CodeInternal, "db failed"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "internal_error", body.Error)
		assert.Empty(t, body.ErrorDescription)
	})

	t.Run("validation failure includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Validation("date_of_birth is not a valid date"))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "validation_error", body.Error)
		assert.Equal(t, "date_of_birth is not a valid date", body.ErrorDescription)
	})

	t.Run("lookup failure asks the caller to retry", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Lookup(errors.New("dial tcp: timeout"), "registry unavailable"))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
	})

	t.Run("plain errors are internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestStatusFor(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeBadRequest:    http.StatusBadRequest,
		dErrors.CodeValidation:    http.StatusUnprocessableEntity,
		dErrors.CodeUnauthorized:  http.StatusUnauthorized,
		dErrors.CodeForbidden:     http.StatusForbidden,
		dErrors.CodeNotFound:      http.StatusNotFound,
		dErrors.CodeLookupFailure: http.StatusServiceUnavailable,
		dErrors.CodeTimeout:       http.StatusGatewayTimeout,
		dErrors.CodeConfiguration: http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, StatusFor(code), string(code))
	}
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	decode := func(body string) (*probeRequest, *httptest.ResponseRecorder, bool) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		w := httptest.NewRecorder()
		req, ok := DecodeAndPrepare[probeRequest](w, r, logger, r.Context(), "req-1")
		return req, w, ok
	}

	t.Run("valid body is decoded and prepared", func(t *testing.T) {
		req, _, ok := decode(`{"surname": "  Smith "}`)
		require.True(t, ok)
		assert.Equal(t, "Smith", req.Surname)
	})

	t.Run("empty body is a bad request", func(t *testing.T) {
		_, w, ok := decode("")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		_, w, ok := decode(`{"surname": "Smith", "sin": "123"}`)
		assert.False(t, ok)
		assert.Equal(t, "bad_request", decodeError(t, w).Error)
	})

	t.Run("validation failure is unprocessable", func(t *testing.T) {
		_, w, ok := decode(`{"surname": " "}`)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
