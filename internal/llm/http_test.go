package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendJSON(t *testing.T) {
	t.Run("Success case - body and headers forwarded", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		raw, code, err := SendJSON(context.Background(), srv.Client(), srv.URL, map[string]any{"a": 1},
			map[string]string{"x-goog-api-key": "secret"}, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `{"ok":true}`, string(raw))
	})

	t.Run("Error case - google error envelope becomes StatusError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
		}))
		defer srv.Close()

		_, code, err := SendJSON(context.Background(), srv.Client(), srv.URL, map[string]any{}, nil, nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusTooManyRequests, code)

		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, "RESOURCE_EXHAUSTED", se.Status)
		assert.Equal(t, "Quota exceeded", se.Message)
		assert.True(t, IsRateLimited(err))
	})

	t.Run("Error case - plain 500 body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "oops", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, _, err := SendJSON(context.Background(), srv.Client(), srv.URL, map[string]any{}, nil, nil)
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, 500, se.Code)
		assert.False(t, IsRateLimited(err))
	})
}
