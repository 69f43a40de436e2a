package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/kk-extractor/internal/llm"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "gemini-2.5-flash"}, nil)
}

func TestClient_Generate(t *testing.T) {
	req := llm.GenerateRequest{
		Name:     "kk.pdf",
		Document: []byte("%PDF-1.4 fake"),
		MIMEType: "application/pdf",
		Prompt:   "extract",
		Schema:   llm.BuildRecordJSONSchema(),
	}

	t.Run("Success case - request shape and text joined", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
			assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

			var body generateContentRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Len(t, body.Contents, 1)
			require.Len(t, body.Contents[0].Parts, 2)
			inline := body.Contents[0].Parts[0].InlineData
			require.NotNil(t, inline)
			assert.Equal(t, "application/pdf", inline.MIMEType)
			assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 fake")), inline.Data)
			assert.Equal(t, "extract", body.Contents[0].Parts[1].Text)
			assert.Equal(t, "application/json", body.GenerationConfig.ResponseMIMEType)
			assert.Equal(t, "ARRAY", body.GenerationConfig.ResponseSchema["type"])

			_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"[{\"Nama\":"},{"text":"\"A\"}]"}]},"finishReason":"STOP"}]}`))
		})

		text, err := c.Generate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, `[{"Nama":"A"}]`, text)
	})

	t.Run("Success case - no candidates yields empty text", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		})
		text, err := c.Generate(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, text)
	})

	t.Run("Error case - blocked prompt", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
		})
		_, err := c.Generate(context.Background(), req)
		assert.ErrorContains(t, err, "SAFETY")
	})

	t.Run("Error case - quota exhaustion is a rate limit", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
		})
		_, err := c.Generate(context.Background(), req)
		require.Error(t, err)
		assert.True(t, llm.IsRateLimited(err))
	})

	t.Run("Error case - undecodable body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		})
		_, err := c.Generate(context.Background(), req)
		assert.ErrorContains(t, err, "decode gemini response")
	})
}

func TestToResponseSchema(t *testing.T) {
	out := ToResponseSchema(llm.BuildRecordJSONSchema())
	assert.Equal(t, "ARRAY", out["type"])

	items := out["items"].(map[string]any)
	assert.Equal(t, "OBJECT", items["type"])
	assert.NotNil(t, items["propertyOrdering"])
	assert.NotNil(t, items["required"])

	props := items["properties"].(map[string]any)
	assert.Len(t, props, 17)
	assert.Equal(t, "STRING", props["NIK"].(map[string]any)["type"])

	dropped := ToResponseSchema(map[string]any{"type": "string", "additionalProperties": false, "minLength": 1})
	assert.Equal(t, map[string]any{"type": "STRING"}, dropped)
}
