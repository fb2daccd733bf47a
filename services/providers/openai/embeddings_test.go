package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/garageline/mechanic-api/services/providers"
)

func embeddingOK(vector []float32) map[string]interface{} {
	return map[string]interface{}{
		"data": []map[string]interface{}{
			{"embedding": vector},
		},
	}
}

func TestEmbeddingAdapter_Embed(t *testing.T) {
	ctx := context.Background()

	t.Run("successful embedding", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/embeddings", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req openAIEmbeddingRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "text-embedding-3-small", req.Model)
			assert.Equal(t, "engine knocks", req.Input)

			_ = json.NewEncoder(w).Encode(embeddingOK([]float32{0.1, 0.2, 0.3}))
		}))
		defer server.Close()

		adapter := NewEmbeddingAdapter(testConfig(server.URL), "text-embedding-3-small", 3)
		vector, err := adapter.Embed(ctx, "engine knocks")

		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
	})

	t.Run("empty input rejected without a request", func(t *testing.T) {
		adapter := NewEmbeddingAdapter(testConfig("http://127.0.0.1:0"), "", 3)
		_, err := adapter.Embed(ctx, "")

		require.Error(t, err)
		var provErr *providers.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, "EMPTY_INPUT", provErr.Code)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_ = json.NewEncoder(w).Encode(embeddingOK([]float32{0.5}))
		}))
		defer server.Close()

		adapter := NewEmbeddingAdapter(testConfig(server.URL), "", 1)
		vector, err := adapter.Embed(ctx, "q")

		require.NoError(t, err)
		assert.Equal(t, []float32{0.5}, vector)
		assert.Equal(t, 2, attempts)
	})

	t.Run("client error is not retried", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(openAIErrorResponse{
				Error: openAIError{Message: "bad key", Type: "invalid_api_key"},
			})
		}))
		defer server.Close()

		adapter := NewEmbeddingAdapter(testConfig(server.URL), "", 1)
		_, err := adapter.Embed(ctx, "q")

		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("dimension mismatch rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(embeddingOK([]float32{0.1, 0.2}))
		}))
		defer server.Close()

		adapter := NewEmbeddingAdapter(testConfig(server.URL), "", 1536)
		_, err := adapter.Embed(ctx, "q")

		require.Error(t, err)
		var provErr *providers.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, "DIMENSION_MISMATCH", provErr.Code)
	})

	t.Run("empty vector rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
		}))
		defer server.Close()

		adapter := NewEmbeddingAdapter(testConfig(server.URL), "", 3)
		_, err := adapter.Embed(ctx, "q")

		require.Error(t, err)
		var provErr *providers.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, "EMPTY_RESPONSE", provErr.Code)
	})

	t.Run("dimension accessor", func(t *testing.T) {
		adapter := NewEmbeddingAdapter(testConfig("http://localhost"), "", 1536)
		assert.Equal(t, 1536, adapter.Dimension())
	})
}
