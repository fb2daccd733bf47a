package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/garageline/mechanic-api/services/providers"
)

const defaultEmbeddingModel = "text-embedding-3-small"

// EmbeddingAdapter implements providers.Embedder against the OpenAI
// embeddings API. Every vector it produces lives in the same embedding space
// as the stored corpus, so model and dimension are fixed at construction.
type EmbeddingAdapter struct {
	config     providers.ProviderConfig
	model      string
	dimension  int
	httpClient *http.Client
}

// NewEmbeddingAdapter creates a new OpenAI embeddings adapter
func NewEmbeddingAdapter(config providers.ProviderConfig, model string, dimension int) *EmbeddingAdapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 1 * time.Second
	}
	if model == "" {
		model = defaultEmbeddingModel
	}

	return &EmbeddingAdapter{
		config:    config,
		model:     model,
		dimension: dimension,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name
func (a *EmbeddingAdapter) Name() string {
	return "openai"
}

// Dimension returns the dimensionality of produced vectors
func (a *EmbeddingAdapter) Dimension() int {
	return a.dimension
}

// Embed generates an embedding vector for the given text
func (a *EmbeddingAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, providers.NewProviderError(a.Name(), "EMPTY_INPUT", "Cannot embed empty text", 0, false, nil)
	}

	reqBody, err := json.Marshal(openAIEmbeddingRequest{
		Model: a.model,
		Input: text,
	})
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "MARSHAL_ERROR", "Failed to marshal request", 0, false, err)
	}

	var lastErr error
	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, providers.NewProviderError(a.Name(), "TIMEOUT", "Request cancelled", 0, false, ctx.Err())
			case <-time.After(a.config.RetryDelay * time.Duration(attempt)):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/embeddings", strings.NewReader(string(reqBody)))
		if err != nil {
			return nil, providers.NewProviderError(a.Name(), "REQUEST_ERROR", "Failed to create request", 0, false, err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+a.config.APIKey)

		httpResp, err := a.httpClient.Do(httpReq)
		if err != nil {
			lastErr = err
			continue
		}

		vector, retry, err := a.decodeResponse(httpResp)
		if err != nil && retry && attempt < a.config.MaxRetries {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		return vector, nil
	}

	return nil, providers.NewProviderError(a.Name(), "HTTP_ERROR", "Embedding request failed", 0, true, lastErr)
}

// decodeResponse reads one HTTP response; the second return value reports
// whether the failure is worth retrying.
func (a *EmbeddingAdapter) decodeResponse(resp *http.Response) ([]float32, bool, error) {
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, providers.NewProviderError(a.Name(), "SERVER_ERROR", resp.Status, resp.StatusCode, true, nil)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp openAIErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return nil, false, providers.NewProviderError(a.Name(), "UNKNOWN_ERROR", resp.Status, resp.StatusCode, false, err)
		}
		return nil, false, providers.NewProviderError(a.Name(), errResp.Error.Type, errResp.Error.Message, resp.StatusCode, false, errors.New(errResp.Error.Message))
	}

	var out openAIEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, providers.NewProviderError(a.Name(), "UNMARSHAL_ERROR", "Failed to unmarshal response", resp.StatusCode, false, err)
	}

	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, false, providers.NewProviderError(a.Name(), "EMPTY_RESPONSE", "No embedding returned", resp.StatusCode, false, nil)
	}

	vector := out.Data[0].Embedding
	if a.dimension > 0 && len(vector) != a.dimension {
		return nil, false, providers.NewProviderError(a.Name(), "DIMENSION_MISMATCH", "Embedding dimension does not match corpus", resp.StatusCode, false, nil)
	}

	return vector, false, nil
}

type openAIEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}
