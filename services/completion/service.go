// Package completion invokes the chat model with an assembled prompt. It is
// the one pipeline dependency whose failure is fatal to the request.
package completion

import (
	"context"
	"errors"
	"strings"

	"github.com/garageline/mechanic-api/services"
	"github.com/garageline/mechanic-api/services/prompting"
	"github.com/garageline/mechanic-api/services/providers"
	"go.uber.org/zap"
)

// Config fixes the generation parameters per deployment.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Service wraps a ChatProvider and maps its failures onto the domain error
// taxonomy.
type Service struct {
	provider providers.ChatProvider
	config   Config
	logger   *zap.Logger
}

// NewService creates a completion service
func NewService(provider providers.ChatProvider, config Config, logger *zap.Logger) *Service {
	return &Service{
		provider: provider,
		config:   config,
		logger:   logger,
	}
}

// Complete generates an answer for the assembled prompt. Output truncated at
// MaxTokens is expected model behavior and returned as-is.
func (s *Service) Complete(ctx context.Context, prompt prompting.Prompt) (string, error) {
	req := &providers.ChatRequest{
		Model:       s.config.Model,
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
		Messages: []providers.Message{
			{Role: "system", Content: prompt.System},
			{Role: "system", Content: prompt.Context},
			{Role: "user", Content: prompt.UserQuery},
		},
	}

	resp, err := s.provider.ChatCompletion(ctx, req)
	if err != nil {
		if providers.IsContextLengthError(err) {
			return "", services.WrapExternal(services.ErrPromptTooLarge.Message, err)
		}
		var provErr *providers.ProviderError
		if errors.As(err, &provErr) {
			s.logger.Error("completion request failed",
				zap.String("provider", provErr.Provider),
				zap.String("code", provErr.Code),
				zap.Int("status", provErr.StatusCode))
		}
		return "", services.WrapExternal(services.ErrCompletionUnavailable.Message, err)
	}

	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		return "", services.WrapExternal(services.ErrCompletionUnavailable.Message, errors.New("model returned empty completion"))
	}

	s.logger.Debug("completion generated",
		zap.String("model", resp.Model),
		zap.String("finish_reason", resp.FinishReason),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("latency", resp.Latency))
	return answer, nil
}
