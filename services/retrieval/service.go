// Package retrieval implements the similarity search over the corpus of past
// diagnoses. Retrieval feeds optional context enrichment only: every failure
// here maps to a degraded outcome the pipeline survives.
package retrieval

import (
	"context"

	"github.com/garageline/mechanic-api/models"
	"github.com/garageline/mechanic-api/repositories"
	"github.com/garageline/mechanic-api/services"
	"go.uber.org/zap"
)

// Config holds the retrieval tunables. Observed deployments differ on these
// values, so they are configuration rather than constants.
type Config struct {
	TopK          int
	MinSimilarity float64
}

// Service retrieves prior cases similar to a query embedding.
type Service struct {
	repo   repositories.ConversationRepository
	config Config
	logger *zap.Logger
}

// NewService creates a retrieval service. A nil repository is allowed and
// marks the store as absent; every retrieval then reports unavailable.
func NewService(repo repositories.ConversationRepository, config Config, logger *zap.Logger) *Service {
	if config.TopK <= 0 {
		config.TopK = 3
	}
	return &Service{
		repo:   repo,
		config: config,
		logger: logger,
	}
}

// TopK returns the configured result bound.
func (s *Service) TopK() int {
	return s.config.TopK
}

// Retrieve returns up to TopK cases with similarity >= MinSimilarity, ordered
// by non-increasing similarity. A nil or empty embedding is a normal
// degenerate input and yields an empty result, not an error.
func (s *Service) Retrieve(ctx context.Context, embedding []float32) ([]models.RetrievedCase, error) {
	if len(embedding) == 0 {
		return []models.RetrievedCase{}, nil
	}

	if s.repo == nil {
		return nil, services.ErrRetrievalUnavailable
	}

	cases, err := s.repo.MatchByEmbedding(ctx, embedding, s.config.TopK, s.config.MinSimilarity)
	if err != nil {
		s.logger.Warn("similarity query failed", zap.Error(err))
		return nil, services.WrapDegraded("case retrieval unavailable", err)
	}

	// The store owns ordering and threshold filtering; re-check the bounds
	// here so a misbehaving backend cannot leak extra or below-threshold
	// candidates to the caller.
	filtered := make([]models.RetrievedCase, 0, len(cases))
	for _, c := range cases {
		if c.Similarity < s.config.MinSimilarity {
			continue
		}
		filtered = append(filtered, c)
		if len(filtered) == s.config.TopK {
			break
		}
	}

	s.logger.Debug("retrieved similar cases",
		zap.Int("matches", len(filtered)),
		zap.Float64("min_similarity", s.config.MinSimilarity))
	return filtered, nil
}
