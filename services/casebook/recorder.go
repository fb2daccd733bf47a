// Package casebook writes finished diagnoses back into the corpus so future
// retrievals can use them. Recording is best-effort: by the time it runs the
// caller already has their answer, so every failure is logged and swallowed.
package casebook

import (
	"context"

	"github.com/garageline/mechanic-api/models"
	"github.com/garageline/mechanic-api/repositories"
	"github.com/garageline/mechanic-api/services"
	"github.com/garageline/mechanic-api/services/providers"
	"go.uber.org/zap"
)

// Config holds the corpus growth policy.
type Config struct {
	// MaxRecords caps the corpus; 0 means unbounded growth.
	MaxRecords int
}

// Recorder persists new interaction records.
type Recorder struct {
	repo     repositories.ConversationRepository
	embedder providers.Embedder
	config   Config
	logger   *zap.Logger
}

// NewRecorder creates a casebook recorder. A nil repository marks the store
// as absent; recording then degrades to a no-op.
func NewRecorder(repo repositories.ConversationRepository, embedder providers.Embedder, config Config, logger *zap.Logger) *Recorder {
	return &Recorder{
		repo:     repo,
		embedder: embedder,
		config:   config,
		logger:   logger,
	}
}

// Record embeds the query and inserts one conversation record. The query is
// re-embedded here rather than reusing the retrieval-time vector: the two
// calls are independent, and recording must work even when retrieval was
// skipped. The returned error is informational; callers never fail a request
// on it.
func (r *Recorder) Record(ctx context.Context, query, answer, category string) error {
	if r.repo == nil {
		r.logger.Debug("case persistence skipped, no store configured")
		return services.ErrPersistenceUnavailable
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("failed to embed query for persistence", zap.Error(err))
		return services.WrapDegraded("case persistence unavailable", err)
	}

	conv := models.NewConversation(query, answer, category, embedding)
	if err := r.repo.Insert(ctx, conv); err != nil {
		r.logger.Warn("failed to persist conversation", zap.Error(err))
		return services.WrapDegraded("case persistence unavailable", err)
	}

	r.logger.Info("conversation recorded",
		zap.String("id", conv.ID.String()),
		zap.String("category", conv.Category))

	// Retention is enforced after the insert so the new record always
	// survives its own request.
	if r.config.MaxRecords > 0 {
		if _, err := r.repo.PruneOldest(ctx, r.config.MaxRecords); err != nil {
			r.logger.Warn("failed to prune corpus", zap.Error(err))
		}
	}

	return nil
}
