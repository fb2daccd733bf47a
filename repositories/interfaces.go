// Package repositories defines the storage interfaces the services depend
// on. Concrete implementations live in subpackages (postgres); services only
// see these abstractions so tests can substitute fakes.
package repositories

import (
	"context"

	"github.com/garageline/mechanic-api/models"
)

// ConversationRepository persists interaction records and answers
// nearest-neighbor similarity queries over their embeddings.
type ConversationRepository interface {
	// Insert stores one new conversation record. Records are append-only.
	Insert(ctx context.Context, conv *models.Conversation) error

	// MatchByEmbedding returns up to topK records whose embedding cosine
	// similarity to the query vector is at least minSimilarity, ordered by
	// non-increasing similarity. An empty corpus yields an empty slice, not
	// an error.
	MatchByEmbedding(ctx context.Context, embedding []float32, topK int, minSimilarity float64) ([]models.RetrievedCase, error)

	// GetRecent returns the most recently recorded conversations, newest
	// first, without their embeddings.
	GetRecent(ctx context.Context, limit int) ([]*models.Conversation, error)

	// Count returns the corpus size.
	Count(ctx context.Context) (int64, error)

	// PruneOldest deletes the oldest records beyond maxRecords. A
	// maxRecords of zero or less is a no-op (unbounded corpus).
	PruneOldest(ctx context.Context, maxRecords int) (int64, error)
}
