package postgres

import (
	"context"
	"fmt"

	"github.com/garageline/mechanic-api/models"
	"github.com/garageline/mechanic-api/repositories"
	"go.uber.org/zap"
)

// ConversationRepository implements repositories.ConversationRepository on
// Postgres with the pgvector extension. Cosine similarity is derived from
// pgvector's cosine distance operator: similarity = 1 - (a <=> b).
type ConversationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *DB, logger *zap.Logger) repositories.ConversationRepository {
	return &ConversationRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new conversation record
func (r *ConversationRepository) Insert(ctx context.Context, conv *models.Conversation) error {
	query := `
		INSERT INTO conversations (id, prompt, response, category, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5::vector, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		conv.ID,
		conv.Prompt,
		conv.Response,
		conv.Category,
		formatVector(conv.Embedding),
		conv.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}

	r.logger.Debug("conversation inserted",
		zap.String("id", conv.ID.String()),
		zap.String("category", conv.Category))
	return nil
}

// MatchByEmbedding runs the nearest-neighbor similarity query. Ordering is by
// ascending cosine distance (descending similarity); ties fall to backend
// order, which is stable but not specified.
func (r *ConversationRepository) MatchByEmbedding(ctx context.Context, embedding []float32, topK int, minSimilarity float64) ([]models.RetrievedCase, error) {
	if len(embedding) == 0 {
		return []models.RetrievedCase{}, nil
	}
	if topK <= 0 {
		topK = 3
	}

	query := `
		SELECT prompt, response, 1 - (embedding <=> $1::vector) AS similarity
		FROM conversations
		WHERE 1 - (embedding <=> $1::vector) >= $2
		ORDER BY embedding <=> $1::vector
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, formatVector(embedding), minSimilarity, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar conversations: %w", err)
	}
	defer rows.Close()

	cases := make([]models.RetrievedCase, 0, topK)
	for rows.Next() {
		var c models.RetrievedCase
		if err := rows.Scan(&c.Prompt, &c.Response, &c.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan retrieved case: %w", err)
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate retrieved cases: %w", err)
	}

	return cases, nil
}

// GetRecent retrieves the most recently recorded conversations, newest first
func (r *ConversationRepository) GetRecent(ctx context.Context, limit int) ([]*models.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, prompt, response, category, created_at
		FROM conversations
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent conversations: %w", err)
	}
	defer rows.Close()

	convs := make([]*models.Conversation, 0, limit)
	for rows.Next() {
		conv := &models.Conversation{}
		if err := rows.Scan(&conv.ID, &conv.Prompt, &conv.Response, &conv.Category, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}

	return convs, nil
}

// Count returns the corpus size
func (r *ConversationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	return count, nil
}

// PruneOldest deletes the oldest records beyond maxRecords
func (r *ConversationRepository) PruneOldest(ctx context.Context, maxRecords int) (int64, error) {
	if maxRecords <= 0 {
		return 0, nil
	}

	query := `
		DELETE FROM conversations
		WHERE id IN (
			SELECT id FROM conversations
			ORDER BY created_at DESC
			OFFSET $1
		)
	`

	result, err := r.db.ExecContext(ctx, query, maxRecords)
	if err != nil {
		return 0, fmt.Errorf("failed to prune conversations: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read pruned row count: %w", err)
	}

	if deleted > 0 {
		r.logger.Info("pruned oldest conversations",
			zap.Int64("deleted", deleted),
			zap.Int("max_records", maxRecords))
	}
	return deleted, nil
}
