package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/garageline/mechanic-api/models"
	"go.uber.org/zap"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return &DB{DB: sqlDB, logger: zap.NewNop()}, mock
}

func TestConversationRepository_Insert(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts record with vector literal", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewConversationRepository(db, zap.NewNop())

		conv := &models.Conversation{
			ID:        uuid.New(),
			Prompt:    "engine knocks",
			Response:  "check bearings",
			Category:  "engine",
			Embedding: []float32{0.1, 0.2, 0.3},
			CreatedAt: time.Now(),
		}

		mock.ExpectExec("INSERT INTO conversations").
			WithArgs(conv.ID, conv.Prompt, conv.Response, conv.Category, "[0.1,0.2,0.3]", conv.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Insert(ctx, conv)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates database error", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewConversationRepository(db, zap.NewNop())

		mock.ExpectExec("INSERT INTO conversations").
			WillReturnError(errors.New("connection reset"))

		err := repo.Insert(ctx, &models.Conversation{ID: uuid.New(), Embedding: []float32{0.1}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert conversation")
	})
}

func TestConversationRepository_MatchByEmbedding(t *testing.T) {
	ctx := context.Background()
	embedding := []float32{0.1, 0.2, 0.3}

	t.Run("returns matches with similarity", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewConversationRepository(db, zap.NewNop())

		rows := sqlmock.NewRows([]string{"prompt", "response", "similarity"}).
			AddRow("engine knocks at idle", "check rod bearings", 0.91).
			AddRow("ticking from engine", "check valve lash", 0.74)

		mock.ExpectQuery("SELECT prompt, response, 1 - \\(embedding <=> \\$1::vector\\) AS similarity").
			WithArgs("[0.1,0.2,0.3]", 0.5, 3).
			WillReturnRows(rows)

		cases, err := repo.MatchByEmbedding(ctx, embedding, 3, 0.5)
		require.NoError(t, err)
		require.Len(t, cases, 2)
		assert.Equal(t, "engine knocks at idle", cases[0].Prompt)
		assert.Equal(t, 0.91, cases[0].Similarity)
		assert.Equal(t, 0.74, cases[1].Similarity)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty corpus yields empty slice", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewConversationRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT prompt, response").
			WillReturnRows(sqlmock.NewRows([]string{"prompt", "response", "similarity"}))

		cases, err := repo.MatchByEmbedding(ctx, embedding, 3, 0.5)
		require.NoError(t, err)
		assert.NotNil(t, cases)
		assert.Empty(t, cases)
	})

	t.Run("empty embedding skips the query", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewConversationRepository(db, zap.NewNop())

		cases, err := repo.MatchByEmbedding(ctx, nil, 3, 0.5)
		require.NoError(t, err)
		assert.Empty(t, cases)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query failure propagates", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewConversationRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT prompt, response").
			WillReturnError(errors.New("relation does not exist"))

		cases, err := repo.MatchByEmbedding(ctx, embedding, 3, 0.5)
		require.Error(t, err)
		assert.Nil(t, cases)
	})
}

func TestConversationRepository_GetRecent(t *testing.T) {
	ctx := context.Background()

	t.Run("returns newest first without embeddings", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewConversationRepository(db, zap.NewNop())

		now := time.Now()
		id1, id2 := uuid.New(), uuid.New()
		rows := sqlmock.NewRows([]string{"id", "prompt", "response", "category", "created_at"}).
			AddRow(id1, "newest", "a1", "engine", now).
			AddRow(id2, "older", "a2", "brakes", now.Add(-time.Hour))

		mock.ExpectQuery("SELECT id, prompt, response, category, created_at").
			WithArgs(2).
			WillReturnRows(rows)

		convs, err := repo.GetRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, convs, 2)
		assert.Equal(t, id1, convs[0].ID)
		assert.Equal(t, "newest", convs[0].Prompt)
		assert.Nil(t, convs[0].Embedding)
	})

	t.Run("non-positive limit defaults", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewConversationRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT id, prompt, response, category, created_at").
			WithArgs(20).
			WillReturnRows(sqlmock.NewRows([]string{"id", "prompt", "response", "category", "created_at"}))

		_, err := repo.GetRecent(ctx, 0)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConversationRepository_Count(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepository(db, zap.NewNop())

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM conversations").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}

func TestConversationRepository_PruneOldest(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes rows beyond the cap", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewConversationRepository(db, zap.NewNop())

		mock.ExpectExec("DELETE FROM conversations").
			WithArgs(1000).
			WillReturnResult(sqlmock.NewResult(0, 3))

		deleted, err := repo.PruneOldest(ctx, 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(3), deleted)
	})

	t.Run("non-positive cap is a no-op", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewConversationRepository(db, zap.NewNop())

		deleted, err := repo.PruneOldest(ctx, 0)
		require.NoError(t, err)
		assert.Zero(t, deleted)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
