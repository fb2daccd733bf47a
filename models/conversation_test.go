package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConversation(t *testing.T) {
	t.Run("populates identity and timestamp", func(t *testing.T) {
		conv := NewConversation("engine knocks", "check bearings", "engine", []float32{0.1, 0.2})

		assert.NotEqual(t, uuid.Nil, conv.ID)
		assert.Equal(t, "engine knocks", conv.Prompt)
		assert.Equal(t, "check bearings", conv.Response)
		assert.Equal(t, "engine", conv.Category)
		assert.Len(t, conv.Embedding, 2)
		assert.False(t, conv.CreatedAt.IsZero())
	})

	t.Run("empty category defaults", func(t *testing.T) {
		conv := NewConversation("q", "a", "", nil)
		assert.Equal(t, DefaultCategory, conv.Category)
	})
}

func TestConversationJSON(t *testing.T) {
	// Embeddings are internal positioning data and never leave the API.
	conv := NewConversation("q", "a", "engine", []float32{0.1, 0.2, 0.3})

	data, err := json.Marshal(conv)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "embedding")
	assert.Contains(t, string(data), `"prompt":"q"`)
}

func TestRetrievedCaseJSON(t *testing.T) {
	c := RetrievedCase{Prompt: "engine knocks", Response: "check bearings", Similarity: 0.91}

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":"engine knocks","answer":"check bearings","similarity":0.91}`, string(data))
}
