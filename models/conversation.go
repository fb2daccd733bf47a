package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCategory is used when a request does not specify a vehicle system.
const DefaultCategory = "general"

// Conversation is one persisted question/answer interaction. Records are
// written once at the end of a successful diagnosis and never updated; the
// embedding positions the prompt in the corpus for future similarity search.
type Conversation struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Prompt    string    `json:"prompt" db:"prompt"`
	Response  string    `json:"response" db:"response"`
	Category  string    `json:"category" db:"category"`
	Embedding []float32 `json:"-" db:"embedding"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewConversation creates a Conversation ready for insertion.
func NewConversation(prompt, response, category string, embedding []float32) *Conversation {
	if category == "" {
		category = DefaultCategory
	}
	return &Conversation{
		ID:        uuid.New(),
		Prompt:    prompt,
		Response:  response,
		Category:  category,
		Embedding: embedding,
		CreatedAt: time.Now(),
	}
}

// TableName returns the table name for the Conversation model
func (Conversation) TableName() string {
	return "conversations"
}

// RetrievedCase is a transient projection of a Conversation returned by a
// similarity query. Similarity is cosine similarity in [0,1]; higher is closer.
type RetrievedCase struct {
	Prompt     string  `json:"query"`
	Response   string  `json:"answer"`
	Similarity float64 `json:"similarity"`
}
