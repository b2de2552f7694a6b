package models

import "time"

// Conversation is a persistent Q&A session scoped to one dataset.
type Conversation struct {
	ID        string    `json:"id"`
	DatasetID string    `json:"dataset_id"`
	Caller    string    `json:"caller,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single turn within a conversation. History is append-only;
// later turns may reference earlier ones but never rewrite them.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	Role           string      `json:"role"` // "user" or "assistant"
	Content        string      `json:"content"`
	Citations      []AgentKind `json:"citations,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}
