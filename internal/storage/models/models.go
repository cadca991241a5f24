package models

import "time"

// Session is one user's ongoing content generation workflow. All plan
// versions, ingested sources, and generated artifacts hang off it.
type Session struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Level     string    `json:"level"`
	Style     string    `json:"style"`
	Language  string    `json:"language"`
	Namespace string    `json:"namespace"`
	Depth     int       `json:"depth"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlanRecord is one immutable plan version within a session. Payload holds
// the serialized plan; Feedback is the reviewer note that produced the NEXT
// version, empty for the first.
type PlanRecord struct {
	Version   string    `json:"version"`
	SessionID string    `json:"session_id"`
	Status    string    `json:"status"`
	Feedback  string    `json:"feedback,omitempty"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// IngestRecord tracks one ingested source and its namespace.
type IngestRecord struct {
	Namespace  string    `json:"namespace"`
	SessionID  string    `json:"session_id"`
	Kind       string    `json:"kind"`
	SourceKey  string    `json:"source_key"`
	Title      string    `json:"title"`
	Language   string    `json:"language"`
	ChunkCount int       `json:"chunk_count"`
	TokenCount int       `json:"token_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// ContentRecord is one generated content document plus its assembled deck.
type ContentRecord struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	PlanVersion  string    `json:"plan_version"`
	Payload      string    `json:"payload"`
	DeckPayload  string    `json:"deck_payload"`
	DeckFileName string    `json:"deck_file_name"`
	CreatedAt    time.Time `json:"created_at"`
}
