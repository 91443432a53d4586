package models

import "time"

// ChatMessageResponse defines the structure for messages returned by the chat
// history API endpoint. It excludes internal DB fields like gorm.Model but
// includes necessary identifiers and timestamps.
type ChatMessageResponse struct {
	ID             uint      `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	ConversationID string    `json:"conversation_id"`
	Sequence       int       `json:"sequence"`
	Role           string    `json:"role"` // "user", "model"
	Incomplete     bool      `json:"incomplete,omitempty"`
	Text           string    `json:"text,omitempty"`  // Extracted from parts
	Parts          []Part    `json:"parts,omitempty"` // Unmarshalled parts array
}
