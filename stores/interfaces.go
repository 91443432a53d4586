package stores

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/nvelaz/geminiplay/models"
)

// Message is one persisted conversation turn.
type Message struct {
	gorm.Model
	ConversationID string `gorm:"index;not null"`
	Sequence       int    `gorm:"not null"`
	Role           string `gorm:"not null"` // "user", "model"
	// Incomplete marks a model turn whose stream was cancelled or failed
	// partway through.
	Incomplete bool `gorm:"default:false"`
	// PartsJSON stores the JSON marshaled array of content parts for this turn.
	PartsJSON string `gorm:"type:json"`
}

// Parts unmarshals the stored content parts.
func (m Message) Parts() ([]models.Part, error) {
	if m.PartsJSON == "" || m.PartsJSON == "null" {
		return nil, nil
	}
	var parts []models.Part
	if err := json.Unmarshal([]byte(m.PartsJSON), &parts); err != nil {
		return nil, err
	}
	return parts, nil
}

// Text concatenates the text parts of the stored turn; unreadable parts
// yield an empty string.
func (m Message) Text() string {
	parts, err := m.Parts()
	if err != nil {
		return ""
	}
	return models.Message{Parts: parts}.Text()
}

// ToModel converts the row into the in-memory message shape. Rows with
// unreadable parts come back empty; callers decide whether to skip them.
func (m Message) ToModel() (models.Message, error) {
	parts, err := m.Parts()
	if err != nil {
		return models.Message{}, err
	}
	return models.Message{
		Role:       models.Role(m.Role),
		Parts:      parts,
		Incomplete: m.Incomplete,
	}, nil
}

// Conversation holds metadata for a chat conversation.
type Conversation struct {
	gorm.Model
	ConversationID string    `gorm:"uniqueIndex;not null"`
	UserID         string    `gorm:"index"`
	Title          string    `gorm:"type:text"`
	MessageCount   int       `gorm:"default:0"`
	Messages       []Message `gorm:"foreignKey:ConversationID;references:ConversationID"`
}

// ConversationInfo holds basic conversation metadata for listing.
type ConversationInfo struct {
	ConversationID string
	UserID         string
	Title          string
	MessageCount   int
	CreatedAt      string
	UpdatedAt      string
}

// MessageStore abstracts transcript persistence. The orchestration core
// never talks to a store directly; hosting sessions use one to survive
// process restarts.
type MessageStore interface {
	// Message operations
	SaveMessage(conversationID, role string, parts interface{}, incomplete bool) error
	FetchHistory(conversationID string, limit int) ([]Message, error)
	ClearHistory(conversationID string) error

	// Conversation operations
	CreateConversation(conversationID, userID string) error
	ListConversations() ([]string, error)
	ListConversationsForUser(userID string) ([]ConversationInfo, error)
	DeleteConversationsIdleSince(cutoff time.Time) (int64, error)

	// Connection management
	Connect() error
	Close() error

	// Health check
	Ping() error
}

// StoreConfig holds configuration for database stores.
type StoreConfig struct {
	Type       string            `json:"type"`       // "sqlite", "postgres"
	Connection string            `json:"connection"` // connection string
	Options    map[string]string `json:"options"`    // additional options
}

// NewStoreConfig creates a new store configuration.
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
		Options:    make(map[string]string),
	}
}

// WithOption adds an option to the store configuration.
func (c *StoreConfig) WithOption(key, value string) *StoreConfig {
	c.Options[key] = value
	return c
}
