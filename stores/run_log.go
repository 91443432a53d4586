package stores

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// RunRecord is the audit row written for every generate call: which model
// ran, with which settings, and how it ended. It backs the "recent runs"
// view of the playground.
type RunRecord struct {
	ID             uint      `gorm:"primarykey" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	ConversationID string    `gorm:"index:idx_run_conv;not null" json:"conversation_id"`
	Model          string    `gorm:"not null" json:"model"`
	Temperature    float64   `json:"temperature"`
	Streaming      bool      `json:"streaming"`
	Status         string    `gorm:"not null" json:"status"` // ok, error, cancelled
	Error          string    `gorm:"type:text" json:"error,omitempty"`
	PromptText     string    `gorm:"type:text" json:"prompt_text,omitempty"`
	ResponseText   string    `gorm:"type:text" json:"response_text,omitempty"`
	DurationMS     int64     `json:"duration_ms"`
}

const (
	RunStatusOK        = "ok"
	RunStatusError     = "error"
	RunStatusCancelled = "cancelled"
)

// RunStore persists and queries generation run records. Both database
// stores implement it alongside MessageStore.
type RunStore interface {
	SaveRun(run *RunRecord) error
	RecentRuns(conversationID string, limit int) ([]*RunRecord, error)
}

func saveRun(db *gorm.DB, run *RunRecord) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	if err := db.Create(run).Error; err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}
	return nil
}

func recentRuns(db *gorm.DB, conversationID string, limit int) ([]*RunRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if limit <= 0 {
		limit = 5
	}

	var runs []*RunRecord
	query := db.Order("created_at desc").Limit(limit)
	if conversationID != "" {
		query = query.Where("conversation_id = ?", conversationID)
	}
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch run records: %w", err)
	}
	return runs, nil
}
