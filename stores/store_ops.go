package stores

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
)

// Shared gorm operations backing both the SQLite and Postgres stores.

func saveMessage(db *gorm.DB, conversationID, role string, parts interface{}, incomplete bool) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Ensure conversation record exists (create if first message).
	// Use Count() to check existence without triggering "record not found" logs.
	var count int64
	if err := db.Model(&Conversation{}).Where("conversation_id = ?", conversationID).Count(&count).Error; err != nil {
		log.Printf("Warning: Error checking for conversation %s: %v", conversationID, err)
	} else if count == 0 {
		if err := createConversation(db, conversationID, ""); err != nil {
			log.Printf("Warning: Failed to create conversation record for %s: %v", conversationID, err)
		}
	}

	if err := db.Model(&Message{}).Where("conversation_id = ?", conversationID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count existing messages: %w", err)
	}
	seq := int(count) + 1

	partsJSONBytes, err := json.Marshal(parts)
	if err != nil {
		return fmt.Errorf("failed to marshal parts for database: %w", err)
	}

	msg := Message{
		ConversationID: conversationID,
		Sequence:       seq,
		Role:           role,
		Incomplete:     incomplete,
		PartsJSON:      string(partsJSONBytes),
	}
	if err := db.Create(&msg).Error; err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	// Keep the conversation's count and updated_at fresh; the janitor keys
	// idleness off updated_at.
	if err := db.Model(&Conversation{}).Where("conversation_id = ?", conversationID).
		Updates(map[string]interface{}{
			"message_count": seq,
			"updated_at":    time.Now(),
		}).Error; err != nil {
		log.Printf("Warning: Failed to update conversation metadata for %s: %v", conversationID, err)
	}
	return nil
}

func fetchHistory(db *gorm.DB, conversationID string, limit int) ([]Message, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	query := db.Where("conversation_id = ?", conversationID).Order("sequence desc")
	if limit > 0 {
		// Limit counts exchanges; each holds at most two rows.
		query = query.Limit(limit * 2)
	}

	var msgs []Message
	if err := query.Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	// Reverse back to insertion order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func clearHistory(db *gorm.DB, conversationID string) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	if err := db.Unscoped().Where("conversation_id = ?", conversationID).Delete(&Message{}).Error; err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	if err := db.Model(&Conversation{}).Where("conversation_id = ?", conversationID).
		Update("message_count", 0).Error; err != nil {
		log.Printf("Warning: Failed to reset message count for %s: %v", conversationID, err)
	}
	return nil
}

func createConversation(db *gorm.DB, conversationID, userID string) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	convo := Conversation{
		ConversationID: conversationID,
		UserID:         userID,
	}
	if err := db.Create(&convo).Error; err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func listConversations(db *gorm.DB) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	var ids []string
	if err := db.Model(&Conversation{}).Order("updated_at desc").
		Pluck("conversation_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return ids, nil
}

func listConversationsForUser(db *gorm.DB, userID string) ([]ConversationInfo, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	var convos []Conversation
	if err := db.Where("user_id = ?", userID).Order("updated_at desc").Find(&convos).Error; err != nil {
		return nil, fmt.Errorf("failed to list conversations for user: %w", err)
	}

	infos := make([]ConversationInfo, 0, len(convos))
	for _, c := range convos {
		infos = append(infos, ConversationInfo{
			ConversationID: c.ConversationID,
			UserID:         c.UserID,
			Title:          c.Title,
			MessageCount:   c.MessageCount,
			CreatedAt:      c.CreatedAt.Format(time.RFC3339),
			UpdatedAt:      c.UpdatedAt.Format(time.RFC3339),
		})
	}
	return infos, nil
}

func deleteConversationsIdleSince(db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}

	var stale []Conversation
	if err := db.Where("updated_at < ?", cutoff).Find(&stale).Error; err != nil {
		return 0, fmt.Errorf("failed to find idle conversations: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(stale))
	for _, c := range stale {
		ids = append(ids, c.ConversationID)
	}

	if err := db.Unscoped().Where("conversation_id IN ?", ids).Delete(&Message{}).Error; err != nil {
		return 0, fmt.Errorf("failed to delete messages of idle conversations: %w", err)
	}
	if err := db.Unscoped().Where("conversation_id IN ?", ids).Delete(&RunRecord{}).Error; err != nil {
		log.Printf("Warning: Failed to delete run records of idle conversations: %v", err)
	}
	result := db.Unscoped().Where("conversation_id IN ?", ids).Delete(&Conversation{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete idle conversations: %w", result.Error)
	}
	return result.RowsAffected, nil
}
