package stores

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteStore implements MessageStore and RunStore for SQLite databases
type SQLiteStore struct {
	db   *gorm.DB
	path string
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(config *StoreConfig) (*SQLiteStore, error) {
	if config.Type != "sqlite" {
		return nil, fmt.Errorf("invalid store type for SQLite store: %s", config.Type)
	}

	store := &SQLiteStore{
		path: config.Connection,
	}

	if err := store.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	return store, nil
}

// NewSQLiteStoreSimple creates a new SQLite store with just a file path
func NewSQLiteStoreSimple(dbPath string) (*SQLiteStore, error) {
	config := NewStoreConfig("sqlite", dbPath)
	return NewSQLiteStore(config)
}

// Connect establishes a connection to the SQLite database
func (s *SQLiteStore) Connect() error {
	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	s.db = db

	// Auto-migrate the schema
	if err := s.db.AutoMigrate(&Conversation{}, &Message{}, &RunRecord{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (s *SQLiteStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

func (s *SQLiteStore) SaveMessage(conversationID, role string, parts interface{}, incomplete bool) error {
	return saveMessage(s.db, conversationID, role, parts, incomplete)
}

func (s *SQLiteStore) FetchHistory(conversationID string, limit int) ([]Message, error) {
	return fetchHistory(s.db, conversationID, limit)
}

func (s *SQLiteStore) ClearHistory(conversationID string) error {
	return clearHistory(s.db, conversationID)
}

func (s *SQLiteStore) CreateConversation(conversationID, userID string) error {
	return createConversation(s.db, conversationID, userID)
}

func (s *SQLiteStore) ListConversations() ([]string, error) {
	return listConversations(s.db)
}

func (s *SQLiteStore) ListConversationsForUser(userID string) ([]ConversationInfo, error) {
	return listConversationsForUser(s.db, userID)
}

func (s *SQLiteStore) DeleteConversationsIdleSince(cutoff time.Time) (int64, error) {
	return deleteConversationsIdleSince(s.db, cutoff)
}

func (s *SQLiteStore) SaveRun(run *RunRecord) error {
	return saveRun(s.db, run)
}

func (s *SQLiteStore) RecentRuns(conversationID string, limit int) ([]*RunRecord, error) {
	return recentRuns(s.db, conversationID, limit)
}
