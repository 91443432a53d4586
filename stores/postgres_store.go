package stores

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresStore implements MessageStore and RunStore for PostgreSQL databases
type PostgresStore struct {
	db  *gorm.DB
	dsn string
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(config *StoreConfig) (*PostgresStore, error) {
	if config.Type != "postgres" {
		return nil, fmt.Errorf("invalid store type for Postgres store: %s", config.Type)
	}

	store := &PostgresStore{
		dsn: config.Connection,
	}

	if err := store.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	return store, nil
}

// NewPostgresStoreSimple creates a new PostgreSQL store with just a DSN
func NewPostgresStoreSimple(dsn string) (*PostgresStore, error) {
	config := NewStoreConfig("postgres", dsn)
	return NewPostgresStore(config)
}

// Connect establishes a connection to the PostgreSQL database
func (s *PostgresStore) Connect() error {
	db, err := gorm.Open(postgres.Open(s.dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	s.db = db

	// Auto-migrate the schema
	if err := s.db.AutoMigrate(&Conversation{}, &Message{}, &RunRecord{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
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
func (s *PostgresStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

func (s *PostgresStore) SaveMessage(conversationID, role string, parts interface{}, incomplete bool) error {
	return saveMessage(s.db, conversationID, role, parts, incomplete)
}

func (s *PostgresStore) FetchHistory(conversationID string, limit int) ([]Message, error) {
	return fetchHistory(s.db, conversationID, limit)
}

func (s *PostgresStore) ClearHistory(conversationID string) error {
	return clearHistory(s.db, conversationID)
}

func (s *PostgresStore) CreateConversation(conversationID, userID string) error {
	return createConversation(s.db, conversationID, userID)
}

func (s *PostgresStore) ListConversations() ([]string, error) {
	return listConversations(s.db)
}

func (s *PostgresStore) ListConversationsForUser(userID string) ([]ConversationInfo, error) {
	return listConversationsForUser(s.db, userID)
}

func (s *PostgresStore) DeleteConversationsIdleSince(cutoff time.Time) (int64, error) {
	return deleteConversationsIdleSince(s.db, cutoff)
}

func (s *PostgresStore) SaveRun(run *RunRecord) error {
	return saveRun(s.db, run)
}

func (s *PostgresStore) RecentRuns(conversationID string, limit int) ([]*RunRecord, error) {
	return recentRuns(s.db, conversationID, limit)
}
