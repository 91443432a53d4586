package geminiplay

import (
	"github.com/nvelaz/geminiplay/chat"
	"github.com/nvelaz/geminiplay/stores"
)

// PlaygroundConfig holds configuration for playground hosts: the generation
// settings plus the persistence backends the sessions write to.
type PlaygroundConfig struct {
	Generation *chat.Config
	Store      stores.MessageStore
	RunLog     stores.RunStore
}

// NewPlaygroundConfig creates a new playground configuration with default
// values and a default SQLite store.
func NewPlaygroundConfig() *PlaygroundConfig {
	// Create a default SQLite store
	defaultStore, err := stores.NewSQLiteStoreDefault()
	if err != nil {
		// If we can't create the default store, panic or use a nil store
		// In production, you might want to handle this more gracefully
		panic("Failed to create default SQLite store: " + err.Error())
	}

	cfg := &PlaygroundConfig{
		Generation: chat.NewConfig(),
		Store:      defaultStore,
	}
	if runs, ok := defaultStore.(stores.RunStore); ok {
		cfg.RunLog = runs
	}
	return cfg
}

// WithGeneration sets the generation settings for the configuration
func (c *PlaygroundConfig) WithGeneration(generation *chat.Config) *PlaygroundConfig {
	c.Generation = generation
	return c
}

// WithStore sets the message store for the configuration
func (c *PlaygroundConfig) WithStore(store stores.MessageStore) *PlaygroundConfig {
	c.Store = store
	if runs, ok := store.(stores.RunStore); ok {
		c.RunLog = runs
	}
	return c
}

// WithSQLiteStore sets a SQLite store with the specified database path
func (c *PlaygroundConfig) WithSQLiteStore(dbPath string) *PlaygroundConfig {
	store, err := stores.NewSQLiteStoreSimple(dbPath)
	if err != nil {
		panic("Failed to create SQLite store: " + err.Error())
	}
	return c.WithStore(store)
}

// WithPostgresStore sets a PostgreSQL store with the specified connection parameters
func (c *PlaygroundConfig) WithPostgresStore(host, user, password, dbname string, port int) *PlaygroundConfig {
	store, err := stores.NewPostgresStoreDefault(host, user, password, dbname, port)
	if err != nil {
		panic("Failed to create PostgreSQL store: " + err.Error())
	}
	return c.WithStore(store)
}
