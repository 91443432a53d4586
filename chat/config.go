package chat

import (
	"fmt"

	"github.com/nvelaz/geminiplay/models"
)

const (
	DefaultModel          = "gemini-2.5-flash"
	DefaultTemperature    = 1.0
	DefaultRetentionLimit = 20

	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// KnownModels lists the models the playground offers for selection.
var KnownModels = []string{
	DefaultModel,
	"gemini-2.0-flash-exp",
	"gemini-1.5-flash",
}

// Config holds the generation settings for a session. A Config is applied
// atomically via Orchestrator.Configure and is immutable for the duration of
// one request; changing it never alters already-stored messages.
type Config struct {
	Model             string  `json:"model"`
	Temperature       float64 `json:"temperature"`
	SystemInstruction string  `json:"system_instruction,omitempty"`
	ThinkingEnabled   bool    `json:"thinking_enabled"`
	StreamingEnabled  bool    `json:"streaming_enabled"`
	// RetentionLimit bounds history to the last N exchanges (user+model
	// pairs); oldest pairs are evicted first. 0 keeps everything.
	RetentionLimit int `json:"retention_limit"`
}

// NewConfig creates a configuration with the playground defaults.
func NewConfig() *Config {
	return &Config{
		Model:            DefaultModel,
		Temperature:      DefaultTemperature,
		ThinkingEnabled:  true,
		StreamingEnabled: true,
		RetentionLimit:   DefaultRetentionLimit,
	}
}

// WithModel sets the model identifier.
func (c *Config) WithModel(model string) *Config {
	c.Model = model
	return c
}

// WithTemperature sets the sampling temperature.
func (c *Config) WithTemperature(temperature float64) *Config {
	c.Temperature = temperature
	return c
}

// WithSystemInstruction sets the system instruction; empty means none.
func (c *Config) WithSystemInstruction(instruction string) *Config {
	c.SystemInstruction = instruction
	return c
}

// WithThinking toggles model reasoning (a disabled setting requests a zero
// thinking budget upstream).
func (c *Config) WithThinking(enabled bool) *Config {
	c.ThinkingEnabled = enabled
	return c
}

// WithStreaming toggles whether hosting layers stream responses.
func (c *Config) WithStreaming(enabled bool) *Config {
	c.StreamingEnabled = enabled
	return c
}

// WithRetentionLimit sets the history window in exchanges.
func (c *Config) WithRetentionLimit(limit int) *Config {
	c.RetentionLimit = limit
	return c
}

// Validate checks value ranges. It is called before a configuration is
// applied so a bad value never partially replaces the current one.
func (c *Config) Validate() error {
	if c.Temperature < MinTemperature || c.Temperature > MaxTemperature {
		return fmt.Errorf("%w: temperature %.2f outside [%.1f, %.1f]",
			ErrInvalidConfiguration, c.Temperature, MinTemperature, MaxTemperature)
	}
	if c.RetentionLimit < 0 {
		return fmt.Errorf("%w: retention limit %d must not be negative",
			ErrInvalidConfiguration, c.RetentionLimit)
	}
	return nil
}

// Apply returns a copy of the configuration with the non-nil request
// options overlaid. Used by hosting layers that expose settings as form
// fields on each request.
func (c Config) Apply(opts *models.RequestOptions) Config {
	if opts == nil {
		return c
	}
	if opts.Model != nil {
		c.Model = *opts.Model
	}
	if opts.Temperature != nil {
		c.Temperature = *opts.Temperature
	}
	if opts.SystemInstruction != nil {
		c.SystemInstruction = *opts.SystemInstruction
	}
	if opts.ThinkingEnabled != nil {
		c.ThinkingEnabled = *opts.ThinkingEnabled
	}
	if opts.StreamingEnabled != nil {
		c.StreamingEnabled = *opts.StreamingEnabled
	}
	return c
}
