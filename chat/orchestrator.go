package chat

import (
	"context"
	"fmt"

	"github.com/nvelaz/geminiplay/models"
)

// Upstream is the external generative-content collaborator. Implementations
// wrap a concrete client (see models/gemini); tests substitute a stub.
//
// GenerateStream follows the channel-pair convention: fragments arrive on
// the first channel in emission order, a terminal error (if any) on the
// second, and both are closed when the sequence is finite and done.
type Upstream interface {
	Generate(ctx context.Context, req models.GenerateRequest) (models.GenerateResponse, error)
	GenerateStream(ctx context.Context, req models.GenerateRequest) (<-chan models.GenerateResponse, <-chan error)
}

// Orchestrator mediates between caller input and the upstream API while
// maintaining the in-memory conversation history for one session.
//
// An Orchestrator is not safe for concurrent use: callers must serialize
// SendMessage/SendMessageStream calls per session, and a returned Stream
// must be exhausted or closed before the next send. This matches the
// single-user interactive scope; the orchestrator itself spawns no work.
type Orchestrator struct {
	upstream Upstream
	config   Config
	history  []models.Message
}

// NewOrchestrator creates an orchestrator talking to the given upstream.
// A nil config selects the playground defaults.
func NewOrchestrator(upstream Upstream, config *Config) (*Orchestrator, error) {
	if config == nil {
		config = NewConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{upstream: upstream, config: *config}, nil
}

// Configure validates and atomically replaces the configuration. On error
// the previous configuration remains in effect, untouched.
func (o *Orchestrator) Configure(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	o.config = config
	return nil
}

// Config returns the current configuration.
func (o *Orchestrator) Config() Config {
	return o.config
}

// History returns a copy of the session history in insertion order.
func (o *Orchestrator) History() []models.Message {
	out := make([]models.Message, len(o.history))
	copy(out, o.history)
	return out
}

// ClearHistory resets the session to empty. Idempotent.
func (o *Orchestrator) ClearHistory() {
	o.history = nil
}

// Seed replaces the session history wholesale, e.g. when a hosting layer
// reloads a persisted transcript. The retention window is applied.
func (o *Orchestrator) Seed(history []models.Message) {
	o.history = append([]models.Message(nil), history...)
	o.evict()
}

// SendMessage runs one atomic exchange: the request is built from the
// current configuration, the full history, and the new input, then
// dispatched; the user turn and the complete model turn are appended on
// success. On upstream failure the user turn stays recorded so the caller
// can retry without re-entering the prompt.
func (o *Orchestrator) SendMessage(ctx context.Context, input models.UserInput) (models.Message, error) {
	if input.IsEmpty() {
		return models.Message{}, ErrEmptyInput
	}

	req := o.buildRequest(input)
	o.append(input.UserMessage())

	resp, err := o.upstream.Generate(ctx, req)
	if err != nil {
		return models.Message{}, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}

	msg := models.Message{Role: models.RoleModel, Parts: resp.Parts}
	o.append(msg)
	return msg, nil
}

// SendMessageStream dispatches the same request as SendMessage but returns
// the lazy fragment sequence instead of blocking. The user turn is appended
// immediately; the model turn is appended by the Stream once consumption
// ends (see Stream).
func (o *Orchestrator) SendMessageStream(ctx context.Context, input models.UserInput) (*Stream, error) {
	if input.IsEmpty() {
		return nil, ErrEmptyInput
	}

	req := o.buildRequest(input)
	o.append(input.UserMessage())

	respChan, errChan := o.upstream.GenerateStream(ctx, req)
	return &Stream{orch: o, respChan: respChan, errChan: errChan}, nil
}

// buildRequest snapshots configuration and history into an ephemeral
// request. History is captured before the new user turn is appended; the
// input travels separately.
func (o *Orchestrator) buildRequest(input models.UserInput) models.GenerateRequest {
	return models.GenerateRequest{
		Model:             o.config.Model,
		Temperature:       o.config.Temperature,
		SystemInstruction: o.config.SystemInstruction,
		ThinkingEnabled:   o.config.ThinkingEnabled,
		History:           o.History(),
		Input:             input.AsParts(),
	}
}

func (o *Orchestrator) append(msg models.Message) {
	o.history = append(o.history, msg)
	o.evict()
}

// evict drops the oldest exchange once the retention window is exceeded.
// Eviction is pair-wise so history never starts mid-exchange; a dangling
// user turn from a failed exchange is dropped on its own.
func (o *Orchestrator) evict() {
	limit := o.config.RetentionLimit
	if limit <= 0 {
		return
	}
	for len(o.history) > limit*2 {
		drop := 1
		if len(o.history) > 1 &&
			o.history[0].Role == models.RoleUser &&
			o.history[1].Role == models.RoleModel {
			drop = 2
		}
		o.history = o.history[drop:]
	}
}
