package models

// GenerateRequest is the ephemeral request handed to the upstream
// collaborator: generation options, the full conversation history, and the
// parts of the new user turn. It is rebuilt for every call and never stored.
type GenerateRequest struct {
	Model             string    `json:"model"`
	Temperature       float64   `json:"temperature"`
	SystemInstruction string    `json:"system_instruction,omitempty"`
	ThinkingEnabled   bool      `json:"thinking_enabled"`
	History           []Message `json:"history,omitempty"`
	Input             []Part    `json:"input"`
}

// ChatRequest is the HTTP request body accepted by the playground server.
type ChatRequest struct {
	Input   UserInput       `json:"input"`
	Options *RequestOptions `json:"options,omitempty"`
}

// RequestOptions carries the per-request settings a hosting UI exposes as
// form fields. Nil pointers mean "leave the current setting alone".
type RequestOptions struct {
	Model             *string  `json:"model,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	SystemInstruction *string  `json:"system_instruction,omitempty"`
	ThinkingEnabled   *bool    `json:"thinking_enabled,omitempty"`
	StreamingEnabled  *bool    `json:"streaming_enabled,omitempty"`
}
