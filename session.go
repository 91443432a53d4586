package geminiplay

import (
	"github.com/gorilla/websocket"

	"github.com/nvelaz/geminiplay/chat"
	"github.com/nvelaz/geminiplay/sessions"
	"github.com/nvelaz/geminiplay/stores"
)

// Re-export core and session types so callers can depend on the root
// package alone.
type Orchestrator = chat.Orchestrator
type Config = chat.Config
type Stream = chat.Stream
type Upstream = chat.Upstream

type HTTPSession = sessions.HTTPSession
type WebSocketSession = sessions.WebSocketSession
type SSEWriter = sessions.SSEWriter
type WebSocketWriter = sessions.WebSocketWriter
type SessionError = sessions.SessionError

// Re-export the error taxonomy
var (
	ErrInvalidConfiguration = chat.ErrInvalidConfiguration
	ErrEmptyInput           = chat.ErrEmptyInput
	ErrUpstreamFailure      = chat.ErrUpstreamFailure
	ErrCancelled            = chat.ErrCancelled
)

// Re-export constructor functions
func NewConfig() *Config {
	return chat.NewConfig()
}

func NewOrchestrator(upstream Upstream, config *Config) (*Orchestrator, error) {
	return chat.NewOrchestrator(upstream, config)
}

func NewHTTPSession(conversationID string, orch *Orchestrator, store stores.MessageStore) *HTTPSession {
	return sessions.NewHTTPSession(conversationID, orch, store)
}

func NewWebSocketSession(sessionID string, conn *websocket.Conn, orch *Orchestrator, store stores.MessageStore) *WebSocketSession {
	return sessions.NewWebSocketSession(sessionID, conn, orch, store)
}
