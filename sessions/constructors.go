package sessions

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nvelaz/geminiplay/chat"
	"github.com/nvelaz/geminiplay/stores"
)

// NewHTTPSession creates a session for one conversation. conversationID may
// be empty, in which case a fresh one is generated. A nil store keeps the
// conversation purely in memory.
func NewHTTPSession(conversationID string, orch *chat.Orchestrator, store stores.MessageStore) *HTTPSession {
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	logger := log.New(os.Stdout, fmt.Sprintf("[HTTP %s] ", conversationID), log.LstdFlags)

	s := &HTTPSession{
		Orchestrator:   orch,
		ConversationID: conversationID,
		Store:          store,
		Logger:         logger,
	}
	s.seedFromStore()
	return s
}

// WithRunLog attaches a run log; every generate call is recorded there.
func (s *HTTPSession) WithRunLog(runs stores.RunStore) *HTTPSession {
	s.Runs = runs
	return s
}

// NewWebSocketSession creates a session bound to an open WebSocket
// connection. sessionID may be empty, in which case a fresh one is
// generated.
func NewWebSocketSession(sessionID string, conn *websocket.Conn, orch *chat.Orchestrator, store stores.MessageStore) *WebSocketSession {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	logger := log.New(os.Stdout, fmt.Sprintf("[WS %s] ", sessionID), log.LstdFlags)
	writer := &WebSocketWriter{
		Conn:   conn,
		Logger: logger,
	}

	s := &WebSocketSession{
		Orchestrator: orch,
		SessionID:    sessionID,
		Writer:       writer,
		Store:        store,
		Logger:       logger,
	}
	seedOrchestrator(orch, store, sessionID, logger)
	return s
}

// WithRunLog attaches a run log to the WebSocket session.
func (s *WebSocketSession) WithRunLog(runs stores.RunStore) *WebSocketSession {
	s.Runs = runs
	return s
}
