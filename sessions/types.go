package sessions

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nvelaz/geminiplay/chat"
	"github.com/nvelaz/geminiplay/models"
	"github.com/nvelaz/geminiplay/stores"
)

// SessionError represents errors that can occur during session operations
type SessionError struct {
	Message string
	Fatal   bool
}

func (e *SessionError) Error() string {
	return e.Message
}

// SSEWriter abstracts the server-sent-events transport so sessions do not
// depend on a particular HTTP framework.
type SSEWriter interface {
	WriteSSE(data string) error
	WriteSSEError(err error) error
	Flush()
}

// WebSocketWriter handles all WebSocket communication
type WebSocketWriter struct {
	Conn                *websocket.Conn
	Logger              *log.Logger
	StartTime           time.Time
	FirstFragmentTime   *time.Time
	FirstFragmentLogged bool
	mu                  sync.Mutex
}

func (w *WebSocketWriter) WriteResponse(resp interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	// Track time to first fragment
	if !w.FirstFragmentLogged && w.FirstFragmentTime == nil && !w.StartTime.IsZero() {
		now := time.Now()
		w.FirstFragmentTime = &now
		w.Logger.Printf("Time to first fragment: %v", now.Sub(w.StartTime))
		w.FirstFragmentLogged = true
	}
	return w.Conn.WriteJSON(resp)
}

func (w *WebSocketWriter) WriteError(message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"type": "error", "error": message})
}

func (w *WebSocketWriter) WriteDone() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"type": "done"})
}

// HTTPSession binds an orchestrator to one conversation, a transport-neutral
// store and an optional run log. The orchestrator is seeded from the store
// on construction so conversations survive restarts.
type HTTPSession struct {
	Orchestrator   *chat.Orchestrator
	ConversationID string
	Store          stores.MessageStore
	Runs           stores.RunStore
	Logger         *log.Logger
}

// WebSocketSession drives one conversation over one WebSocket connection.
type WebSocketSession struct {
	Orchestrator *chat.Orchestrator
	SessionID    string
	Writer       *WebSocketWriter
	Store        stores.MessageStore
	Runs         stores.RunStore
	Logger       *log.Logger
}

// WSClientMessage is what the frontend sends over the socket.
type WSClientMessage struct {
	Type    string                 `json:"type"` // "prompt", "configure", "clear"
	Input   *models.UserInput      `json:"input,omitempty"`
	Options *models.RequestOptions `json:"options,omitempty"`
}

// WSFragmentMessage carries one streamed text fragment to the frontend.
type WSFragmentMessage struct {
	Type string `json:"type"` // "fragment"
	Text string `json:"text"`
}

// WSCompleteMessage carries a complete (non-streamed) model turn.
type WSCompleteMessage struct {
	Type       string `json:"type"` // "message"
	Text       string `json:"text"`
	Incomplete bool   `json:"incomplete,omitempty"`
}
