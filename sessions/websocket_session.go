package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/nvelaz/geminiplay/chat"
	"github.com/nvelaz/geminiplay/models"
	"github.com/nvelaz/geminiplay/stores"
)

// Run reads client messages until the socket closes or a fatal error
// occurs. Each prompt is answered on the same connection, streamed or
// atomic depending on the session configuration.
func (ws *WebSocketSession) Run(ctx context.Context) error {
	for {
		var msg WSClientMessage
		if err := ws.Writer.Conn.ReadJSON(&msg); err != nil {
			ws.Logger.Printf("WebSocket closed: %v", err)
			return nil
		}

		switch msg.Type {
		case "configure":
			if err := ws.Orchestrator.Configure(ws.Orchestrator.Config().Apply(msg.Options)); err != nil {
				ws.sendError(err.Error(), false)
				continue
			}
			if err := ws.Writer.WriteResponse(map[string]string{"type": "configured"}); err != nil {
				return err
			}

		case "clear":
			ws.Orchestrator.ClearHistory()
			if ws.Store != nil {
				if err := ws.Store.ClearHistory(ws.SessionID); err != nil {
					ws.Logger.Printf("Error clearing stored history: %v", err)
				}
			}
			if err := ws.Writer.WriteResponse(map[string]string{"type": "cleared"}); err != nil {
				return err
			}

		case "prompt":
			if msg.Input == nil {
				ws.sendError("prompt message requires input", false)
				continue
			}
			if err := ws.handlePrompt(ctx, *msg.Input, msg.Options); err != nil {
				return err
			}

		default:
			ws.sendError("unknown message type: "+msg.Type, false)
		}
	}
}

// handlePrompt runs one exchange and writes the result frames. Returns an
// error only when the connection itself is unusable.
func (ws *WebSocketSession) handlePrompt(ctx context.Context, input models.UserInput, opts *models.RequestOptions) error {
	if opts != nil {
		if err := ws.Orchestrator.Configure(ws.Orchestrator.Config().Apply(opts)); err != nil {
			return ws.sendError(err.Error(), false)
		}
	}
	cfg := ws.Orchestrator.Config()
	ws.Writer.StartTime = time.Now()
	ws.Writer.FirstFragmentTime = nil
	ws.Writer.FirstFragmentLogged = false

	if !cfg.StreamingEnabled {
		return ws.handleAtomicPrompt(ctx, cfg, input)
	}
	return ws.handleStreamingPrompt(ctx, cfg, input)
}

func (ws *WebSocketSession) handleAtomicPrompt(ctx context.Context, cfg chat.Config, input models.UserInput) error {
	started := time.Now()
	response, err := ws.Orchestrator.SendMessage(ctx, input)
	if err != nil {
		if errors.Is(err, chat.ErrUpstreamFailure) {
			persistMessage(ws.Store, ws.SessionID, input.UserMessage(), ws.Logger)
			recordRun(ws.Runs, ws.SessionID, cfg, input, "", stores.RunStatusError, err, started, ws.Logger)
		}
		return ws.sendError(err.Error(), false)
	}

	persistMessage(ws.Store, ws.SessionID, input.UserMessage(), ws.Logger)
	persistMessage(ws.Store, ws.SessionID, response, ws.Logger)
	recordRun(ws.Runs, ws.SessionID, cfg, input, response.Text(), stores.RunStatusOK, nil, started, ws.Logger)

	if err := ws.Writer.WriteResponse(WSCompleteMessage{Type: "message", Text: response.Text()}); err != nil {
		return err
	}
	return ws.Writer.WriteDone()
}

func (ws *WebSocketSession) handleStreamingPrompt(ctx context.Context, cfg chat.Config, input models.UserInput) error {
	started := time.Now()
	stream, err := ws.Orchestrator.SendMessageStream(ctx, input)
	if err != nil {
		return ws.sendError(err.Error(), false)
	}
	persistMessage(ws.Store, ws.SessionID, input.UserMessage(), ws.Logger)

	for {
		fragment, ok := stream.Next()
		if !ok {
			break
		}
		if err := ws.Writer.WriteResponse(WSFragmentMessage{Type: "fragment", Text: fragment}); err != nil {
			// Client went away mid-stream; keep whatever was received.
			stream.Close()
			persistLastModelTurn(ws.Orchestrator, ws.Store, ws.SessionID, ws.Logger)
			recordRun(ws.Runs, ws.SessionID, cfg, input, stream.Text(), stores.RunStatusCancelled, stream.Err(), started, ws.Logger)
			return err
		}
	}

	persistLastModelTurn(ws.Orchestrator, ws.Store, ws.SessionID, ws.Logger)

	if err := stream.Err(); err != nil {
		recordRun(ws.Runs, ws.SessionID, cfg, input, stream.Text(), stores.RunStatusError, err, started, ws.Logger)
		return ws.sendError(err.Error(), false)
	}

	recordRun(ws.Runs, ws.SessionID, cfg, input, stream.Text(), stores.RunStatusOK, nil, started, ws.Logger)
	return ws.Writer.WriteDone()
}

// sendError reports an error to the client; a fatal error also signals the
// caller to drop the connection.
func (ws *WebSocketSession) sendError(message string, fatal bool) error {
	if err := ws.Writer.WriteError(message); err != nil {
		return err
	}
	if fatal {
		return &SessionError{Message: message, Fatal: true}
	}
	return nil
}
