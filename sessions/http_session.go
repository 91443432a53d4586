package sessions

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/nvelaz/geminiplay/chat"
	"github.com/nvelaz/geminiplay/models"
	"github.com/nvelaz/geminiplay/stores"
)

// seedOrchestrator loads the persisted transcript into the orchestrator's
// in-memory history, windowed to the configured retention limit.
func seedOrchestrator(orch *chat.Orchestrator, store stores.MessageStore, conversationID string, logger *log.Logger) {
	if store == nil {
		return
	}

	limit := orch.Config().RetentionLimit
	rows, err := store.FetchHistory(conversationID, limit)
	if err != nil {
		logger.Printf("Error fetching history: %v", err)
		return
	}
	for _, issue := range stores.DetectCorruptedHistory(rows) {
		logger.Printf("Stored history issue: %s", issue)
	}
	rows = stores.WindowHistory(rows, limit)

	history := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		msg, err := row.ToModel()
		if err != nil {
			logger.Printf("Warning: skipping unreadable history row %d: %v", row.ID, err)
			continue
		}
		history = append(history, msg)
	}
	orch.Seed(history)
}

func (s *HTTPSession) seedFromStore() {
	seedOrchestrator(s.Orchestrator, s.Store, s.ConversationID, s.Logger)
}

// applyOptions overlays per-request options onto the session configuration.
func (s *HTTPSession) applyOptions(opts *models.RequestOptions) error {
	if opts == nil {
		return nil
	}
	return s.Orchestrator.Configure(s.Orchestrator.Config().Apply(opts))
}

// RunSingleInteraction handles a complete atomic request-response cycle.
func (s *HTTPSession) RunSingleInteraction(ctx context.Context, input models.UserInput, opts *models.RequestOptions) (models.Message, error) {
	if err := s.applyOptions(opts); err != nil {
		return models.Message{}, err
	}
	cfg := s.Orchestrator.Config()
	started := time.Now()

	response, err := s.Orchestrator.SendMessage(ctx, input)
	if err != nil {
		// The user turn stays recorded on upstream failure so a retry does
		// not need to re-enter the prompt. Validation failures recorded
		// nothing, so there is nothing to persist.
		if errors.Is(err, chat.ErrUpstreamFailure) {
			s.persistMessage(input.UserMessage())
			s.recordRun(cfg, input, "", stores.RunStatusError, err, started)
		}
		return models.Message{}, err
	}

	s.persistMessage(input.UserMessage())
	s.persistMessage(response)
	s.recordRun(cfg, input, response.Text(), stores.RunStatusOK, nil, started)
	return response, nil
}

// RunStreamInteraction dispatches a streaming exchange and forwards the
// fragments on a channel pair. The user turn and the assembled (or partial)
// model turn are persisted once the stream ends.
func (s *HTTPSession) RunStreamInteraction(ctx context.Context, input models.UserInput, opts *models.RequestOptions) (<-chan models.GenerateResponse, <-chan error) {
	respChan := make(chan models.GenerateResponse)
	errChan := make(chan error, 1)

	go func() {
		defer close(respChan)
		defer close(errChan)

		if err := s.applyOptions(opts); err != nil {
			errChan <- err
			return
		}
		cfg := s.Orchestrator.Config()
		started := time.Now()

		stream, err := s.Orchestrator.SendMessageStream(ctx, input)
		if err != nil {
			errChan <- err
			return
		}
		s.persistMessage(input.UserMessage())

		for {
			fragment, ok := stream.Next()
			if !ok {
				break
			}
			select {
			case respChan <- models.GenerateResponse{Parts: []models.Part{{Text: fragment}}}:
			case <-ctx.Done():
				stream.Close()
				s.persistLastModelTurn()
				s.recordRun(cfg, input, stream.Text(), stores.RunStatusCancelled, ctx.Err(), started)
				errChan <- stream.Err()
				return
			}
		}

		if err := stream.Err(); err != nil {
			s.persistLastModelTurn()
			s.recordRun(cfg, input, stream.Text(), stores.RunStatusError, err, started)
			errChan <- err
			return
		}

		s.persistLastModelTurn()
		s.recordRun(cfg, input, stream.Text(), stores.RunStatusOK, nil, started)
	}()

	return respChan, errChan
}

// RunSSEInteraction runs a streaming exchange and writes each fragment to
// the SSE writer, honoring client disconnects via ctx.
func (s *HTTPSession) RunSSEInteraction(ctx context.Context, input models.UserInput, opts *models.RequestOptions, writer SSEWriter) error {
	respChan, errChan := s.RunStreamInteraction(ctx, input, opts)

	for {
		select {
		case response, ok := <-respChan:
			if !ok {
				// The fragment channel can close while a terminal error is
				// still buffered; keep draining errChan before finishing.
				respChan = nil
				break
			}
			if err := writer.WriteSSE(response.Text()); err != nil {
				s.Logger.Printf("Error writing to SSE stream: %v", err)
				return err
			}
			writer.Flush()

		case err, ok := <-errChan:
			if ok && err != nil {
				s.Logger.Printf("SSE stream error: %v", err)
				if writeErr := writer.WriteSSEError(err); writeErr != nil {
					s.Logger.Printf("Error writing SSE error: %v", writeErr)
				}
				writer.Flush()
				return err
			}
			if !ok {
				errChan = nil
			}

		case <-ctx.Done():
			s.Logger.Printf("SSE client disconnected")
			return ctx.Err()
		}

		if respChan == nil && errChan == nil {
			s.Logger.Printf("SSE stream finished.")
			return nil
		}
	}
}

// GetChatHistory retrieves chat history in the API response format. It
// prefers the store; without one, the in-memory session is used.
func (s *HTTPSession) GetChatHistory() ([]models.ChatMessageResponse, error) {
	if s.Store == nil {
		history := s.Orchestrator.History()
		out := make([]models.ChatMessageResponse, 0, len(history))
		for i, msg := range history {
			out = append(out, models.ChatMessageResponse{
				ConversationID: s.ConversationID,
				Sequence:       i + 1,
				Role:           string(msg.Role),
				Incomplete:     msg.Incomplete,
				Text:           msg.Text(),
				Parts:          msg.Parts,
			})
		}
		return out, nil
	}

	rows, err := s.Store.FetchHistory(s.ConversationID, 0)
	if err != nil {
		return nil, err
	}

	out := make([]models.ChatMessageResponse, 0, len(rows))
	for _, row := range rows {
		parts, err := row.Parts()
		if err != nil {
			s.Logger.Printf("Error unmarshalling parts for msg ID %d: %v", row.ID, err)
		}
		out = append(out, models.ChatMessageResponse{
			ID:             row.ID,
			CreatedAt:      row.CreatedAt,
			UpdatedAt:      row.UpdatedAt,
			ConversationID: row.ConversationID,
			Sequence:       row.Sequence,
			Role:           row.Role,
			Incomplete:     row.Incomplete,
			Text:           row.Text(),
			Parts:          parts,
		})
	}
	return out, nil
}

// ClearHistory resets both the in-memory session and the persisted
// transcript. Idempotent.
func (s *HTTPSession) ClearHistory() error {
	s.Orchestrator.ClearHistory()
	if s.Store == nil {
		return nil
	}
	return s.Store.ClearHistory(s.ConversationID)
}

// persistMessage mirrors one turn into the store, when there is one.
func (s *HTTPSession) persistMessage(msg models.Message) {
	persistMessage(s.Store, s.ConversationID, msg, s.Logger)
}

// persistLastModelTurn persists the model turn the orchestrator just
// appended, if the exchange produced one.
func (s *HTTPSession) persistLastModelTurn() {
	persistLastModelTurn(s.Orchestrator, s.Store, s.ConversationID, s.Logger)
}

func (s *HTTPSession) recordRun(cfg chat.Config, input models.UserInput, responseText, status string, runErr error, started time.Time) {
	recordRun(s.Runs, s.ConversationID, cfg, input, responseText, status, runErr, started, s.Logger)
}

func persistMessage(store stores.MessageStore, conversationID string, msg models.Message, logger *log.Logger) {
	if store == nil || len(msg.Parts) == 0 {
		return
	}
	if err := store.SaveMessage(conversationID, string(msg.Role), msg.Parts, msg.Incomplete); err != nil {
		logger.Printf("Error saving %s message: %v", msg.Role, err)
	}
}

func persistLastModelTurn(orch *chat.Orchestrator, store stores.MessageStore, conversationID string, logger *log.Logger) {
	history := orch.History()
	if len(history) == 0 {
		return
	}
	last := history[len(history)-1]
	if last.Role != models.RoleModel {
		// The stream yielded nothing before it ended; no model turn to keep.
		return
	}
	persistMessage(store, conversationID, last, logger)
}

func recordRun(runs stores.RunStore, conversationID string, cfg chat.Config, input models.UserInput, responseText, status string, runErr error, started time.Time, logger *log.Logger) {
	if runs == nil {
		return
	}
	record := &stores.RunRecord{
		ConversationID: conversationID,
		Model:          cfg.Model,
		Temperature:    cfg.Temperature,
		Streaming:      cfg.StreamingEnabled,
		Status:         status,
		PromptText:     input.Text,
		ResponseText:   responseText,
		DurationMS:     time.Since(started).Milliseconds(),
	}
	if runErr != nil {
		record.Error = runErr.Error()
	}
	if err := runs.SaveRun(record); err != nil {
		logger.Printf("Error saving run record: %v", err)
	}
}
