package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nvelaz/geminiplay/chat"
	"github.com/nvelaz/geminiplay/models"
	"github.com/nvelaz/geminiplay/stores"
)

// scriptedUpstream returns a fixed reply (atomic) or fragment sequence
// (streaming), optionally failing instead.
type scriptedUpstream struct {
	reply     string
	fragments []string
	err       error
	lastReq   models.GenerateRequest
}

func (s *scriptedUpstream) Generate(_ context.Context, req models.GenerateRequest) (models.GenerateResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return models.GenerateResponse{}, s.err
	}
	return models.GenerateResponse{Parts: []models.Part{{Text: s.reply}}}, nil
}

func (s *scriptedUpstream) GenerateStream(_ context.Context, req models.GenerateRequest) (<-chan models.GenerateResponse, <-chan error) {
	s.lastReq = req
	respChan := make(chan models.GenerateResponse)
	errChan := make(chan error, 1)
	go func() {
		defer close(respChan)
		defer close(errChan)
		for _, f := range s.fragments {
			respChan <- models.GenerateResponse{Parts: []models.Part{{Text: f}}}
		}
		if s.err != nil {
			errChan <- s.err
		}
	}()
	return respChan, errChan
}

// memoryStore is an in-memory stores.MessageStore for session tests.
type memoryStore struct {
	rows    []stores.Message
	cleared int
}

func (m *memoryStore) SaveMessage(conversationID, role string, parts interface{}, incomplete bool) error {
	data, err := json.Marshal(parts)
	if err != nil {
		return err
	}
	m.rows = append(m.rows, stores.Message{
		ConversationID: conversationID,
		Sequence:       len(m.rows) + 1,
		Role:           role,
		Incomplete:     incomplete,
		PartsJSON:      string(data),
	})
	return nil
}

func (m *memoryStore) FetchHistory(conversationID string, limit int) ([]stores.Message, error) {
	rows := make([]stores.Message, 0, len(m.rows))
	for _, row := range m.rows {
		if row.ConversationID == conversationID {
			rows = append(rows, row)
		}
	}
	if limit > 0 && len(rows) > limit*2 {
		rows = rows[len(rows)-limit*2:]
	}
	return rows, nil
}

func (m *memoryStore) ClearHistory(conversationID string) error {
	kept := m.rows[:0]
	for _, row := range m.rows {
		if row.ConversationID != conversationID {
			kept = append(kept, row)
		}
	}
	m.rows = kept
	m.cleared++
	return nil
}

func (m *memoryStore) CreateConversation(conversationID, userID string) error { return nil }
func (m *memoryStore) ListConversations() ([]string, error)                  { return nil, nil }
func (m *memoryStore) ListConversationsForUser(userID string) ([]stores.ConversationInfo, error) {
	return nil, nil
}
func (m *memoryStore) DeleteConversationsIdleSince(cutoff time.Time) (int64, error) { return 0, nil }
func (m *memoryStore) Connect() error                                               { return nil }
func (m *memoryStore) Close() error                                                 { return nil }
func (m *memoryStore) Ping() error                                                  { return nil }

// memoryRunLog collects run records.
type memoryRunLog struct {
	records []*stores.RunRecord
}

func (m *memoryRunLog) SaveRun(record *stores.RunRecord) error {
	m.records = append(m.records, record)
	return nil
}

func (m *memoryRunLog) RecentRuns(conversationID string, limit int) ([]*stores.RunRecord, error) {
	out := []*stores.RunRecord{}
	for _, r := range m.records {
		if r.ConversationID == conversationID {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestSession(t *testing.T, upstream chat.Upstream, store stores.MessageStore) (*HTTPSession, *memoryRunLog) {
	t.Helper()
	orch, err := chat.NewOrchestrator(upstream, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	runs := &memoryRunLog{}
	return NewHTTPSession("conv-test", orch, store).WithRunLog(runs), runs
}

func TestRunSingleInteraction_PersistsBothTurns(t *testing.T) {
	store := &memoryStore{}
	session, runs := newTestSession(t, &scriptedUpstream{reply: "Hi there"}, store)

	response, err := session.RunSingleInteraction(context.Background(), models.UserInput{Text: "Hello"}, nil)
	if err != nil {
		t.Fatalf("RunSingleInteraction failed: %v", err)
	}
	if response.Text() != "Hi there" {
		t.Errorf("Expected 'Hi there', got %q", response.Text())
	}

	if len(store.rows) != 2 {
		t.Fatalf("Expected 2 persisted rows, got %d", len(store.rows))
	}
	if store.rows[0].Role != "user" || store.rows[0].Text() != "Hello" {
		t.Errorf("Expected persisted user turn 'Hello', got %s %q", store.rows[0].Role, store.rows[0].Text())
	}
	if store.rows[1].Role != "model" || store.rows[1].Text() != "Hi there" {
		t.Errorf("Expected persisted model turn 'Hi there', got %s %q", store.rows[1].Role, store.rows[1].Text())
	}

	if len(runs.records) != 1 || runs.records[0].Status != stores.RunStatusOK {
		t.Errorf("Expected one successful run record, got %+v", runs.records)
	}
}

func TestRunSingleInteraction_UpstreamFailurePersistsUserTurnOnly(t *testing.T) {
	store := &memoryStore{}
	session, runs := newTestSession(t, &scriptedUpstream{err: fmt.Errorf("boom")}, store)

	_, err := session.RunSingleInteraction(context.Background(), models.UserInput{Text: "Hello"}, nil)
	if !errors.Is(err, chat.ErrUpstreamFailure) {
		t.Fatalf("Expected ErrUpstreamFailure, got %v", err)
	}

	if len(store.rows) != 1 || store.rows[0].Role != "user" {
		t.Fatalf("Expected only the user turn persisted, got %d rows", len(store.rows))
	}
	if len(runs.records) != 1 || runs.records[0].Status != stores.RunStatusError {
		t.Errorf("Expected one failed run record, got %+v", runs.records)
	}
}

func TestRunSingleInteraction_EmptyInputPersistsNothing(t *testing.T) {
	store := &memoryStore{}
	session, runs := newTestSession(t, &scriptedUpstream{reply: "unused"}, store)

	_, err := session.RunSingleInteraction(context.Background(), models.UserInput{}, nil)
	if !errors.Is(err, chat.ErrEmptyInput) {
		t.Fatalf("Expected ErrEmptyInput, got %v", err)
	}
	if len(store.rows) != 0 || len(runs.records) != 0 {
		t.Errorf("Expected nothing persisted for a rejected input")
	}
}

func TestRunSingleInteraction_AppliesRequestOptions(t *testing.T) {
	upstream := &scriptedUpstream{reply: "ok"}
	session, _ := newTestSession(t, upstream, nil)

	model := "gemini-override"
	temperature := 0.2
	_, err := session.RunSingleInteraction(context.Background(), models.UserInput{Text: "hi"}, &models.RequestOptions{
		Model:       &model,
		Temperature: &temperature,
	})
	if err != nil {
		t.Fatalf("RunSingleInteraction failed: %v", err)
	}

	if upstream.lastReq.Model != "gemini-override" || upstream.lastReq.Temperature != 0.2 {
		t.Errorf("Request options were not applied: %+v", upstream.lastReq)
	}
}

func TestRunSingleInteraction_InvalidOptionsRejectedBeforeDispatch(t *testing.T) {
	upstream := &scriptedUpstream{reply: "unused"}
	session, _ := newTestSession(t, upstream, nil)

	temperature := 5.0
	_, err := session.RunSingleInteraction(context.Background(), models.UserInput{Text: "hi"}, &models.RequestOptions{
		Temperature: &temperature,
	})
	if !errors.Is(err, chat.ErrInvalidConfiguration) {
		t.Fatalf("Expected ErrInvalidConfiguration, got %v", err)
	}
	if len(session.Orchestrator.History()) != 0 {
		t.Errorf("Expected no history after rejected options")
	}
}

func TestRunStreamInteraction_ForwardsFragmentsAndPersists(t *testing.T) {
	store := &memoryStore{}
	session, runs := newTestSession(t, &scriptedUpstream{fragments: []string{"Hi ", "there"}}, store)

	respChan, errChan := session.RunStreamInteraction(context.Background(), models.UserInput{Text: "Hello"}, nil)

	var text string
	for resp := range respChan {
		text += resp.Text()
	}
	if err := <-errChan; err != nil {
		t.Fatalf("Expected clean stream end, got %v", err)
	}
	if text != "Hi there" {
		t.Errorf("Expected forwarded text 'Hi there', got %q", text)
	}

	if len(store.rows) != 2 {
		t.Fatalf("Expected 2 persisted rows, got %d", len(store.rows))
	}
	if store.rows[1].Role != "model" || store.rows[1].Incomplete {
		t.Errorf("Expected a complete persisted model turn, got %+v", store.rows[1])
	}
	if len(runs.records) != 1 || runs.records[0].Status != stores.RunStatusOK {
		t.Errorf("Expected one successful run record, got %+v", runs.records)
	}
}

func TestRunStreamInteraction_UpstreamErrorPersistsPartial(t *testing.T) {
	store := &memoryStore{}
	session, runs := newTestSession(t, &scriptedUpstream{
		fragments: []string{"partial "},
		err:       fmt.Errorf("connection reset"),
	}, store)

	respChan, errChan := session.RunStreamInteraction(context.Background(), models.UserInput{Text: "Hello"}, nil)
	for range respChan {
	}
	err := <-errChan
	if !errors.Is(err, chat.ErrUpstreamFailure) {
		t.Fatalf("Expected ErrUpstreamFailure, got %v", err)
	}

	if len(store.rows) != 2 {
		t.Fatalf("Expected user turn plus partial model turn, got %d rows", len(store.rows))
	}
	if !store.rows[1].Incomplete || store.rows[1].Text() != "partial " {
		t.Errorf("Expected incomplete model turn with the received fragment, got %+v", store.rows[1])
	}
	if len(runs.records) != 1 || runs.records[0].Status != stores.RunStatusError {
		t.Errorf("Expected one failed run record, got %+v", runs.records)
	}
}

// recordingSSEWriter captures the frames an SSE interaction writes.
type recordingSSEWriter struct {
	frames      []string
	errorFrames []string
}

func (w *recordingSSEWriter) WriteSSE(data string) error {
	w.frames = append(w.frames, data)
	return nil
}

func (w *recordingSSEWriter) WriteSSEError(err error) error {
	w.errorFrames = append(w.errorFrames, err.Error())
	return nil
}

func (w *recordingSSEWriter) Flush() {}

func TestRunSSEInteraction_WritesFragmentsAndFinishesClean(t *testing.T) {
	session, _ := newTestSession(t, &scriptedUpstream{fragments: []string{"Hi ", "there"}}, nil)
	writer := &recordingSSEWriter{}

	err := session.RunSSEInteraction(context.Background(), models.UserInput{Text: "Hello"}, nil, writer)
	if err != nil {
		t.Fatalf("RunSSEInteraction failed: %v", err)
	}
	if len(writer.frames) != 2 || writer.frames[0]+writer.frames[1] != "Hi there" {
		t.Errorf("Expected fragments 'Hi ' + 'there', got %v", writer.frames)
	}
	if len(writer.errorFrames) != 0 {
		t.Errorf("Expected no error frames, got %v", writer.errorFrames)
	}
}

func TestRunSSEInteraction_UpstreamErrorAlwaysWritesErrorFrame(t *testing.T) {
	// The stream goroutine buffers the terminal error and then closes both
	// channels, so the consumer can observe the closed fragment channel
	// before the error. Repeat to cover both select orders.
	for i := 0; i < 200; i++ {
		session, _ := newTestSession(t, &scriptedUpstream{
			fragments: []string{"partial "},
			err:       fmt.Errorf("connection reset"),
		}, nil)
		writer := &recordingSSEWriter{}

		err := session.RunSSEInteraction(context.Background(), models.UserInput{Text: "Hello"}, nil, writer)
		if !errors.Is(err, chat.ErrUpstreamFailure) {
			t.Fatalf("Iteration %d: expected ErrUpstreamFailure, got %v", i, err)
		}
		if len(writer.errorFrames) != 1 {
			t.Fatalf("Iteration %d: expected one error frame, got %v", i, writer.errorFrames)
		}
	}
}

func TestGetChatHistory_FallsBackToMemoryWithoutStore(t *testing.T) {
	session, _ := newTestSession(t, &scriptedUpstream{reply: "Hi"}, nil)

	if _, err := session.RunSingleInteraction(context.Background(), models.UserInput{Text: "Hello"}, nil); err != nil {
		t.Fatalf("RunSingleInteraction failed: %v", err)
	}

	history, err := session.GetChatHistory()
	if err != nil {
		t.Fatalf("GetChatHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(history))
	}
	if history[0].Role != "user" || history[0].Text != "Hello" || history[0].Sequence != 1 {
		t.Errorf("Unexpected first entry: %+v", history[0])
	}
	if history[1].Role != "model" || history[1].Text != "Hi" {
		t.Errorf("Unexpected second entry: %+v", history[1])
	}
}

func TestClearHistory_ClearsMemoryAndStore(t *testing.T) {
	store := &memoryStore{}
	session, _ := newTestSession(t, &scriptedUpstream{reply: "Hi"}, store)

	if _, err := session.RunSingleInteraction(context.Background(), models.UserInput{Text: "Hello"}, nil); err != nil {
		t.Fatalf("RunSingleInteraction failed: %v", err)
	}
	if err := session.ClearHistory(); err != nil {
		t.Fatalf("ClearHistory failed: %v", err)
	}

	if len(session.Orchestrator.History()) != 0 {
		t.Errorf("Expected empty in-memory history")
	}
	if len(store.rows) != 0 {
		t.Errorf("Expected empty store, got %d rows", len(store.rows))
	}
	if err := session.ClearHistory(); err != nil {
		t.Errorf("Second ClearHistory should succeed, got %v", err)
	}
}

func TestNewHTTPSession_SeedsFromStore(t *testing.T) {
	store := &memoryStore{}
	if err := store.SaveMessage("conv-test", "user", []models.Part{{Text: "earlier question"}}, false); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveMessage("conv-test", "model", []models.Part{{Text: "earlier answer"}}, false); err != nil {
		t.Fatal(err)
	}

	session, _ := newTestSession(t, &scriptedUpstream{reply: "unused"}, store)

	history := session.Orchestrator.History()
	if len(history) != 2 {
		t.Fatalf("Expected 2 seeded messages, got %d", len(history))
	}
	if history[0].Text() != "earlier question" || history[1].Text() != "earlier answer" {
		t.Errorf("Seeded history out of order: %q, %q", history[0].Text(), history[1].Text())
	}
}

func TestNewHTTPSession_SeedDropsOrphanedModelTurn(t *testing.T) {
	store := &memoryStore{}
	// A model turn whose user turn was lost, then a clean exchange.
	if err := store.SaveMessage("conv-test", "model", []models.Part{{Text: "orphaned reply"}}, false); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveMessage("conv-test", "user", []models.Part{{Text: "question"}}, false); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveMessage("conv-test", "model", []models.Part{{Text: "answer"}}, false); err != nil {
		t.Fatal(err)
	}

	session, _ := newTestSession(t, &scriptedUpstream{reply: "unused"}, store)

	history := session.Orchestrator.History()
	if len(history) != 2 {
		t.Fatalf("Expected the orphan dropped and 2 messages seeded, got %d", len(history))
	}
	if history[0].Role != models.RoleUser || history[0].Text() != "question" {
		t.Errorf("Expected seeded history to start at the user turn, got %s %q", history[0].Role, history[0].Text())
	}
}
