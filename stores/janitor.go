package stores

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// ConversationJanitor prunes conversations that have been idle longer than
// the TTL, on a cron schedule. Pruning removes the conversation, its
// messages and its run records.
type ConversationJanitor struct {
	store   MessageStore
	ttl     time.Duration
	cron    *cron.Cron
	entryID cron.EntryID
}

// NewConversationJanitor creates a janitor for the given store. ttl is how
// long a conversation may sit untouched before it is removed.
func NewConversationJanitor(store MessageStore, ttl time.Duration) *ConversationJanitor {
	return &ConversationJanitor{
		store: store,
		ttl:   ttl,
		cron:  cron.New(),
	}
}

// Start schedules pruning with the given cron spec (e.g. "@hourly" or
// "0 3 * * *") and runs one pass immediately.
func (j *ConversationJanitor) Start(spec string) error {
	entryID, err := j.cron.AddFunc(spec, j.prune)
	if err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", spec, err)
	}
	j.entryID = entryID
	j.cron.Start()
	go j.prune()
	return nil
}

// Stop halts the schedule and waits for a running prune pass to finish.
func (j *ConversationJanitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *ConversationJanitor) prune() {
	cutoff := time.Now().Add(-j.ttl)
	removed, err := j.store.DeleteConversationsIdleSince(cutoff)
	if err != nil {
		log.Printf("[JANITOR] prune failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("[JANITOR] removed %d conversation(s) idle since %s", removed, cutoff.Format(time.RFC3339))
	}
}
