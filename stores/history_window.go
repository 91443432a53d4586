package stores

import (
	"fmt"
	"log"
)

// WindowHistory trims a fetched transcript to the last `limit` exchanges
// (user+model pairs) and repairs turn order so the result is safe to replay
// against the API.
//
// Two issues can appear in stored transcripts:
// 1. Truncated fetches can start with a model turn whose user turn was cut
//    off; such an orphaned model turn is dropped.
// 2. A failed exchange leaves a user turn with no model reply; mid-history
//    that is followed directly by the next user turn, which is valid for
//    replay, so those are kept.
//
// The returned slice always starts with a user turn (or is empty).
func WindowHistory(msgs []Message, limit int) []Message {
	if len(msgs) == 0 {
		return msgs
	}

	start := 0
	for start < len(msgs) && msgs[start].Role != "user" {
		start++
	}
	if start > 0 {
		log.Printf("[HISTORY_WINDOW] Dropping %d leading model turn(s) with no user turn", start)
		msgs = msgs[start:]
	}
	if len(msgs) == 0 {
		return msgs
	}

	if limit <= 0 {
		return msgs
	}

	// Group into exchanges: a user turn plus everything up to the next user
	// turn. Counting exchanges rather than rows keeps pairs intact.
	starts := []int{}
	for i, m := range msgs {
		if m.Role == "user" {
			starts = append(starts, i)
		}
	}
	if len(starts) <= limit {
		return msgs
	}

	cut := starts[len(starts)-limit]
	log.Printf("[HISTORY_WINDOW] Evicting %d oldest exchange(s), keeping last %d", len(starts)-limit, limit)
	return msgs[cut:]
}

// DetectCorruptedHistory checks a transcript for issues that would confuse
// the API. Returns a list of findings (empty if the history is clean).
func DetectCorruptedHistory(msgs []Message) []string {
	issues := []string{}

	if len(msgs) == 0 {
		return issues
	}

	if msgs[0].Role == "model" {
		issues = append(issues, "History starts with a model turn (orphaned)")
	}

	for i := 1; i < len(msgs); i++ {
		if msgs[i-1].Role == "model" && msgs[i].Role == "model" {
			issues = append(issues, "Two consecutive model turns")
		}
	}

	for i, m := range msgs {
		if m.Role != "user" && m.Role != "model" {
			issues = append(issues, fmt.Sprintf("Unknown role %q at index %d", m.Role, i))
		}
	}

	return issues
}
