package chat

import (
	"fmt"

	"github.com/nvelaz/geminiplay/models"
)

// Stream is the lazy fragment sequence returned by SendMessageStream. It is
// finite, forward-only and single-consumption: each Next call pulls one
// fragment from upstream on the caller's goroutine.
//
// When the sequence is exhausted, the model turn assembled from all
// fragments is appended to the session. Closing the stream before
// exhaustion records whatever fragments were consumed as an incomplete
// model turn instead, so history is never left inconsistent.
type Stream struct {
	orch     *Orchestrator
	respChan <-chan models.GenerateResponse
	errChan  <-chan error

	parts []models.Part
	err   error
	done  bool
}

// Next returns the next text fragment in emission order. It reports false
// once the sequence is exhausted or has failed; check Err afterwards.
func (s *Stream) Next() (string, bool) {
	if s.done {
		return "", false
	}

	for {
		select {
		case resp, ok := <-s.respChan:
			if !ok {
				s.respChan = nil
				break
			}
			s.parts = append(s.parts, resp.Parts...)
			return resp.Text(), true

		case err, ok := <-s.errChan:
			if ok && err != nil {
				s.fail(err)
				return "", false
			}
			if !ok {
				s.errChan = nil
			}
		}

		if s.respChan == nil && s.errChan == nil {
			s.finish()
			return "", false
		}
	}
}

// Err returns the terminal error, if any: a wrapped ErrUpstreamFailure when
// the upstream stream broke, or ErrCancelled after an early Close. It is
// nil while fragments are still flowing and after clean exhaustion.
func (s *Stream) Err() error {
	return s.err
}

// Text returns the concatenation of the fragments consumed so far.
func (s *Stream) Text() string {
	return models.Message{Parts: s.parts}.Text()
}

// Close abandons the stream. Fragments received up to this point are
// recorded as an incomplete model turn and Err reports ErrCancelled.
// Closing an exhausted or already-closed stream is a no-op.
func (s *Stream) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	s.err = ErrCancelled

	// Unblock the upstream producer goroutine.
	if s.respChan != nil {
		go func(ch <-chan models.GenerateResponse) {
			for range ch {
			}
		}(s.respChan)
	}

	if len(s.parts) > 0 {
		s.orch.append(models.Message{
			Role:       models.RoleModel,
			Parts:      s.parts,
			Incomplete: true,
		})
	}
	return nil
}

// finish records the fully assembled model turn.
func (s *Stream) finish() {
	s.done = true
	if len(s.parts) > 0 {
		s.orch.append(models.Message{Role: models.RoleModel, Parts: s.parts})
	}
}

// fail records the partial turn and surfaces the upstream error.
func (s *Stream) fail(err error) {
	s.done = true
	s.err = fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	if len(s.parts) > 0 {
		s.orch.append(models.Message{
			Role:       models.RoleModel,
			Parts:      s.parts,
			Incomplete: true,
		})
	}
}
