package chatsync

import (
	"fmt"

	"patentchat/internal/models"
)

// Retry drives a failed send through the pipeline again. The message keeps its
// ID and position and goes back to sending before the create call is
// re-issued with the original payload and the original idempotency key.
// Reusing the key means a first attempt that did reach the server, but whose
// response was lost, is answered with that message instead of a duplicate.
func (s *Session) Retry(localID string) error {
	var err error
	applied := s.whileActive(func() {
		s.outboxMu.Lock()
		defer s.outboxMu.Unlock()

		msg, ok := s.store.Get(localID)
		if !ok {
			err = fmt.Errorf("%w: %s", ErrNotFound, localID)
			return
		}
		entry, tracked := s.outbox[localID]
		if !tracked || msg.LocalStatus != models.LocalStatusFailed || msg.Type != models.MessageTypeText {
			err = fmt.Errorf("%w: %s is %q", ErrNotRetryable, localID, msg.LocalStatus)
			return
		}

		next, terr := entry.state.Transition(StateSending)
		if terr != nil {
			err = fmt.Errorf("%w: %w", ErrNotRetryable, terr)
			return
		}
		if err = s.store.MarkSending(localID); err != nil {
			return
		}
		entry.state = next
		entry.attempts++
		s.log.Debug().Str("local_id", localID).Int("attempt", entry.attempts).Msg("retrying send")
		s.dispatch(entry)
	})
	if !applied {
		return ErrSessionClosed
	}
	return err
}

// Failed returns the local IDs currently marked failed, in display order.
func (s *Session) Failed() []string {
	var ids []string
	for _, m := range s.store.Snapshot() {
		if m.LocalStatus == models.LocalStatusFailed {
			ids = append(ids, m.ID)
		}
	}
	return ids
}
