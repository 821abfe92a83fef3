package chatsync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"patentchat/internal/models"
)

// outboxEntry is the bookkeeping for one logical send.
type outboxEntry struct {
	localID     string
	serverID    string
	key         string
	request     models.CreateMessageRequest
	submittedAt time.Time
	state       SendState
	attempts    int
}

// Send appends text as an optimistic message and returns its local ID. The
// message is in the store, marked sending, before any network I/O starts;
// the create call runs in the background and later either swaps in the
// server copy at the same position or marks the message failed.
func (s *Session) Send(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}

	entry := &outboxEntry{
		localID: NewLocalID(),
		request: models.CreateMessageRequest{Type: models.MessageTypeText, Text: text},
	}

	var err error
	applied := s.whileActive(func() {
		s.outboxMu.Lock()
		defer s.outboxMu.Unlock()

		entry.submittedAt = s.submissionTime()
		entry.key = MessageKey(s.conversationID, entry.submittedAt)
		if entry.state, err = entry.state.Transition(StateSending); err != nil {
			return
		}

		msg := models.Message{
			ID:             entry.localID,
			ConversationID: s.conversationID,
			SenderUserID:   s.opts.SenderUserID,
			Type:           entry.request.Type,
			Text:           entry.request.Text,
			CreatedAt:      entry.submittedAt,
			LocalStatus:    entry.state.LocalStatus(),
		}
		if err = s.store.AppendOptimistic(msg); err != nil {
			return
		}
		s.outbox[entry.localID] = entry
		entry.attempts++
		s.dispatch(entry)
	})
	if !applied {
		return "", ErrSessionClosed
	}
	if err != nil {
		return "", fmt.Errorf("append optimistic message: %w", err)
	}
	return entry.localID, nil
}

// submissionTime returns a wall-clock stamp strictly after the previous one,
// so two sends in the same clock tick still get distinct idempotency keys.
// Callers hold outboxMu.
func (s *Session) submissionTime() time.Time {
	now := s.opts.Now()
	if !now.After(s.lastSent) {
		now = s.lastSent.Add(time.Nanosecond)
	}
	s.lastSent = now
	return now
}

// dispatch issues the create call for entry on its own goroutine.
func (s *Session) dispatch(entry *outboxEntry) {
	req := entry.request
	key := entry.key
	localID := entry.localID

	s.pending.add()
	go func() {
		defer s.pending.done()

		msg, err := s.api.CreateMessage(s.ctx, s.conversationID, key, req)
		s.settle(localID, msg, err)
	}()
}

// settle applies the outcome of a create call to the entry's own slot.
func (s *Session) settle(localID string, confirmed models.Message, callErr error) {
	log := s.log.With().Str("local_id", localID).Logger()

	applied := s.whileActive(func() {
		s.outboxMu.Lock()
		defer s.outboxMu.Unlock()

		entry, ok := s.outbox[localID]
		if !ok {
			return
		}

		if callErr != nil {
			entry.state, _ = entry.state.Transition(StateFailed)
			if err := s.store.MarkFailed(localID); err != nil {
				log.Warn().Err(err).Msg("optimistic message vanished before failure could be recorded")
			}
			log.Warn().Err(callErr).Int("attempts", entry.attempts).Msg("send failed")
			return
		}

		entry.state, _ = entry.state.Transition(StateConfirmed)
		entry.serverID = confirmed.ID
		if err := s.store.Reconcile(localID, confirmed); err != nil {
			log.Warn().Err(err).Str("message_id", confirmed.ID).Msg("optimistic message vanished before confirmation")
			return
		}
		log.Debug().Str("message_id", confirmed.ID).Msg("send confirmed")
	})
	if !applied {
		log.Debug().Err(callErr).Msg("session closed, dropping send result")
	}
}

// SendState returns the lifecycle state of the send that minted localID.
// Unknown IDs report StateNone.
func (s *Session) SendState(localID string) SendState {
	s.outboxMu.Lock()
	defer s.outboxMu.Unlock()

	if entry, ok := s.outbox[localID]; ok {
		return entry.state
	}
	return StateNone
}

// ConfirmedID returns the server ID that replaced localID, once confirmed.
func (s *Session) ConfirmedID(localID string) (string, bool) {
	s.outboxMu.Lock()
	defer s.outboxMu.Unlock()

	entry, ok := s.outbox[localID]
	if !ok || entry.state != StateConfirmed {
		return "", false
	}
	return entry.serverID, true
}

// SendAndWait is Send followed by waiting for that message to settle. It is
// meant for command-line callers that have nothing else to render.
func (s *Session) SendAndWait(ctx context.Context, text string) (string, error) {
	localID, err := s.Send(text)
	if err != nil {
		return "", err
	}
	return localID, s.WaitContext(ctx)
}

// WaitContext is Wait bounded by ctx.
func (s *Session) WaitContext(ctx context.Context) error {
	select {
	case <-s.pending.idle():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
