package chatsync

import (
	"context"

	"patentchat/internal/models"
)

// sendReadReceipt fires one mark-read call for the window just loaded. The
// outcome is logged and otherwise ignored: no retry, no error to the caller,
// and the load it follows is never rolled back.
func (s *Session) sendReadReceipt(page models.Page) {
	var lastID string
	if n := len(page.Items); n > 0 {
		lastID = page.Items[n-1].ID
	}
	key := ReadKey(s.conversationID, lastID)

	s.pending.add()
	go func() {
		defer s.pending.done()

		ctx, cancel := context.WithTimeout(s.ctx, s.opts.ReceiptTimeout)
		defer cancel()

		if err := s.api.MarkRead(ctx, s.conversationID, key); err != nil {
			s.log.Debug().Err(err).Str("key", key).Msg("read receipt dropped")
			return
		}
		s.log.Trace().Str("key", key).Msg("read receipt sent")
	}()
}
