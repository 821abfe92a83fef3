package chatsync

import (
	"context"
	"fmt"

	"patentchat/internal/models"
)

// LoadResult describes one LoadOlder call.
type LoadResult struct {
	// Page is what the server returned.
	Page models.Page

	// AnchorID was first in the store before the merge. The view scrolls back
	// to it so older content appears above without a jump.
	AnchorID string

	// Added is how many messages the merge actually inserted.
	Added int

	// Skipped is true when another LoadOlder was already in flight and no
	// request was made, or when the page was discarded as Stale.
	Skipped bool

	// Stale is true when LoadInitial replaced the window while the request
	// was outstanding. The page was fetched for the old window and was not
	// merged; the cursor is unchanged.
	Stale bool
}

// LoadInitial fetches the newest window and replaces the whole store with it.
// On success a read receipt is sent in the background.
func (s *Session) LoadInitial(ctx context.Context) (models.Page, error) {
	if !s.Active() {
		return models.Page{}, ErrSessionClosed
	}

	ctx, cancel := s.requestContext(ctx)
	defer cancel()

	page, err := s.api.ListMessages(ctx, s.conversationID, s.opts.PageSize, "")
	if err != nil {
		s.log.Warn().Err(err).Msg("initial load failed")
		return models.Page{}, fmt.Errorf("load initial window: %w", err)
	}

	applied := s.whileActive(func() {
		s.windowMu.Lock()
		defer s.windowMu.Unlock()
		s.store.Replace(page.Items)
		s.setCursor(page.NextCursor)
		s.window++
	})
	if !applied {
		return models.Page{}, ErrSessionClosed
	}

	s.log.Debug().Int("count", len(page.Items)).Bool("has_older", page.HasOlder()).Msg("initial window loaded")
	s.sendReadReceipt(page)
	return page, nil
}

// LoadOlder fetches the page behind cursor and merges it in front of the
// store. While one call is outstanding any further call returns immediately
// with Skipped set. On error the store is left exactly as it was.
func (s *Session) LoadOlder(ctx context.Context, cursor string) (LoadResult, error) {
	if !s.Active() {
		return LoadResult{}, ErrSessionClosed
	}
	if !s.loadingOlder.CompareAndSwap(false, true) {
		return LoadResult{Skipped: true}, nil
	}
	defer s.loadingOlder.Store(false)

	window := s.currentWindow()

	ctx, cancel := s.requestContext(ctx)
	defer cancel()

	page, err := s.api.ListMessages(ctx, s.conversationID, s.opts.PageSize, cursor)
	if err != nil {
		s.log.Warn().Err(err).Str("cursor", cursor).Msg("load older failed")
		return LoadResult{}, fmt.Errorf("load older page: %w", err)
	}

	res := LoadResult{Page: page}
	applied := s.whileActive(func() {
		s.windowMu.Lock()
		defer s.windowMu.Unlock()
		if s.window != window {
			res.Skipped, res.Stale = true, true
			return
		}
		before := s.store.Len()
		res.AnchorID = s.store.MergeOlder(page.Items)
		res.Added = s.store.Len() - before
		s.setCursor(page.NextCursor)
	})
	if !applied {
		return LoadResult{}, ErrSessionClosed
	}

	if res.Stale {
		s.log.Debug().Str("cursor", cursor).Msg("window replaced during load, older page dropped")
		return res, nil
	}

	s.log.Debug().Int("added", res.Added).Str("anchor", res.AnchorID).Bool("has_older", page.HasOlder()).Msg("older page merged")
	return res, nil
}

// LoadingOlder reports whether a LoadOlder request is in flight.
func (s *Session) LoadingOlder() bool {
	return s.loadingOlder.Load()
}

func (s *Session) currentWindow() uint64 {
	s.windowMu.Lock()
	defer s.windowMu.Unlock()
	return s.window
}
