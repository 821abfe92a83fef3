package chatsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"patentchat/internal/models"
)

func TestLoader_InitialThenOlderScenario(t *testing.T) {
	older := seq("old", 20, baseTime)
	recent := seq("new", 50, baseTime.Add(time.Hour))

	api := &fakeAPI{listFn: func(_ context.Context, cursor string) (models.Page, error) {
		switch cursor {
		case "":
			return models.Page{Items: recent, NextCursor: "c1"}, nil
		case "c1":
			return models.Page{Items: older}, nil
		}
		return models.Page{}, errors.New("unexpected cursor")
	}}
	s := newTestSession(api)
	defer s.Close()

	page, err := s.LoadInitial(context.Background())
	require.NoError(t, err)
	require.Len(t, page.Items, 50)
	require.Equal(t, "c1", s.NextCursor())

	res, err := s.LoadOlder(context.Background(), s.NextCursor())
	require.NoError(t, err)
	require.False(t, res.Skipped)
	require.Equal(t, "new-0", res.AnchorID)
	require.Equal(t, 20, res.Added)
	require.False(t, s.HasOlder())

	got := s.Messages()
	require.Len(t, got, 70)
	require.Equal(t, ids(older), ids(got[:20]))
	require.Equal(t, ids(recent), ids(got[20:]))

	seen := map[string]bool{}
	for _, m := range got {
		require.False(t, seen[m.ID], "duplicate %s", m.ID)
		seen[m.ID] = true
	}
	require.Equal(t, 50, api.lists[0].limit)
}

func TestLoader_ConcurrentLoadOlderIsSingleFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	api := &fakeAPI{listFn: func(_ context.Context, _ string) (models.Page, error) {
		entered <- struct{}{}
		<-release
		return models.Page{Items: seq("old", 2, baseTime)}, nil
	}}
	s := newTestSession(api)
	defer s.Close()

	type outcome struct {
		res LoadResult
		err error
	}
	done := make(chan outcome)
	go func() {
		res, err := s.LoadOlder(context.Background(), "c1")
		done <- outcome{res, err}
	}()
	<-entered
	require.True(t, s.LoadingOlder())

	res, err := s.LoadOlder(context.Background(), "c1")
	require.NoError(t, err)
	require.True(t, res.Skipped)

	close(release)
	first := <-done
	require.NoError(t, first.err)
	require.False(t, first.res.Skipped)
	require.Equal(t, 1, api.listCount())
	require.False(t, s.LoadingOlder())
}

func TestLoader_OlderFailureLeavesStoreUntouched(t *testing.T) {
	boom := errors.New("gateway timeout")
	api := &fakeAPI{listFn: func(_ context.Context, cursor string) (models.Page, error) {
		if cursor == "" {
			return models.Page{Items: seq("m", 3, baseTime), NextCursor: "c1"}, nil
		}
		return models.Page{}, boom
	}}
	s := newTestSession(api)
	defer s.Close()

	_, err := s.LoadInitial(context.Background())
	require.NoError(t, err)
	before := s.Messages()

	_, err = s.LoadOlder(context.Background(), "c1")
	require.ErrorIs(t, err, boom)
	require.Equal(t, before, s.Messages())
	require.Equal(t, "c1", s.NextCursor())

	// The guard is released, so the caller can retry.
	require.False(t, s.LoadingOlder())
}

func TestLoader_InitialReplacesStore(t *testing.T) {
	calls := 0
	api := &fakeAPI{listFn: func(_ context.Context, _ string) (models.Page, error) {
		calls++
		return models.Page{Items: seq("w", calls, baseTime)}, nil
	}}
	s := newTestSession(api)
	defer s.Close()

	_, err := s.LoadInitial(context.Background())
	require.NoError(t, err)
	_, err = s.LoadInitial(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"w-0", "w-1"}, ids(s.Messages()))
}

func TestLoader_ResponseAfterCloseIsDropped(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	api := &fakeAPI{listFn: func(_ context.Context, _ string) (models.Page, error) {
		close(entered)
		<-release
		return models.Page{Items: seq("late", 3, baseTime)}, nil
	}}
	s := newTestSession(api)

	errCh := make(chan error)
	go func() {
		_, err := s.LoadOlder(context.Background(), "c1")
		errCh <- err
	}()
	<-entered
	s.Close()
	close(release)

	require.ErrorIs(t, <-errCh, ErrSessionClosed)
	require.Zero(t, s.Store().Len())

	_, err := s.LoadInitial(context.Background())
	require.ErrorIs(t, err, ErrSessionClosed)
	require.Equal(t, 1, api.listCount())
}

func TestReadReceipt_FiredOnceWithConversationKey(t *testing.T) {
	api := &fakeAPI{listFn: func(_ context.Context, _ string) (models.Page, error) {
		return models.Page{Items: seq("m", 2, baseTime)}, nil
	}}
	s := newTestSession(api)
	defer s.Close()

	_, err := s.LoadInitial(context.Background())
	require.NoError(t, err)
	s.Wait()

	require.Equal(t, []string{"read-conv-1-m-1"}, api.readKeys())
}

func TestReadReceipt_FailureIsSilent(t *testing.T) {
	api := &fakeAPI{
		listFn: func(_ context.Context, _ string) (models.Page, error) {
			return models.Page{Items: seq("m", 2, baseTime)}, nil
		},
		readFn: func(_ context.Context, _ string) error {
			return errors.New("500")
		},
	}
	s := newTestSession(api)
	defer s.Close()

	page, err := s.LoadInitial(context.Background())
	require.NoError(t, err)
	s.Wait()

	require.Len(t, page.Items, 2)
	require.Equal(t, 2, s.Store().Len())
	require.Len(t, api.readKeys(), 1)
}

func TestReadReceipt_NotSentWhenInitialLoadFails(t *testing.T) {
	api := &fakeAPI{listFn: func(_ context.Context, _ string) (models.Page, error) {
		return models.Page{}, errors.New("offline")
	}}
	s := newTestSession(api)
	defer s.Close()

	_, err := s.LoadInitial(context.Background())
	require.Error(t, err)
	s.Wait()
	require.Empty(t, api.readKeys())
}

func TestLoader_OlderPageForReplacedWindowIsDropped(t *testing.T) {
	var (
		mu       sync.Mutex
		initials int
	)
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	api := &fakeAPI{listFn: func(_ context.Context, cursor string) (models.Page, error) {
		switch cursor {
		case "":
			mu.Lock()
			defer mu.Unlock()
			initials++
			if initials == 1 {
				return models.Page{Items: seq("w1", 3, baseTime.Add(time.Hour)), NextCursor: "c-old"}, nil
			}
			return models.Page{Items: seq("w2", 3, baseTime.Add(2*time.Hour)), NextCursor: "c-new"}, nil
		case "c-old":
			entered <- struct{}{}
			<-release
			return models.Page{Items: seq("older", 2, baseTime), NextCursor: "c-older"}, nil
		}
		return models.Page{}, errors.New("unexpected cursor")
	}}
	s := newTestSession(api)
	defer s.Close()

	_, err := s.LoadInitial(context.Background())
	require.NoError(t, err)

	type outcome struct {
		res LoadResult
		err error
	}
	done := make(chan outcome)
	go func() {
		res, err := s.LoadOlder(context.Background(), "c-old")
		done <- outcome{res, err}
	}()
	<-entered

	_, err = s.LoadInitial(context.Background())
	require.NoError(t, err)
	close(release)

	got := <-done
	require.NoError(t, got.err)
	require.True(t, got.res.Skipped)
	require.True(t, got.res.Stale)
	require.Zero(t, got.res.Added)

	require.Equal(t, []string{"w2-0", "w2-1", "w2-2"}, ids(s.Messages()))
	require.Equal(t, "c-new", s.NextCursor())
	require.False(t, s.LoadingOlder())
}
