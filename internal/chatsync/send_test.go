package chatsync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"patentchat/internal/models"
)

// gate lets a test decide when and how each create call returns.
type gate struct {
	mu      sync.Mutex
	waiting map[string]chan outcome
	arrived chan string
}

type outcome struct {
	msg models.Message
	err error
}

func newGate() *gate {
	return &gate{waiting: map[string]chan outcome{}, arrived: make(chan string, 16)}
}

func (g *gate) create(ctx context.Context, _ string, req models.CreateMessageRequest) (models.Message, error) {
	ch := make(chan outcome, 1)
	g.mu.Lock()
	g.waiting[req.Text] = ch
	g.mu.Unlock()
	g.arrived <- req.Text

	select {
	case o := <-ch:
		return o.msg, o.err
	case <-ctx.Done():
		return models.Message{}, ctx.Err()
	}
}

func (g *gate) resolve(text string, o outcome) {
	g.mu.Lock()
	ch := g.waiting[text]
	delete(g.waiting, text)
	g.mu.Unlock()
	ch <- o
}

func (g *gate) await(t *testing.T, text string) {
	t.Helper()
	select {
	case got := <-g.arrived:
		require.Equal(t, text, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("create call for %q never arrived", text)
	}
}

func confirmedAs(id, text string) outcome {
	return outcome{msg: models.Message{
		ID:             id,
		ConversationID: "conv-1",
		SenderUserID:   "u-me",
		Type:           models.MessageTypeText,
		Text:           text,
		CreatedAt:      baseTime.Add(time.Hour),
	}}
}

func TestSend_OptimisticAppendIsSynchronous(t *testing.T) {
	g := newGate()
	api := &fakeAPI{createFn: g.create}
	s := newTestSession(api)
	defer s.Close()

	localID, err := s.Send("hello")
	require.NoError(t, err)

	msgs := s.Messages()
	last := msgs[len(msgs)-1]
	require.Equal(t, localID, last.ID)
	require.True(t, strings.HasPrefix(last.ID, LocalIDPrefix))
	require.Equal(t, models.LocalStatusSending, last.LocalStatus)
	require.Equal(t, "hello", last.Text)
	require.Equal(t, "u-me", last.SenderUserID)
	require.Equal(t, StateSending, s.SendState(localID))

	g.await(t, "hello")
	g.resolve("hello", confirmedAs("srv-1", "hello"))
	s.Wait()
}

func TestSend_RejectsBlankText(t *testing.T) {
	api := &fakeAPI{}
	s := newTestSession(api)
	defer s.Close()

	_, err := s.Send("   \n\t")
	require.ErrorIs(t, err, ErrEmptyMessage)
	require.Zero(t, s.Store().Len())
	require.Empty(t, api.createCalls())
}

func TestSend_SuccessReplacesInPlace(t *testing.T) {
	api := &fakeAPI{
		listFn: func(_ context.Context, _ string) (models.Page, error) {
			return models.Page{Items: seq("m", 2, baseTime)}, nil
		},
		createFn: serverEcho("srv-9"),
	}
	s := newTestSession(api)
	defer s.Close()

	_, err := s.LoadInitial(context.Background())
	require.NoError(t, err)

	localID, err := s.Send("  offer accepted  ")
	require.NoError(t, err)
	pos := s.Store().Position(localID)
	require.Equal(t, 2, pos)
	s.Wait()

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, "srv-9", msgs[pos].ID)
	require.Equal(t, "offer accepted", msgs[pos].Text)
	require.Equal(t, models.LocalStatusNone, msgs[pos].LocalStatus)
	require.Equal(t, baseTime.Add(time.Hour), msgs[pos].CreatedAt)

	_, stillThere := s.Store().Get(localID)
	require.False(t, stillThere)
	require.Equal(t, StateConfirmed, s.SendState(localID))
	serverID, ok := s.ConfirmedID(localID)
	require.True(t, ok)
	require.Equal(t, "srv-9", serverID)

	calls := api.createCalls()
	require.Len(t, calls, 1)
	require.Equal(t, models.CreateMessageRequest{Type: models.MessageTypeText, Text: "offer accepted"}, calls[0].req)
	require.True(t, strings.HasPrefix(calls[0].key, "msg-conv-1-"))
}

func TestSend_FailureMarksFailedInPlace(t *testing.T) {
	api := &fakeAPI{createFn: func(context.Context, string, models.CreateMessageRequest) (models.Message, error) {
		return models.Message{}, errors.New("connection reset")
	}}
	s := newTestSession(api)
	defer s.Close()

	localID, err := s.Send("hello")
	require.NoError(t, err)
	s.Wait()

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, localID, msgs[0].ID)
	require.Equal(t, models.LocalStatusFailed, msgs[0].LocalStatus)
	require.Equal(t, StateFailed, s.SendState(localID))
	require.Equal(t, []string{localID}, s.Failed())

	// No automatic resubmission.
	require.Len(t, api.createCalls(), 1)
}

func TestRetry_SendingThenConfirmed(t *testing.T) {
	g := newGate()
	api := &fakeAPI{createFn: g.create}
	s := newTestSession(api)
	defer s.Close()

	localID, err := s.Send("hello")
	require.NoError(t, err)
	g.await(t, "hello")
	g.resolve("hello", outcome{err: errors.New("timeout")})
	s.Wait()

	got, _ := s.Store().Get(localID)
	require.Equal(t, models.LocalStatusFailed, got.LocalStatus)

	require.NoError(t, s.Retry(localID))
	got, _ = s.Store().Get(localID)
	require.Equal(t, models.LocalStatusSending, got.LocalStatus)
	require.Equal(t, 0, s.Store().Position(localID))
	require.Equal(t, 1, s.Store().Len())

	g.await(t, "hello")
	g.resolve("hello", confirmedAs("srv-1", "hello"))
	s.Wait()

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "srv-1", msgs[0].ID)
	require.Equal(t, models.LocalStatusNone, msgs[0].LocalStatus)
}

func TestRetry_CanFailAgain(t *testing.T) {
	api := &fakeAPI{createFn: func(context.Context, string, models.CreateMessageRequest) (models.Message, error) {
		return models.Message{}, errors.New("still down")
	}}
	s := newTestSession(api)
	defer s.Close()

	localID, err := s.Send("hello")
	require.NoError(t, err)
	s.Wait()

	require.NoError(t, s.Retry(localID))
	s.Wait()

	got, _ := s.Store().Get(localID)
	require.Equal(t, models.LocalStatusFailed, got.LocalStatus)
	require.Len(t, api.createCalls(), 2)
}

func TestRetry_ReusesIdempotencyKey(t *testing.T) {
	attempts := 0
	api := &fakeAPI{}
	api.createFn = func(ctx context.Context, key string, req models.CreateMessageRequest) (models.Message, error) {
		attempts++
		if attempts == 1 {
			return models.Message{}, errors.New("response lost")
		}
		return serverEcho("srv-1")(ctx, key, req)
	}
	s := newTestSession(api)
	defer s.Close()

	localID, err := s.Send("hello")
	require.NoError(t, err)
	s.Wait()
	require.NoError(t, s.Retry(localID))
	s.Wait()

	calls := api.createCalls()
	require.Len(t, calls, 2)
	require.Equal(t, calls[0].key, calls[1].key)
	require.Equal(t, calls[0].req, calls[1].req)
}

func TestRetry_RejectsNonFailedMessages(t *testing.T) {
	g := newGate()
	api := &fakeAPI{
		listFn: func(_ context.Context, _ string) (models.Page, error) {
			return models.Page{Items: seq("m", 1, baseTime)}, nil
		},
		createFn: g.create,
	}
	s := newTestSession(api)
	defer s.Close()

	_, err := s.LoadInitial(context.Background())
	require.NoError(t, err)
	require.ErrorIs(t, s.Retry("m-0"), ErrNotRetryable)
	require.ErrorIs(t, s.Retry("missing"), ErrNotFound)

	localID, err := s.Send("hello")
	require.NoError(t, err)
	require.ErrorIs(t, s.Retry(localID), ErrNotRetryable)

	g.await(t, "hello")
	g.resolve("hello", confirmedAs("srv-1", "hello"))
	s.Wait()
	require.Len(t, api.createCalls(), 1)
}

func TestSend_ConcurrentSendsSettleIndependently(t *testing.T) {
	g := newGate()
	api := &fakeAPI{createFn: g.create}
	s := newTestSession(api)
	defer s.Close()

	first, err := s.Send("first")
	require.NoError(t, err)
	g.await(t, "first")
	second, err := s.Send("second")
	require.NoError(t, err)
	g.await(t, "second")
	third, err := s.Send("third")
	require.NoError(t, err)
	g.await(t, "third")

	// Complete out of submission order.
	g.resolve("third", confirmedAs("srv-3", "third"))
	g.resolve("first", outcome{err: errors.New("boom")})
	g.resolve("second", confirmedAs("srv-2", "second"))
	s.Wait()

	msgs := s.Messages()
	require.Equal(t, []string{first, "srv-2", "srv-3"}, ids(msgs))
	require.Equal(t, models.LocalStatusFailed, msgs[0].LocalStatus)
	require.Equal(t, StateConfirmed, s.SendState(second))
	require.Equal(t, StateConfirmed, s.SendState(third))

	keys := map[string]bool{}
	for _, c := range api.createCalls() {
		keys[c.key] = true
	}
	require.Len(t, keys, 3)
}

func TestSend_KeysDistinctWithinOneClockTick(t *testing.T) {
	api := &fakeAPI{createFn: serverEcho("srv")}
	frozen := baseTime
	s := NewSession(api, "conv-1", Options{Now: func() time.Time { return frozen }})
	defer s.Close()

	_, err := s.Send("a")
	require.NoError(t, err)
	s.Wait()
	_, err = s.Send("b")
	require.NoError(t, err)
	s.Wait()

	calls := api.createCalls()
	require.Len(t, calls, 2)
	require.NotEqual(t, calls[0].key, calls[1].key)
}

func TestSend_ResultAfterCloseIsDropped(t *testing.T) {
	g := newGate()
	api := &fakeAPI{createFn: g.create}
	s := newTestSession(api)

	localID, err := s.Send("hello")
	require.NoError(t, err)
	g.await(t, "hello")

	s.Close()
	s.Wait()

	got, ok := s.Store().Get(localID)
	require.True(t, ok)
	require.Equal(t, models.LocalStatusSending, got.LocalStatus)

	_, err = s.Send("after close")
	require.ErrorIs(t, err, ErrSessionClosed)
	require.ErrorIs(t, s.Retry(localID), ErrSessionClosed)
}

func TestSendAndWait(t *testing.T) {
	api := &fakeAPI{createFn: serverEcho("srv-1")}
	s := newTestSession(api)
	defer s.Close()

	localID, err := s.SendAndWait(context.Background(), "hi")
	require.NoError(t, err)
	serverID, ok := s.ConfirmedID(localID)
	require.True(t, ok)
	require.Equal(t, "srv-1", serverID)
}

func TestWait_SendsMayStartWhileWaiting(t *testing.T) {
	g := newGate()
	api := &fakeAPI{createFn: g.create}
	s := newTestSession(api)
	defer s.Close()

	_, err := s.Send("first")
	require.NoError(t, err)
	g.await(t, "first")

	waited := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		waited <- s.WaitContext(ctx)
	}()

	// A second send begins while the waiter is blocked on the first one.
	_, err = s.Send("second")
	require.NoError(t, err)
	g.await(t, "second")

	g.resolve("first", confirmedAs("srv-1", "first"))
	g.resolve("second", confirmedAs("srv-2", "second"))
	require.NoError(t, <-waited)

	s.Wait()
	require.Equal(t, []string{"srv-1", "srv-2"}, ids(s.Messages()))
}

func TestWait_ReturnsImmediatelyWhenIdle(t *testing.T) {
	s := newTestSession(&fakeAPI{})
	defer s.Close()

	s.Wait()
	require.NoError(t, s.WaitContext(context.Background()))
}
