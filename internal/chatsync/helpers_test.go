package chatsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"patentchat/internal/models"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func textMsg(id string, at time.Time) models.Message {
	return models.Message{
		ID:             id,
		ConversationID: "conv-1",
		SenderUserID:   "u-peer",
		Type:           models.MessageTypeText,
		Text:           "text " + id,
		CreatedAt:      at,
	}
}

// seq builds n server messages named prefix-0..prefix-(n-1), one minute apart.
func seq(prefix string, n int, start time.Time) []models.Message {
	out := make([]models.Message, n)
	for i := range out {
		out[i] = textMsg(fmt.Sprintf("%s-%d", prefix, i), start.Add(time.Duration(i)*time.Minute))
	}
	return out
}

func ids(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

type listCall struct {
	limit  int
	cursor string
}

type createCall struct {
	key string
	req models.CreateMessageRequest
}

// fakeAPI records calls and delegates outcomes to per-test hooks.
type fakeAPI struct {
	mu      sync.Mutex
	lists   []listCall
	creates []createCall
	reads   []string

	listFn   func(ctx context.Context, cursor string) (models.Page, error)
	createFn func(ctx context.Context, key string, req models.CreateMessageRequest) (models.Message, error)
	readFn   func(ctx context.Context, key string) error
}

func (f *fakeAPI) ListMessages(ctx context.Context, _ string, limit int, cursor string) (models.Page, error) {
	f.mu.Lock()
	f.lists = append(f.lists, listCall{limit: limit, cursor: cursor})
	fn := f.listFn
	f.mu.Unlock()
	if fn == nil {
		return models.Page{}, nil
	}
	return fn(ctx, cursor)
}

func (f *fakeAPI) CreateMessage(ctx context.Context, conversationID, key string, req models.CreateMessageRequest) (models.Message, error) {
	f.mu.Lock()
	f.creates = append(f.creates, createCall{key: key, req: req})
	fn := f.createFn
	f.mu.Unlock()
	if fn == nil {
		return models.Message{}, fmt.Errorf("no create hook")
	}
	return fn(ctx, key, req)
}

func (f *fakeAPI) MarkRead(ctx context.Context, _ string, key string) error {
	f.mu.Lock()
	f.reads = append(f.reads, key)
	fn := f.readFn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, key)
}

func (f *fakeAPI) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lists)
}

func (f *fakeAPI) createCalls() []createCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]createCall(nil), f.creates...)
}

func (f *fakeAPI) readKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reads...)
}

func newTestSession(api API) *Session {
	nop := zerolog.Nop()
	clock := baseTime
	var mu sync.Mutex
	return NewSession(api, "conv-1", Options{
		PageSize:     50,
		SenderUserID: "u-me",
		Logger:       &nop,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		},
	})
}

// serverEcho confirms a create call with a deterministic server ID.
func serverEcho(id string) func(context.Context, string, models.CreateMessageRequest) (models.Message, error) {
	return func(_ context.Context, _ string, req models.CreateMessageRequest) (models.Message, error) {
		return models.Message{
			ID:             id,
			ConversationID: "conv-1",
			SenderUserID:   "u-me",
			Type:           req.Type,
			Text:           req.Text,
			CreatedAt:      baseTime.Add(time.Hour),
		}, nil
	}
}
