package chatsync

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"patentchat/internal/logging"
	"patentchat/internal/models"
)

const (
	// DefaultPageSize is used when Options.PageSize is not set.
	DefaultPageSize = 20

	defaultReceiptTimeout = 10 * time.Second
)

// Options tunes a Session.
type Options struct {
	// PageSize is the limit sent with every page request.
	PageSize int

	// SenderUserID is stamped on optimistic messages.
	SenderUserID string

	// ReceiptTimeout bounds the fire-and-forget read receipt call.
	ReceiptTimeout time.Duration

	// Logger defaults to the chatsync component logger.
	Logger *zerolog.Logger

	// Now is the wall clock, replaceable in tests.
	Now func() time.Time
}

// Session is the engine behind one open conversation view. It owns the
// view's Store; every asynchronous completion checks that the session is
// still active before touching it.
type Session struct {
	conversationID string
	api            API
	store          *Store
	opts           Options
	log            zerolog.Logger

	// life guards active: completions hold it shared while they mutate the
	// store, Close takes it exclusively.
	life   sync.RWMutex
	active bool
	ctx    context.Context
	cancel context.CancelFunc

	loadingOlder atomic.Bool

	cursorMu   sync.Mutex
	nextCursor string

	outboxMu sync.Mutex
	outbox   map[string]*outboxEntry
	lastSent time.Time

	// window counts LoadInitial replacements so an older page fetched for a
	// previous window is never merged into the current one.
	windowMu sync.Mutex
	window   uint64

	pending *inflight
}

// NewSession opens a session for conversationID backed by api.
func NewSession(api API, conversationID string, opts Options) *Session {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = defaultReceiptTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	log := logging.Component("chatsync")
	if opts.Logger != nil {
		log = *opts.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		conversationID: conversationID,
		api:            api,
		store:          NewStore(),
		opts:           opts,
		log:            logging.WithConversation(log, conversationID),
		active:         true,
		ctx:            ctx,
		cancel:         cancel,
		outbox:         make(map[string]*outboxEntry),
		pending:        newInflight(),
	}
}

// ConversationID returns the conversation this session renders.
func (s *Session) ConversationID() string {
	return s.conversationID
}

// Store returns the message list owned by this session.
func (s *Session) Store() *Store {
	return s.store
}

// Messages is a snapshot of the store.
func (s *Session) Messages() []models.Message {
	return s.store.Snapshot()
}

// Active reports whether the owning view is still open.
func (s *Session) Active() bool {
	s.life.RLock()
	defer s.life.RUnlock()
	return s.active
}

// Close ends the session. In-flight requests are cancelled and any response
// that still arrives is dropped without touching the store.
func (s *Session) Close() {
	s.life.Lock()
	s.active = false
	s.life.Unlock()
	s.cancel()
}

// Wait blocks until every send, retry and read receipt started so far has
// settled.
func (s *Session) Wait() {
	<-s.pending.idle()
}

// NextCursor returns the cursor for the next LoadOlder, or "" when the start
// of the conversation has been reached.
func (s *Session) NextCursor() string {
	s.cursorMu.Lock()
	defer s.cursorMu.Unlock()
	return s.nextCursor
}

// HasOlder reports whether older history remains on the server.
func (s *Session) HasOlder() bool {
	return s.NextCursor() != ""
}

func (s *Session) setCursor(c string) {
	s.cursorMu.Lock()
	s.nextCursor = c
	s.cursorMu.Unlock()
}

// whileActive runs fn with the lifecycle held, unless the session is closed.
func (s *Session) whileActive(fn func()) bool {
	s.life.RLock()
	defer s.life.RUnlock()
	if !s.active {
		return false
	}
	fn()
	return true
}

// requestContext joins the caller's context with the session lifetime.
func (s *Session) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// inflight counts background operations. Unlike a WaitGroup it allows new
// work to start while someone is waiting: waiters are released the first
// time the count drops to zero.
type inflight struct {
	mu    sync.Mutex
	n     int
	idleC chan struct{}
}

func newInflight() *inflight {
	c := make(chan struct{})
	close(c)
	return &inflight{idleC: c}
}

func (f *inflight) add() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.n == 0 {
		f.idleC = make(chan struct{})
	}
	f.n++
}

func (f *inflight) done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n--
	if f.n == 0 {
		close(f.idleC)
	}
}

// idle returns a channel that is closed once nothing is in flight.
func (f *inflight) idle() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idleC
}
