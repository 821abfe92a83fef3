// Package apiclient talks to the patentchat HTTP API. It satisfies
// chatsync.API and adds the account and conversation-list calls the command
// line needs.
package apiclient

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"patentchat/internal/logging"
	"patentchat/internal/models"
)

// IdempotencyHeader carries the caller's deduplication key on writes.
const IdempotencyHeader = "Idempotency-Key"

type startedAt struct{}

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client is a resty-backed API client.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// envelope is the server's {"success", "data", "error"} wrapper.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// New builds a client for cfg.
func New(cfg Config) *Client {
	log := logging.Component("apiclient")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	hc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		hc.SetAuthToken(cfg.Token)
	}

	hc.AddRequestMiddleware(func(_ *resty.Client, r *resty.Request) error {
		r.SetContext(context.WithValue(r.Context(), startedAt{}, time.Now()))
		return nil
	})
	hc.AddResponseMiddleware(func(_ *resty.Client, r *resty.Response) error {
		start, _ := r.Request.Context().Value(startedAt{}).(time.Time)
		ev := log.Debug().
			Int("status", r.StatusCode()).
			Str("method", r.Request.Method).
			Str("url", r.Request.URL).
			Dur("latency", time.Since(start))
		if key := r.Request.Header.Get(IdempotencyHeader); key != "" {
			ev = ev.Str("idempotency_key", key)
		}
		ev.Msg("HTTP client request")
		return nil
	})

	return &Client{http: hc, log: log}
}

// SetToken switches the bearer token used for later requests.
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

// LoginResult is what a successful login returns.
type LoginResult struct {
	User        models.UserResponse `json:"user"`
	AccessToken string              `json:"accessToken"`
}

// Login exchanges credentials for an access token and starts using it.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out envelope[LoginResult]
	var fail envelope[struct{}]
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		SetError(&fail).
		Post("/auth/login")
	if err := check(resp, err, &fail, "login"); err != nil {
		return LoginResult{}, err
	}
	c.SetToken(out.Data.AccessToken)
	return out.Data, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (models.UserResponse, error) {
	var out envelope[models.UserResponse]
	var fail envelope[struct{}]
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&fail).
		Get("/auth/me")
	if err := check(resp, err, &fail, "get current user"); err != nil {
		return models.UserResponse{}, err
	}
	return out.Data, nil
}

// ListConversations returns the caller's conversation summaries.
func (c *Client) ListConversations(ctx context.Context) ([]models.ConversationSummary, error) {
	var out envelope[[]models.ConversationSummary]
	var fail envelope[struct{}]
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&fail).
		Get("/me/conversations")
	if err := check(resp, err, &fail, "list conversations"); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListMessages fetches one page of a conversation. An empty cursor asks for
// the newest window.
func (c *Client) ListMessages(ctx context.Context, conversationID string, limit int, cursor string) (models.Page, error) {
	var out envelope[models.Page]
	var fail envelope[struct{}]
	req := c.http.R().
		SetContext(ctx).
		SetPathParam("id", conversationID).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&out).
		SetError(&fail)
	if cursor != "" {
		req.SetQueryParam("cursor", cursor)
	}
	resp, err := req.Get("/conversations/{id}/messages")
	if err := check(resp, err, &fail, "list messages"); err != nil {
		return models.Page{}, err
	}
	return out.Data, nil
}

// CreateMessage posts a message under idempotencyKey.
func (c *Client) CreateMessage(ctx context.Context, conversationID, idempotencyKey string, body models.CreateMessageRequest) (models.Message, error) {
	var out envelope[models.Message]
	var fail envelope[struct{}]
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", conversationID).
		SetHeader(IdempotencyHeader, idempotencyKey).
		SetBody(body).
		SetResult(&out).
		SetError(&fail).
		Post("/conversations/{id}/messages")
	if err := check(resp, err, &fail, "create message"); err != nil {
		return models.Message{}, err
	}
	return out.Data, nil
}

// MarkRead records a read receipt under idempotencyKey.
func (c *Client) MarkRead(ctx context.Context, conversationID, idempotencyKey string) error {
	var fail envelope[struct{}]
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", conversationID).
		SetHeader(IdempotencyHeader, idempotencyKey).
		SetError(&fail).
		Post("/conversations/{id}/read")
	return check(resp, err, &fail, "mark read")
}

// OpenConversation starts (or returns the existing) conversation with peerID
// about a marketplace subject.
func (c *Client) OpenConversation(ctx context.Context, peerID string, subject models.SubjectType, subjectID, title string) (models.Conversation, error) {
	var out envelope[models.Conversation]
	var fail envelope[struct{}]
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"peerId":      peerID,
			"subjectType": string(subject),
			"subjectId":   subjectID,
			"title":       title,
		}).
		SetResult(&out).
		SetError(&fail).
		Post("/conversations")
	if err := check(resp, err, &fail, "open conversation"); err != nil {
		return models.Conversation{}, err
	}
	return out.Data, nil
}

func check[T any](resp *resty.Response, err error, fail *envelope[T], op string) error {
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	if resp.IsError() {
		msg := fail.Error
		if msg == "" {
			msg = fail.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		return &Error{Op: op, Status: resp.StatusCode(), Message: msg}
	}
	return nil
}
