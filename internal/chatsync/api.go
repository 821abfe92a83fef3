package chatsync

import (
	"context"

	"patentchat/internal/models"
)

// API is the slice of the chat backend the engine needs. Implementations
// classify transport errors however they like; the engine only looks at
// whether err is nil.
type API interface {
	// ListMessages returns one page. An empty cursor asks for the newest window.
	ListMessages(ctx context.Context, conversationID string, limit int, cursor string) (models.Page, error)

	// CreateMessage persists a message. The server must answer a repeated
	// idempotencyKey with the message it created the first time.
	CreateMessage(ctx context.Context, conversationID, idempotencyKey string, req models.CreateMessageRequest) (models.Message, error)

	// MarkRead records that the caller has seen the conversation.
	MarkRead(ctx context.Context, conversationID, idempotencyKey string) error
}
