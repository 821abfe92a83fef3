package chatsync

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalIDPrefix marks IDs minted on the client. Server IDs are UUIDs and never
// carry it, so an optimistic message can be swapped for its confirmed copy
// without the two ever colliding.
const LocalIDPrefix = "local-"

// NewLocalID returns a fresh client-namespaced message ID.
func NewLocalID() string {
	return LocalIDPrefix + uuid.NewString()
}

// IsLocalID reports whether id was minted by NewLocalID.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// MessageKey is the idempotency key for one logical send. Retries of the same
// send reuse it, so the server returns the original message instead of
// creating a second one when only the first response was lost.
func MessageKey(conversationID string, submittedAt time.Time) string {
	return fmt.Sprintf("msg-%s-%d", conversationID, submittedAt.UnixNano())
}

// ReadKey is the idempotency key for a read receipt. It is scoped to the
// conversation and the newest message seen, so marking the same window read
// twice collapses to one receipt.
func ReadKey(conversationID, lastMessageID string) string {
	if lastMessageID == "" {
		lastMessageID = "empty"
	}
	return fmt.Sprintf("read-%s-%s", conversationID, lastMessageID)
}
