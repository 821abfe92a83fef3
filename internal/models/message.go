package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// MessageType is the kind of payload a message carries
type MessageType string

const (
	MessageTypeText      MessageType = "TEXT"
	MessageTypeEmoji     MessageType = "EMOJI"
	MessageTypeReference MessageType = "REFERENCE"
	MessageTypeImage     MessageType = "IMAGE"
	MessageTypeFile      MessageType = "FILE"
	MessageTypeSystem    MessageType = "SYSTEM"
)

// Valid reports whether t is one of the known message types
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeEmoji, MessageTypeReference,
		MessageTypeImage, MessageTypeFile, MessageTypeSystem:
		return true
	}
	return false
}

// LocalStatus marks a client-originated message that the server has not confirmed yet.
// Confirmed messages carry the zero value.
type LocalStatus string

const (
	LocalStatusNone    LocalStatus = ""
	LocalStatusSending LocalStatus = "sending"
	LocalStatusFailed  LocalStatus = "failed"
)

// FileRef points at an uploaded file or image
type FileRef struct {
	URL      string `json:"url"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Reference is a structured pointer to a marketplace object (listing, demand, patent...)
type Reference struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// Message represents a chat message inside a conversation
type Message struct {
	ID             string      `json:"id" db:"id"`
	ConversationID string      `json:"conversationId" db:"conversation_id"`
	SenderUserID   string      `json:"senderUserId" db:"sender_user_id"`
	Type           MessageType `json:"type" db:"type"`
	Text           string      `json:"text,omitempty" db:"text"`
	File           *FileRef    `json:"file,omitempty" db:"file"`
	Reference      *Reference  `json:"reference,omitempty" db:"reference"`
	CreatedAt      time.Time   `json:"createdAt" db:"created_at"`
	LocalStatus    LocalStatus `json:"localStatus,omitempty" db:"-"` // Never set by the server
}

// Pending reports whether the message is still waiting for server confirmation
func (m Message) Pending() bool {
	return m.LocalStatus != LocalStatusNone
}

// Page is one window of the conversation log, oldest first
type Page struct {
	Items      []Message `json:"items"`
	NextCursor string    `json:"nextCursor"` // Empty when no older messages remain
}

// HasOlder reports whether another page can be fetched behind this one
func (p Page) HasOlder() bool {
	return p.NextCursor != ""
}

// MarshalJSON renders an exhausted cursor as null
func (p Page) MarshalJSON() ([]byte, error) {
	items := p.Items
	if items == nil {
		items = []Message{}
	}
	var cursor *string
	if p.NextCursor != "" {
		cursor = &p.NextCursor
	}
	return json.Marshal(struct {
		Items      []Message `json:"items"`
		NextCursor *string   `json:"nextCursor"`
	}{items, cursor})
}

// CreateMessageRequest is the body of POST /conversations/{id}/messages
type CreateMessageRequest struct {
	Type      MessageType `json:"type"`
	Text      string      `json:"text"`
	Reference *Reference  `json:"reference,omitempty"`
}

// MaxTextLength is the longest message body the server stores, in runes
const MaxTextLength = 4000

var (
	ErrUnsupportedType = errors.New("message type is not accepted by this endpoint")
	ErrEmptyText       = errors.New("message text is required")
	ErrTextTooLong     = errors.New("message text is too long")
	ErrMissingRef      = errors.New("reference kind and id are required")
)

// Normalize trims the text, defaults the type to TEXT and checks the payload.
// Uploads go through a separate flow, so IMAGE, FILE and SYSTEM are rejected.
func (r *CreateMessageRequest) Normalize() error {
	if r.Type == "" {
		r.Type = MessageTypeText
	}
	r.Text = strings.TrimSpace(r.Text)

	switch r.Type {
	case MessageTypeText, MessageTypeEmoji:
		if r.Text == "" {
			return ErrEmptyText
		}
		if utf8.RuneCountInString(r.Text) > MaxTextLength {
			return ErrTextTooLong
		}
		r.Reference = nil
	case MessageTypeReference:
		if r.Reference == nil || r.Reference.Kind == "" || r.Reference.ID == "" {
			return ErrMissingRef
		}
	default:
		return ErrUnsupportedType
	}
	return nil
}
