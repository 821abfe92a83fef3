package models

import "time"

// SubjectType is the marketplace object a conversation is about
type SubjectType string

const (
	SubjectListing SubjectType = "listing"
	SubjectDemand  SubjectType = "demand"
	SubjectPatent  SubjectType = "patent"
	SubjectOrder   SubjectType = "order"
	SubjectGeneral SubjectType = "general"
)

// Valid reports whether s is a known subject type
func (s SubjectType) Valid() bool {
	switch s {
	case SubjectListing, SubjectDemand, SubjectPatent, SubjectOrder, SubjectGeneral:
		return true
	}
	return false
}

// Conversation is a two-party chat about a marketplace subject
type Conversation struct {
	ID          string      `json:"id" db:"id"`
	SubjectType SubjectType `json:"subjectType" db:"subject_type"`
	SubjectID   string      `json:"subjectId" db:"subject_id"`
	Title       string      `json:"title" db:"title"`
	InitiatorID string      `json:"initiatorId" db:"initiator_id"`
	RecipientID string      `json:"recipientId" db:"recipient_id"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`
}

// PeerOf returns the participant that is not userID
func (c *Conversation) PeerOf(userID string) string {
	if c.InitiatorID == userID {
		return c.RecipientID
	}
	return c.InitiatorID
}

// HasMember reports whether userID takes part in the conversation
func (c *Conversation) HasMember(userID string) bool {
	return userID != "" && (c.InitiatorID == userID || c.RecipientID == userID)
}

// LastMessagePreview is the short form of the newest message in a summary
type LastMessagePreview struct {
	Type      MessageType `json:"type"`
	Text      string      `json:"text,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// ConversationSummary is one row of GET /me/conversations
type ConversationSummary struct {
	ID          string              `json:"id"`
	SubjectType SubjectType         `json:"subjectType"`
	SubjectID   string              `json:"subjectId"`
	Title       string              `json:"title"`
	Peer        UserResponse        `json:"peer"`
	LastMessage *LastMessagePreview `json:"lastMessage,omitempty"`
	UnreadCount int                 `json:"unreadCount"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}
