package chatsync

import (
	"time"

	"patentchat/internal/models"
)

// DividerGap is the minimum silence between two messages that gets a time marker.
const DividerGap = 5 * time.Minute

// ShouldShowDivider reports whether a time divider belongs above current.
// previous is nil for the first visible message.
func ShouldShowDivider(current models.Message, previous *models.Message) bool {
	if previous == nil {
		return true
	}
	return current.CreatedAt.Sub(previous.CreatedAt) >= DividerGap
}

// Dividers folds ShouldShowDivider over a rendered sequence. Entry i is true
// when a divider goes above msgs[i].
func Dividers(msgs []models.Message) []bool {
	out := make([]bool, len(msgs))
	var prev *models.Message
	for i := range msgs {
		out[i] = ShouldShowDivider(msgs[i], prev)
		prev = &msgs[i]
	}
	return out
}
