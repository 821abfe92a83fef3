// Package render prints conversation history for terminals.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"patentchat/internal/chatsync"
	"patentchat/internal/models"
)

// Styles holds the lipgloss styles used for one output.
type Styles struct {
	Divider   lipgloss.Style
	Timestamp lipgloss.Style
	Self      lipgloss.Style
	Peer      lipgloss.Style
	Body      lipgloss.Style
	Sending   lipgloss.Style
	Failed    lipgloss.Style
	Muted     lipgloss.Style
	Unread    lipgloss.Style
}

// NewStyles builds styles bound to w, so color is dropped for pipes and files.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Divider:   r.NewStyle().Foreground(lipgloss.Color("244")).Bold(true),
		Timestamp: r.NewStyle().Foreground(lipgloss.Color("241")),
		Self:      r.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		Peer:      r.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		Body:      r.NewStyle(),
		Sending:   r.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),
		Failed:    r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Muted:     r.NewStyle().Faint(true),
		Unread:    r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	}
}

// History writes msgs oldest first, with a divider wherever the gap to the
// previous message is long enough. selfID marks the caller's own messages.
func History(w io.Writer, msgs []models.Message, selfID string, st Styles) error {
	dividers := chatsync.Dividers(msgs)
	for i, m := range msgs {
		if dividers[i] {
			if _, err := fmt.Fprintln(w, st.Divider.Render(DividerLabel(m.CreatedAt))); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, Line(m, selfID, st)); err != nil {
			return err
		}
	}
	return nil
}

// DividerLabel is the text shown above a group of messages.
func DividerLabel(t time.Time) string {
	return "── " + t.Local().Format("Mon 02 Jan 2006 15:04") + " ──"
}

// Line renders one message without a trailing newline.
func Line(m models.Message, selfID string, st Styles) string {
	var b strings.Builder
	b.WriteString(st.Timestamp.Render(m.CreatedAt.Local().Format("15:04")))
	b.WriteByte(' ')

	if m.SenderUserID == selfID {
		b.WriteString(st.Self.Render("you"))
	} else {
		b.WriteString(st.Peer.Render(shortID(m.SenderUserID)))
	}
	b.WriteString(": ")
	b.WriteString(st.Body.Render(Body(m)))

	switch m.LocalStatus {
	case models.LocalStatusSending:
		b.WriteString(" " + st.Sending.Render("(sending…)"))
	case models.LocalStatusFailed:
		b.WriteString(" " + st.Failed.Render("(failed, retry with the local id "+m.ID+")"))
	}
	return b.String()
}

// Body is the printable payload of a message.
func Body(m models.Message) string {
	switch m.Type {
	case models.MessageTypeReference:
		if m.Reference == nil {
			return "[reference]"
		}
		label := m.Reference.Title
		if label == "" {
			label = m.Reference.ID
		}
		s := fmt.Sprintf("[%s: %s]", m.Reference.Kind, label)
		if m.Text != "" {
			s += " " + m.Text
		}
		return s
	case models.MessageTypeImage, models.MessageTypeFile:
		kind := strings.ToLower(string(m.Type))
		if m.File == nil {
			return "[" + kind + "]"
		}
		name := m.File.Name
		if name == "" {
			name = m.File.URL
		}
		return fmt.Sprintf("[%s: %s]", kind, name)
	case models.MessageTypeSystem:
		return "* " + m.Text
	default:
		return m.Text
	}
}

// Conversations writes one line per summary.
func Conversations(w io.Writer, items []models.ConversationSummary, st Styles) error {
	for _, c := range items {
		title := c.Title
		if title == "" {
			title = fmt.Sprintf("%s %s", c.SubjectType, c.SubjectID)
		}
		line := fmt.Sprintf("%s  %s  %s", c.ID, st.Peer.Render(c.Peer.Name), title)
		if c.UnreadCount > 0 {
			line += " " + st.Unread.Render(fmt.Sprintf("(%d unread)", c.UnreadCount))
		}
		if c.LastMessage != nil {
			preview := c.LastMessage.Text
			if preview == "" {
				preview = "[" + strings.ToLower(string(c.LastMessage.Type)) + "]"
			}
			line += "\n    " + st.Muted.Render(truncate(preview, 60))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
