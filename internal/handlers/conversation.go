package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"patentchat/internal/database"
	"patentchat/internal/middleware"
	"patentchat/internal/models"
)

// OpenConversationRequest represents open conversation request body
type OpenConversationRequest struct {
	PeerID      string             `json:"peerId"`
	SubjectType models.SubjectType `json:"subjectType"`
	SubjectID   string             `json:"subjectId"`
	Title       string             `json:"title"`
}

// validate normalizes the request for the caller userID.
func (r *OpenConversationRequest) validate(userID string) *errRequest {
	r.SubjectID = strings.TrimSpace(r.SubjectID)
	r.Title = strings.TrimSpace(r.Title)
	if r.SubjectType == "" {
		r.SubjectType = models.SubjectGeneral
	}

	switch {
	case r.PeerID == "":
		return &errRequest{fiber.StatusBadRequest, "peerId is required"}
	case uuid.Validate(r.PeerID) != nil:
		return &errRequest{fiber.StatusBadRequest, "peerId must be a user id"}
	case r.PeerID == userID:
		return &errRequest{fiber.StatusBadRequest, "Cannot open a conversation with yourself"}
	case !r.SubjectType.Valid():
		return &errRequest{fiber.StatusBadRequest, "Invalid subjectType. Must be listing, demand, patent, order, or general"}
	case r.SubjectID == "" && r.SubjectType != models.SubjectGeneral:
		return &errRequest{fiber.StatusBadRequest, "subjectId is required"}
	}
	return nil
}

const conversationColumns = `id, subject_type, subject_id, title, initiator_id, recipient_id, created_at, updated_at`

func scanConversation(row pgx.Row) (models.Conversation, error) {
	var conv models.Conversation
	err := row.Scan(&conv.ID, &conv.SubjectType, &conv.SubjectID, &conv.Title,
		&conv.InitiatorID, &conv.RecipientID, &conv.CreatedAt, &conv.UpdatedAt)
	return conv, err
}

// memberConversation loads conversationID and checks that userID takes part in it.
func memberConversation(ctx context.Context, conversationID, userID string) (models.Conversation, error) {
	if uuid.Validate(conversationID) != nil {
		return models.Conversation{}, &errRequest{fiber.StatusNotFound, "Conversation not found"}
	}

	conv, err := scanConversation(database.Pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, conversationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Conversation{}, &errRequest{fiber.StatusNotFound, "Conversation not found"}
	}
	if err != nil {
		return models.Conversation{}, err
	}

	if !conv.HasMember(userID) {
		return models.Conversation{}, &errRequest{fiber.StatusForbidden, "You are not a participant of this conversation"}
	}
	return conv, nil
}

// respondLookupError maps memberConversation failures to responses.
func respondLookupError(c *fiber.Ctx, err error) error {
	var reqErr *errRequest
	if errors.As(err, &reqErr) {
		return respondError(c, reqErr.status, reqErr.message)
	}
	log(c).Error().Err(err).Msg("load conversation")
	return respondError(c, fiber.StatusInternalServerError, "Database error")
}

// GetMyConversations returns the caller's conversations, most recently active first
func GetMyConversations(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	rows, err := database.Pool.Query(c.UserContext(), `
		SELECT
			c.id, c.subject_type, c.subject_id, c.title, c.updated_at,
			u.id, u.unique_id, u.name, u.avatar, u.role, u.last_seen, u.created_at,
			lm.type, lm.text, lm.created_at,
			(
				SELECT COUNT(*) FROM messages m
				WHERE m.conversation_id = c.id
				  AND m.sender_user_id <> $1
				  AND m.created_at > COALESCE(r.read_at, '-infinity'::timestamptz)
			) AS unread
		FROM conversations c
		INNER JOIN users u
			ON u.id = CASE WHEN c.initiator_id = $1 THEN c.recipient_id ELSE c.initiator_id END
		LEFT JOIN conversation_reads r
			ON r.conversation_id = c.id AND r.user_id = $1
		LEFT JOIN LATERAL (
			SELECT type, text, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		WHERE c.initiator_id = $1 OR c.recipient_id = $1
		ORDER BY COALESCE(lm.created_at, c.updated_at) DESC
	`, userID)
	if err != nil {
		log(c).Error().Err(err).Msg("list conversations")
		return respondError(c, fiber.StatusInternalServerError, "Database error")
	}
	defer rows.Close()

	conversations := []models.ConversationSummary{}
	for rows.Next() {
		var (
			item     models.ConversationSummary
			peer     models.User
			lastType *string
			lastText *string
			lastAt   *time.Time
		)
		if err := rows.Scan(
			&item.ID, &item.SubjectType, &item.SubjectID, &item.Title, &item.UpdatedAt,
			&peer.ID, &peer.UniqueID, &peer.Name, &peer.Avatar, &peer.Role, &peer.LastSeen, &peer.CreatedAt,
			&lastType, &lastText, &lastAt,
			&item.UnreadCount,
		); err != nil {
			log(c).Warn().Err(err).Msg("skip conversation row")
			continue
		}

		item.Peer = peer.ToResponse().Public()
		if lastType != nil && lastAt != nil {
			preview := &models.LastMessagePreview{Type: models.MessageType(*lastType), CreatedAt: *lastAt}
			if lastText != nil {
				preview.Text = *lastText
			}
			item.LastMessage = preview
		}
		conversations = append(conversations, item)
	}
	if err := rows.Err(); err != nil {
		log(c).Error().Err(err).Msg("iterate conversations")
		return respondError(c, fiber.StatusInternalServerError, "Database error")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    conversations,
	})
}

// OpenConversation returns the conversation between the caller and a peer
// about a subject, creating it on first contact
func OpenConversation(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req OpenConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if reqErr := req.validate(userID); reqErr != nil {
		return respondError(c, reqErr.status, reqErr.message)
	}

	ctx := c.UserContext()

	var peerExists bool
	if err := database.Pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", req.PeerID).Scan(&peerExists); err != nil {
		log(c).Error().Err(err).Msg("check peer")
		return respondError(c, fiber.StatusInternalServerError, "Database error")
	}
	if !peerExists {
		return respondError(c, fiber.StatusNotFound, "User not found")
	}

	conv, err := findConversation(ctx, userID, req)
	if err == nil {
		return c.JSON(fiber.Map{"success": true, "data": conv})
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		log(c).Error().Err(err).Msg("find conversation")
		return respondError(c, fiber.StatusInternalServerError, "Database error")
	}

	conv, err = scanConversation(database.Pool.QueryRow(ctx, `
		INSERT INTO conversations (subject_type, subject_id, title, initiator_id, recipient_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (`+database.ConversationPairKey+`) DO NOTHING
		RETURNING `+conversationColumns,
		req.SubjectType, req.SubjectID, req.Title, userID, req.PeerID))
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost a race with an identical request.
		conv, err = findConversation(ctx, userID, req)
		if err == nil {
			return c.JSON(fiber.Map{"success": true, "data": conv})
		}
	}
	if err != nil {
		log(c).Error().Err(err).Msg("create conversation")
		return respondError(c, fiber.StatusInternalServerError, "Failed to open conversation")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    conv,
	})
}

func findConversation(ctx context.Context, userID string, req OpenConversationRequest) (models.Conversation, error) {
	return scanConversation(database.Pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE subject_type = $1 AND subject_id = $2
		  AND ((initiator_id = $3 AND recipient_id = $4) OR (initiator_id = $4 AND recipient_id = $3))
		ORDER BY created_at
		LIMIT 1
	`, req.SubjectType, req.SubjectID, userID, req.PeerID))
}
