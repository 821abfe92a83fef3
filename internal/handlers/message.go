package handlers

import (
	"context"
	"slices"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"patentchat/internal/database"
	"patentchat/internal/metrics"
	"patentchat/internal/middleware"
	"patentchat/internal/models"
)

const messageColumns = `id, conversation_id, sender_user_id, type, text, file, reference, created_at`

func scanMessage(row pgx.Row) (models.Message, error) {
	var m models.Message
	err := row.Scan(&m.ID, &m.ConversationID, &m.SenderUserID, &m.Type, &m.Text,
		&m.File, &m.Reference, &m.CreatedAt)
	return m, err
}

// ListMessages returns one page of a conversation, oldest first. Without a
// cursor it returns the newest window; with one it returns the window right
// before the cursor position.
func ListMessages(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	conversationID := c.Params("id")
	ctx := c.UserContext()

	if _, err := memberConversation(ctx, conversationID, userID); err != nil {
		return respondLookupError(c, err)
	}

	s := currentSettings()
	limit := pageLimit(c.Query("limit"), s.DefaultPageSize, s.MaxPageSize)

	var before *pageCursor
	if raw := c.Query("cursor"); raw != "" {
		cur, err := decodeCursor(raw)
		if err != nil {
			return respondError(c, fiber.StatusBadRequest, "Invalid cursor")
		}
		before = &cur
	}

	page, err := queryPage(ctx, conversationID, limit, before)
	if err != nil {
		log(c).Error().Err(err).Str("conversation_id", conversationID).Msg("list messages")
		return respondError(c, fiber.StatusInternalServerError, "Database error")
	}
	metrics.RecordPage(before != nil)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    page,
	})
}

// queryPage reads limit+1 rows newest first to learn whether an older page
// exists, then returns the window in ascending order.
func queryPage(ctx context.Context, conversationID string, limit int, before *pageCursor) (models.Page, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if before == nil {
		rows, err = database.Pool.Query(ctx, `
			SELECT `+messageColumns+`
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`, conversationID, limit+1)
	} else {
		rows, err = database.Pool.Query(ctx, `
			SELECT `+messageColumns+`
			FROM messages
			WHERE conversation_id = $1
			  AND (created_at, id) < ($3::timestamptz, $4::uuid)
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`, conversationID, limit+1, before.CreatedAt, before.ID)
	}
	if err != nil {
		return models.Page{}, err
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Message, error) {
		return scanMessage(row)
	})
	if err != nil {
		return models.Page{}, err
	}

	return pageFromNewest(items, limit), nil
}

// pageFromNewest turns up to limit+1 rows, newest first, into an ascending
// page. The extra row only signals that older history exists; the cursor
// points at the oldest row actually returned.
func pageFromNewest(rows []models.Message, limit int) models.Page {
	page := models.Page{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		oldest := page.Items[limit-1]
		page.NextCursor = encodeCursor(oldest.CreatedAt, oldest.ID)
	}
	slices.Reverse(page.Items)
	return page
}

// CreateMessage stores a message once per Idempotency-Key
func CreateMessage(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	conversationID := c.Params("id")

	if _, err := memberConversation(c.UserContext(), conversationID, userID); err != nil {
		return respondLookupError(c, err)
	}

	var req models.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Normalize(); err != nil {
		return respondError(c, fiber.StatusBadRequest, err.Error())
	}

	return runIdempotent(c, userID, "messages:"+conversationID, func(ctx context.Context, tx pgx.Tx) (writeResult, error) {
		msg, err := scanMessage(tx.QueryRow(ctx, `
			INSERT INTO messages (conversation_id, sender_user_id, type, text, reference)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+messageColumns,
			conversationID, userID, req.Type, req.Text, req.Reference))
		if err != nil {
			return writeResult{}, err
		}

		if _, err := tx.Exec(ctx, `UPDATE conversations SET updated_at = $2 WHERE id = $1`,
			conversationID, msg.CreatedAt); err != nil {
			return writeResult{}, err
		}

		metrics.MessagesCreated.WithLabelValues(string(msg.Type)).Inc()
		return writeResult{Status: fiber.StatusCreated, Data: msg}, nil
	})
}

// MarkRead moves the caller's read marker for a conversation to now
func MarkRead(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	conversationID := c.Params("id")

	if _, err := memberConversation(c.UserContext(), conversationID, userID); err != nil {
		return respondLookupError(c, err)
	}

	return runIdempotent(c, userID, "read:"+conversationID, func(ctx context.Context, tx pgx.Tx) (writeResult, error) {
		var readAt time.Time
		err := tx.QueryRow(ctx, `
			INSERT INTO conversation_reads (conversation_id, user_id, read_at)
			VALUES ($1, $2, clock_timestamp())
			ON CONFLICT (conversation_id, user_id)
			DO UPDATE SET read_at = GREATEST(conversation_reads.read_at, EXCLUDED.read_at)
			RETURNING read_at
		`, conversationID, userID).Scan(&readAt)
		if err != nil {
			return writeResult{}, err
		}

		metrics.ReadMarkers.Inc()
		return writeResult{Status: fiber.StatusOK, Data: fiber.Map{"readAt": readAt}}, nil
	})
}
