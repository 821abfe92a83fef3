package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"patentchat/internal/database"
	"patentchat/internal/metrics"
	"patentchat/internal/middleware"
)

var (
	idempotencyMu  sync.RWMutex
	idempotencyTTL = 24 * time.Hour
)

// SetIdempotencyTTL sets how long a stored response answers repeated keys.
func SetIdempotencyTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	idempotencyMu.Lock()
	idempotencyTTL = ttl
	idempotencyMu.Unlock()
}

func currentIdempotencyTTL() time.Duration {
	idempotencyMu.RLock()
	defer idempotencyMu.RUnlock()
	return idempotencyTTL
}

// writeResult is what an idempotent write produces on its first run.
type writeResult struct {
	Status int
	Data   any
}

// errRequest carries a client error out of an idempotent transaction so the
// key is not recorded and the client may try again with the same key.
type errRequest struct {
	status  int
	message string
}

func (e *errRequest) Error() string { return e.message }

// runIdempotent executes write at most once per (user, scope, key) within the
// TTL. A repeat is answered with the stored data and status 200. Concurrent
// requests with the same key are serialized by a transaction scoped advisory
// lock, so the second one sees the first one's record.
func runIdempotent(c *fiber.Ctx, userID, scope string, write func(ctx context.Context, tx pgx.Tx) (writeResult, error)) error {
	key := middleware.GetIdempotencyKey(c)
	if key == "" {
		return respondError(c, fiber.StatusBadRequest, "Idempotency-Key header is required")
	}

	ctx := c.UserContext()
	tx, err := database.Pool.Begin(ctx)
	if err != nil {
		log(c).Error().Err(err).Msg("begin transaction")
		return respondError(c, fiber.StatusInternalServerError, "Database error")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		idempotencyLockKey(userID, scope, key)); err != nil {
		log(c).Error().Err(err).Msg("acquire idempotency lock")
		return respondError(c, fiber.StatusInternalServerError, "Database error")
	}

	var stored json.RawMessage
	err = tx.QueryRow(ctx, `
		SELECT response FROM idempotency_keys
		WHERE user_id = $1 AND scope = $2 AND key = $3 AND created_at >= $4
	`, userID, scope, key, time.Now().Add(-currentIdempotencyTTL())).Scan(&stored)
	switch {
	case err == nil:
		return replayStored(c, scope, stored)
	case !errors.Is(err, pgx.ErrNoRows):
		log(c).Error().Err(err).Msg("lookup idempotency key")
		return respondError(c, fiber.StatusInternalServerError, "Database error")
	}

	result, err := write(ctx, tx)
	if err != nil {
		var reqErr *errRequest
		if errors.As(err, &reqErr) {
			return respondError(c, reqErr.status, reqErr.message)
		}
		log(c).Error().Err(err).Str("scope", scope).Msg("idempotent write failed")
		return respondError(c, fiber.StatusInternalServerError, "Database error")
	}

	response, err := json.Marshal(result.Data)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "Failed to encode response")
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO idempotency_keys (user_id, scope, key, status_code, response, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id, scope, key)
		DO UPDATE SET status_code = EXCLUDED.status_code, response = EXCLUDED.response, created_at = now()
	`, userID, scope, key, result.Status, response); err != nil {
		log(c).Error().Err(err).Msg("store idempotency key")
		return respondError(c, fiber.StatusInternalServerError, "Database error")
	}

	if err := tx.Commit(ctx); err != nil {
		log(c).Error().Err(err).Msg("commit idempotent write")
		return respondError(c, fiber.StatusInternalServerError, "Database error")
	}

	return c.Status(result.Status).JSON(fiber.Map{
		"success": true,
		"data":    json.RawMessage(response),
	})
}

// scopeLabel drops the conversation id so metric cardinality stays bounded.
func scopeLabel(scope string) string {
	name, _, _ := strings.Cut(scope, ":")
	return name
}

// idempotencyLockKey names the advisory lock for one (user, scope, key).
func idempotencyLockKey(userID, scope, key string) string {
	return fmt.Sprintf("%s|%s|%s", userID, scope, key)
}

// replayStored answers a repeated key with the data stored the first time.
func replayStored(c *fiber.Ctx, scope string, stored json.RawMessage) error {
	metrics.IdempotentReplays.WithLabelValues(scopeLabel(scope)).Inc()
	c.Set("Idempotent-Replayed", "true")
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    stored,
	})
}
