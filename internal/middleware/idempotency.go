package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	// IdempotencyHeader carries the client supplied key for retried writes
	IdempotencyHeader = "Idempotency-Key"
	// MaxIdempotencyKeyLength bounds the stored key size
	MaxIdempotencyKeyLength = 200
)

// RequireIdempotencyKey rejects writes without a usable Idempotency-Key header
func RequireIdempotencyKey(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Get(IdempotencyHeader))
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Idempotency-Key header is required",
		})
	}
	if len(key) > MaxIdempotencyKeyLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Idempotency-Key header is too long",
		})
	}

	c.Locals("idempotencyKey", key)
	return c.Next()
}

// GetIdempotencyKey gets the validated idempotency key from context
func GetIdempotencyKey(c *fiber.Ctx) string {
	key, ok := c.Locals("idempotencyKey").(string)
	if !ok {
		return ""
	}
	return key
}
