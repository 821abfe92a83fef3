package handlers

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"patentchat/internal/logging"
)

// Settings are the tunables the handlers read at request time.
type Settings struct {
	DefaultPageSize int
	MaxPageSize     int
	SecureCookies   bool
}

var (
	settingsMu sync.RWMutex
	settings   = Settings{DefaultPageSize: 20, MaxPageSize: 100}
)

// Configure replaces the handler settings. Zero page sizes keep the defaults.
func Configure(s Settings) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	if s.DefaultPageSize > 0 {
		settings.DefaultPageSize = s.DefaultPageSize
	}
	if s.MaxPageSize > 0 {
		settings.MaxPageSize = s.MaxPageSize
	}
	settings.SecureCookies = s.SecureCookies
}

func currentSettings() Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings
}

func respondError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func log(c *fiber.Ctx) *zerolog.Logger {
	l := logging.Component("handlers").With().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Logger()
	return &l
}
