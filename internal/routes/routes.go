package routes

import (
	"patentchat/internal/handlers"
	"patentchat/internal/metrics"
	"patentchat/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, appName string) {
	app.Get("/metrics", metrics.Handler())

	// API v1 group
	api := app.Group("/api/v1")

	// Health check (public)
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": appName + " is running",
		})
	})

	// Auth routes (public)
	auth := api.Group("/auth")
	auth.Post("/register", middleware.StrictRateLimiter(), handlers.Register)
	auth.Post("/login", middleware.StrictRateLimiter(), handlers.Login)
	auth.Post("/refresh", middleware.StrictRateLimiter(), handlers.RefreshToken)
	auth.Post("/logout", middleware.AuthMiddleware, handlers.Logout)
	auth.Get("/me", middleware.AuthMiddleware, handlers.GetMe)

	// Inbox (protected)
	me := api.Group("/me", middleware.AuthMiddleware)
	me.Get("/conversations", middleware.RelaxedRateLimiter(), handlers.GetMyConversations)

	// Conversation routes (protected)
	conversations := api.Group("/conversations", middleware.AuthMiddleware)
	conversations.Post("/", middleware.ModerateRateLimiter(), handlers.OpenConversation)
	conversations.Get("/:id/messages", middleware.RelaxedRateLimiter(), handlers.ListMessages)
	conversations.Post("/:id/messages", middleware.ModerateRateLimiter(), middleware.RequireIdempotencyKey, handlers.CreateMessage)
	conversations.Post("/:id/read", middleware.ModerateRateLimiter(), middleware.RequireIdempotencyKey, handlers.MarkRead)
}
