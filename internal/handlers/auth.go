package handlers

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"patentchat/internal/database"
	"patentchat/internal/middleware"
	"patentchat/internal/models"
	"patentchat/internal/utils"
)

// RegisterRequest represents registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// LoginRequest represents login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest lets non-browser clients pass the refresh token in the body
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

const minPasswordLength = 8

func (r *RegisterRequest) validate() string {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
	if r.Role == "" {
		r.Role = "buyer"
	}

	switch {
	case r.Email == "" || r.Password == "" || r.Name == "":
		return "Email, password, and name are required"
	case !validEmail(r.Email):
		return "Invalid email address"
	case len(r.Password) < minPasswordLength:
		return "Password must be at least 8 characters"
	case r.Role != "buyer" && r.Role != "seller":
		return "Invalid role. Must be buyer or seller"
	}
	return ""
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

const userColumns = `id, unique_id, email, name, avatar, role, last_seen, created_at, updated_at`

func scanUser(row pgx.Row, extra ...any) (models.User, error) {
	var user models.User
	dest := append([]any{&user.ID, &user.UniqueID, &user.Email, &user.Name, &user.Avatar,
		&user.Role, &user.LastSeen, &user.CreatedAt, &user.UpdatedAt}, extra...)
	err := row.Scan(dest...)
	return user, err
}

// Register handles user registration
func Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return respondError(c, fiber.StatusBadRequest, msg)
	}

	ctx := c.UserContext()

	// Check if email already exists
	var exists bool
	if err := database.Pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", req.Email).Scan(&exists); err != nil {
		log(c).Error().Err(err).Msg("check email")
		return respondError(c, fiber.StatusInternalServerError, "Database error")
	}
	if exists {
		return respondError(c, fiber.StatusConflict, "Email already registered")
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "Failed to hash password")
	}

	// Check if uniqueID exists and regenerate if needed
	uniqueID := utils.GenerateUniqueID(req.Name)
	for {
		var uidExists bool
		if err := database.Pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE unique_id = $1)", uniqueID).Scan(&uidExists); err != nil {
			log(c).Error().Err(err).Msg("check unique id")
			return respondError(c, fiber.StatusInternalServerError, "Database error")
		}
		if !uidExists {
			break
		}
		uniqueID = utils.GenerateUniqueID(req.Name)
	}

	user, err := scanUser(database.Pool.QueryRow(ctx, `
		INSERT INTO users (unique_id, email, name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		uniqueID, req.Email, req.Name, hashedPassword, req.Role))
	if err != nil {
		log(c).Error().Err(err).Msg("create user")
		return respondError(c, fiber.StatusInternalServerError, "Failed to create user")
	}

	token, err := issueTokens(c, &user)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "Failed to generate token")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"user":        user.ToResponse(),
			"accessToken": token,
		},
	})
}

// Login handles user login
func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return respondError(c, fiber.StatusBadRequest, "Email and password are required")
	}

	ctx := c.UserContext()

	var passwordHash string
	user, err := scanUser(database.Pool.QueryRow(ctx,
		`SELECT `+userColumns+`, password_hash FROM users WHERE email = $1`, req.Email), &passwordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return respondError(c, fiber.StatusUnauthorized, "Invalid email or password")
	}
	if err != nil {
		log(c).Error().Err(err).Msg("load user")
		return respondError(c, fiber.StatusInternalServerError, "Database error")
	}
	if !utils.CheckPassword(passwordHash, req.Password) {
		return respondError(c, fiber.StatusUnauthorized, "Invalid email or password")
	}

	if _, err := database.Pool.Exec(ctx, "UPDATE users SET last_seen = $1 WHERE id = $2", time.Now(), user.ID); err != nil {
		log(c).Warn().Err(err).Msg("update last seen")
	}

	token, err := issueTokens(c, &user)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"user":        user.ToResponse(),
			"accessToken": token,
		},
	})
}

// GetMe returns current authenticated user
func GetMe(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	user, err := scanUser(database.Pool.QueryRow(c.UserContext(),
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return respondError(c, fiber.StatusNotFound, "User not found")
	}
	if err != nil {
		log(c).Error().Err(err).Msg("load current user")
		return respondError(c, fiber.StatusInternalServerError, "Database error")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    user.ToResponse(),
	})
}

// Logout handles user logout
func Logout(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	if _, err := database.Pool.Exec(c.UserContext(), "UPDATE users SET last_seen = $1 WHERE id = $2", time.Now(), userID); err != nil {
		log(c).Warn().Err(err).Msg("update last seen")
	}

	setAuthCookie(c, "token", "", -1)
	setAuthCookie(c, "refresh_token", "", -1)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

// RefreshToken handles token refresh
func RefreshToken(c *fiber.Ctx) error {
	refreshToken := c.Cookies("refresh_token")
	if refreshToken == "" {
		var req RefreshRequest
		if err := c.BodyParser(&req); err == nil {
			refreshToken = req.RefreshToken
		}
	}
	if refreshToken == "" {
		return respondError(c, fiber.StatusUnauthorized, "Refresh token not found")
	}

	claims, err := utils.ValidateToken(refreshToken)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, "Invalid refresh token")
	}
	if claims.Type != utils.TokenTypeRefresh {
		return respondError(c, fiber.StatusUnauthorized, "Invalid token type")
	}

	user := models.User{ID: claims.UserID, Email: claims.Email, UniqueID: claims.UniqueID}
	token, err := issueTokens(c, &user)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Tokens refreshed successfully",
		"data": fiber.Map{
			"accessToken": token,
		},
	})
}

// issueTokens sets both auth cookies and returns the access token.
func issueTokens(c *fiber.Ctx, user *models.User) (string, error) {
	token, err := utils.GenerateToken(user.ID, user.Email, user.UniqueID)
	if err != nil {
		return "", err
	}
	refreshToken, err := utils.GenerateRefreshToken(user.ID, user.Email, user.UniqueID)
	if err != nil {
		return "", err
	}

	setAuthCookie(c, "token", token, int(utils.AccessTokenTTL().Seconds()))
	setAuthCookie(c, "refresh_token", refreshToken, int(utils.RefreshTokenTTL().Seconds()))
	return token, nil
}

func setAuthCookie(c *fiber.Ctx, name, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		HTTPOnly: true,
		Secure:   currentSettings().SecureCookies,
		SameSite: "Lax",
		MaxAge:   maxAge,
	})
}
