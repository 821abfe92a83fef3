package models

import "time"

// User represents a marketplace account
type User struct {
	ID        string    `json:"id" db:"id"`
	UniqueID  string    `json:"uniqueId" db:"unique_id"` // Format: #TRADER-882
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Password  string    `json:"-" db:"password_hash"` // Never expose in JSON
	Avatar    *string   `json:"avatar,omitempty" db:"avatar"`
	Role      string    `json:"role" db:"role"` // 'buyer', 'seller' or 'admin'
	LastSeen  time.Time `json:"lastSeen" db:"last_seen"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// UserResponse is what we send to clients (without sensitive data)
type UserResponse struct {
	ID        string    `json:"id"`
	UniqueID  string    `json:"uniqueId"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name"`
	Avatar    *string   `json:"avatar,omitempty"`
	Role      string    `json:"role"`
	LastSeen  time.Time `json:"lastSeen"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		UniqueID:  u.UniqueID,
		Email:     u.Email,
		Name:      u.Name,
		Avatar:    u.Avatar,
		Role:      u.Role,
		LastSeen:  u.LastSeen,
		CreatedAt: u.CreatedAt,
	}
}

// Public strips the email for responses shown to other users
func (r UserResponse) Public() UserResponse {
	r.Email = ""
	return r
}
