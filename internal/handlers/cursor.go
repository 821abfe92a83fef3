package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidCursor is returned for cursors this server did not issue.
var ErrInvalidCursor = errors.New("invalid cursor")

// pageCursor points at the oldest message of the previous page. Messages are
// ordered by (created_at, id), so the pair is a stable position even when
// several messages share a timestamp.
type pageCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

func encodeCursor(createdAt time.Time, id string) string {
	data, _ := json.Marshal(pageCursor{CreatedAt: createdAt.UTC(), ID: id})
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodeCursor(s string) (pageCursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return pageCursor{}, ErrInvalidCursor
	}
	var cur pageCursor
	if err := json.Unmarshal(data, &cur); err != nil {
		return pageCursor{}, ErrInvalidCursor
	}
	if cur.CreatedAt.IsZero() {
		return pageCursor{}, ErrInvalidCursor
	}
	if _, err := uuid.Parse(cur.ID); err != nil {
		return pageCursor{}, ErrInvalidCursor
	}
	return cur, nil
}

// pageLimit parses the limit query value, clamping it to [1, max].
// Missing or malformed values fall back to def.
func pageLimit(raw string, def, max int) int {
	limit, err := strconv.Atoi(raw)
	if err != nil {
		limit = def
	}
	if limit < 1 {
		limit = 1
	}
	if limit > max {
		limit = max
	}
	return limit
}
