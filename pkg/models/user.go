package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// User represents a Telegram user using the bot
type User struct {
	UserID    int64     `json:"user_id" db:"user_id"` // Telegram User ID
	Username  string    `json:"username" db:"username"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ParseUserID canonicalizes a textual user ID into the int64 form used for
// every registry and store lookup. All textual entry points (admin commands,
// environment lists) must go through here before touching any map.
func ParseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID %q: %w", s, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid user ID %q: must be positive", s)
	}
	return id, nil
}
