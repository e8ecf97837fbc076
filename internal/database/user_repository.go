package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/remindbot/pkg/models"
)

// UserRepository handles database operations for users
type UserRepository struct{}

// NewUserRepository creates a new repository instance
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// Upsert creates the user on first contact or refreshes the profile fields
// Telegram sent with the update.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	query := DB.Rebind(`
		INSERT INTO users (user_id, username, first_name, last_name, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			updated_at = CURRENT_TIMESTAMP
	`)

	_, err := DB.ExecContext(ctx, query, user.UserID, user.Username, user.FirstName, user.LastName)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetByID returns a user by Telegram ID, nil if unknown.
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	query := DB.Rebind("SELECT user_id, username, first_name, last_name, created_at, updated_at FROM users WHERE user_id = ?")

	err := DB.GetContext(ctx, &user, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetAll returns all known users, newest first.
func (r *UserRepository) GetAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	query := "SELECT user_id, username, first_name, last_name, created_at, updated_at FROM users ORDER BY created_at DESC"

	if err := DB.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return users, nil
}
