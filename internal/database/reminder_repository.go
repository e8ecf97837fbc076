package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/remindbot/pkg/models"
)

// ReminderRepository handles database operations for reminders
type ReminderRepository struct{}

// NewReminderRepository creates a new repository instance
func NewReminderRepository() *ReminderRepository {
	return &ReminderRepository{}
}

const reminderColumns = "user_id, capsules, time1, time2, timezone, enabled, created_at, updated_at"

// Upsert inserts the reminder or overwrites the existing row for the same
// user, refreshing updated_at. The persisted row is returned.
func (r *ReminderRepository) Upsert(ctx context.Context, reminder *models.Reminder) (*models.Reminder, error) {
	query := DB.Rebind(`
		INSERT INTO reminders (user_id, capsules, time1, time2, timezone, enabled, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id) DO UPDATE SET
			capsules = excluded.capsules,
			time1 = excluded.time1,
			time2 = excluded.time2,
			timezone = excluded.timezone,
			enabled = excluded.enabled,
			updated_at = CURRENT_TIMESTAMP
	`)

	_, err := DB.ExecContext(ctx, query,
		reminder.UserID,
		reminder.Capsules,
		reminder.Time1,
		reminder.Time2,
		reminder.Timezone,
		reminder.Enabled,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert reminder: %w", err)
	}

	return r.getByUserID(ctx, reminder.UserID)
}

// GetActive returns the user's reminder only if it is enabled, nil otherwise.
func (r *ReminderRepository) GetActive(ctx context.Context, userID int64) (*models.Reminder, error) {
	var reminder models.Reminder
	query := DB.Rebind("SELECT " + reminderColumns + " FROM reminders WHERE user_id = ? AND enabled = TRUE")

	err := DB.GetContext(ctx, &reminder, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return &reminder, nil
}

// Disable performs the logical delete: the row is kept for analytics but
// enabled is set to false. Returns nil when no row existed (idempotent).
func (r *ReminderRepository) Disable(ctx context.Context, userID int64) (*models.Reminder, error) {
	query := DB.Rebind("UPDATE reminders SET enabled = FALSE, updated_at = CURRENT_TIMESTAMP WHERE user_id = ?")

	res, err := DB.ExecContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to disable reminder: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to disable reminder: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return r.getByUserID(ctx, userID)
}

// ListActive returns every enabled reminder. Used by startup recovery.
func (r *ReminderRepository) ListActive(ctx context.Context) ([]models.Reminder, error) {
	var reminders []models.Reminder
	query := "SELECT " + reminderColumns + " FROM reminders WHERE enabled = TRUE ORDER BY user_id"

	if err := DB.SelectContext(ctx, &reminders, query); err != nil {
		return nil, fmt.Errorf("failed to list active reminders: %w", err)
	}
	return reminders, nil
}

// ListAll returns every reminder row including logically deleted ones.
// Used by the admin export.
func (r *ReminderRepository) ListAll(ctx context.Context) ([]models.Reminder, error) {
	var reminders []models.Reminder
	query := "SELECT " + reminderColumns + " FROM reminders ORDER BY user_id"

	if err := DB.SelectContext(ctx, &reminders, query); err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return reminders, nil
}

// ExistsActive reports whether the user currently has an enabled reminder.
func (r *ReminderRepository) ExistsActive(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	query := DB.Rebind("SELECT EXISTS(SELECT 1 FROM reminders WHERE user_id = ? AND enabled = TRUE)")

	if err := DB.GetContext(ctx, &exists, query, userID); err != nil {
		return false, fmt.Errorf("failed to check reminder: %w", err)
	}
	return exists, nil
}

// getByUserID fetches the row regardless of the enabled flag.
func (r *ReminderRepository) getByUserID(ctx context.Context, userID int64) (*models.Reminder, error) {
	var reminder models.Reminder
	query := DB.Rebind("SELECT " + reminderColumns + " FROM reminders WHERE user_id = ?")

	err := DB.GetContext(ctx, &reminder, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return &reminder, nil
}
