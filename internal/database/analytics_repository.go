package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/example/remindbot/pkg/models"
)

// AnalyticsRepository handles database operations for user analytics
type AnalyticsRepository struct{}

// NewAnalyticsRepository creates a new repository instance
func NewAnalyticsRepository() *AnalyticsRepository {
	return &AnalyticsRepository{}
}

const analyticsColumns = "user_id, first_interaction, last_interaction, interaction_count, " +
	"reminder_setups, reminder_changes, timezone, preferred_capsules, preferred_times, created_at, updated_at"

// TrackInteraction creates the analytics row on first contact and bumps the
// interaction counter. Collected silently, failures must not break handlers.
func (r *AnalyticsRepository) TrackInteraction(ctx context.Context, userID int64) error {
	query := DB.Rebind(`
		INSERT INTO user_analytics (user_id, interaction_count)
		VALUES (?, 1)
		ON CONFLICT (user_id) DO UPDATE SET
			interaction_count = user_analytics.interaction_count + 1,
			last_interaction = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
	`)

	if _, err := DB.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to track interaction: %w", err)
	}
	return nil
}

// TrackReminderSetup records a completed reminder setup together with the
// chosen timezone, dose count and times.
func (r *AnalyticsRepository) TrackReminderSetup(ctx context.Context, userID int64, reminder *models.Reminder) error {
	timesJSON, err := json.Marshal(reminder.Times())
	if err != nil {
		return fmt.Errorf("failed to marshal preferred times: %w", err)
	}

	query := DB.Rebind(`
		UPDATE user_analytics SET
			reminder_setups = reminder_setups + 1,
			timezone = ?,
			preferred_capsules = ?,
			preferred_times = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?
	`)

	if _, err := DB.ExecContext(ctx, query, reminder.Timezone, reminder.Capsules, string(timesJSON), userID); err != nil {
		return fmt.Errorf("failed to track reminder setup: %w", err)
	}
	return nil
}

// TrackReminderChange counts edits and deletions of an existing reminder.
func (r *AnalyticsRepository) TrackReminderChange(ctx context.Context, userID int64) error {
	query := DB.Rebind(`
		UPDATE user_analytics SET
			reminder_changes = reminder_changes + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?
	`)

	if _, err := DB.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to track reminder change: %w", err)
	}
	return nil
}

// TrackTimezoneSelection remembers the last offset label the user picked.
func (r *AnalyticsRepository) TrackTimezoneSelection(ctx context.Context, userID int64, timezone string) error {
	query := DB.Rebind(`
		UPDATE user_analytics SET
			timezone = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?
	`)

	if _, err := DB.ExecContext(ctx, query, timezone, userID); err != nil {
		return fmt.Errorf("failed to track timezone selection: %w", err)
	}
	return nil
}

// GetByUserID returns the analytics row for one user, nil if unknown.
func (r *AnalyticsRepository) GetByUserID(ctx context.Context, userID int64) (*models.UserAnalytics, error) {
	var analytics models.UserAnalytics
	query := DB.Rebind("SELECT " + analyticsColumns + " FROM user_analytics WHERE user_id = ?")

	err := DB.GetContext(ctx, &analytics, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analytics: %w", err)
	}
	return &analytics, nil
}

// GetAll returns every analytics row. Used by the admin export.
func (r *AnalyticsRepository) GetAll(ctx context.Context) ([]models.UserAnalytics, error) {
	var rows []models.UserAnalytics
	query := "SELECT " + analyticsColumns + " FROM user_analytics ORDER BY user_id"

	if err := DB.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list analytics: %w", err)
	}
	return rows, nil
}

// TimeCount is one entry of the popular-times ranking.
type TimeCount struct {
	Time  string
	Count int
}

// Statistics aggregates bot-wide usage numbers for the admin /stats command.
type Statistics struct {
	TotalUsers           int
	ActiveUsers          int // interacted within the last 7 days
	ActiveReminders      int
	TotalInteractions    int
	TimezoneDistribution map[string]int
	CapsulesDistribution map[int]int
	PopularTimes         []TimeCount
}

// GetStatistics computes the aggregate numbers across all users.
func (r *AnalyticsRepository) GetStatistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{
		TimezoneDistribution: make(map[string]int),
		CapsulesDistribution: make(map[int]int),
	}

	if err := DB.GetContext(ctx, &stats.TotalUsers, "SELECT COUNT(*) FROM users"); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if err := DB.GetContext(ctx, &stats.ActiveReminders, "SELECT COUNT(*) FROM reminders WHERE enabled = TRUE"); err != nil {
		return nil, fmt.Errorf("failed to count reminders: %w", err)
	}
	if err := DB.GetContext(ctx, &stats.TotalInteractions, "SELECT COALESCE(SUM(interaction_count), 0) FROM user_analytics"); err != nil {
		return nil, fmt.Errorf("failed to sum interactions: %w", err)
	}

	activeQuery := "SELECT COUNT(*) FROM user_analytics WHERE last_interaction > datetime('now', '-7 days')"
	if DB.DriverName() == "postgres" {
		activeQuery = "SELECT COUNT(*) FROM user_analytics WHERE last_interaction > NOW() - INTERVAL '7 days'"
	}
	if err := DB.GetContext(ctx, &stats.ActiveUsers, activeQuery); err != nil {
		return nil, fmt.Errorf("failed to count active users: %w", err)
	}

	// Distributions and the popular-times ranking come from the analytics
	// rows; preferred_times is a JSON array, so it is aggregated here rather
	// than in SQL to stay portable between the drivers.
	rows, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	timeCounts := make(map[string]int)
	for i := range rows {
		row := &rows[i]
		if row.Timezone != nil && *row.Timezone != "" {
			stats.TimezoneDistribution[*row.Timezone]++
		}
		if row.PreferredCapsules != nil {
			stats.CapsulesDistribution[*row.PreferredCapsules]++
		}
		var times []string
		if err := json.Unmarshal([]byte(row.PreferredTimes), &times); err != nil {
			continue
		}
		for _, t := range times {
			timeCounts[t]++
		}
	}
	for t, count := range timeCounts {
		stats.PopularTimes = append(stats.PopularTimes, TimeCount{Time: t, Count: count})
	}
	sort.Slice(stats.PopularTimes, func(i, j int) bool {
		if stats.PopularTimes[i].Count != stats.PopularTimes[j].Count {
			return stats.PopularTimes[i].Count > stats.PopularTimes[j].Count
		}
		return stats.PopularTimes[i].Time < stats.PopularTimes[j].Time
	})
	if len(stats.PopularTimes) > 5 {
		stats.PopularTimes = stats.PopularTimes[:5]
	}

	return stats, nil
}
