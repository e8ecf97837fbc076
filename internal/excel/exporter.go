package excel

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/remindbot/internal/database"
)

// ExportUsage builds an xlsx workbook with three sheets — users, reminders
// and analytics — and returns it as a byte slice ready to be sent as a
// Telegram document.
func ExportUsage(ctx context.Context) ([]byte, error) {
	users, err := database.NewUserRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	reminders, err := database.NewReminderRepository().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reminders: %w", err)
	}
	analytics, err := database.NewAnalyticsRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load analytics: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const usersSheet = "Users"
	f.SetSheetName("Sheet1", usersSheet)
	writeRow(f, usersSheet, 1, []interface{}{"User ID", "Username", "First Name", "Last Name", "Created At"})
	for i, user := range users {
		writeRow(f, usersSheet, i+2, []interface{}{
			user.UserID,
			user.Username,
			user.FirstName,
			user.LastName,
			user.CreatedAt.Format(time.RFC3339),
		})
	}

	const remindersSheet = "Reminders"
	if _, err := f.NewSheet(remindersSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	writeRow(f, remindersSheet, 1, []interface{}{"User ID", "Capsules", "Time 1", "Time 2", "Timezone", "Enabled", "Updated At"})
	for i, reminder := range reminders {
		time2 := ""
		if reminder.Time2 != nil {
			time2 = *reminder.Time2
		}
		writeRow(f, remindersSheet, i+2, []interface{}{
			reminder.UserID,
			reminder.Capsules,
			reminder.Time1,
			time2,
			reminder.Timezone,
			reminder.Enabled,
			reminder.UpdatedAt.Format(time.RFC3339),
		})
	}

	const analyticsSheet = "Analytics"
	if _, err := f.NewSheet(analyticsSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	writeRow(f, analyticsSheet, 1, []interface{}{
		"User ID", "First Interaction", "Last Interaction", "Interactions",
		"Reminder Setups", "Reminder Changes", "Timezone", "Preferred Capsules", "Preferred Times",
	})
	for i, row := range analytics {
		timezone := ""
		if row.Timezone != nil {
			timezone = *row.Timezone
		}
		capsules := 0
		if row.PreferredCapsules != nil {
			capsules = *row.PreferredCapsules
		}
		writeRow(f, analyticsSheet, i+2, []interface{}{
			row.UserID,
			row.FirstInteraction.Format(time.RFC3339),
			row.LastInteraction.Format(time.RFC3339),
			row.InteractionCount,
			row.ReminderSetups,
			row.ReminderChanges,
			timezone,
			capsules,
			row.PreferredTimes,
		})
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			continue
		}
		// Best effort: a single bad cell must not abort the export.
		_ = f.SetCellValue(sheet, cell, value)
	}
}
