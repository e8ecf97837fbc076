package models

import "time"

// UserAnalytics accumulates per-user usage data collected silently on every
// interaction. It references the users and reminders rows by user_id, which
// is why reminders are disabled rather than deleted.
type UserAnalytics struct {
	UserID            int64     `json:"user_id" db:"user_id"`
	FirstInteraction  time.Time `json:"first_interaction" db:"first_interaction"`
	LastInteraction   time.Time `json:"last_interaction" db:"last_interaction"`
	InteractionCount  int       `json:"interaction_count" db:"interaction_count"`
	ReminderSetups    int       `json:"reminder_setups" db:"reminder_setups"`
	ReminderChanges   int       `json:"reminder_changes" db:"reminder_changes"`
	Timezone          *string   `json:"timezone" db:"timezone"`                     // Last selected offset label
	PreferredCapsules *int      `json:"preferred_capsules" db:"preferred_capsules"` // Last selected dose count
	PreferredTimes    string    `json:"preferred_times" db:"preferred_times"`       // JSON array of "HH:MM" strings
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}
