package models

import "time"

// Reminder represents a user's recurring pill reminder configuration.
// At most one enabled reminder exists per user; replacing a reminder
// overwrites the previous row, and deletion only flips Enabled off so
// the row stays referencable by analytics.
type Reminder struct {
	UserID    int64     `json:"user_id" db:"user_id"` // Telegram User ID
	Capsules  int       `json:"capsules" db:"capsules"` // Doses per day: 1 or 2
	Time1     string    `json:"time1" db:"time1"`       // Local "HH:MM" of the first dose
	Time2     *string   `json:"time2" db:"time2"`       // Local "HH:MM" of the second dose, nil unless Capsules == 2
	Timezone  string    `json:"timezone" db:"timezone"` // Offset label captured at setup time, e.g. "UTC+3" or "UTC+5.5"
	Enabled   bool      `json:"enabled" db:"enabled"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Times returns the configured local times in dose order.
func (r *Reminder) Times() []string {
	times := []string{r.Time1}
	if r.Capsules == 2 && r.Time2 != nil {
		times = append(times, *r.Time2)
	}
	return times
}
