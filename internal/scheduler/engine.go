// Package scheduler owns the per-user recurring reminder timers: creating
// and replacing them when a user edits their schedule, firing them at the
// configured UTC minutes, and rebuilding them from the store after a
// restart.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/example/remindbot/internal/timeutil"
	"github.com/example/remindbot/pkg/models"
)

// ErrRecipientUnreachable marks delivery failures that can never succeed
// again without reconfiguration (the user blocked the bot). The engine
// reacts by disabling the schedule instead of retrying forever.
var ErrRecipientUnreachable = errors.New("recipient unreachable")

// Notifier delivers a rendered reminder to a user. Implementations wrap the
// transport (Telegram) and classify its errors: ErrRecipientUnreachable for
// the permanent class, anything else is treated as transient.
type Notifier interface {
	SendReminder(ctx context.Context, userID int64, reminder *models.Reminder) error
}

// ReminderStore is the durable side of the engine.
type ReminderStore interface {
	Upsert(ctx context.Context, reminder *models.Reminder) (*models.Reminder, error)
	GetActive(ctx context.Context, userID int64) (*models.Reminder, error)
	Disable(ctx context.Context, userID int64) (*models.Reminder, error)
	ListActive(ctx context.Context) ([]models.Reminder, error)
}

// DefaultDeliveryTimeout bounds a single delivery attempt. A timeout counts
// as a transient failure: the schedule stays armed for the next firing.
const DefaultDeliveryTimeout = 30 * time.Second

// Engine orchestrates the reminder lifecycle. All mutations of one user's
// schedule-plus-timers pair go through a per-user lock, so an edit and a
// concurrent firing can never interleave for the same user.
type Engine struct {
	store           ReminderStore
	timer           Timer
	notifier        Notifier
	registry        *Registry
	deliveryTimeout time.Duration

	mu        sync.Mutex
	userLocks map[int64]*sync.Mutex
}

// NewEngine creates an engine with an empty timer registry.
func NewEngine(store ReminderStore, timer Timer, notifier Notifier) *Engine {
	return &Engine{
		store:           store,
		timer:           timer,
		notifier:        notifier,
		registry:        NewRegistry(),
		deliveryTimeout: DefaultDeliveryTimeout,
		userLocks:       make(map[int64]*sync.Mutex),
	}
}

// SetDeliveryTimeout overrides the per-delivery timeout.
func (e *Engine) SetDeliveryTimeout(d time.Duration) {
	if d > 0 {
		e.deliveryTimeout = d
	}
}

// Registry exposes the timer registry for diagnostics.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// SetSchedule replaces whatever schedule the user had: existing timers are
// cancelled, the reminder is persisted, and one timer per configured local
// time is installed. Re-running with identical data cancels and recreates
// functionally identical timers, which is harmless.
func (e *Engine) SetSchedule(ctx context.Context, reminder *models.Reminder) error {
	unlock := e.lockUser(reminder.UserID)
	defer unlock()

	e.registry.CancelAll(reminder.UserID)

	reminder.Enabled = true
	reminder.Time1 = timeutil.NormalizeTime(reminder.Time1)
	if reminder.Capsules == 2 && reminder.Time2 != nil {
		normalized := timeutil.NormalizeTime(*reminder.Time2)
		reminder.Time2 = &normalized
	} else {
		reminder.Time2 = nil
	}

	stored, err := e.store.Upsert(ctx, reminder)
	if err != nil {
		return fmt.Errorf("failed to persist reminder: %w", err)
	}

	handles, err := e.armTimers(stored)
	if err != nil {
		return err
	}
	e.registry.Install(stored.UserID, handles)

	log.Info().
		Int64("user_id", stored.UserID).
		Int("capsules", stored.Capsules).
		Str("timezone", stored.Timezone).
		Strs("times", stored.Times()).
		Msg("reminder scheduled")
	return nil
}

// ClearSchedule cancels the user's timers and disables the stored reminder.
// Idempotent: clearing a user without a schedule is a no-op.
func (e *Engine) ClearSchedule(ctx context.Context, userID int64) error {
	unlock := e.lockUser(userID)
	defer unlock()

	e.registry.CancelAll(userID)
	if _, err := e.store.Disable(ctx, userID); err != nil {
		return fmt.Errorf("failed to disable reminder: %w", err)
	}

	log.Info().Int64("user_id", userID).Msg("reminder cleared")
	return nil
}

// GetActiveSchedule returns the user's enabled reminder, nil if none.
func (e *Engine) GetActiveSchedule(ctx context.Context, userID int64) (*models.Reminder, error) {
	return e.store.GetActive(ctx, userID)
}

// LoadAll rebuilds the timer registry from the store after a restart. Each
// active reminder is re-armed through the regular SetSchedule path; per-row
// failures are logged and skipped so one broken row cannot abort recovery.
// Safe to call repeatedly because installing replaces existing handles.
func (e *Engine) LoadAll(ctx context.Context) error {
	reminders, err := e.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active reminders: %w", err)
	}

	var restored, failed int
	for i := range reminders {
		reminder := reminders[i]
		if err := e.SetSchedule(ctx, &reminder); err != nil {
			failed++
			log.Error().Err(err).Int64("user_id", reminder.UserID).Msg("failed to restore reminder")
			continue
		}
		restored++
	}

	log.Info().Int("restored", restored).Int("failed", failed).Msg("active reminders loaded")
	return nil
}

// armTimers builds one recurring timer per configured local time. The fire
// callback captures only the user ID; the schedule itself is re-read from
// the store at fire time.
func (e *Engine) armTimers(reminder *models.Reminder) ([]Handle, error) {
	offset, err := timeutil.OffsetHours(reminder.Timezone)
	if err != nil {
		log.Warn().
			Int64("user_id", reminder.UserID).
			Str("timezone", reminder.Timezone).
			Msg("invalid timezone label, assuming UTC")
		offset = 0
	}

	userID := reminder.UserID
	handles := make([]Handle, 0, 2)
	for _, localTime := range reminder.Times() {
		spec := timeutil.CronSpec(timeutil.ToUTC(localTime, offset))
		handle, err := e.timer.Schedule(spec, func() { e.fire(userID) })
		if err != nil {
			for _, h := range handles {
				h.Stop()
			}
			return nil, fmt.Errorf("failed to create timer: %w", err)
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

// fire runs at each scheduled UTC minute. It re-fetches the current
// schedule instead of trusting the snapshot the timer was created from,
// so a firing that raced a concurrent edit or deletion is a harmless no-op.
func (e *Engine) fire(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), e.deliveryTimeout)
	defer cancel()

	reminder, err := e.store.GetActive(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to load reminder at fire time")
		return
	}
	if reminder == nil {
		log.Debug().Int64("user_id", userID).Msg("stale timer fired for disabled reminder, skipping")
		return
	}

	err = e.notifier.SendReminder(ctx, userID, reminder)
	if err == nil {
		log.Info().Int64("user_id", userID).Msg("reminder delivered")
		return
	}

	if errors.Is(err, ErrRecipientUnreachable) {
		log.Warn().Int64("user_id", userID).Msg("recipient unreachable, disabling reminder")
		if cerr := e.ClearSchedule(context.Background(), userID); cerr != nil {
			log.Error().Err(cerr).Int64("user_id", userID).Msg("failed to clear unreachable user's reminder")
		}
		return
	}

	// Transient failure: leave the schedule and timers untouched, the next
	// scheduled firing will try again.
	log.Error().Err(err).Int64("user_id", userID).Msg("reminder delivery failed")
}

// lockUser returns the unlock function for the user's mutex, creating it on
// first use. Different users lock independently.
func (e *Engine) lockUser(userID int64) func() {
	e.mu.Lock()
	l, ok := e.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.userLocks[userID] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}
