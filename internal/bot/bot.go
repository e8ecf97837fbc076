// Package bot implements the conversational surface: the inline-keyboard
// setup flow that collects a reminder configuration and hands it to the
// scheduler engine, plus the admin commands.
package bot

import (
	"context"
	"os"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/example/remindbot/internal/database"
	"github.com/example/remindbot/internal/scheduler"
	"github.com/example/remindbot/pkg/models"
)

// step names of the setup conversation
const (
	stepSelectDosage     = "select_dosage"
	stepSelectTimezone   = "select_timezone"
	stepSelectTimeFirst  = "select_time_first"
	stepSelectTimeSecond = "select_time_second"
	stepCustomTimeFirst  = "custom_time_first"
	stepCustomTimeSecond = "custom_time_second"
	stepConfirmFirst     = "confirm_first"
	stepConfirmSecond    = "confirm_second"
)

// convState carries the partially collected reminder through the setup
// steps. It lives in memory only; the finished schedule is durable and
// recovered from the store on restart.
type convState struct {
	Step     string
	Capsules int
	Timezone string
	Time1    string
	Time2    string
}

// complete reports whether every field the final confirmation needs has been
// collected. False means the tap came from a stale keyboard of an older
// conversation, e.g. a time button pressed without going through the dosage
// step first.
func (s *convState) complete() bool {
	if s.Capsules != 1 && s.Capsules != 2 {
		return false
	}
	if s.Timezone == "" || s.Time1 == "" {
		return false
	}
	return s.Capsules != 2 || s.Time2 != ""
}

// Bot represents the Telegram bot application
type Bot struct {
	api       *tgbotapi.BotAPI
	engine    *scheduler.Engine
	users     *database.UserRepository
	reminders *database.ReminderRepository
	analytics *database.AnalyticsRepository
	admins    map[int64]bool

	mu     sync.Mutex
	states map[int64]*convState
}

// New creates a new bot instance around an already authenticated API
// client. The engine must be wired with a Notifier sharing the same client.
func New(api *tgbotapi.BotAPI, engine *scheduler.Engine) *Bot {
	b := &Bot{
		api:       api,
		engine:    engine,
		users:     database.NewUserRepository(),
		reminders: database.NewReminderRepository(),
		analytics: database.NewAnalyticsRepository(),
		admins:    make(map[int64]bool),
		states:    make(map[int64]*convState),
	}

	if ids := os.Getenv("ADMIN_USER_IDS"); ids != "" {
		for _, idStr := range strings.Split(ids, ",") {
			id, err := models.ParseUserID(idStr)
			if err != nil {
				log.Warn().Str("id", idStr).Msg("invalid admin user ID, skipping")
				continue
			}
			b.admins[id] = true
		}
	}

	return b
}

// Start runs the long-polling update loop until the context is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	log.Info().Str("username", b.api.Self.UserName).Msg("bot started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// Stop shuts down the update channel.
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("panic in update handler")
		}
	}()

	switch {
	case update.Message != nil && update.Message.IsCommand():
		b.trackUser(ctx, update.Message.From)
		if err := b.handleCommand(ctx, update.Message); err != nil {
			log.Error().Err(err).Int64("user_id", update.Message.From.ID).Msg("command handler failed")
		}
	case update.Message != nil:
		b.trackUser(ctx, update.Message.From)
		if err := b.handleMessage(ctx, update.Message); err != nil {
			log.Error().Err(err).Int64("user_id", update.Message.From.ID).Msg("message handler failed")
		}
	case update.CallbackQuery != nil:
		b.trackUser(ctx, update.CallbackQuery.From)
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			log.Error().Err(err).Int64("user_id", update.CallbackQuery.From.ID).Msg("callback handler failed")
		}
	}
}

// trackUser upserts the user profile and bumps the analytics counters.
// Analytics are collected silently: failures are logged and ignored.
func (b *Bot) trackUser(ctx context.Context, from *tgbotapi.User) {
	if from == nil {
		return
	}
	user := &models.User{
		UserID:    from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	}
	if err := b.users.Upsert(ctx, user); err != nil {
		log.Warn().Err(err).Int64("user_id", from.ID).Msg("failed to upsert user")
		return
	}
	if err := b.analytics.TrackInteraction(ctx, from.ID); err != nil {
		log.Warn().Err(err).Int64("user_id", from.ID).Msg("failed to track interaction")
	}
}

// state helpers

func (b *Bot) state(userID int64) *convState {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.states[userID]
	if !ok {
		s = &convState{}
		b.states[userID] = s
	}
	return s
}

func (b *Bot) resetState(userID int64) {
	b.mu.Lock()
	delete(b.states, userID)
	b.mu.Unlock()
}

// send helpers

func (b *Bot) sendText(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	_, err := b.api.Send(msg)
	return err
}

// editOrSend edits the message the callback came from, falling back to a
// fresh message when editing fails (e.g. the message is too old).
func (b *Bot) editOrSend(query *tgbotapi.CallbackQuery, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageTextAndMarkup(
		query.Message.Chat.ID, query.Message.MessageID, text, keyboard)
	if _, err := b.api.Send(edit); err != nil {
		return b.sendWithKeyboard(query.Message.Chat.ID, text, keyboard)
	}
	return nil
}
