package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/example/remindbot/internal/timeutil"
	"github.com/example/remindbot/pkg/models"
)

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	switch message.Command() {
	case "start":
		b.resetState(message.From.ID)
		return b.sendMainMenu(ctx, message.Chat.ID, message.From.ID, textWelcome)
	case "help":
		return b.sendText(message.Chat.ID, textHelp)
	case "stats":
		return b.handleStatsCommand(ctx, message)
	case "user":
		return b.handleUserCommand(ctx, message)
	case "export":
		return b.handleExportCommand(ctx, message)
	default:
		return b.sendText(message.Chat.ID, "Неизвестная команда. Используйте /help")
	}
}

// handleMessage processes free-form text. The only step expecting it is the
// custom time input.
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	userID := message.From.ID
	state := b.state(userID)

	if state.Step != stepCustomTimeFirst && state.Step != stepCustomTimeSecond {
		return b.sendMainMenu(ctx, message.Chat.ID, userID, textWelcome)
	}

	if !timeutil.IsValidTime(message.Text) {
		return b.sendWithKeyboard(message.Chat.ID, textInvalidTimeFormat, customTimeKeyboard())
	}
	entered := timeutil.NormalizeTime(message.Text)

	if state.Step == stepCustomTimeFirst {
		state.Time1 = entered
		state.Step = stepConfirmFirst
	} else {
		state.Time2 = entered
		state.Step = stepConfirmSecond
	}
	return b.sendWithKeyboard(message.Chat.ID, textConfirmTime(entered), confirmationKeyboard())
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	// Acknowledge the tap so the client stops the spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Warn().Err(err).Msg("failed to answer callback query")
	}

	// Inline-mode and expired callbacks arrive without an attached message;
	// there is nothing to edit or reply to.
	if query.Message == nil {
		log.Warn().Str("data", query.Data).Msg("callback without message, ignoring")
		return nil
	}

	userID := query.From.ID
	data := query.Data

	switch {
	case data == callbackAbout:
		return b.editOrSend(query, textAboutCompany, b.mainMenuKeyboardFor(ctx, userID))

	case data == callbackSetup || data == callbackEdit:
		return b.startSetup(ctx, query)

	case data == callbackActiveReminder:
		return b.showActiveReminder(ctx, query)

	case data == callbackDosageOne || data == callbackDosageTwo:
		state := b.state(userID)
		state.Capsules = 1
		if data == callbackDosageTwo {
			state.Capsules = 2
		}
		state.Step = stepSelectTimezone
		return b.editOrSend(query, textSelectTimezone, timezoneKeyboard())

	case strings.HasPrefix(data, callbackTimezone):
		return b.handleTimezoneSelected(ctx, query, strings.TrimPrefix(data, callbackTimezone))

	case strings.HasPrefix(data, callbackTime):
		return b.handleTimeSelected(query, strings.TrimPrefix(data, callbackTime))

	case data == callbackCustomTime:
		state := b.state(userID)
		if state.Step == stepSelectTimeSecond {
			state.Step = stepCustomTimeSecond
		} else {
			state.Step = stepCustomTimeFirst
		}
		return b.editOrSend(query, textEnterCustomTime, customTimeKeyboard())

	case data == callbackConfirm:
		return b.handleConfirm(ctx, query)

	case data == callbackDelete:
		return b.handleDelete(ctx, query)

	case data == callbackBackToStart:
		b.resetState(userID)
		return b.editOrSend(query, textWelcome, b.mainMenuKeyboardFor(ctx, userID))

	case data == callbackBackToDosage:
		b.state(userID).Step = stepSelectDosage
		return b.editOrSend(query, textSelectDosage, dosageKeyboard())

	case data == callbackBackToTimezone:
		b.state(userID).Step = stepSelectTimezone
		return b.editOrSend(query, textSelectTimezone, timezoneKeyboard())

	case data == callbackBackToTime:
		return b.backToTimeSelection(query)

	default:
		log.Warn().Str("data", data).Msg("unknown callback data")
		return nil
	}
}

// startSetup begins (or restarts) the setup conversation. Editing an
// existing reminder walks the same flow and ends in a replacing SetSchedule.
func (b *Bot) startSetup(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	userID := query.From.ID
	b.resetState(userID)
	state := b.state(userID)
	state.Step = stepSelectDosage

	// Prefill from the existing reminder when editing.
	if existing, err := b.engine.GetActiveSchedule(ctx, userID); err == nil && existing != nil {
		state.Capsules = existing.Capsules
		state.Timezone = existing.Timezone
		state.Time1 = existing.Time1
		if existing.Time2 != nil {
			state.Time2 = *existing.Time2
		}
	}

	return b.editOrSend(query, textSelectDosage, dosageKeyboard())
}

func (b *Bot) handleTimezoneSelected(ctx context.Context, query *tgbotapi.CallbackQuery, label string) error {
	userID := query.From.ID

	// Labels come from our own keyboard, but validate anyway before storing.
	if _, err := timeutil.OffsetHours(label); err != nil {
		log.Warn().Str("label", label).Msg("ignoring invalid timezone label from callback")
		return b.editOrSend(query, textSelectTimezone, timezoneKeyboard())
	}

	state := b.state(userID)
	state.Timezone = label
	state.Step = stepSelectTimeFirst

	if err := b.analytics.TrackTimezoneSelection(ctx, userID, label); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("failed to track timezone selection")
	}

	if state.Capsules == 2 {
		return b.editOrSend(query, textSelectTimeFirst, timeKeyboard())
	}
	return b.editOrSend(query, textSelectTimeSingle, timeKeyboard())
}

func (b *Bot) handleTimeSelected(query *tgbotapi.CallbackQuery, selected string) error {
	state := b.state(query.From.ID)
	selected = timeutil.NormalizeTime(selected)

	if state.Step == stepSelectTimeSecond || state.Step == stepCustomTimeSecond {
		state.Time2 = selected
		state.Step = stepConfirmSecond
	} else {
		state.Time1 = selected
		state.Step = stepConfirmFirst
	}
	return b.editOrSend(query, textConfirmTime(selected), confirmationKeyboard())
}

func (b *Bot) handleConfirm(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	userID := query.From.ID
	state := b.state(userID)

	switch state.Step {
	case stepConfirmFirst:
		if state.Capsules == 2 {
			state.Step = stepSelectTimeSecond
			return b.editOrSend(query, textSelectTimeSecond, timeKeyboard())
		}
		return b.finalizeSetup(ctx, query)
	case stepConfirmSecond:
		return b.finalizeSetup(ctx, query)
	default:
		// Confirm tapped outside the flow (stale keyboard), restart.
		return b.startSetup(ctx, query)
	}
}

// finalizeSetup persists the collected configuration and installs the
// timers through the scheduler engine.
func (b *Bot) finalizeSetup(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	userID := query.From.ID
	state := b.state(userID)

	if !state.complete() {
		return b.startSetup(ctx, query)
	}

	reminder := &models.Reminder{
		UserID:   userID,
		Capsules: state.Capsules,
		Time1:    state.Time1,
		Timezone: state.Timezone,
	}
	if state.Capsules == 2 {
		time2 := state.Time2
		reminder.Time2 = &time2
	}

	existed, err := b.reminders.ExistsActive(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("failed to check existing reminder")
	}

	if err := b.engine.SetSchedule(ctx, reminder); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to set schedule")
		return b.editOrSend(query, textStorageError, b.mainMenuKeyboardFor(ctx, userID))
	}

	if err := b.analytics.TrackReminderSetup(ctx, userID, reminder); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("failed to track reminder setup")
	}
	if existed {
		if err := b.analytics.TrackReminderChange(ctx, userID); err != nil {
			log.Warn().Err(err).Int64("user_id", userID).Msg("failed to track reminder change")
		}
	}

	b.resetState(userID)

	var confirmation string
	if reminder.Capsules == 2 && reminder.Time2 != nil {
		confirmation = textReminderSetDouble(reminder.Time1, *reminder.Time2, reminder.Timezone)
	} else {
		confirmation = textReminderSetSingle(reminder.Time1, reminder.Timezone)
	}
	return b.editOrSend(query, confirmation, mainMenuKeyboard(true))
}

func (b *Bot) showActiveReminder(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	userID := query.From.ID
	reminder, err := b.engine.GetActiveSchedule(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load reminder: %w", err)
	}
	if reminder == nil {
		return b.editOrSend(query, textNoActiveReminders, b.mainMenuKeyboardFor(ctx, userID))
	}
	details := textReminderDetails(reminder.Capsules, reminder.Times(), reminder.Timezone)
	return b.editOrSend(query, details, reminderDetailKeyboard())
}

func (b *Bot) handleDelete(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	userID := query.From.ID

	if err := b.engine.ClearSchedule(ctx, userID); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to clear schedule")
		return b.editOrSend(query, textStorageError, b.mainMenuKeyboardFor(ctx, userID))
	}
	if err := b.analytics.TrackReminderChange(ctx, userID); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("failed to track reminder change")
	}

	b.resetState(userID)
	return b.editOrSend(query, textReminderDeleted, mainMenuKeyboard(false))
}

func (b *Bot) backToTimeSelection(query *tgbotapi.CallbackQuery) error {
	state := b.state(query.From.ID)
	if state.Step == stepConfirmSecond || state.Step == stepCustomTimeSecond {
		state.Step = stepSelectTimeSecond
		return b.editOrSend(query, textSelectTimeSecond, timeKeyboard())
	}
	state.Step = stepSelectTimeFirst
	if state.Capsules == 2 {
		return b.editOrSend(query, textSelectTimeFirst, timeKeyboard())
	}
	return b.editOrSend(query, textSelectTimeSingle, timeKeyboard())
}

// sendMainMenu sends the menu as a new message.
func (b *Bot) sendMainMenu(ctx context.Context, chatID, userID int64, text string) error {
	return b.sendWithKeyboard(chatID, text, b.mainMenuKeyboardFor(ctx, userID))
}

// mainMenuKeyboardFor checks whether the user has an active reminder so the
// menu can offer the reminders entry.
func (b *Bot) mainMenuKeyboardFor(ctx context.Context, userID int64) tgbotapi.InlineKeyboardMarkup {
	has, err := b.reminders.ExistsActive(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("failed to check active reminder")
		has = false
	}
	return mainMenuKeyboard(has)
}
