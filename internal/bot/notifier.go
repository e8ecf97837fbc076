package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/remindbot/internal/scheduler"
	"github.com/example/remindbot/pkg/models"
)

// Notifier delivers reminder messages over the Telegram Bot API and
// classifies send errors for the scheduler engine: a 403 (the user blocked
// the bot or deactivated the account) is permanent, everything else is
// transient.
type Notifier struct {
	api *tgbotapi.BotAPI
}

// NewNotifier creates a notifier sharing the bot's API client.
func NewNotifier(api *tgbotapi.BotAPI) *Notifier {
	return &Notifier{api: api}
}

// SendReminder implements scheduler.Notifier.
func (n *Notifier) SendReminder(ctx context.Context, userID int64, reminder *models.Reminder) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delivery cancelled: %w", err)
	}

	msg := tgbotapi.NewMessage(userID, textReminderMessage)
	if _, err := n.api.Send(msg); err != nil {
		if isRecipientGone(err) {
			return fmt.Errorf("%w: %v", scheduler.ErrRecipientUnreachable, err)
		}
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	return nil
}

// isRecipientGone detects the Telegram error class after which delivery can
// never succeed without the user coming back on their own.
func isRecipientGone(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 403 {
			return true
		}
		message := strings.ToLower(apiErr.Message)
		return strings.Contains(message, "blocked by the user") ||
			strings.Contains(message, "user is deactivated") ||
			strings.Contains(message, "chat not found")
	}
	return false
}
