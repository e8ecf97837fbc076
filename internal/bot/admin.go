package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/remindbot/internal/excel"
	"github.com/example/remindbot/pkg/models"
)

func (b *Bot) isAdmin(userID int64) bool {
	return b.admins[userID]
}

func (b *Bot) handleStatsCommand(ctx context.Context, message *tgbotapi.Message) error {
	if !b.isAdmin(message.From.ID) {
		return nil
	}

	stats, err := b.analytics.GetStatistics(ctx)
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("📊 Статистика бота:\n\n")
	fmt.Fprintf(&sb, "👥 Всего пользователей: %d\n", stats.TotalUsers)
	fmt.Fprintf(&sb, "🟢 Активных (7 дней): %d\n", stats.ActiveUsers)
	fmt.Fprintf(&sb, "📅 Активных напоминаний: %d\n", stats.ActiveReminders)
	fmt.Fprintf(&sb, "💬 Всего взаимодействий: %d\n", stats.TotalInteractions)

	if len(stats.TimezoneDistribution) > 0 {
		sb.WriteString("\n🌍 Часовые пояса:\n")
		labels := make([]string, 0, len(stats.TimezoneDistribution))
		for label := range stats.TimezoneDistribution {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			fmt.Fprintf(&sb, "  %s: %d\n", label, stats.TimezoneDistribution[label])
		}
	}

	if len(stats.CapsulesDistribution) > 0 {
		sb.WriteString("\n💊 Частота приема:\n")
		fmt.Fprintf(&sb, "  1 раз в день: %d\n", stats.CapsulesDistribution[1])
		fmt.Fprintf(&sb, "  2 раза в день: %d\n", stats.CapsulesDistribution[2])
	}

	if len(stats.PopularTimes) > 0 {
		sb.WriteString("\n⏰ Популярные времена:\n")
		for _, tc := range stats.PopularTimes {
			fmt.Fprintf(&sb, "  %s: %d\n", tc.Time, tc.Count)
		}
	}

	return b.sendText(message.Chat.ID, sb.String())
}

func (b *Bot) handleUserCommand(ctx context.Context, message *tgbotapi.Message) error {
	if !b.isAdmin(message.From.ID) {
		return nil
	}

	args := strings.Fields(message.CommandArguments())
	if len(args) != 1 {
		return b.sendText(message.Chat.ID, "Использование: /user <userId>")
	}
	userID, err := models.ParseUserID(args[0])
	if err != nil {
		return b.sendText(message.Chat.ID, "Неверный ID пользователя")
	}

	user, err := b.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return b.sendText(message.Chat.ID, "Пользователь не найден")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 Пользователь %d:\n\n", userID)
	fmt.Fprintf(&sb, "Имя: %s %s\n", user.FirstName, user.LastName)
	if user.Username != "" {
		fmt.Fprintf(&sb, "Username: @%s\n", user.Username)
	}

	if analytics, err := b.analytics.GetByUserID(ctx, userID); err == nil && analytics != nil {
		fmt.Fprintf(&sb, "\n📅 Первое взаимодействие: %s\n", analytics.FirstInteraction.Format(time.RFC3339))
		fmt.Fprintf(&sb, "🕐 Последнее взаимодействие: %s\n", analytics.LastInteraction.Format(time.RFC3339))
		fmt.Fprintf(&sb, "💬 Всего взаимодействий: %d\n", analytics.InteractionCount)
		fmt.Fprintf(&sb, "⏰ Настроено напоминаний: %d\n", analytics.ReminderSetups)
		fmt.Fprintf(&sb, "🔄 Изменено напоминаний: %d\n", analytics.ReminderChanges)
		if analytics.Timezone != nil {
			fmt.Fprintf(&sb, "🌍 Часовой пояс: %s\n", *analytics.Timezone)
		}
	}

	if reminder, err := b.engine.GetActiveSchedule(ctx, userID); err == nil && reminder != nil {
		fmt.Fprintf(&sb, "\n💊 Активное напоминание: %s (%s)\n",
			strings.Join(reminder.Times(), ", "), reminder.Timezone)
	}

	return b.sendText(message.Chat.ID, sb.String())
}

func (b *Bot) handleExportCommand(ctx context.Context, message *tgbotapi.Message) error {
	if !b.isAdmin(message.From.ID) {
		return nil
	}

	data, err := excel.ExportUsage(ctx)
	if err != nil {
		return fmt.Errorf("failed to export usage data: %w", err)
	}

	file := tgbotapi.FileBytes{
		Name:  fmt.Sprintf("remindbot-export-%s.xlsx", time.Now().Format("2006-01-02")),
		Bytes: data,
	}
	doc := tgbotapi.NewDocument(message.Chat.ID, file)
	_, err = b.api.Send(doc)
	return err
}
