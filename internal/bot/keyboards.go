package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data constants
const (
	callbackAbout          = "about"
	callbackSetup          = "setup"
	callbackActiveReminder = "active"
	callbackDosageOne      = "dosage:1"
	callbackDosageTwo      = "dosage:2"
	callbackTimezone       = "tz:"   // followed by an offset label
	callbackTime           = "time:" // followed by "HH:MM"
	callbackCustomTime     = "custom_time"
	callbackConfirm        = "confirm"
	callbackDelete         = "delete"
	callbackEdit           = "edit"
	callbackBackToStart    = "back:start"
	callbackBackToDosage   = "back:dosage"
	callbackBackToTimezone = "back:timezone"
	callbackBackToTime     = "back:time"
)

// timezoneLabels is the offset grid offered during setup. Fractional
// offsets cover the half- and quarter-hour zones.
var timezoneLabels = []string{
	"UTC+2", "UTC+3", "UTC+4",
	"UTC+5", "UTC+5.5", "UTC+6",
	"UTC+7", "UTC+8", "UTC+9",
	"UTC+10", "UTC+11", "UTC+12",
	"UTC+0", "UTC+1", "UTC-1",
	"UTC-4", "UTC-5", "UTC-8",
}

func button(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

// mainMenuKeyboard shows the active-reminders entry only when one exists.
func mainMenuKeyboard(hasReminder bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{button("🌿 О компании", callbackAbout)},
		{button("💊 Начать прием витаминов", callbackSetup)},
	}
	if hasReminder {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			button("⏰ Активные напоминания", callbackActiveReminder),
		})
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func dosageKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		[]tgbotapi.InlineKeyboardButton{button("1 капсула в день", callbackDosageOne)},
		[]tgbotapi.InlineKeyboardButton{button("2 капсулы в день", callbackDosageTwo)},
		[]tgbotapi.InlineKeyboardButton{button("⬅️ Назад", callbackBackToStart)},
	)
}

func timezoneKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(timezoneLabels); i += 3 {
		var row []tgbotapi.InlineKeyboardButton
		for j := i; j < i+3 && j < len(timezoneLabels); j++ {
			row = append(row, button(timezoneLabels[j], callbackTimezone+timezoneLabels[j]))
		}
		rows = append(rows, row)
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{button("⬅️ Назад", callbackBackToDosage)})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func timeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		[]tgbotapi.InlineKeyboardButton{
			button("08:00", callbackTime+"08:00"),
			button("12:00", callbackTime+"12:00"),
		},
		[]tgbotapi.InlineKeyboardButton{
			button("18:00", callbackTime+"18:00"),
			button("21:00", callbackTime+"21:00"),
		},
		[]tgbotapi.InlineKeyboardButton{button("🕐 Свое время", callbackCustomTime)},
		[]tgbotapi.InlineKeyboardButton{button("⬅️ Назад", callbackBackToTimezone)},
	)
}

func customTimeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		[]tgbotapi.InlineKeyboardButton{button("⬅️ Назад", callbackBackToTime)},
	)
}

func confirmationKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		[]tgbotapi.InlineKeyboardButton{button("✅ Подтвердить", callbackConfirm)},
		[]tgbotapi.InlineKeyboardButton{button("⬅️ Назад", callbackBackToTime)},
	)
}

func reminderDetailKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		[]tgbotapi.InlineKeyboardButton{button("✏️ Изменить", callbackEdit)},
		[]tgbotapi.InlineKeyboardButton{button("🗑 Удалить", callbackDelete)},
		[]tgbotapi.InlineKeyboardButton{button("⬅️ Назад", callbackBackToStart)},
	)
}
