package bot

import "fmt"

// User-facing texts. Kept in one place so wording can be edited without
// touching handler logic.
const (
	textWelcome = "👋 Добро пожаловать!\n\n" +
		"Я помогу вам не забывать принимать витамины.\n\n" +
		"🔹 Как это работает:\n" +
		"1. Выберите, сколько раз в день принимать капсулы\n" +
		"2. Укажите часовой пояс и удобное время\n" +
		"3. Получайте напоминания каждый день"

	textHelp = "📖 Справка\n\n" +
		"/start - Главное меню\n" +
		"/help - Показать эту справку\n\n" +
		"Настройте напоминание через кнопки меню: выберите частоту приема, " +
		"часовой пояс и время. Бот будет присылать напоминание каждый день."

	textAboutCompany = "🌿 Мы делаем витамины, которые легко принимать вовремя.\n\n" +
		"Этот бот напомнит вам о приеме в выбранное время."

	textSelectDosage   = "💊 Сколько раз в день вы принимаете капсулы?"
	textSelectTimezone = "🌍 Выберите ваш часовой пояс:"

	textSelectTimeSingle = "⏰ Выберите время приема:"
	textSelectTimeFirst  = "⏰ Выберите время первого приема:"
	textSelectTimeSecond = "⏰ Выберите время второго приема:"

	textEnterCustomTime = "⌨️ Введите время в формате ЧЧ:ММ, например 09:30"

	textReminderMessage = "💊 Время принять витамины!"

	textNoActiveReminders = "У вас нет активных напоминаний."
	textReminderDeleted   = "🗑 Напоминание удалено."

	textInvalidTimeFormat = "⚠️ Неверный формат времени. Введите время в формате ЧЧ:ММ, например 09:30"

	textStorageError = "😔 Не удалось сохранить напоминание, попробуйте еще раз позже."
)

func textConfirmTime(time string) string {
	return fmt.Sprintf("Вы выбрали %s. Подтвердить?", time)
}

func textReminderSetSingle(time, timezone string) string {
	return fmt.Sprintf("✅ Напоминание настроено!\n\nКаждый день в %s (%s) я напомню вам принять витамины.", time, timezone)
}

func textReminderSetDouble(time1, time2, timezone string) string {
	return fmt.Sprintf("✅ Напоминание настроено!\n\nКаждый день в %s и %s (%s) я напомню вам принять витамины.", time1, time2, timezone)
}

func textReminderDetails(capsules int, times []string, timezone string) string {
	if capsules == 2 && len(times) == 2 {
		return fmt.Sprintf("📋 Ваше напоминание:\n\n💊 Прием: 2 раза в день\n⏰ Время: %s и %s\n🌍 Часовой пояс: %s",
			times[0], times[1], timezone)
	}
	return fmt.Sprintf("📋 Ваше напоминание:\n\n💊 Прием: 1 раз в день\n⏰ Время: %s\n🌍 Часовой пояс: %s",
		times[0], timezone)
}
