package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/example/remindbot/internal/bot"
	"github.com/example/remindbot/internal/database"
	"github.com/example/remindbot/internal/scheduler"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment")
	}
	setupLogging()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	if err := database.Connect(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot API")
	}

	timer := scheduler.NewCronTimer()
	defer timer.Stop()

	engine := scheduler.NewEngine(database.NewReminderRepository(), timer, bot.NewNotifier(api))
	if secs := os.Getenv("DELIVERY_TIMEOUT_SECONDS"); secs != "" {
		if n, err := strconv.Atoi(secs); err == nil && n > 0 {
			engine.SetDeliveryTimeout(time.Duration(n) * time.Second)
		} else {
			log.Warn().Str("value", secs).Msg("invalid DELIVERY_TIMEOUT_SECONDS, using default")
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Rebuild timers for every schedule that survived the restart before
	// accepting new updates.
	if err := engine.LoadAll(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to restore reminders")
	}

	b := bot.New(api, engine)
	go func() {
		<-ctx.Done()
		b.Stop()
	}()

	if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("bot stopped with error")
	}
	log.Info().Msg("bot stopped")
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if s := os.Getenv("LOG_LEVEL"); s != "" {
		parsed, err := zerolog.ParseLevel(s)
		if err != nil {
			log.Warn().Str("level", s).Msg("invalid LOG_LEVEL, using info")
		} else {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
}
