package bot

import (
	"context"
	"net/http"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"

	"github.com/example/remindbot/internal/scheduler"
	"github.com/example/remindbot/pkg/models"
)

// recordingStore counts writes so tests can assert nothing was persisted.
type recordingStore struct {
	mu      sync.Mutex
	upserts int
}

func (s *recordingStore) Upsert(ctx context.Context, r *models.Reminder) (*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	return r, nil
}

func (s *recordingStore) GetActive(ctx context.Context, userID int64) (*models.Reminder, error) {
	return nil, nil
}

func (s *recordingStore) Disable(ctx context.Context, userID int64) (*models.Reminder, error) {
	return nil, nil
}

func (s *recordingStore) ListActive(ctx context.Context) ([]models.Reminder, error) {
	return nil, nil
}

func (s *recordingStore) upsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

type stubTimer struct{}

type stubHandle struct{}

func (stubHandle) Stop() {}

func (stubTimer) Schedule(spec string, task func()) (scheduler.Handle, error) {
	return stubHandle{}, nil
}

type stubNotifier struct{}

func (stubNotifier) SendReminder(ctx context.Context, userID int64, r *models.Reminder) error {
	return nil
}

// newTestBot builds a bot around an offline API client: every Telegram call
// fails with a transport error instead of reaching the network, which is
// enough to drive the handler logic.
func newTestBot(store scheduler.ReminderStore) *Bot {
	engine := scheduler.NewEngine(store, stubTimer{}, stubNotifier{})
	return &Bot{
		api:    &tgbotapi.BotAPI{Client: &http.Client{}},
		engine: engine,
		states: make(map[int64]*convState),
	}
}

func callbackFrom(userID int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{
			MessageID: 1,
			Chat:      &tgbotapi.Chat{ID: userID},
		},
		Data: data,
	}
}

func TestConfirmOnStaleKeyboardRestartsSetup(t *testing.T) {
	store := &recordingStore{}
	b := newTestBot(store)

	// A time button tapped on an old keyboard lands on a fresh state: the
	// dosage and timezone steps were never walked.
	state := b.state(7)
	state.Step = stepConfirmFirst
	state.Time1 = "08:00"

	_ = b.handleConfirm(context.Background(), callbackFrom(7, callbackConfirm))

	assert.Equal(t, 0, store.upsertCount())
	assert.Equal(t, stepSelectDosage, b.state(7).Step)
}

func TestCallbackWithoutMessageIgnored(t *testing.T) {
	b := newTestBot(&recordingStore{})

	query := &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: 1},
		Data: callbackAbout,
	}

	assert.NoError(t, b.handleCallback(context.Background(), query))
}

func TestConvStateComplete(t *testing.T) {
	tests := []struct {
		name  string
		state convState
		want  bool
	}{
		{"single dose", convState{Capsules: 1, Timezone: "UTC+3", Time1: "08:00"}, true},
		{"double dose", convState{Capsules: 2, Timezone: "UTC+3", Time1: "08:00", Time2: "21:00"}, true},
		{"no dosage chosen", convState{Timezone: "UTC+3", Time1: "08:00"}, false},
		{"no timezone", convState{Capsules: 1, Time1: "08:00"}, false},
		{"no time", convState{Capsules: 1, Timezone: "UTC+3"}, false},
		{"missing second time", convState{Capsules: 2, Timezone: "UTC+3", Time1: "08:00"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.complete())
		})
	}
}
