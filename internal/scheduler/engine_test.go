package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/remindbot/pkg/models"
)

// fakeStore is an in-memory ReminderStore.
type fakeStore struct {
	mu         sync.Mutex
	rows       map[int64]models.Reminder
	upserts    int
	upsertErr  error
	upsertErrs map[int64]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[int64]models.Reminder)}
}

func (s *fakeStore) Upsert(ctx context.Context, r *models.Reminder) (*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	if err, ok := s.upsertErrs[r.UserID]; ok {
		return nil, err
	}
	s.upserts++
	s.rows[r.UserID] = *r
	stored := s.rows[r.UserID]
	return &stored, nil
}

func (s *fakeStore) GetActive(ctx context.Context, userID int64) (*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[userID]
	if !ok || !row.Enabled {
		return nil, nil
	}
	copied := row
	return &copied, nil
}

func (s *fakeStore) Disable(ctx context.Context, userID int64) (*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[userID]
	if !ok {
		return nil, nil
	}
	row.Enabled = false
	s.rows[userID] = row
	return &row, nil
}

func (s *fakeStore) ListActive(ctx context.Context) ([]models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reminder
	for _, row := range s.rows {
		if row.Enabled {
			out = append(out, row)
		}
	}
	return out, nil
}

// fakeTimer records every scheduled job and hands back stoppable handles so
// tests can invoke fire callbacks directly.
type fakeTimer struct {
	mu      sync.Mutex
	handles []*fakeHandle
}

type fakeHandle struct {
	mu      sync.Mutex
	spec    string
	task    func()
	stopped bool
}

func (h *fakeHandle) Stop() {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
}

func (h *fakeHandle) isStopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

func (t *fakeTimer) Schedule(spec string, task func()) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := &fakeHandle{spec: spec, task: task}
	t.handles = append(t.handles, h)
	return h, nil
}

func (t *fakeTimer) live() []*fakeHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*fakeHandle
	for _, h := range t.handles {
		if !h.isStopped() {
			out = append(out, h)
		}
	}
	return out
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []int64
	err   error
}

func (n *fakeNotifier) SendReminder(ctx context.Context, userID int64, r *models.Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, userID)
	return n.err
}

func (n *fakeNotifier) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func newTestEngine() (*Engine, *fakeStore, *fakeTimer, *fakeNotifier) {
	store := newFakeStore()
	timer := &fakeTimer{}
	notifier := &fakeNotifier{}
	return NewEngine(store, timer, notifier), store, timer, notifier
}

func strPtr(s string) *string { return &s }

func twoDoseReminder(userID int64) *models.Reminder {
	return &models.Reminder{
		UserID:   userID,
		Capsules: 2,
		Time1:    "08:00",
		Time2:    strPtr("21:00"),
		Timezone: "UTC+3",
	}
}

func TestSetScheduleReplacesPreviousTimers(t *testing.T) {
	engine, _, timer, _ := newTestEngine()
	ctx := context.Background()

	require.NoError(t, engine.SetSchedule(ctx, twoDoseReminder(1)))
	assert.Equal(t, 2, engine.Registry().Count(1))
	firstRound := timer.live()
	require.Len(t, firstRound, 2)

	require.NoError(t, engine.SetSchedule(ctx, &models.Reminder{
		UserID: 1, Capsules: 1, Time1: "10:00", Timezone: "UTC+1",
	}))

	// Exactly the new schedule's handles remain; every old handle is stopped.
	assert.Equal(t, 1, engine.Registry().Count(1))
	for _, h := range firstRound {
		assert.True(t, h.isStopped())
	}
	live := timer.live()
	require.Len(t, live, 1)
	assert.Equal(t, "0 9 * * *", live[0].spec)
}

func TestSetScheduleIdempotentUnderRepeat(t *testing.T) {
	engine, _, timer, _ := newTestEngine()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, engine.SetSchedule(ctx, twoDoseReminder(1)))
	}
	assert.Equal(t, 2, engine.Registry().Count(1))
	assert.Len(t, timer.live(), 2)
}

func TestSetScheduleCanonicalIdentity(t *testing.T) {
	engine, _, timer, _ := newTestEngine()
	ctx := context.Background()

	require.NoError(t, engine.SetSchedule(ctx, twoDoseReminder(42)))

	// The same user arriving through the textual entry point must replace,
	// not duplicate.
	parsed, err := models.ParseUserID(" 42 ")
	require.NoError(t, err)
	require.NoError(t, engine.SetSchedule(ctx, &models.Reminder{
		UserID: parsed, Capsules: 1, Time1: "09:00", Timezone: "UTC+3",
	}))

	assert.Equal(t, 1, engine.Registry().Count(42))
	assert.Len(t, timer.live(), 1)
}

func TestSetScheduleStorageFailurePropagates(t *testing.T) {
	engine, store, timer, _ := newTestEngine()
	store.upsertErr = errors.New("storage unavailable")

	err := engine.SetSchedule(context.Background(), twoDoseReminder(1))
	require.Error(t, err)
	assert.Equal(t, 0, engine.Registry().Count(1))
	assert.Empty(t, timer.live())
}

func TestFireDeliversCurrentReminder(t *testing.T) {
	engine, _, timer, notifier := newTestEngine()
	ctx := context.Background()

	require.NoError(t, engine.SetSchedule(ctx, twoDoseReminder(1)))
	timer.live()[0].task()

	assert.Equal(t, 1, notifier.callCount())
	// Delivery succeeded, the schedule stays armed.
	assert.Equal(t, 2, engine.Registry().Count(1))
}

func TestFirePermanentFailureClearsSchedule(t *testing.T) {
	engine, _, timer, notifier := newTestEngine()
	ctx := context.Background()

	require.NoError(t, engine.SetSchedule(ctx, twoDoseReminder(1)))
	notifier.err = fmt.Errorf("telegram: %w", ErrRecipientUnreachable)

	timer.live()[0].task()

	active, err := engine.GetActiveSchedule(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, active)
	assert.Equal(t, 0, engine.Registry().Count(1))
	assert.Empty(t, timer.live())
}

func TestFireTransientFailureKeepsSchedule(t *testing.T) {
	engine, _, timer, notifier := newTestEngine()
	ctx := context.Background()

	require.NoError(t, engine.SetSchedule(ctx, twoDoseReminder(1)))
	notifier.err = errors.New("connection reset")

	timer.live()[0].task()

	active, err := engine.GetActiveSchedule(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, 2, engine.Registry().Count(1))
	assert.Equal(t, 1, notifier.callCount())
}

func TestStaleTimerFiresAsNoOp(t *testing.T) {
	engine, _, timer, notifier := newTestEngine()
	ctx := context.Background()

	require.NoError(t, engine.SetSchedule(ctx, twoDoseReminder(1)))
	captured := timer.live()[0]

	require.NoError(t, engine.ClearSchedule(ctx, 1))

	// Simulate an in-flight invocation that raced the cancellation: the
	// re-fetch guard must prevent any delivery.
	captured.task()
	assert.Equal(t, 0, notifier.callCount())
}

func TestClearScheduleIdempotent(t *testing.T) {
	engine, _, _, _ := newTestEngine()
	ctx := context.Background()

	require.NoError(t, engine.ClearSchedule(ctx, 77))
	require.NoError(t, engine.SetSchedule(ctx, twoDoseReminder(77)))
	require.NoError(t, engine.ClearSchedule(ctx, 77))
	require.NoError(t, engine.ClearSchedule(ctx, 77))
	assert.Equal(t, 0, engine.Registry().Count(77))
}

func TestLoadAllRebuildsWithoutDuplicates(t *testing.T) {
	engine, store, timer, _ := newTestEngine()
	ctx := context.Background()

	store.rows[1] = *func() *models.Reminder { r := twoDoseReminder(1); r.Enabled = true; return r }()
	store.rows[2] = models.Reminder{
		UserID: 2, Capsules: 1, Time1: "09:00", Timezone: "UTC-4", Enabled: true,
	}
	store.rows[3] = models.Reminder{
		UserID: 3, Capsules: 1, Time1: "07:00", Timezone: "UTC+2", Enabled: false,
	}

	require.NoError(t, engine.LoadAll(ctx))
	require.NoError(t, engine.LoadAll(ctx))

	// Handle counts equal each schedule's dose count, not doubled; the
	// disabled row was skipped entirely.
	assert.Equal(t, 2, engine.Registry().Count(1))
	assert.Equal(t, 1, engine.Registry().Count(2))
	assert.Equal(t, 0, engine.Registry().Count(3))
	assert.Len(t, timer.live(), 3)
}

func TestLoadAllSkipsFailingRows(t *testing.T) {
	engine, store, timer, _ := newTestEngine()
	ctx := context.Background()

	store.rows[1] = models.Reminder{
		UserID: 1, Capsules: 1, Time1: "08:00", Timezone: "UTC+3", Enabled: true,
	}
	store.rows[2] = models.Reminder{
		UserID: 2, Capsules: 1, Time1: "09:00", Timezone: "UTC+1", Enabled: true,
	}
	store.rows[3] = models.Reminder{
		UserID: 3, Capsules: 1, Time1: "10:00", Timezone: "UTC-4", Enabled: true,
	}
	store.upsertErrs = map[int64]error{2: errors.New("row corrupted")}

	// One broken row must not abort recovery for everyone else.
	require.NoError(t, engine.LoadAll(ctx))

	assert.Equal(t, 1, engine.Registry().Count(1))
	assert.Equal(t, 0, engine.Registry().Count(2))
	assert.Equal(t, 1, engine.Registry().Count(3))
	assert.Len(t, timer.live(), 2)
}

func TestEndToEndScenario(t *testing.T) {
	engine, store, timer, notifier := newTestEngine()
	ctx := context.Background()

	// User sets two doses at "8:0" and "21:00" in UTC+3.
	require.NoError(t, engine.SetSchedule(ctx, &models.Reminder{
		UserID:   100,
		Capsules: 2,
		Time1:    "8:0",
		Time2:    strPtr("21:00"),
		Timezone: "UTC+3",
	}))

	stored := store.rows[100]
	assert.Equal(t, "08:00", stored.Time1)
	require.NotNil(t, stored.Time2)
	assert.Equal(t, "21:00", *stored.Time2)

	// Two daily timers at UTC 05:00 and 18:00.
	live := timer.live()
	require.Len(t, live, 2)
	assert.Equal(t, "0 5 * * *", live[0].spec)
	assert.Equal(t, "0 18 * * *", live[1].spec)

	// Both fire and deliver.
	live[0].task()
	live[1].task()
	assert.Equal(t, 2, notifier.callCount())

	// Disabling clears both.
	require.NoError(t, engine.ClearSchedule(ctx, 100))
	assert.Equal(t, 0, engine.Registry().Count(100))
	assert.Empty(t, timer.live())
	assert.False(t, store.rows[100].Enabled)
}
