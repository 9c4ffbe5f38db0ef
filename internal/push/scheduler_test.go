package push

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dukerupert/pairwish/internal/model"
)

func newTestScheduler(store *fakeStore, sender *fakeSender, now time.Time) *Scheduler {
	n := NewNotifier(sender, store, slog.Default(), nil)
	s := NewScheduler(n, store, store, []int{7, 1}, time.Hour, slog.Default())
	s.now = func() time.Time { return now }
	return s
}

func TestSchedulerSendsReminderOnce(t *testing.T) {
	now := time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)
	store := newFakeStore()
	store.addSub(1, "https://push/alice")
	store.addSub(2, "https://push/bob")
	store.occasions = []model.Occasion{
		{ID: "bday", Name: "Bob's birthday", Date: time.Date(2026, 5, 17, 0, 0, 0, 0, time.UTC), ParticipantIDs: []int64{1, 2}},
		{ID: "far", Name: "Far away", Date: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), ParticipantIDs: []int64{1, 2}},
	}
	sender := newFakeSender()

	s := newTestScheduler(store, sender, now)
	s.Tick()
	s.Tick()

	assert.Equal(t, 1, sender.count("https://push/alice"))
	assert.Equal(t, 1, sender.count("https://push/bob"))

	got := sender.sent["https://push/alice"][0]
	assert.Equal(t, "Bob's birthday is in 7 days", got.Body)

	sent, _ := store.WasSent(1, model.NotifTypeOccasionReminder, "bday", 7)
	assert.True(t, sent)
}

func TestSchedulerLeadDaysAreIndependent(t *testing.T) {
	store := newFakeStore()
	store.addSub(1, "https://push/alice")
	store.occasions = []model.Occasion{
		{ID: "xmas", Name: "Christmas", Date: time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC), ParticipantIDs: []int64{1, 2}},
	}
	sender := newFakeSender()

	newTestScheduler(store, sender, time.Date(2026, 12, 18, 8, 0, 0, 0, time.UTC)).Tick()
	newTestScheduler(store, sender, time.Date(2026, 12, 24, 8, 0, 0, 0, time.UTC)).Tick()

	require.Equal(t, 2, sender.count("https://push/alice"))
	assert.Equal(t, "Christmas is tomorrow", sender.sent["https://push/alice"][1].Body)
}

func TestSchedulerRecordsUsersWithoutDevices(t *testing.T) {
	store := newFakeStore()
	store.occasions = []model.Occasion{
		{ID: "o", Name: "Trip", Date: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), ParticipantIDs: []int64{1}},
	}

	newTestScheduler(store, newFakeSender(), time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)).Tick()

	sent, _ := store.WasSent(1, model.NotifTypeOccasionReminder, "o", 1)
	assert.True(t, sent)
}

func TestSchedulerRetriesFailedDelivery(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.addSub(1, "https://push/alice")
	store.occasions = []model.Occasion{
		{ID: "anniv", Name: "Anniversary", Date: time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), ParticipantIDs: []int64{1}},
	}
	sender := newFakeSender()
	sender.broken["https://push/alice"] = true

	s := newTestScheduler(store, sender, now)
	s.Tick()

	sent, _ := store.WasSent(1, model.NotifTypeOccasionReminder, "anniv", 7)
	assert.False(t, sent, "failed reminder must not be marked sent")

	sender.mu.Lock()
	sender.broken["https://push/alice"] = false
	sender.mu.Unlock()
	s.Tick()

	assert.Equal(t, 1, sender.count("https://push/alice"))
	sent, _ = store.WasSent(1, model.NotifTypeOccasionReminder, "anniv", 7)
	assert.True(t, sent)
}

func TestSchedulerRunStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newTestScheduler(newFakeStore(), newFakeSender(), time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
