package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/pairwish/internal/model"
)

// OccasionLister finds occasions falling in a time range.
type OccasionLister interface {
	ListBetween(from, to time.Time) ([]model.Occasion, error)
}

// SentLog remembers which reminders went out.
type SentLog interface {
	WasSent(userID int64, notifType, refID string, leadDays int) (bool, error)
	RecordSent(userID int64, notifType, refID string, leadDays int) error
	CleanupSent(before time.Time) error
}

// sentRetention bounds how long reminder dedup rows are kept.
const sentRetention = 60 * 24 * time.Hour

// Scheduler sends occasion reminders to both participants a fixed number
// of days ahead.
type Scheduler struct {
	notifier  *Notifier
	occasions OccasionLister
	sent      SentLog
	leadDays  []int
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewScheduler creates a reminder scheduler checking every interval.
func NewScheduler(notifier *Notifier, occasions OccasionLister, sent SentLog, leadDays []int, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		notifier:  notifier,
		occasions: occasions,
		sent:      sent,
		leadDays:  leadDays,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// Run checks immediately and then on every tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick sends every reminder that is due and not yet sent.
func (s *Scheduler) Tick() {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	for _, lead := range s.leadDays {
		from := today.AddDate(0, 0, lead)
		occasions, err := s.occasions.ListBetween(from, from.AddDate(0, 0, 1))
		if err != nil {
			s.logger.Error("list upcoming occasions", "error", err, "lead_days", lead)
			continue
		}
		for _, occ := range occasions {
			s.remind(occ, lead)
		}
	}

	if err := s.sent.CleanupSent(now.Add(-sentRetention)); err != nil {
		s.logger.Error("cleanup sent notifications", "error", err)
	}
}

func (s *Scheduler) remind(occ model.Occasion, lead int) {
	payload := Payload{
		Title: "Upcoming: " + occ.Name,
		Body:  reminderBody(occ.Name, lead),
		URL:   "/?view=theirs&occasion=" + occ.ID,
		Tag:   fmt.Sprintf("occasion-%s-%d", occ.ID, lead),
	}

	for _, uid := range occ.ParticipantIDs {
		sent, err := s.sent.WasSent(uid, model.NotifTypeOccasionReminder, occ.ID, lead)
		if err != nil {
			s.logger.Error("check sent reminder", "error", err, "occasion_id", occ.ID)
			continue
		}
		if sent {
			continue
		}

		// Failed deliveries stay unrecorded so the next tick retries them.
		n, err := s.notifier.NotifyUser(uid, model.NotifTypeOccasionReminder, payload)
		if err != nil && !errors.Is(err, ErrNoSubscriptions) {
			s.logger.Error("send occasion reminder", "error", err, "occasion_id", occ.ID, "user_id", uid)
			continue
		}

		if err := s.sent.RecordSent(uid, model.NotifTypeOccasionReminder, occ.ID, lead); err != nil {
			s.logger.Error("record sent reminder", "error", err, "occasion_id", occ.ID)
		}
		s.logger.Debug("occasion reminder", "occasion_id", occ.ID, "user_id", uid, "lead_days", lead, "delivered", n)
	}
}

func reminderBody(name string, lead int) string {
	switch lead {
	case 0:
		return name + " is today"
	case 1:
		return name + " is tomorrow"
	default:
		return fmt.Sprintf("%s is in %d days", name, lead)
	}
}
