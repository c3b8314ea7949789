package reminder

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/seniorcare/seniorcare/internal/platform/db"
	"github.com/seniorcare/seniorcare/internal/platform/metrics"
	"github.com/seniorcare/seniorcare/internal/platform/websocket"
)

const (
	DefaultPollInterval = 30 * time.Second
	defaultBatchSize    = 200
)

// Sweeper moves overdue appointments to missed. It runs after each tick.
type Sweeper interface {
	MarkMissed(ctx context.Context, now time.Time) (int, error)
}

// Scheduler polls for due reminders and dispatches them. Delivery is
// attempted once per occurrence: a failed dispatch is logged and the
// reminder still advances.
type Scheduler struct {
	reminders  Repository
	dispatcher Dispatcher
	sweeper    Sweeper
	publisher  websocket.EventPublisher
	logger     zerolog.Logger
	interval   time.Duration
	batchSize  int
	now        func() time.Time
}

func NewScheduler(reminders Repository, dispatcher Dispatcher, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Scheduler{
		reminders:  reminders,
		dispatcher: dispatcher,
		publisher:  websocket.NopPublisher{},
		logger:     logger.With().Str("component", "reminder-scheduler").Logger(),
		interval:   interval,
		batchSize:  defaultBatchSize,
		now:        time.Now,
	}
}

func (s *Scheduler) SetSweeper(sw Sweeper) {
	s.sweeper = sw
}

func (s *Scheduler) SetPublisher(p websocket.EventPublisher) {
	s.publisher = p
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("reminder scheduler started")
	s.Tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick fires every due reminder once and runs the sweeper. It returns the
// number of reminders fired.
func (s *Scheduler) Tick(ctx context.Context) int {
	now := s.now().UTC()
	due, err := s.reminders.ListDue(ctx, now, s.batchSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load due reminders")
		due = nil
	}

	fired := 0
	for _, r := range due {
		if ctx.Err() != nil {
			break
		}
		s.fire(ctx, r, now)
		fired++
	}

	if s.sweeper != nil {
		n, err := s.sweeper.MarkMissed(ctx, now)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to sweep missed appointments")
		} else if n > 0 {
			s.logger.Info().Int("count", n).Msg("marked appointments as missed")
		}
	}
	return fired
}

func (s *Scheduler) fire(ctx context.Context, r *Reminder, now time.Time) {
	err := s.dispatcher.Dispatch(ctx, r)
	metrics.RemindersFired.WithLabelValues(r.ReminderType, metrics.Result(err)).Inc()
	if err != nil {
		s.logger.Warn().Err(err).
			Str("reminder_id", r.ID.String()).
			Str("user_id", r.UserID.String()).
			Msg("reminder dispatch failed")
	}

	next := NextTrigger(r, now)
	active := next != nil
	if err := s.reminders.MarkTriggered(ctx, r.ID, now, next, active); err != nil {
		s.logger.Error().Err(err).Str("reminder_id", r.ID.String()).Msg("failed to advance reminder")
		return
	}
	r.LastTriggeredAt = &now
	r.NextTriggerAt = next
	r.IsActive = active

	ev := websocket.NewEvent(db.CollectionReminders, websocket.EventUpdated, r.ID.String(), r.UserID.String(), r)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("reminder_id", r.ID.String()).Msg("failed to publish reminder event")
	}
}

// Recover recomputes the next trigger of every active reminder after a
// restart. Reminders whose trigger passed while the server was down keep it,
// so they fire once on the next tick. It returns the number of reminders
// changed.
func (s *Scheduler) Recover(ctx context.Context) (int, error) {
	now := s.now().UTC()
	active, err := s.reminders.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, r := range active {
		if r.NextTriggerAt != nil && !r.NextTriggerAt.After(now) {
			continue
		}
		next := NextTrigger(r, now)
		if sameTime(next, r.NextTriggerAt) {
			continue
		}
		if err := s.reminders.SetNextTrigger(ctx, r.ID, next, next != nil); err != nil {
			s.logger.Error().Err(err).Str("reminder_id", r.ID.String()).Msg("failed to recover reminder")
			continue
		}
		changed++
	}
	s.logger.Info().Int("active", len(active)).Int("changed", changed).Msg("reminder schedule recovered")
	return changed, nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
