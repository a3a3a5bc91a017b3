package event

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/waifu/internal/game/dice"
)

// ActivitySource reports which users chatted recently in which chats.
type ActivitySource interface {
	Chats(ctx context.Context) ([]int64, error)
	ActiveSince(ctx context.Context, chatID int64, since time.Time) ([]int64, error)
}

// GroupStarter opens group events.
type GroupStarter interface {
	Start(chatID int64, eventID string, invitees []int64) (GroupEvent, error)
}

// AutoScheduler periodically starts a random group event in every chat with
// recent activity, inviting the users active within the activity window.
type AutoScheduler struct {
	registry *Registry
	activity ActivitySource
	groups   GroupStarter
	src      dice.Source
	interval time.Duration
	window   time.Duration
	logger   *zap.Logger
	now      func() time.Time

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewAutoScheduler creates an AutoScheduler.
//
// Precondition: interval > 0 and window > 0.
func NewAutoScheduler(registry *Registry, activity ActivitySource, groups GroupStarter, src dice.Source, interval, window time.Duration, logger *zap.Logger) *AutoScheduler {
	return &AutoScheduler{
		registry: registry,
		activity: activity,
		groups:   groups,
		src:      src,
		interval: interval,
		window:   window,
		logger:   logger,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the schedule until Stop is called or ctx is cancelled.
func (s *AutoScheduler) Start(ctx context.Context) error {
	s.started.Store(true)
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Stop signals the loop to exit and waits for an in-flight tick to finish.
func (s *AutoScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.started.Load() {
		<-s.done
	}
}

// Tick starts one group event per active chat.
//
// Postcondition: Returns the number of events started.
func (s *AutoScheduler) Tick(ctx context.Context) int {
	defs := s.registry.All()
	if len(defs) == 0 {
		return 0
	}
	chats, err := s.activity.Chats(ctx)
	if err != nil {
		s.logger.Warn("listing active chats", zap.Error(err))
		return 0
	}
	since := s.now().Add(-s.window)
	started := 0
	for _, chatID := range chats {
		users, err := s.activity.ActiveSince(ctx, chatID, since)
		if err != nil {
			s.logger.Warn("listing chat activity", zap.Int64("chat_id", chatID), zap.Error(err))
			continue
		}
		if len(users) == 0 {
			continue
		}
		def := dice.Pick(s.src, defs)
		if _, err := s.groups.Start(chatID, def.ID, users); err != nil {
			s.logger.Warn("starting auto group event", zap.Int64("chat_id", chatID), zap.Error(err))
			continue
		}
		started++
	}
	return started
}
