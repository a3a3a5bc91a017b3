package restore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/waifu/internal/game/character"
	"github.com/cory-johannsen/waifu/internal/game/skill"
	"github.com/cory-johannsen/waifu/internal/observability"
)

// Store loads and saves character dynamic state for a sweep.
type Store interface {
	ListAllForRestore(ctx context.Context) ([]*character.Character, error)
	SaveDynamicBatch(ctx context.Context, chars []*character.Character) error
}

// SweepReport summarises one restoration sweep.
type SweepReport struct {
	Evaluated int
	Updated   int
	Failed    int
	Duration  time.Duration
}

// Scheduler runs Tick across every character on a fixed interval.
type Scheduler struct {
	store    Store
	effects  skill.EffectSource
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewScheduler creates a Scheduler.
//
// Precondition: interval > 0; store, effects, logger and metrics must be non-nil.
func NewScheduler(store Store, effects skill.EffectSource, interval time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Scheduler {
	if interval <= 0 {
		panic("restore.NewScheduler: interval must be > 0")
	}
	return &Scheduler{
		store:    store,
		effects:  effects,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start sweeps once per interval until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
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
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("restore sweep failed", zap.Error(err))
			}
		}
	}
}

// Stop signals the loop to exit between sweeps and waits for an in-flight
// sweep to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.started.Load() {
		<-s.done
	}
}

// Sweep evaluates every character once. A failure on one character is
// counted and logged without affecting the others; the updated set is saved
// as a single batch.
//
// Postcondition: Returns an error only when listing or the batch save fails.
func (s *Scheduler) Sweep(ctx context.Context) (SweepReport, error) {
	start := time.Now()
	var rep SweepReport

	chars, err := s.store.ListAllForRestore(ctx)
	if err != nil {
		return rep, fmt.Errorf("listing characters: %w", err)
	}
	now := s.now()
	byOwner := make(map[int64]skill.Effects)
	var updated []*character.Character
	for _, c := range chars {
		rep.Evaluated++
		fx, err := s.ownerEffects(ctx, c, byOwner)
		if err != nil {
			rep.Failed++
			s.metrics.RestoreFailures.Inc()
			s.logger.Warn("restore skipped character",
				zap.Int64("character_id", c.ID),
				zap.Error(err),
			)
			continue
		}
		if Tick(c, fx, now) {
			updated = append(updated, c)
		}
	}

	if len(updated) > 0 {
		if err := s.store.SaveDynamicBatch(ctx, updated); err != nil {
			return rep, fmt.Errorf("saving restored characters: %w", err)
		}
	}
	rep.Updated = len(updated)
	rep.Duration = time.Since(start)

	s.metrics.RestoreSweeps.Inc()
	s.metrics.RestoreUpdated.Add(float64(rep.Updated))
	s.metrics.RestoreDuration.Observe(rep.Duration.Seconds())
	s.logger.Debug("restore sweep complete",
		zap.Int("evaluated", rep.Evaluated),
		zap.Int("updated", rep.Updated),
		zap.Int("failed", rep.Failed),
		zap.Duration("duration", rep.Duration),
	)
	return rep, nil
}

func (s *Scheduler) ownerEffects(ctx context.Context, c *character.Character, cache map[int64]skill.Effects) (skill.Effects, error) {
	if c.OwnerID == nil {
		return skill.Effects{}, nil
	}
	if fx, ok := cache[*c.OwnerID]; ok {
		return fx, nil
	}
	fx, err := s.effects.Effects(ctx, *c.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("owner %d effects: %w", *c.OwnerID, err)
	}
	cache[*c.OwnerID] = fx
	return fx, nil
}
