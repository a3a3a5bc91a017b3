package skill

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// LevelSource returns a user's unlocked skill levels keyed by skill id.
type LevelSource interface {
	Levels(ctx context.Context, userID int64) (map[string]int, error)
}

// EffectSource yields the aggregated effect map for a user.
type EffectSource interface {
	Effects(ctx context.Context, userID int64) (Effects, error)
}

// Aggregate sums the per-level effect tables of every skill in levels.
// Skills at level <= 0 are ignored; ids missing from reg are skipped.
//
// Postcondition: Returns a non-nil map; effects with the same kind accumulate additively.
func Aggregate(reg *Registry, levels map[string]int, logger *zap.Logger) Effects {
	out := make(Effects)
	for id, lvl := range levels {
		if lvl <= 0 {
			continue
		}
		def, ok := reg.Get(id)
		if !ok {
			if logger != nil {
				logger.Debug("skipping unknown skill", zap.String("skill", id), zap.Int("level", lvl))
			}
			continue
		}
		for e, v := range def.EffectsAt(lvl) {
			out.Add(e, v)
		}
	}
	return out
}

// Aggregator computes effect maps from persisted skill levels.
type Aggregator struct {
	registry *Registry
	levels   LevelSource
	logger   *zap.Logger
}

// NewAggregator creates an Aggregator.
//
// Precondition: registry, levels and logger must be non-nil.
func NewAggregator(registry *Registry, levels LevelSource, logger *zap.Logger) *Aggregator {
	return &Aggregator{registry: registry, levels: levels, logger: logger}
}

// Effects returns the fresh effect map for userID. A user without skill
// records yields an empty map.
func (a *Aggregator) Effects(ctx context.Context, userID int64) (Effects, error) {
	levels, err := a.levels.Levels(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading skill levels for user %d: %w", userID, err)
	}
	return Aggregate(a.registry, levels, a.logger), nil
}

// EffectCache stores aggregated effect maps per user.
type EffectCache interface {
	// Get returns the cached map and true on a hit.
	Get(ctx context.Context, userID int64) (Effects, bool, error)
	Set(ctx context.Context, userID int64, fx Effects) error
	Delete(ctx context.Context, userID int64) error
}

// CachedAggregator serves effect maps from an EffectCache, falling back to
// the wrapped source on a miss. Cache failures are logged and bypassed.
type CachedAggregator struct {
	source EffectSource
	cache  EffectCache
	logger *zap.Logger
}

// NewCachedAggregator wraps source with cache.
func NewCachedAggregator(source EffectSource, cache EffectCache, logger *zap.Logger) *CachedAggregator {
	return &CachedAggregator{source: source, cache: cache, logger: logger}
}

// Effects returns the cached effect map for userID or computes and stores it.
func (c *CachedAggregator) Effects(ctx context.Context, userID int64) (Effects, error) {
	fx, ok, err := c.cache.Get(ctx, userID)
	if err != nil {
		c.logger.Warn("effect cache read failed", zap.Int64("user_id", userID), zap.Error(err))
	} else if ok {
		return fx, nil
	}
	fx, err = c.source.Effects(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, userID, fx); err != nil {
		c.logger.Warn("effect cache write failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	return fx, nil
}

// Invalidate drops the cached map for userID so the next read recomputes it.
func (c *CachedAggregator) Invalidate(ctx context.Context, userID int64) {
	if err := c.cache.Delete(ctx, userID); err != nil {
		c.logger.Warn("effect cache invalidate failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
