// Package gameserver orchestrates user-facing game operations over the
// domain packages and persistence: summons, events, chat accrual and skill
// upgrades. Each operation runs in one transaction per user/character pair.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/waifu/internal/cache"
	"github.com/cory-johannsen/waifu/internal/game/account"
	"github.com/cory-johannsen/waifu/internal/game/character"
	"github.com/cory-johannsen/waifu/internal/game/dice"
	"github.com/cory-johannsen/waifu/internal/game/event"
	"github.com/cory-johannsen/waifu/internal/game/skill"
	"github.com/cory-johannsen/waifu/internal/observability"
	"github.com/cory-johannsen/waifu/internal/storage/postgres"
)

// ErrNotOwner is returned when a user acts on a character they do not own.
var ErrNotOwner = errors.New("character belongs to another user")

// EffectProvider yields per-user skill effects and drops cached entries
// after an upgrade.
type EffectProvider interface {
	skill.EffectSource
	Invalidate(ctx context.Context, userID int64)
}

// Rules holds the tunable economy parameters.
type Rules struct {
	SummonCost        int64
	PremiumSummonCost int64
	PityThreshold     int
	Chat              account.ChatRules
	OfferWindow       time.Duration
	GroupWindow       time.Duration
	ActivityWindow    time.Duration
}

// Deps are the collaborators of a Service.
type Deps struct {
	Store     *postgres.Store
	Skills    *skill.Registry
	Events    *event.Registry
	Effects   EffectProvider
	Generator *character.Generator
	Engine    *event.Engine
	Activity  cache.ActivityTracker
	Source    dice.Source
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// Service implements the game operations exposed by the API.
type Service struct {
	store    *postgres.Store
	skills   *skill.Registry
	events   *event.Registry
	effects  EffectProvider
	gen      *character.Generator
	engine   *event.Engine
	activity cache.ActivityTracker
	offers   *event.OfferBook
	groups   *event.GroupBook
	src      dice.Source
	rules    Rules
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a Service and the offer and group books it owns.
//
// Precondition: every Deps field must be non-nil; rule windows must be > 0.
// Postcondition: Close must be called to stop pending event timers.
func NewService(deps Deps, rules Rules) *Service {
	s := &Service{
		store:    deps.Store,
		skills:   deps.Skills,
		events:   deps.Events,
		effects:  deps.Effects,
		gen:      deps.Generator,
		engine:   deps.Engine,
		activity: deps.Activity,
		src:      deps.Source,
		rules:    rules,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		now:      time.Now,
	}
	s.offers = event.NewOfferBook(deps.Events, deps.Source, rules.OfferWindow)
	s.groups = event.NewGroupBook(deps.Events, rules.GroupWindow, s, deps.Logger)
	return s
}

// Groups returns the group event book, for the auto scheduler.
func (s *Service) Groups() *event.GroupBook { return s.groups }

// Close stops pending offer and group timers.
func (s *Service) Close() {
	s.offers.Close()
	s.groups.Close()
}

// userFor resolves a Telegram id to a persisted user, creating it on first contact.
func (s *Service) userFor(ctx context.Context, telegramID int64) (*account.User, error) {
	u, err := s.store.Users.GetOrCreateByTelegramID(ctx, telegramID, "")
	if err != nil {
		return nil, fmt.Errorf("resolving user %d: %w", telegramID, err)
	}
	return u, nil
}

// CollectionBonus is the power bonus for owning distinct races: 0.01 per
// race, capped at 0.10.
func CollectionBonus(distinctRaces int) float64 {
	if distinctRaces <= 0 {
		return 0
	}
	return min(0.10, 0.01*float64(distinctRaces))
}

// effectsFor returns the user's skill effects with the collection bonus applied.
func (s *Service) effectsFor(ctx context.Context, repos postgres.Repos, userID int64) (skill.Effects, error) {
	fx, err := s.effects.Effects(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading effects for user %d: %w", userID, err)
	}
	races, err := repos.Characters.DistinctRaces(ctx, userID)
	if err != nil {
		return nil, err
	}
	if bonus := CollectionBonus(races); bonus > 0 {
		fx = fx.With(skill.CollectionPowerBonus, fx.Get(skill.CollectionPowerBonus)+bonus)
	}
	return fx, nil
}

// ownedCharacter loads id under a row lock and checks ownership.
func ownedCharacter(ctx context.Context, repos postgres.Repos, id, userID int64, lock bool) (*character.Character, error) {
	get := repos.Characters.GetByID
	if lock {
		get = repos.Characters.GetByIDForUpdate
	}
	c, err := get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsOwnedBy(userID) {
		return nil, fmt.Errorf("%w: character %d", ErrNotOwner, id)
	}
	return c, nil
}
