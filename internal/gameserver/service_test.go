package gameserver_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/waifu/internal/cache"
	"github.com/cory-johannsen/waifu/internal/game/account"
	"github.com/cory-johannsen/waifu/internal/game/character"
	"github.com/cory-johannsen/waifu/internal/game/dice"
	"github.com/cory-johannsen/waifu/internal/game/event"
	"github.com/cory-johannsen/waifu/internal/game/skill"
	"github.com/cory-johannsen/waifu/internal/gameserver"
	"github.com/cory-johannsen/waifu/internal/observability"
	"github.com/cory-johannsen/waifu/internal/storage/postgres"
	"github.com/cory-johannsen/waifu/internal/testutil"
)

type fixture struct {
	svc      *gameserver.Service
	store    *postgres.Store
	activity *cache.MemoryActivity
}

func testSkills() *skill.Registry {
	reg := skill.NewRegistry()
	reg.Register(&skill.Definition{
		ID:       "lucky_star",
		Name:     "Lucky Star",
		Branch:   "fortune",
		MaxLevel: 2,
		Costs:    []int{1, 2},
		Levels: []skill.Effects{
			{skill.RareChance: 0.05},
			{skill.RareChance: 0.10},
		},
	})
	return reg
}

func testEvents() *event.Registry {
	reg := event.NewRegistry()
	reg.Register(&event.Definition{
		ID:     "concert",
		Name:   "Idol Concert",
		Stats:  []character.StatName{character.StatPower, character.StatCharm},
		Reward: event.Reward{Coins: 50, Experience: 20},
	})
	return reg
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := testutil.NewStore(t)
	logger := zap.NewNop()
	src := dice.NewSeededSource(7)
	skills := testSkills()
	events := testEvents()

	fxCache := cache.NewMemoryEffectCache(time.Minute)
	t.Cleanup(fxCache.Close)
	effects := skill.NewCachedAggregator(skill.NewAggregator(skills, store.Skills, logger), fxCache, logger)
	activity := cache.NewMemoryActivity(time.Hour)

	svc := gameserver.NewService(gameserver.Deps{
		Store:     store,
		Skills:    skills,
		Events:    events,
		Effects:   effects,
		Generator: character.NewGenerator(src, character.StaticImageResolver{Base: "https://img.test", Src: src}),
		Engine:    event.NewEngine(events, src, nil),
		Activity:  activity,
		Source:    src,
		Metrics:   observability.NewMetrics(),
		Logger:    logger,
	}, gameserver.Rules{
		SummonCost:        100,
		PremiumSummonCost: 10,
		PityThreshold:     3,
		Chat:              account.ChatRules{CoinsPerMessage: 5, DailyCap: 10, XPPerMessage: 10},
		OfferWindow:       time.Minute,
		GroupWindow:       time.Minute,
		ActivityWindow:    time.Hour,
	})
	t.Cleanup(svc.Close)
	return fixture{svc: svc, store: store, activity: activity}
}

func (f fixture) fund(t *testing.T, telegramID int64, cur postgres.Currency, amount int64) *account.User {
	t.Helper()
	ctx := context.Background()
	u, err := f.store.Users.GetOrCreateByTelegramID(ctx, telegramID, "")
	require.NoError(t, err)
	_, err = f.store.Users.Credit(ctx, u.ID, cur, amount)
	require.NoError(t, err)
	return u
}

func TestService_Summon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Summon(ctx, 1, false)
	require.ErrorIs(t, err, postgres.ErrInsufficientFunds)

	f.fund(t, 1, postgres.Coins, 250)
	res, err := f.svc.Summon(ctx, 1, false)
	require.NoError(t, err)
	assert.Equal(t, int64(150), res.Balance)
	assert.Equal(t, character.ModeStandard, res.Mode)
	assert.NotZero(t, res.Character.ID)
	assert.Positive(t, res.Character.CardNumber)
	assert.Contains(t, res.Character.ImageURL, "https://img.test/")

	list, err := f.svc.Waifus(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.Character.ID, list[0].ID)
}

func TestService_SummonPityForcesPremium(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.fund(t, 2, postgres.Coins, 100)
	require.NoError(t, f.store.Users.SavePity(ctx, u.ID, 3))

	res, err := f.svc.Summon(ctx, 2, false)
	require.NoError(t, err)
	assert.True(t, res.PityTriggered)
	assert.Equal(t, character.ModePremium, res.Mode)
	assert.GreaterOrEqual(t, res.Character.Rarity, character.Rare)
	assert.Equal(t, 0, res.PityCounter)
}

func TestService_PremiumSummonSpendsGems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, 3, postgres.Gems, 10)

	res, err := f.svc.Summon(ctx, 3, true)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Balance)
	assert.GreaterOrEqual(t, res.Character.Rarity, character.Rare)

	_, err = f.svc.Summon(ctx, 3, true)
	assert.ErrorIs(t, err, postgres.ErrInsufficientFunds)
}

func TestService_Participate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, 4, postgres.Coins, 100)
	summoned, err := f.svc.Summon(ctx, 4, false)
	require.NoError(t, err)

	res, err := f.svc.Participate(ctx, 4, summoned.Character.ID, "concert")
	require.NoError(t, err)
	require.True(t, res.Eligibility.OK, res.Eligibility.Reason)
	require.NotNil(t, res.Outcome)
	assert.Equal(t, event.BaseEnergyCost, res.Outcome.EnergySpent)
	assert.Equal(t, res.Outcome.Reward.Coins, res.Balance)
	require.NotNil(t, res.Character.Dynamic)
	assert.Equal(t, summoned.Character.Dynamic.Energy-event.BaseEnergyCost, res.Character.Dynamic.Energy)

	unknown, err := f.svc.Participate(ctx, 4, summoned.Character.ID, "nope")
	require.NoError(t, err)
	assert.False(t, unknown.Eligibility.OK)
	assert.Equal(t, event.ReasonUnknownEvent, unknown.Eligibility.Reason)

	_, err = f.svc.Participate(ctx, 5, summoned.Character.ID, "concert")
	assert.ErrorIs(t, err, gameserver.ErrNotOwner)
}

func TestService_ParticipateUntilExhausted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, 6, postgres.Coins, 100)
	summoned, err := f.svc.Summon(ctx, 6, false)
	require.NoError(t, err)

	var last gameserver.ParticipationResult
	for range character.DefaultMaxEnergy/event.BaseEnergyCost + 1 {
		last, err = f.svc.Participate(ctx, 6, summoned.Character.ID, "concert")
		require.NoError(t, err)
	}
	assert.False(t, last.Eligibility.OK)
	assert.Equal(t, event.ReasonInsufficientEnergy, last.Eligibility.Reason)
}

func TestService_OfferLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, 7, postgres.Coins, 100)
	summoned, err := f.svc.Summon(ctx, 7, false)
	require.NoError(t, err)

	o, err := f.svc.OpenOffer(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "concert", o.EventID)

	again, err := f.svc.OpenOffer(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, o.ID, again.ID)

	_, err = f.svc.AcceptOffer(ctx, 8, o.ID, summoned.Character.ID)
	assert.ErrorIs(t, err, event.ErrNotOfferOwner)

	res, err := f.svc.AcceptOffer(ctx, 7, o.ID, summoned.Character.ID)
	require.NoError(t, err)
	assert.True(t, res.Eligibility.OK)

	_, err = f.svc.DeclineOffer(ctx, 7, o.ID)
	assert.ErrorIs(t, err, event.ErrOfferResolved)
}

func TestService_AcceptOfferReopensOnForeignCharacter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, 9, postgres.Coins, 100)
	other, err := f.svc.Summon(ctx, 9, false)
	require.NoError(t, err)

	o, err := f.svc.OpenOffer(ctx, 10)
	require.NoError(t, err)
	_, err = f.svc.AcceptOffer(ctx, 10, o.ID, other.Character.ID)
	require.ErrorIs(t, err, gameserver.ErrNotOwner)

	reopened, err := f.svc.OpenOffer(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, o.ID, reopened.ID, "failed accept leaves the offer open")
}

func TestService_GroupEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const chat = int64(-100)

	var ids []int64
	energy := map[int64]int{}
	for _, tg := range []int64{11, 12} {
		f.fund(t, tg, postgres.Coins, 100)
		s, err := f.svc.Summon(ctx, tg, false)
		require.NoError(t, err)
		ids = append(ids, s.Character.ID)
		energy[s.Character.ID] = s.Character.Dynamic.Energy
		_, err = f.svc.Chat(ctx, tg, "", chat)
		require.NoError(t, err)
	}

	ev, err := f.svc.StartGroupEvent(ctx, chat, "")
	require.NoError(t, err)
	assert.Len(t, ev.Invitees, 2)

	_, err = f.svc.RespondGroup(ctx, 11, ev.ID, ids[1], true)
	assert.ErrorIs(t, err, gameserver.ErrNotOwner)

	_, err = f.svc.RespondGroup(ctx, 11, ev.ID, ids[0], true)
	require.NoError(t, err)
	_, err = f.svc.RespondGroup(ctx, 12, ev.ID, ids[1], true)
	require.NoError(t, err)

	res, err := f.svc.FinalizeGroup(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, res.Placements, 2)
	assert.Equal(t, 1, res.Placements[0].Rank)
	assert.Equal(t, event.PlacementMoodBonus[0], res.Placements[0].MoodBonus)

	winner, err := f.store.Characters.GetByID(ctx, res.Placements[0].CharacterID)
	require.NoError(t, err)
	require.NotNil(t, winner.Dynamic)
	assert.Equal(t, energy[winner.ID]-event.BaseEnergyCost, winner.Dynamic.Energy)
	assert.Positive(t, winner.Experience)
}

func TestService_Chat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Chat(ctx, 20, "carol", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), first.CoinsCredited)
	assert.Equal(t, 1, first.Streak)

	_, err = f.svc.Chat(ctx, 20, "carol", 0)
	require.NoError(t, err)
	capped, err := f.svc.Chat(ctx, 20, "carol", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), capped.CoinsCredited)
	assert.True(t, capped.CapReached)
	assert.Equal(t, int64(10), capped.Coins)

	p, err := f.svc.Profile(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, "carol", p.Username)
	assert.Equal(t, int64(30), p.AccountXP)
}

func TestService_UpgradeSkill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpgradeSkill(ctx, 30, "lucky_star")
	require.True(t, errors.Is(err, skill.ErrNotEnoughPoints))

	_, err = f.svc.UpgradeSkill(ctx, 30, "missing")
	require.ErrorIs(t, err, skill.ErrUnknownSkill)

	f.fund(t, 30, postgres.SkillPoints, 3)
	v, err := f.svc.UpgradeSkill(ctx, 30, "lucky_star")
	require.NoError(t, err)
	assert.Equal(t, 1, v.Level)
	assert.Equal(t, 2, v.NextCost)

	p, err := f.svc.Profile(ctx, 30)
	require.NoError(t, err)
	assert.InDelta(t, 0.05, p.Effects.Get(skill.RareChance), 1e-9, "cached effects are invalidated")

	v, err = f.svc.UpgradeSkill(ctx, 30, "lucky_star")
	require.NoError(t, err)
	assert.Equal(t, 2, v.Level)
	assert.Equal(t, 0, v.NextCost)

	_, err = f.svc.UpgradeSkill(ctx, 30, "lucky_star")
	assert.ErrorIs(t, err, skill.ErrMaxLevel)

	views, points, err := f.svc.Skills(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 0, points)
	require.Len(t, views, 1)
	assert.Equal(t, 2, views[0].Level)
}

func TestService_FavoriteActivateAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, 40, postgres.Coins, 200)
	a, err := f.svc.Summon(ctx, 40, false)
	require.NoError(t, err)
	b, err := f.svc.Summon(ctx, 40, false)
	require.NoError(t, err)

	require.NoError(t, f.svc.SetFavorite(ctx, 40, b.Character.ID, true))
	require.NoError(t, f.svc.Activate(ctx, 40, a.Character.ID))
	assert.ErrorIs(t, f.svc.Activate(ctx, 41, a.Character.ID), gameserver.ErrNotOwner)

	list, err := f.svc.Waifus(ctx, 40)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.Character.ID, list[0].ID, "favorites first")
	assert.True(t, list[1].IsActive)

	n, err := f.svc.ClearWaifus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
