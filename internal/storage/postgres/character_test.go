package postgres_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/waifu/internal/game/character"
	"github.com/cory-johannsen/waifu/internal/storage/postgres"
	"github.com/cory-johannsen/waifu/internal/testutil"
)

var nextTelegramID atomic.Int64

func newUser(t *testing.T, store *postgres.Store) int64 {
	t.Helper()
	u, err := store.Users.GetOrCreateByTelegramID(context.Background(), 1000+nextTelegramID.Add(1), "tester")
	require.NoError(t, err)
	return u.ID
}

func makeCharacter(ownerID int64, race string) *character.Character {
	return &character.Character{
		Name:        "Sakura",
		Rarity:      character.Rare,
		Race:        race,
		Profession:  "idol",
		Nationality: "japan",
		Level:       1,
		Stats:       character.Stats{Power: 12, Charm: 18, Luck: 13, Affection: 15, Intellect: 14, Speed: 20},
		Dynamic: &character.Dynamic{
			Energy: 90, MaxEnergy: 100, Mood: 77.5, Loyalty: 0, Bond: 33,
			LastRestore: time.Now().UTC().Truncate(time.Microsecond),
		},
		OwnerID:  &ownerID,
		ImageURL: "https://cdn.example/elf/Japanese/idol/1.jpg",
		Tags:     []string{"cheerful", "bookworm"},
	}
}

func TestCharacterRepository_CreateAndGet(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	owner := newUser(t, store)

	created, err := store.Characters.Create(ctx, makeCharacter(owner, "elf"))
	require.NoError(t, err)
	assert.Greater(t, created.ID, int64(0))
	assert.Greater(t, created.CardNumber, int64(0))
	assert.False(t, created.CreatedAt.IsZero())

	got, err := store.Characters.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, character.Rare, got.Rarity)
	assert.Equal(t, 18, got.Stats.Charm)
	assert.Equal(t, []string{"cheerful", "bookworm"}, got.Tags)
	require.NotNil(t, got.Dynamic)
	assert.Equal(t, 77.5, got.Dynamic.Mood)
	assert.Equal(t, 33, got.Dynamic.Bond)
	require.NotNil(t, got.OwnerID)
	assert.Equal(t, owner, *got.OwnerID)
}

func TestCharacterRepository_CardNumbersIncrease(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	owner := newUser(t, store)

	a, err := store.Characters.Create(ctx, makeCharacter(owner, "elf"))
	require.NoError(t, err)
	b, err := store.Characters.Create(ctx, makeCharacter(owner, "elf"))
	require.NoError(t, err)
	assert.Greater(t, b.CardNumber, a.CardNumber)

	dup := makeCharacter(owner, "elf")
	dup.CardNumber = a.CardNumber
	_, err = store.Characters.Create(ctx, dup)
	assert.ErrorIs(t, err, postgres.ErrCardNumberTaken)
}

func TestCharacterRepository_NilDynamicRoundTrips(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	c := makeCharacter(newUser(t, store), "elf")
	c.Dynamic = nil
	c.OwnerID = nil
	created, err := store.Characters.Create(ctx, c)
	require.NoError(t, err)
	assert.Nil(t, created.Dynamic)
	assert.Nil(t, created.OwnerID)
}

func TestCharacterRepository_GetByID_NotFound(t *testing.T) {
	store := testutil.NewStore(t)
	_, err := store.Characters.GetByID(context.Background(), 99999999)
	assert.ErrorIs(t, err, postgres.ErrCharacterNotFound)
}

func TestCharacterRepository_SaveProgress(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	created, err := store.Characters.Create(ctx, makeCharacter(newUser(t, store), "elf"))
	require.NoError(t, err)

	created.Level = 3
	created.Experience = 310
	created.Stats.Power = 15
	created.Dynamic.Energy = 40
	require.NoError(t, store.Characters.SaveProgress(ctx, created))

	got, err := store.Characters.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Level)
	assert.Equal(t, int64(310), got.Experience)
	assert.Equal(t, 15, got.Stats.Power)
	assert.Equal(t, 40, got.Dynamic.Energy)

	created.ID = 99999999
	assert.ErrorIs(t, store.Characters.SaveProgress(ctx, created), postgres.ErrCharacterNotFound)
}

func TestCharacterRepository_SaveDynamicBatch(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	owner := newUser(t, store)
	a, err := store.Characters.Create(ctx, makeCharacter(owner, "elf"))
	require.NoError(t, err)
	b, err := store.Characters.Create(ctx, makeCharacter(owner, "neko"))
	require.NoError(t, err)

	all, err := store.Characters.ListAllForRestore(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, c := range all {
		c.Dynamic.Energy = 100
		c.Dynamic.Loyalty = 0.05
		c.Dynamic.EnergyCarry = 0.35
		c.Level = 9
	}
	require.NoError(t, store.Characters.SaveDynamicBatch(ctx, all))

	for _, id := range []int64{a.ID, b.ID} {
		got, err := store.Characters.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 100, got.Dynamic.Energy)
		assert.InDelta(t, 0.05, got.Dynamic.Loyalty, 1e-9)
		assert.InDelta(t, 0.35, got.Dynamic.EnergyCarry, 1e-9)
		assert.Equal(t, 1, got.Level, "batch touches dynamic columns only")
	}
}

func TestCharacterRepository_FlagsAndRaces(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	owner := newUser(t, store)
	other := newUser(t, store)
	a, _ := store.Characters.Create(ctx, makeCharacter(owner, "elf"))
	b, _ := store.Characters.Create(ctx, makeCharacter(owner, "elf"))
	_, _ = store.Characters.Create(ctx, makeCharacter(owner, "demon"))

	require.NoError(t, store.Characters.SetFavorite(ctx, b.ID, owner, true))
	assert.ErrorIs(t, store.Characters.SetFavorite(ctx, b.ID, other, true), postgres.ErrCharacterNotFound)

	list, err := store.Characters.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, b.ID, list[0].ID, "favorites first")

	require.NoError(t, store.WithTx(ctx, func(tx postgres.Repos) error {
		return tx.Characters.SetActive(ctx, a.ID, owner)
	}))
	require.NoError(t, store.WithTx(ctx, func(tx postgres.Repos) error {
		return tx.Characters.SetActive(ctx, b.ID, owner)
	}))
	gotA, _ := store.Characters.GetByID(ctx, a.ID)
	gotB, _ := store.Characters.GetByID(ctx, b.ID)
	assert.False(t, gotA.IsActive)
	assert.True(t, gotB.IsActive)

	n, err := store.Characters.DistinctRaces(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCharacterRepository_DeleteAll(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	owner := newUser(t, store)
	_, _ = store.Characters.Create(ctx, makeCharacter(owner, "elf"))
	_, _ = store.Characters.Create(ctx, makeCharacter(owner, "elf"))

	n, err := store.Characters.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	next, err := store.Characters.NextCardNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)
}

func TestCharacterRepository_Property_CreateThenGetByID(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	owner := newUser(t, store)

	rapid.Check(t, func(rt *rapid.T) {
		c := makeCharacter(owner, rapid.SampledFrom(character.Races).Draw(rt, "race"))
		c.Rarity = character.Rarity(rapid.IntRange(int(character.Common), int(character.Legendary)).Draw(rt, "rarity"))
		c.Stats.Luck = rapid.IntRange(0, 500).Draw(rt, "luck")
		c.Dynamic.Mood = rapid.Float64Range(0, 100).Draw(rt, "mood")

		created, err := store.Characters.Create(ctx, c)
		require.NoError(rt, err)
		got, err := store.Characters.GetByID(ctx, created.ID)
		require.NoError(rt, err)
		assert.Equal(rt, c.Rarity, got.Rarity)
		assert.Equal(rt, c.Race, got.Race)
		assert.Equal(rt, c.Stats, got.Stats)
		assert.Equal(rt, c.Dynamic.Mood, got.Dynamic.Mood)
	})
}
