package character_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/waifu/internal/game/character"
	"github.com/cory-johannsen/waifu/internal/game/dice"
)

func TestCurve_KnownValues(t *testing.T) {
	assert.Equal(t, int64(100), character.XPRequiredForLevel(1))
	assert.Equal(t, int64(0), character.TotalXPForLevel(1))
	assert.Equal(t, int64(100), character.TotalXPForLevel(2))
	assert.Equal(t, int64(300), character.TotalXPForLevel(3))
	assert.Equal(t, int64(600), character.TotalXPForLevel(4))
	assert.Equal(t, 1, character.LevelFromXP(0))
	assert.Equal(t, 1, character.LevelFromXP(99))
	assert.Equal(t, 2, character.LevelFromXP(100))
	assert.Equal(t, 2, character.LevelFromXP(250))
	assert.Equal(t, 3, character.LevelFromXP(300))
	assert.Equal(t, 1, character.LevelFromXP(-5))
}

func TestCurve_Property_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		l := rapid.IntRange(1, 100000).Draw(rt, "level")
		if got := character.LevelFromXP(character.TotalXPForLevel(l)); got != l {
			rt.Fatalf("LevelFromXP(TotalXPForLevel(%d)) = %d", l, got)
		}
		if l > 1 {
			if got := character.LevelFromXP(character.TotalXPForLevel(l) - 1); got != l-1 {
				rt.Fatalf("one xp short of level %d gave %d", l, got)
			}
		}
	})
}

func TestXPProgress(t *testing.T) {
	lvl, into, needed := character.XPProgress(250)
	assert.Equal(t, 2, lvl)
	assert.Equal(t, int64(150), into)
	assert.Equal(t, int64(200), needed)
}

func TestLevelProgress(t *testing.T) {
	c := &character.Character{Rarity: character.Common, Level: 2, Experience: 250}
	into, needed := c.LevelProgress()
	assert.Equal(t, int64(150), into)
	assert.Equal(t, int64(200), needed)

	c.Level, c.Experience = 30, 50_000
	into, needed = c.LevelProgress()
	assert.Zero(t, into)
	assert.Zero(t, needed)
}

func TestCheckLevelUp_Scenario250(t *testing.T) {
	up, lvl := character.CheckLevelUp(250, 1)
	assert.True(t, up)
	assert.Equal(t, 2, lvl)

	c := scenarioCharacter()
	c.Experience = 250
	res := character.ApplyLevelUp(c, lvl, dice.NewCryptoSource())
	total := 0
	for _, n := range res.Increments {
		total += n
	}
	assert.Equal(t, 1, total)
	assert.Equal(t, res.Before.Sum()+1, res.After.Sum())
	assert.Equal(t, 2, c.Level)
}

func TestCheckLevelUp_NoChange(t *testing.T) {
	up, lvl := character.CheckLevelUp(150, 2)
	assert.False(t, up)
	assert.Equal(t, 2, lvl)
}

func TestApplyLevelUp_Property_ThreeLevels(t *testing.T) {
	src := dice.NewCryptoSource()
	rapid.Check(t, func(rt *rapid.T) {
		start := rapid.IntRange(1, 20).Draw(rt, "start")
		c := scenarioCharacter()
		c.Level = start
		before := c.Stats
		res := character.ApplyLevelUp(c, start+3, src)

		sum := 0
		for name, n := range res.Increments {
			if n <= 0 {
				rt.Fatalf("non-positive increment %d for %s", n, name)
			}
			if c.Stats.Get(name)-before.Get(name) != n {
				rt.Fatalf("increment for %s does not match stat delta", name)
			}
			sum += n
		}
		if sum != 3 {
			rt.Fatalf("sum of increments = %d, want 3", sum)
		}
		if len(res.Increments) > 3 {
			rt.Fatalf("%d distinct stats touched", len(res.Increments))
		}
		if res.OldLevel != start || res.NewLevel != start+3 || res.LevelsGained() != 3 {
			rt.Fatalf("unexpected levels %d -> %d", res.OldLevel, res.NewLevel)
		}
	})
}

func TestApplyLevelUp_PicksIndependentlyPerLevel(t *testing.T) {
	// Intn(6) draws: 0 (power), 0 (power), 5 (speed).
	c := scenarioCharacter()
	res := character.ApplyLevelUp(c, 4, dice.NewFixedSource([]int{0, 0, 5}, nil))
	assert.Equal(t, map[character.StatName]int{character.StatPower: 2, character.StatSpeed: 1}, res.Increments)
	assert.Equal(t, 12, c.Stats.Power)
	assert.Equal(t, 7, c.Stats.Speed)
}

func TestApplyLevelUp_CapsAtRarityMax(t *testing.T) {
	c := scenarioCharacter()
	c.Rarity = character.Common
	before := c.Stats.Sum()
	res := character.ApplyLevelUp(c, 100, dice.NewSeededSource(3))
	assert.Equal(t, character.Common.MaxLevel(), c.Level)
	assert.Equal(t, character.Common.MaxLevel(), res.NewLevel)
	assert.Equal(t, character.Common.MaxLevel()-1, res.LevelsGained())
	assert.Equal(t, before+res.LevelsGained(), c.Stats.Sum())

	again := character.ApplyLevelUp(c, 31, dice.NewSeededSource(3))
	assert.Zero(t, again.LevelsGained())
	assert.Empty(t, again.Increments)
}

func TestGainExperience_CapsAtRarityMax(t *testing.T) {
	c := scenarioCharacter()
	c.Level = 29
	c.Experience = character.TotalXPForLevel(29)
	res := c.GainExperience(character.TotalXPForLevel(40), dice.NewSeededSource(1))
	require.NotNil(t, res)
	assert.Equal(t, character.Common.MaxLevel(), c.Level)
	assert.Equal(t, 1, res.LevelsGained())

	assert.Nil(t, c.GainExperience(1000, dice.NewSeededSource(1)), "capped characters gain xp but no levels")
	assert.Equal(t, character.Common.MaxLevel(), c.Level)
}

func TestGainExperience_IgnoresNegative(t *testing.T) {
	c := scenarioCharacter()
	c.Experience = 50
	assert.Nil(t, c.GainExperience(-10, dice.NewSeededSource(1)))
	assert.Equal(t, int64(50), c.Experience)
}
