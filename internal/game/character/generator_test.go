package character_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/waifu/internal/game/character"
	"github.com/cory-johannsen/waifu/internal/game/dice"
	"github.com/cory-johannsen/waifu/internal/game/skill"
)

func newGenerator(src dice.Source) *character.Generator {
	return character.NewGenerator(src, character.StaticImageResolver{Base: "https://cdn.test", Src: src})
}

func TestGenerate_PopulatesDefaults(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	g := newGenerator(dice.NewSeededSource(1)).WithClock(func() time.Time { return now })
	owner := int64(9)

	c := g.Generate(context.Background(), 77, &owner, nil)

	assert.Equal(t, int64(77), c.CardNumber)
	assert.Equal(t, 1, c.Level)
	assert.Equal(t, int64(0), c.Experience)
	assert.False(t, c.IsActive)
	assert.False(t, c.IsFavorite)
	assert.Equal(t, now, c.CreatedAt)
	assert.True(t, c.IsOwnedBy(9))
	require.NotNil(t, c.Dynamic)
	assert.Equal(t, now, c.Dynamic.LastRestore)
	assert.Equal(t, 0.0, c.Dynamic.Loyalty)
	assert.Equal(t, character.DefaultMaxEnergy, c.Dynamic.MaxEnergy)
	assert.Contains(t, character.Races, c.Race)
	assert.Contains(t, character.Professions, c.Profession)
	assert.Contains(t, character.NamePool(c.Nationality), c.Name)
	assert.NotEmpty(t, c.ImageURL)
}

func TestGenerate_Property_StatsWithinRarityRange(t *testing.T) {
	src := dice.NewCryptoSource()
	g := newGenerator(src)
	rapid.Check(t, func(rt *rapid.T) {
		rarity := rapid.SampledFrom(character.Rarities).Draw(rt, "rarity")
		c := g.GenerateWithRarity(context.Background(), rarity, 1, nil, nil)
		rg := character.StatRange(rarity)
		for _, n := range character.StatNames {
			if v := c.Stats.Get(n); !rg.Contains(v) {
				rt.Fatalf("%s %s = %d outside [%d,%d]", rarity, n, v, rg.Min, rg.Max)
			}
		}
		if !character.BondRange(rarity).Contains(c.Dynamic.Bond) {
			rt.Fatalf("bond %d outside range for %s", c.Dynamic.Bond, rarity)
		}
	})
}

func TestGenerate_Property_DynamicAndTags(t *testing.T) {
	g := newGenerator(dice.NewCryptoSource())
	rapid.Check(t, func(rt *rapid.T) {
		bonus := rapid.IntRange(0, 50).Draw(rt, "max_energy")
		fx := skill.Effects{skill.MaxEnergy: float64(bonus)}
		c := g.Generate(context.Background(), 1, nil, fx)
		d := c.Dynamic
		if d.MaxEnergy != 100+bonus {
			rt.Fatalf("max energy %d, want %d", d.MaxEnergy, 100+bonus)
		}
		if d.Energy < 80 || d.Energy > d.MaxEnergy {
			rt.Fatalf("energy %d outside [80,%d]", d.Energy, d.MaxEnergy)
		}
		if d.Mood < 70 || d.Mood > 100 {
			rt.Fatalf("mood %v outside [70,100]", d.Mood)
		}
		if n := len(c.Tags); n < 2 || n > 4 {
			rt.Fatalf("%d tags", n)
		}
		seen := map[string]bool{}
		for _, tag := range c.Tags {
			if seen[tag] {
				rt.Fatalf("duplicate tag %q", tag)
			}
			seen[tag] = true
		}
	})
}

func TestGenerateWithRarity_UnknownFallsBackToCommon(t *testing.T) {
	g := newGenerator(dice.NewSeededSource(3))
	c := g.GenerateWithRarity(context.Background(), character.Rarity(42), 1, nil, nil)
	assert.Equal(t, character.Common, c.Rarity)
	for _, n := range character.StatNames {
		assert.True(t, character.StatRange(character.Common).Contains(c.Stats.Get(n)))
	}
}

func TestGeneratePremium_NeverBelowRare(t *testing.T) {
	g := newGenerator(dice.NewSeededSource(5))
	for i := 0; i < 500; i++ {
		c := g.GeneratePremium(context.Background(), int64(i), nil, nil)
		assert.GreaterOrEqual(t, c.Rarity, character.Rare)
	}
}

func TestRarityWeights_Base(t *testing.T) {
	assert.Equal(t, []float64{60, 25, 10, 4, 1}, character.RarityWeights(nil))
	assert.Equal(t, []float64{0, 0, 50, 35, 15}, character.PremiumRarityWeights(nil))
}

func TestRarityWeights_Property_RareChanceResponsive(t *testing.T) {
	base := character.RarityWeights(nil)
	rapid.Check(t, func(rt *rapid.T) {
		x := rapid.Float64Range(1e-6, 0.99).Draw(rt, "rare_chance")
		w := character.RarityWeights(skill.Effects{skill.RareChance: x})
		if !(w[character.Common] < base[character.Common]) {
			rt.Fatalf("common weight %v not below %v", w[character.Common], base[character.Common])
		}
		if !(w[character.Rare] > base[character.Rare]) {
			rt.Fatalf("rare weight %v not above %v", w[character.Rare], base[character.Rare])
		}
	})
}

func TestRarityWeights_CapsRunawayOdds(t *testing.T) {
	w := character.RarityWeights(skill.Effects{
		skill.RareChance:      5,
		skill.EpicChance:      5,
		skill.LegendaryChance: 5,
	})
	assert.Equal(t, 1.0, w[character.Common])
	assert.Equal(t, 25.0, w[character.Rare])
	assert.Equal(t, 15.0, w[character.Epic])
	assert.Equal(t, 10.0, w[character.Legendary])

	p := character.PremiumRarityWeights(skill.Effects{skill.EpicChance: 0.9, skill.LegendaryChance: 0.9, skill.RareChance: 0.9})
	assert.Equal(t, 1.0, p[character.Rare])
	assert.Equal(t, 50.0, p[character.Epic])
	assert.Equal(t, 30.0, p[character.Legendary])
}

func TestRollRarity_UsesWeightedDraw(t *testing.T) {
	// 0.999 of total 100 lands in the Legendary bucket.
	g := newGenerator(dice.NewFixedSource(nil, []float64{0.999}))
	assert.Equal(t, character.Legendary, g.RollRarity(character.ModeStandard, nil))

	g = newGenerator(dice.NewFixedSource(nil, []float64{0.0}))
	assert.Equal(t, character.Common, g.RollRarity(character.ModeStandard, nil))
	assert.Equal(t, character.Rare, g.RollRarity(character.ModePremium, nil))
}
