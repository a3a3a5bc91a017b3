package character_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/waifu/internal/game/character"
	"github.com/cory-johannsen/waifu/internal/game/skill"
)

func scenarioCharacter() *character.Character {
	return &character.Character{
		Rarity: character.Common,
		Level:  1,
		Stats: character.Stats{
			Power: 10, Charm: 6, Luck: 6, Affection: 6, Intellect: 6, Speed: 6,
		},
		Dynamic: &character.Dynamic{Energy: 100, MaxEnergy: 100, Mood: 80, Loyalty: 0},
	}
}

func TestPower_CommonScenario(t *testing.T) {
	assert.Equal(t, 50, character.Power(scenarioCharacter(), skill.Effects{}))
}

func TestPower_NilDynamicCountsAsZero(t *testing.T) {
	c := scenarioCharacter()
	c.Dynamic = nil
	assert.Equal(t, 42, character.Power(c, nil))
}

func TestPower_StatBonuses(t *testing.T) {
	c := scenarioCharacter()
	// power 10 * 1.5 = 15 -> 45 + 8 + 2 = 55
	assert.Equal(t, 55, character.Power(c, skill.Effects{skill.PowerBonus: 0.5}))
}

func TestPower_RarityBonusLegendaryReusesEpic(t *testing.T) {
	c := scenarioCharacter()
	c.Rarity = character.Legendary
	fx := skill.Effects{skill.EpicPowerBonus: 0.5, skill.RarePowerBonus: 10}
	// 40 * 1.5 = 60 + 8 + 2
	assert.Equal(t, 70, character.Power(c, fx))

	c.Rarity = character.Rare
	// 40 * 11 = 440 + 8 + 2
	assert.Equal(t, 450, character.Power(c, fx))

	c.Rarity = character.Uncommon
	assert.Equal(t, 50, character.Power(c, fx))
}

func TestPower_CollectionBonusScalesTotal(t *testing.T) {
	c := scenarioCharacter()
	assert.Equal(t, 55, character.Power(c, skill.Effects{skill.CollectionPowerBonus: 0.1}))
}

func TestPower_NegativeBonusesIgnored(t *testing.T) {
	c := scenarioCharacter()
	assert.Equal(t, 50, character.Power(c, skill.Effects{skill.PowerBonus: -5, skill.CollectionPowerBonus: -1}))
}

func TestPower_Property_MonotonicInLevelMoodLoyalty(t *testing.T) {
	all := skill.AllEffects()
	rapid.Check(t, func(rt *rapid.T) {
		fx := skill.Effects(rapid.MapOf(rapid.SampledFrom(all), rapid.Float64Range(0, 2)).Draw(rt, "effects"))
		c := &character.Character{
			Rarity: rapid.SampledFrom(character.Rarities).Draw(rt, "rarity"),
			Level:  rapid.IntRange(1, 79).Draw(rt, "level"),
			Stats: character.Stats{
				Power:     rapid.IntRange(0, 100).Draw(rt, "power"),
				Charm:     rapid.IntRange(0, 100).Draw(rt, "charm"),
				Luck:      rapid.IntRange(0, 100).Draw(rt, "luck"),
				Affection: rapid.IntRange(0, 100).Draw(rt, "affection"),
				Intellect: rapid.IntRange(0, 100).Draw(rt, "intellect"),
				Speed:     rapid.IntRange(0, 100).Draw(rt, "speed"),
			},
			Dynamic: &character.Dynamic{
				Mood:    rapid.Float64Range(0, 99).Draw(rt, "mood"),
				Loyalty: rapid.Float64Range(0, 99).Draw(rt, "loyalty"),
			},
		}
		base := character.Power(c, fx)
		if base < 0 {
			rt.Fatalf("negative power %d", base)
		}
		if again := character.Power(c, fx); again != base {
			rt.Fatalf("power not pure: %d then %d", base, again)
		}

		up := *c
		up.Level++
		if p := character.Power(&up, fx); p < base {
			rt.Fatalf("level up decreased power %d -> %d", base, p)
		}
		moody := *c
		d := *c.Dynamic
		d.Mood++
		moody.Dynamic = &d
		if p := character.Power(&moody, fx); p < base {
			rt.Fatalf("mood up decreased power %d -> %d", base, p)
		}
		loyal := *c
		d2 := *c.Dynamic
		d2.Loyalty++
		loyal.Dynamic = &d2
		if p := character.Power(&loyal, fx); p < base {
			rt.Fatalf("loyalty up decreased power %d -> %d", base, p)
		}
	})
}
