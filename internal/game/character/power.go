package character

import (
	"math"

	"github.com/cory-johannsen/waifu/internal/game/skill"
)

// trainableBonus maps each trainable stat to the skill effect that scales it.
// Affection has no bonus.
var trainableBonus = []struct {
	stat   StatName
	effect skill.Effect
}{
	{StatPower, skill.PowerBonus},
	{StatIntellect, skill.IntellectBonus},
	{StatCharm, skill.CharmBonus},
	{StatSpeed, skill.SpeedBonus},
	{StatLuck, skill.LuckBonus},
}

// Power computes the character's power score.
//
// Trainable stats are each scaled by (1 + <stat>_bonus) and affection is added
// unmodified. The subtotal is scaled by rare_power_bonus for Rare and by
// epic_power_bonus for Epic and Legendary. Mood, loyalty and level terms are
// then added and the result is scaled by (1 + collection_power_bonus).
// Missing dynamic state counts as zero mood and loyalty.
//
// Postcondition: Returns >= 0. Pure: depends only on c and effects.
func Power(c *Character, effects skill.Effects) int {
	total := 0.0
	for _, tb := range trainableBonus {
		total += float64(c.Stats.Get(tb.stat)) * (1 + bonus(effects, tb.effect))
	}
	total += float64(c.Stats.Affection)

	switch c.Rarity {
	case Rare:
		total *= 1 + bonus(effects, skill.RarePowerBonus)
	case Epic, Legendary:
		total *= 1 + bonus(effects, skill.EpicPowerBonus)
	}

	var mood, loyalty float64
	if c.Dynamic != nil {
		mood, loyalty = c.Dynamic.Mood, c.Dynamic.Loyalty
	}
	total += mood * 0.1 * (1 + bonus(effects, skill.MoodPowerBonus))
	total += loyalty * 0.05 * (1 + bonus(effects, skill.LoyaltyPowerBonus))
	total += float64(c.Level) * 2

	total *= 1 + bonus(effects, skill.CollectionPowerBonus)

	// Tolerate float error so 50.0 does not truncate to 49.
	p := int(math.Floor(total + 1e-9))
	if p < 0 {
		return 0
	}
	return p
}

// bonus reads e from effects, clamped to be non-negative.
func bonus(effects skill.Effects, e skill.Effect) float64 {
	v := effects.Get(e)
	if v < 0 {
		return 0
	}
	return v
}
