// Package restore regenerates character energy, mood and loyalty over
// wall-clock time.
package restore

import (
	"math"
	"time"

	"github.com/cory-johannsen/waifu/internal/game/character"
	"github.com/cory-johannsen/waifu/internal/game/skill"
)

// Base regeneration rates per elapsed minute.
const (
	EnergyPerMinute  = 1.0
	MoodPerMinute    = 0.1
	LoyaltyPerMinute = 0.05
)

// MaxEnergy returns the energy cap under effects.
func MaxEnergy(effects skill.Effects) int {
	return character.DefaultMaxEnergy + int(effects.Get(skill.MaxEnergy))
}

// Tick advances c's dynamic state to now.
//
// A character without dynamic state is initialised to defaults. Otherwise
// each whole elapsed minute restores energy, mood and loyalty at their base
// rates scaled by (1 + recovery bonus), capped at the maxima. Energy below a
// whole point carries over to the next tick. Under one minute only
// LastRestore moves forward.
//
// Precondition: c must be non-nil.
// Postcondition: Returns true when the state must be persisted; values never
// exceed their caps.
func Tick(c *character.Character, effects skill.Effects, now time.Time) bool {
	if c.Dynamic == nil {
		c.Dynamic = character.DefaultDynamic(now)
		c.Dynamic.MaxEnergy = MaxEnergy(effects)
		return true
	}
	d := c.Dynamic
	minutes := int(now.Sub(d.LastRestore) / time.Minute)
	if minutes < 1 {
		d.LastRestore = now
		return false
	}

	maxEnergy := MaxEnergy(effects)
	gain := float64(minutes)*EnergyPerMinute*(1+effects.Get(skill.EnergyRecovery)) + d.EnergyCarry
	whole := math.Floor(gain)
	energy := d.Energy + int(whole)
	mood := d.Mood + float64(minutes)*MoodPerMinute*(1+effects.Get(skill.MoodRecovery))
	loyalty := d.Loyalty + float64(minutes)*LoyaltyPerMinute*(1+effects.Get(skill.LoyaltyGrowth))

	d.MaxEnergy = maxEnergy
	d.Energy = min(energy, maxEnergy)
	d.EnergyCarry = gain - whole
	if d.Energy >= maxEnergy {
		d.EnergyCarry = 0
	}
	d.Mood = min(mood, character.MaxMood)
	d.Loyalty = min(loyalty, character.MaxLoyalty)
	d.LastRestore = now
	c.Clamp()
	return true
}
