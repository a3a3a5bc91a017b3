// Package skill models the skill-point economy: the closed set of effect kinds,
// per-level skill definitions loaded from YAML, and aggregation of a user's
// unlocked skill levels into a flat effect map.
package skill

import (
	"fmt"
	"sort"
)

// Effect is a known kind of skill modifier.
type Effect int

const (
	RareChance Effect = iota + 1
	EpicChance
	LegendaryChance
	PowerBonus
	CharmBonus
	LuckBonus
	IntellectBonus
	SpeedBonus
	RarePowerBonus
	EpicPowerBonus
	MoodPowerBonus
	LoyaltyPowerBonus
	CollectionPowerBonus
	MaxEnergy
	EnergyCostReduction
	EnergyRecovery
	MoodRecovery
	LoyaltyGrowth
	GoldenHand
)

var effectNames = map[Effect]string{
	RareChance:           "rare_chance",
	EpicChance:           "epic_chance",
	LegendaryChance:      "legendary_chance",
	PowerBonus:           "power_bonus",
	CharmBonus:           "charm_bonus",
	LuckBonus:            "luck_bonus",
	IntellectBonus:       "intellect_bonus",
	SpeedBonus:           "speed_bonus",
	RarePowerBonus:       "rare_power_bonus",
	EpicPowerBonus:       "epic_power_bonus",
	MoodPowerBonus:       "mood_power_bonus",
	LoyaltyPowerBonus:    "loyalty_power_bonus",
	CollectionPowerBonus: "collection_power_bonus",
	MaxEnergy:            "max_energy",
	EnergyCostReduction:  "energy_cost_reduction",
	EnergyRecovery:       "energy_recovery",
	MoodRecovery:         "mood_recovery",
	LoyaltyGrowth:        "loyalty_growth",
	GoldenHand:           "golden_hand",
}

var effectsByName = func() map[string]Effect {
	m := make(map[string]Effect, len(effectNames))
	for e, n := range effectNames {
		m[n] = e
	}
	return m
}()

// String returns the snake_case name used in content files and JSON.
func (e Effect) String() string {
	if n, ok := effectNames[e]; ok {
		return n
	}
	return fmt.Sprintf("effect(%d)", int(e))
}

// Valid reports whether e is a known effect kind.
func (e Effect) Valid() bool {
	_, ok := effectNames[e]
	return ok
}

// ParseEffect returns the Effect named s.
//
// Postcondition: Returns an error for any name outside the known set.
func ParseEffect(s string) (Effect, error) {
	if e, ok := effectsByName[s]; ok {
		return e, nil
	}
	return 0, fmt.Errorf("unknown skill effect %q", s)
}

// MarshalText implements encoding.TextMarshaler so Effects encodes as a
// JSON object keyed by effect name.
func (e Effect) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid effect %d", int(e))
	}
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Effect) UnmarshalText(b []byte) error {
	v, err := ParseEffect(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// AllEffects returns every known effect kind ordered by name.
func AllEffects() []Effect {
	out := make([]Effect, 0, len(effectNames))
	for e := range effectNames {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Effects maps effect kinds to accumulated values. A nil Effects is a valid
// empty map for reads.
type Effects map[Effect]float64

// Get returns the value for e, or 0 when absent.
func (fx Effects) Get(e Effect) float64 {
	return fx[e]
}

// Add accumulates v into e.
//
// Precondition: fx must be non-nil.
func (fx Effects) Add(e Effect, v float64) {
	fx[e] += v
}

// Merge returns a new map holding the additive sum of fx and other.
//
// Postcondition: neither input is modified.
func (fx Effects) Merge(other Effects) Effects {
	out := make(Effects, len(fx)+len(other))
	for e, v := range fx {
		out[e] += v
	}
	for e, v := range other {
		out[e] += v
	}
	return out
}

// With returns a copy of fx with e set to v.
func (fx Effects) With(e Effect, v float64) Effects {
	out := fx.Merge(nil)
	out[e] = v
	return out
}
