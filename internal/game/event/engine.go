package event

import (
	"math"
	"time"

	"github.com/cory-johannsen/waifu/internal/game/character"
	"github.com/cory-johannsen/waifu/internal/game/dice"
	"github.com/cory-johannsen/waifu/internal/game/skill"
)

const (
	// BaseEnergyCost is the energy price of an event before skill reduction.
	BaseEnergyCost = 20
	// MinMood is the lowest mood at which a character may participate.
	MinMood = 30

	// UnknownEventName is returned as the name of an unregistered event.
	UnknownEventName = "Unknown event"

	ReasonInsufficientEnergy = "insufficient energy"
	ReasonMoodTooLow         = "mood too low"
	ReasonUnknownEvent       = "unknown event"

	professionMultiplier = 1.25
	filterMultiplier     = 1.15
)

var rarityMultipliers = map[character.Rarity]float64{
	character.Common:    1.0,
	character.Uncommon:  1.1,
	character.Rare:      1.2,
	character.Epic:      1.35,
	character.Legendary: 1.5,
}

// RarityMultiplier returns the score multiplier applied by rarity-filtered events.
func RarityMultiplier(r character.Rarity) float64 {
	if m, ok := rarityMultipliers[r]; ok {
		return m
	}
	return 1.0
}

// Eligibility is the outcome of a participation check. Reason is empty when OK.
type Eligibility struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// ScoreHook lets scripted content adjust a computed score. Implementations
// return score unchanged on any failure.
type ScoreHook interface {
	AdjustScore(hook string, c *character.Character, def *Definition, score float64) float64
}

// Engine computes eligibility, scores and rewards. It never mutates state
// except through Apply.
type Engine struct {
	registry *Registry
	src      dice.Source
	hooks    ScoreHook
	now      func() time.Time
}

// NewEngine creates an Engine. hooks may be nil.
//
// Precondition: registry and src must be non-nil.
func NewEngine(registry *Registry, src dice.Source, hooks ScoreHook) *Engine {
	return &Engine{registry: registry, src: src, hooks: hooks, now: time.Now}
}

// Registry returns the engine's event registry.
func (e *Engine) Registry() *Registry { return e.registry }

// EnergyCost returns max(1, floor(base * (1 - energy_cost_reduction))) where
// base is the definition's override or BaseEnergyCost. def may be nil.
func EnergyCost(def *Definition, effects skill.Effects) int {
	base := BaseEnergyCost
	if def != nil && def.EnergyCost > 0 {
		base = def.EnergyCost
	}
	reduction := effects.Get(skill.EnergyCostReduction)
	if reduction < 0 {
		reduction = 0
	}
	cost := int(math.Floor(float64(base) * (1 - reduction)))
	if cost < 1 {
		return 1
	}
	return cost
}

// Eligible checks energy against cost, then mood against MinMood. Missing
// dynamic state is initialised to defaults first.
func (e *Engine) Eligible(c *character.Character, cost int) Eligibility {
	d := c.EnsureDynamic(e.now())
	if d.Energy < cost {
		return Eligibility{Reason: ReasonInsufficientEnergy}
	}
	if d.Mood < MinMood {
		return Eligibility{Reason: ReasonMoodTooLow}
	}
	return Eligibility{OK: true}
}

// CanParticipate resolves eventID and checks eligibility using costFn to
// price the event.
func (e *Engine) CanParticipate(c *character.Character, eventID string, costFn func(*Definition) int) Eligibility {
	def, ok := e.registry.Get(eventID)
	if !ok {
		return Eligibility{Reason: ReasonUnknownEvent}
	}
	return e.Eligible(c, costFn(def))
}

// Score computes a participation score for c in eventID, rounded to two
// decimals, and the event's display name. Unknown events score zero.
func (e *Engine) Score(c *character.Character, eventID string) (float64, string) {
	def, ok := e.registry.Get(eventID)
	if !ok {
		return 0, UnknownEventName
	}
	return e.ScoreDefinition(c, def), def.Name
}

// ScoreDefinition scores c against def.
func (e *Engine) ScoreDefinition(c *character.Character, def *Definition) float64 {
	score := 0.0
	for _, s := range def.Stats {
		score += float64(c.Stats.Get(s)) * dice.Uniform(e.src, 0.8, 1.2)
	}
	if def.BonusProfession != "" && c.Profession == def.BonusProfession {
		score *= professionMultiplier
	}
	score *= filterBonus(c, def.Filter)

	level := c.Level
	if level < 1 {
		level = 1
	}
	score *= 1 + float64(level-1)*0.02

	var mood, loyalty float64
	if c.Dynamic != nil {
		mood, loyalty = c.Dynamic.Mood, c.Dynamic.Loyalty
	}
	score *= 0.8 + 0.2*mood/100
	score *= 0.9 + 0.1*loyalty/100
	score *= dice.Uniform(e.src, 0.9, 1.1)

	if e.hooks != nil && def.Script != "" {
		score = e.hooks.AdjustScore(def.Script, c, def, score)
	}
	if score < 0 || math.IsNaN(score) || math.IsInf(score, 0) {
		score = 0
	}
	return math.Round(score*100) / 100
}

func filterBonus(c *character.Character, f Filter) float64 {
	switch f.Type {
	case FilterRace:
		if c.Race == f.Value {
			return filterMultiplier
		}
	case FilterProfession:
		if c.Profession == f.Value {
			return filterMultiplier
		}
	case FilterNationality:
		if c.Nationality == f.Value {
			return filterMultiplier
		}
	case FilterRarity:
		return RarityMultiplier(c.Rarity)
	}
	return 1.0
}

// TierMultiplier maps a score to its reward multiplier.
func TierMultiplier(score float64) float64 {
	switch {
	case score >= 100:
		return 2.0
	case score >= 80:
		return 1.5
	case score >= 60:
		return 1.2
	default:
		return 1.0
	}
}

// Rewards converts a score into coins and experience for eventID. The
// golden_hand effect adds round(base coins * golden_hand). Unknown events
// reward nothing.
func (e *Engine) Rewards(score float64, eventID string, effects skill.Effects) Reward {
	def, ok := e.registry.Get(eventID)
	if !ok {
		return Reward{}
	}
	return RewardsFor(score, def, effects)
}

// RewardsFor is Rewards for a resolved definition.
func RewardsFor(score float64, def *Definition, effects skill.Effects) Reward {
	m := TierMultiplier(score)
	coins := int64(math.Round(float64(def.Reward.Coins) * m))
	if gh := effects.Get(skill.GoldenHand); gh > 0 {
		coins += int64(math.Round(float64(def.Reward.Coins) * gh))
	}
	return Reward{
		Coins:      coins,
		Experience: int64(math.Round(float64(def.Reward.Experience) * m)),
		Multiplier: m,
	}
}

// Outcome is the mutation applied to a character after participation.
type Outcome struct {
	Score       float64                  `json:"score"`
	Reward      Reward                   `json:"reward"`
	EnergySpent int                      `json:"energy_spent"`
	LevelUp     *character.LevelUpResult `json:"level_up,omitempty"`
}

// Apply mutates c after participation: experience grows by the reward (with
// any level-up applied), energy drops by cost (floor 0), mood rises by 5 and
// loyalty by 2 (each capped at 100). Coins are credited by the caller.
//
// Postcondition: c satisfies every dynamic bound.
func (e *Engine) Apply(c *character.Character, reward Reward, cost int) Outcome {
	d := c.EnsureDynamic(e.now())
	spent := cost
	if spent > d.Energy {
		spent = d.Energy
	}
	d.Energy -= spent
	d.Mood = math.Min(character.MaxMood, d.Mood+5)
	d.Loyalty = math.Min(character.MaxLoyalty, d.Loyalty+2)
	lu := c.GainExperience(reward.Experience, e.src)
	c.Clamp()
	return Outcome{Reward: reward, EnergySpent: spent, LevelUp: lu}
}

// AddMood raises c's mood by delta, capped at 100.
func AddMood(c *character.Character, delta float64, now time.Time) {
	d := c.EnsureDynamic(now)
	d.Mood = math.Min(character.MaxMood, d.Mood+delta)
}
