package character

import (
	"context"
	"math"
	"time"

	"github.com/cory-johannsen/waifu/internal/game/dice"
	"github.com/cory-johannsen/waifu/internal/game/skill"
)

// Mode selects the rarity table used for a draw.
type Mode int

const (
	// ModeStandard draws from all five tiers.
	ModeStandard Mode = iota
	// ModePremium draws from Rare, Epic and Legendary only.
	ModePremium
)

// String returns "standard" or "premium".
func (m Mode) String() string {
	if m == ModePremium {
		return "premium"
	}
	return "standard"
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// clampChance bounds a rarity bonus to [0, 1).
func clampChance(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 1 {
		return math.Nextafter(1, 0)
	}
	return v
}

// RarityWeights returns the standard weight vector indexed by Rarity.
//
// With bonuses r, e, l: Common = max(1, 60(1-(r+e+l))), Uncommon = 25,
// Rare = min(25, 10+60r), Epic = min(15, 4+60e), Legendary = min(10, 1+60l).
func RarityWeights(effects skill.Effects) []float64 {
	r := clampChance(effects.Get(skill.RareChance))
	e := clampChance(effects.Get(skill.EpicChance))
	l := clampChance(effects.Get(skill.LegendaryChance))
	return []float64{
		Common:    math.Max(1, 60*(1-(r+e+l))),
		Uncommon:  25,
		Rare:      math.Min(25, 10+60*r),
		Epic:      math.Min(15, 4+60*e),
		Legendary: math.Min(10, 1+60*l),
	}
}

// PremiumRarityWeights returns the premium weight vector indexed by Rarity.
// Common and Uncommon are always zero and rare_chance has no effect.
//
// With bonuses e, l: Rare = max(1, 50(1-(e+l))), Epic = min(50, 35+50e),
// Legendary = min(30, 15+50l).
func PremiumRarityWeights(effects skill.Effects) []float64 {
	e := clampChance(effects.Get(skill.EpicChance))
	l := clampChance(effects.Get(skill.LegendaryChance))
	return []float64{
		Common:    0,
		Uncommon:  0,
		Rare:      math.Max(1, 50*(1-(e+l))),
		Epic:      math.Min(50, 35+50*e),
		Legendary: math.Min(30, 15+50*l),
	}
}

// Generator produces new characters.
type Generator struct {
	src    dice.Source
	images ImageResolver
	now    func() time.Time
}

// NewGenerator creates a Generator.
//
// Precondition: src and images must be non-nil.
func NewGenerator(src dice.Source, images ImageResolver) *Generator {
	return &Generator{src: src, images: images, now: time.Now}
}

// WithClock returns a copy of g that reads the current time from now.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	cp := *g
	cp.now = now
	return &cp
}

// RollRarity draws a tier for mode.
func (g *Generator) RollRarity(mode Mode, effects skill.Effects) Rarity {
	weights := RarityWeights(effects)
	if mode == ModePremium {
		weights = PremiumRarityWeights(effects)
	}
	return Rarity(dice.WeightedIndex(g.src, weights))
}

// Generate creates a standard-mode character.
func (g *Generator) Generate(ctx context.Context, cardNumber int64, ownerID *int64, effects skill.Effects) *Character {
	return g.GenerateMode(ctx, ModeStandard, cardNumber, ownerID, effects)
}

// GeneratePremium creates a premium-mode character.
func (g *Generator) GeneratePremium(ctx context.Context, cardNumber int64, ownerID *int64, effects skill.Effects) *Character {
	return g.GenerateMode(ctx, ModePremium, cardNumber, ownerID, effects)
}

// GenerateMode creates a character with a rarity drawn from mode's table.
//
// Postcondition: Returns a level 1 character with zero experience, every stat
// inside StatRange(rarity), populated dynamic state, and a non-empty image URL.
// Nothing is persisted.
func (g *Generator) GenerateMode(ctx context.Context, mode Mode, cardNumber int64, ownerID *int64, effects skill.Effects) *Character {
	return g.GenerateWithRarity(ctx, g.RollRarity(mode, effects), cardNumber, ownerID, effects)
}

// GenerateWithRarity creates a character of a fixed tier. Unknown tiers
// generate with Common ranges.
func (g *Generator) GenerateWithRarity(ctx context.Context, rarity Rarity, cardNumber int64, ownerID *int64, effects skill.Effects) *Character {
	if !rarity.Valid() {
		rarity = Common
	}
	now := g.now()

	race := dice.Pick(g.src, Races)
	profession := dice.Pick(g.src, Professions)
	nationality := dice.Pick(g.src, Nationalities).ID

	sr := StatRange(rarity)
	var stats Stats
	for _, n := range StatNames {
		stats.Add(n, dice.Range(g.src, sr.Min, sr.Max))
	}

	maxEnergy := DefaultMaxEnergy + int(effects.Get(skill.MaxEnergy))
	if maxEnergy < 1 {
		maxEnergy = 1
	}
	energyLo := 80
	if energyLo > maxEnergy {
		energyLo = maxEnergy
	}
	br := BondRange(rarity)
	dyn := &Dynamic{
		Energy:      dice.Range(g.src, energyLo, maxEnergy),
		MaxEnergy:   maxEnergy,
		Mood:        float64(dice.Range(g.src, 70, 100)),
		Loyalty:     0,
		Bond:        dice.Range(g.src, br.Min, br.Max),
		LastRestore: now,
	}

	name := dice.Pick(g.src, NamePool(nationality))
	tags := dice.Sample(g.src, Tags, dice.Range(g.src, minTags, maxTags))

	return &Character{
		CardNumber:  cardNumber,
		Name:        name,
		Rarity:      rarity,
		Race:        race,
		Profession:  profession,
		Nationality: nationality,
		Level:       1,
		Experience:  0,
		Stats:       stats,
		Dynamic:     dyn,
		OwnerID:     ownerID,
		ImageURL:    g.images.Resolve(ctx, race, nationality, profession),
		Tags:        tags,
		IsActive:    false,
		IsFavorite:  false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
