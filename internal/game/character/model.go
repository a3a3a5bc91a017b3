// Package character defines the waifu domain model and the pure generation,
// power and leveling logic built on it.
package character

import (
	"time"
)

// Rarity is one of five ordered quality tiers.
type Rarity int

const (
	Common Rarity = iota
	Uncommon
	Rare
	Epic
	Legendary
)

// Rarities lists every tier in ascending order.
var Rarities = []Rarity{Common, Uncommon, Rare, Epic, Legendary}

var rarityNames = [...]string{"Common", "Uncommon", "Rare", "Epic", "Legendary"}

// String returns the display name of r. Out-of-range values render as Common.
func (r Rarity) String() string {
	if r < Common || r > Legendary {
		return rarityNames[Common]
	}
	return rarityNames[r]
}

// Valid reports whether r is one of the five tiers.
func (r Rarity) Valid() bool { return r >= Common && r <= Legendary }

// ParseRarity returns the tier named s. Unknown names yield (Common, false).
func ParseRarity(s string) (Rarity, bool) {
	for i, n := range rarityNames {
		if n == s {
			return Rarity(i), true
		}
	}
	return Common, false
}

// MaxLevel returns the level cap for r.
func (r Rarity) MaxLevel() int {
	switch r {
	case Uncommon:
		return 40
	case Rare:
		return 50
	case Epic:
		return 60
	case Legendary:
		return 80
	default:
		return 30
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Rarity) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names decode as Common.
func (r *Rarity) UnmarshalText(b []byte) error {
	*r, _ = ParseRarity(string(b))
	return nil
}

// StatName names one of the six base attributes.
type StatName string

const (
	StatPower     StatName = "power"
	StatCharm     StatName = "charm"
	StatLuck      StatName = "luck"
	StatAffection StatName = "affection"
	StatIntellect StatName = "intellect"
	StatSpeed     StatName = "speed"
)

// StatNames lists the six base attributes in display order.
var StatNames = []StatName{StatPower, StatCharm, StatLuck, StatAffection, StatIntellect, StatSpeed}

// ValidStat reports whether s names a base attribute.
func ValidStat(s StatName) bool {
	for _, n := range StatNames {
		if n == s {
			return true
		}
	}
	return false
}

// Stats holds the six base attributes. Values only grow through level-ups.
type Stats struct {
	Power     int `json:"power"`
	Charm     int `json:"charm"`
	Luck      int `json:"luck"`
	Affection int `json:"affection"`
	Intellect int `json:"intellect"`
	Speed     int `json:"speed"`
}

// Get returns the value of the named stat, or 0 for an unknown name.
func (s Stats) Get(name StatName) int {
	switch name {
	case StatPower:
		return s.Power
	case StatCharm:
		return s.Charm
	case StatLuck:
		return s.Luck
	case StatAffection:
		return s.Affection
	case StatIntellect:
		return s.Intellect
	case StatSpeed:
		return s.Speed
	}
	return 0
}

// Add increments the named stat by n. Unknown names are ignored.
func (s *Stats) Add(name StatName, n int) {
	switch name {
	case StatPower:
		s.Power += n
	case StatCharm:
		s.Charm += n
	case StatLuck:
		s.Luck += n
	case StatAffection:
		s.Affection += n
	case StatIntellect:
		s.Intellect += n
	case StatSpeed:
		s.Speed += n
	}
}

// Sum returns the total of all six stats.
func (s Stats) Sum() int {
	return s.Power + s.Charm + s.Luck + s.Affection + s.Intellect + s.Speed
}

const (
	// DefaultMaxEnergy is the energy cap before skill bonuses.
	DefaultMaxEnergy = 100
	// MaxMood is the mood cap.
	MaxMood = 100.0
	// MaxLoyalty is the loyalty cap.
	MaxLoyalty = 100.0
)

// Dynamic is a character's time-varying resource state.
type Dynamic struct {
	Energy    int     `json:"energy"`
	MaxEnergy int     `json:"max_energy"`
	Mood      float64 `json:"mood"`
	Loyalty   float64 `json:"loyalty"`
	// Bond is innate dexterity drawn at creation.
	Bond        int       `json:"bond"`
	LastRestore time.Time `json:"last_restore"`
	// EnergyCarry is regenerated energy below one whole point, kept
	// between ticks.
	EnergyCarry float64 `json:"-"`
}

// DefaultDynamic returns the state assigned to a character with none recorded.
func DefaultDynamic(now time.Time) *Dynamic {
	return &Dynamic{
		Energy:      DefaultMaxEnergy,
		MaxEnergy:   DefaultMaxEnergy,
		Mood:        50,
		Loyalty:     0,
		LastRestore: now,
	}
}

// Character is a summoned waifu.
//
// ID and CardNumber are set by the persistence layer; zero values indicate an unsaved character.
type Character struct {
	ID         int64
	CardNumber int64

	Name        string
	Rarity      Rarity
	Race        string
	Profession  string
	Nationality string

	Level      int
	Experience int64

	Stats   Stats
	Dynamic *Dynamic

	OwnerID    *int64
	ImageURL   string
	Tags       []string
	IsActive   bool
	IsFavorite bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EnsureDynamic initialises missing dynamic state and returns it.
//
// Postcondition: c.Dynamic is non-nil.
func (c *Character) EnsureDynamic(now time.Time) *Dynamic {
	if c.Dynamic == nil {
		c.Dynamic = DefaultDynamic(now)
	}
	if c.Dynamic.MaxEnergy <= 0 {
		c.Dynamic.MaxEnergy = DefaultMaxEnergy
	}
	return c.Dynamic
}

// Clamp restores every bound: stats and dynamic fields are non-negative,
// dynamic fields do not exceed their maxima, and level lies in [1, MaxLevel].
func (c *Character) Clamp() {
	for _, n := range StatNames {
		if v := c.Stats.Get(n); v < 0 {
			c.Stats.Add(n, -v)
		}
	}
	if c.Experience < 0 {
		c.Experience = 0
	}
	if c.Level < 1 {
		c.Level = 1
	}
	if max := c.Rarity.MaxLevel(); c.Level > max {
		c.Level = max
	}
	if d := c.Dynamic; d != nil {
		if d.MaxEnergy <= 0 {
			d.MaxEnergy = DefaultMaxEnergy
		}
		d.Energy = clampInt(d.Energy, 0, d.MaxEnergy)
		d.Mood = clampFloat(d.Mood, 0, MaxMood)
		d.Loyalty = clampFloat(d.Loyalty, 0, MaxLoyalty)
		if d.Bond < 0 {
			d.Bond = 0
		}
	}
}

// IsOwnedBy reports whether userID owns c.
func (c *Character) IsOwnedBy(userID int64) bool {
	return c.OwnerID != nil && *c.OwnerID == userID
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
