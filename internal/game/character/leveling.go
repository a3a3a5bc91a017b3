package character

import (
	"math"

	"github.com/cory-johannsen/waifu/internal/game/dice"
)

// XPRequiredForLevel returns the experience needed to advance from level n to n+1.
func XPRequiredForLevel(n int) int64 {
	return int64(n) * 100
}

// TotalXPForLevel returns the cumulative experience at which level L begins.
//
// Postcondition: TotalXPForLevel(1) == 0.
func TotalXPForLevel(level int) int64 {
	if level < 1 {
		return 0
	}
	l := int64(level)
	return 50 * l * (l - 1)
}

// LevelFromXP returns the largest L with TotalXPForLevel(L) <= xp.
//
// Postcondition: Returns >= 1.
func LevelFromXP(xp int64) int {
	if xp <= 0 {
		return 1
	}
	// Solve 50L(L-1) <= xp, then correct for float rounding.
	l := int((1 + math.Sqrt(1+float64(xp)/12.5)) / 2)
	if l < 1 {
		l = 1
	}
	for TotalXPForLevel(l+1) <= xp {
		l++
	}
	for l > 1 && TotalXPForLevel(l) > xp {
		l--
	}
	return l
}

// CheckLevelUp recomputes the level from cumulative xp and reports whether it
// exceeds the current level.
func CheckLevelUp(xp int64, level int) (bool, int) {
	newLevel := LevelFromXP(xp)
	return newLevel > level, newLevel
}

// XPProgress splits cumulative xp into the current level, the experience
// earned into that level, and the experience that level requires.
func XPProgress(xp int64) (level int, into int64, needed int64) {
	level = LevelFromXP(xp)
	return level, xp - TotalXPForLevel(level), XPRequiredForLevel(level)
}

// LevelProgress reports experience into c's current level and the amount the
// level requires. Both are 0 once c is at its rarity's cap.
func (c *Character) LevelProgress() (into int64, needed int64) {
	if c.Level >= c.Rarity.MaxLevel() {
		return 0, 0
	}
	into = max(0, c.Experience-TotalXPForLevel(c.Level))
	return into, XPRequiredForLevel(c.Level)
}

// LevelUpResult summarises a level-up for notification formatting.
type LevelUpResult struct {
	OldLevel   int              `json:"old_level"`
	NewLevel   int              `json:"new_level"`
	Increments map[StatName]int `json:"increments"`
	Before     Stats            `json:"before"`
	After      Stats            `json:"after"`
}

// LevelsGained returns NewLevel - OldLevel.
func (r LevelUpResult) LevelsGained() int { return r.NewLevel - r.OldLevel }

// ApplyLevelUp raises c to newLevel, capped at the rarity's maximum level,
// incrementing one uniformly chosen stat by exactly 1 for each level gained.
// Picks are independent per level, so the same stat may be chosen more than
// once.
//
// Precondition: c must be non-nil.
// Postcondition: c.Level <= c.Rarity.MaxLevel() when it was before the call;
// the sum of Increments equals the number of levels gained.
func ApplyLevelUp(c *Character, newLevel int, src dice.Source) LevelUpResult {
	newLevel = min(newLevel, c.Rarity.MaxLevel())
	res := LevelUpResult{
		OldLevel:   c.Level,
		NewLevel:   c.Level,
		Increments: make(map[StatName]int),
		Before:     c.Stats,
	}
	for lvl := c.Level; lvl < newLevel; lvl++ {
		stat := dice.Pick(src, StatNames)
		c.Stats.Add(stat, 1)
		res.Increments[stat]++
	}
	if newLevel > c.Level {
		c.Level = newLevel
	}
	res.NewLevel = c.Level
	res.After = c.Stats
	return res
}

// GainExperience adds xp to c and applies any resulting level-up, capped at
// the rarity's maximum level. Non-positive xp is ignored.
//
// Postcondition: Returns nil when no level was gained.
func (c *Character) GainExperience(xp int64, src dice.Source) *LevelUpResult {
	if xp > 0 {
		c.Experience += xp
	}
	up, newLevel := CheckLevelUp(c.Experience, c.Level)
	if !up {
		return nil
	}
	res := ApplyLevelUp(c, newLevel, src)
	if res.LevelsGained() == 0 {
		return nil
	}
	return &res
}
