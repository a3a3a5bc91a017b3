// Package render formats game results as plain chat text.
package render

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/waifu/internal/game/character"
	"github.com/cory-johannsen/waifu/internal/game/event"
	"github.com/cory-johannsen/waifu/internal/gameserver"
)

var rarityStars = map[character.Rarity]string{
	character.Common:    "★",
	character.Uncommon:  "★★",
	character.Rare:      "★★★",
	character.Epic:      "★★★★",
	character.Legendary: "★★★★★",
}

// Stars returns one star per rarity tier.
func Stars(r character.Rarity) string {
	if s, ok := rarityStars[r]; ok {
		return s
	}
	return rarityStars[character.Common]
}

// Card formats a character card.
func Card(v gameserver.CharacterView) string {
	var b strings.Builder

	fmt.Fprintf(&b, "#%d %s %s\n", v.CardNumber, v.Name, Stars(v.Rarity))
	fmt.Fprintf(&b, "%s · %s %s · %s\n", v.Rarity, v.Race, v.Profession, character.NationalityDisplay(v.Nationality))
	if v.XPForNext == 0 {
		fmt.Fprintf(&b, "Level %d/%d (max)\n", v.Level, v.MaxLevel)
	} else {
		fmt.Fprintf(&b, "Level %d/%d (%d/%d XP)\n", v.Level, v.MaxLevel, v.XPIntoLevel, v.XPForNext)
	}
	fmt.Fprintf(&b, "Power %d\n", v.Power)
	for _, n := range character.StatNames {
		fmt.Fprintf(&b, "  %-10s %d\n", n, v.Stats.Get(n))
	}
	if d := v.Dynamic; d != nil {
		fmt.Fprintf(&b, "Energy %d/%d  Mood %.0f  Loyalty %.0f\n", d.Energy, d.MaxEnergy, d.Mood, d.Loyalty)
	}
	if len(v.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(v.Tags, ", "))
	}

	var flags []string
	if v.IsActive {
		flags = append(flags, "active")
	}
	if v.IsFavorite {
		flags = append(flags, "favorite")
	}
	if len(flags) > 0 {
		fmt.Fprintf(&b, "[%s]\n", strings.Join(flags, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// LevelUp formats a level-up notification. A nil result renders as "".
func LevelUp(name string, r *character.LevelUpResult) string {
	if r == nil || r.LevelsGained() <= 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s reached level %d!", name, r.NewLevel)
	for _, n := range character.StatNames {
		if inc := r.Increments[n]; inc > 0 {
			fmt.Fprintf(&b, "\n  %s %d → %d (+%d)", n, r.Before.Get(n), r.After.Get(n), inc)
		}
	}
	return b.String()
}

// Participation formats the result of a solo event attempt.
func Participation(res gameserver.ParticipationResult) string {
	if !res.Eligibility.OK {
		return fmt.Sprintf("Cannot join %s: %s.", res.EventName, res.Eligibility.Reason)
	}
	var b strings.Builder
	name := res.EventName
	if res.Character != nil {
		name = res.Character.Name + " at " + res.EventName
	}
	o := res.Outcome
	fmt.Fprintf(&b, "%s: score %.2f", name, o.Score)
	if o.Reward.Multiplier > 1 {
		fmt.Fprintf(&b, " (×%.1f)", o.Reward.Multiplier)
	}
	fmt.Fprintf(&b, "\n+%d coins, +%d XP, -%d energy", o.Reward.Coins, o.Reward.Experience, o.EnergySpent)
	if res.Character != nil {
		if lu := LevelUp(res.Character.Name, o.LevelUp); lu != "" {
			b.WriteString("\n")
			b.WriteString(lu)
		}
	}
	return b.String()
}

var placeLabels = []string{"🥇", "🥈", "🥉"}

// GroupResult formats the final standings of a group event.
func GroupResult(res event.GroupResult) string {
	if res.NoParticipants {
		return fmt.Sprintf("%s ended with no participants.", res.Event.EventName)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s results:", res.Event.EventName)
	for i, p := range res.Placements {
		label := fmt.Sprintf("%d.", p.Rank)
		if i < len(placeLabels) {
			label = placeLabels[i]
		}
		fmt.Fprintf(&b, "\n%s user %d with #%d: %.2f", label, p.UserID, p.CharacterID, p.Score)
		if p.MoodBonus > 0 {
			fmt.Fprintf(&b, " (+%.0f mood)", p.MoodBonus)
		}
	}
	return b.String()
}

// Chat formats a chat accrual result; it returns "" when nothing notable happened.
func Chat(out gameserver.ChatOutcome) string {
	switch {
	case out.LevelsGained > 0:
		return fmt.Sprintf("Account level %d! You have %d skill points.", out.AccountLevel, out.SkillPoints)
	case out.CapReached && out.CoinsCredited > 0:
		return fmt.Sprintf("Daily chat coin limit reached. Balance: %d coins.", out.Coins)
	}
	return ""
}
