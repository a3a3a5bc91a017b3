// Package account models the user side of the game: balances, the account
// progression curve that feeds skill points, and chat accrual rules.
package account

import (
	"math"
	"time"
)

// User is a player's persistent account state.
//
// ID is set by the persistence layer; a zero value indicates an unsaved user.
type User struct {
	ID         int64
	TelegramID int64
	Username   string

	Coins int64
	Gems  int64

	AccountXP    int64
	AccountLevel int
	SkillPoints  int

	PityCounter    int
	DailyChatCoins int64
	DailyResetAt   time.Time
	ChatStreak     int
	LastChatAt     time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LevelFromXP returns the account level for cumulative account xp:
// floor(sqrt(xp/100)) + 1. This curve is distinct from the character curve.
//
// Postcondition: Returns >= 1.
func LevelFromXP(xp int64) int {
	if xp <= 0 {
		return 1
	}
	l := int(math.Sqrt(float64(xp) / 100))
	// Correct float rounding at perfect squares.
	for int64(l+1)*int64(l+1)*100 <= xp {
		l++
	}
	for l > 0 && int64(l)*int64(l)*100 > xp {
		l--
	}
	return l + 1
}

// XPForLevel returns the minimum account xp for level.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	n := int64(level - 1)
	return n * n * 100
}

// SkillPointsPerLevel is the number of skill points granted per account level gained.
const SkillPointsPerLevel = 1

// AddXP adds xp to the account, recomputes the level and grants skill points
// for each level gained.
//
// Postcondition: Returns the number of levels gained (>= 0).
func (u *User) AddXP(xp int64) int {
	if xp > 0 {
		u.AccountXP += xp
	}
	if u.AccountLevel < 1 {
		u.AccountLevel = 1
	}
	newLevel := LevelFromXP(u.AccountXP)
	gained := newLevel - u.AccountLevel
	if gained <= 0 {
		return 0
	}
	u.AccountLevel = newLevel
	u.SkillPoints += gained * SkillPointsPerLevel
	return gained
}

// ChatRules configures chat accrual.
type ChatRules struct {
	CoinsPerMessage int64
	DailyCap        int64
	XPPerMessage    int64
}

// ChatResult describes the effect of one chat message.
type ChatResult struct {
	CoinsCredited int64 `json:"coins_credited"`
	XPGained      int64 `json:"xp_gained"`
	LevelsGained  int   `json:"levels_gained"`
	Streak        int   `json:"streak"`
	CapReached    bool  `json:"cap_reached"`
}

// RecordChat applies one chat message at now. The daily coin counter resets
// at UTC midnight; the streak grows on the first message of a consecutive day
// and resets after a missed day.
func (u *User) RecordChat(rules ChatRules, now time.Time) ChatResult {
	today := now.UTC().Truncate(24 * time.Hour)
	if u.DailyResetAt.IsZero() || u.DailyResetAt.UTC().Before(today) {
		u.DailyChatCoins = 0
		u.DailyResetAt = today
	}

	lastDay := u.LastChatAt.UTC().Truncate(24 * time.Hour)
	switch {
	case u.LastChatAt.IsZero():
		u.ChatStreak = 1
	case lastDay.Equal(today):
		if u.ChatStreak < 1 {
			u.ChatStreak = 1
		}
	case lastDay.Add(24 * time.Hour).Equal(today):
		u.ChatStreak++
	default:
		u.ChatStreak = 1
	}
	u.LastChatAt = now

	credit := rules.CoinsPerMessage
	if rules.DailyCap > 0 {
		if remaining := rules.DailyCap - u.DailyChatCoins; remaining < credit {
			credit = remaining
		}
	}
	if credit < 0 {
		credit = 0
	}
	u.Coins += credit
	u.DailyChatCoins += credit

	return ChatResult{
		CoinsCredited: credit,
		XPGained:      rules.XPPerMessage,
		LevelsGained:  u.AddXP(rules.XPPerMessage),
		Streak:        u.ChatStreak,
		CapReached:    rules.DailyCap > 0 && u.DailyChatCoins >= rules.DailyCap,
	}
}
