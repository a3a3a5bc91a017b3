package gameserver

import (
	"time"

	"github.com/cory-johannsen/waifu/internal/game/account"
	"github.com/cory-johannsen/waifu/internal/game/character"
	"github.com/cory-johannsen/waifu/internal/game/event"
	"github.com/cory-johannsen/waifu/internal/game/skill"
)

// CharacterView is a character with its derived power and level progress.
type CharacterView struct {
	ID          int64              `json:"id"`
	CardNumber  int64              `json:"card_number"`
	Name        string             `json:"name"`
	Rarity      character.Rarity   `json:"rarity"`
	Race        string             `json:"race"`
	Profession  string             `json:"profession"`
	Nationality string             `json:"nationality"`
	Level       int                `json:"level"`
	MaxLevel    int                `json:"max_level"`
	Experience  int64              `json:"experience"`
	XPIntoLevel int64              `json:"xp_into_level"`
	XPForNext   int64              `json:"xp_for_next"`
	Stats       character.Stats    `json:"stats"`
	Dynamic     *character.Dynamic `json:"dynamic,omitempty"`
	Power       int                `json:"power"`
	ImageURL    string             `json:"image_url"`
	Tags        []string           `json:"tags"`
	IsActive    bool               `json:"is_active"`
	IsFavorite  bool               `json:"is_favorite"`
	CreatedAt   time.Time          `json:"created_at"`
}

// NewCharacterView derives the view of c under effects.
func NewCharacterView(c *character.Character, effects skill.Effects) CharacterView {
	into, needed := c.LevelProgress()
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return CharacterView{
		ID:          c.ID,
		CardNumber:  c.CardNumber,
		Name:        c.Name,
		Rarity:      c.Rarity,
		Race:        c.Race,
		Profession:  c.Profession,
		Nationality: c.Nationality,
		Level:       c.Level,
		MaxLevel:    c.Rarity.MaxLevel(),
		Experience:  c.Experience,
		XPIntoLevel: into,
		XPForNext:   needed,
		Stats:       c.Stats,
		Dynamic:     c.Dynamic,
		Power:       character.Power(c, effects),
		ImageURL:    c.ImageURL,
		Tags:        tags,
		IsActive:    c.IsActive,
		IsFavorite:  c.IsFavorite,
		CreatedAt:   c.CreatedAt,
	}
}

// Profile is the user's account summary.
type Profile struct {
	TelegramID   int64         `json:"telegram_id"`
	Username     string        `json:"username"`
	Coins        int64         `json:"coins"`
	Gems         int64         `json:"gems"`
	AccountLevel int           `json:"account_level"`
	AccountXP    int64         `json:"account_xp"`
	NextLevelXP  int64         `json:"next_level_xp"`
	SkillPoints  int           `json:"skill_points"`
	PityCounter  int           `json:"pity_counter"`
	ChatStreak   int           `json:"chat_streak"`
	Effects      skill.Effects `json:"effects"`
}

func newProfile(u *account.User, fx skill.Effects) Profile {
	if fx == nil {
		fx = skill.Effects{}
	}
	return Profile{
		TelegramID:   u.TelegramID,
		Username:     u.Username,
		Coins:        u.Coins,
		Gems:         u.Gems,
		AccountLevel: u.AccountLevel,
		AccountXP:    u.AccountXP,
		NextLevelXP:  account.XPForLevel(u.AccountLevel + 1),
		SkillPoints:  u.SkillPoints,
		PityCounter:  u.PityCounter,
		ChatStreak:   u.ChatStreak,
		Effects:      fx,
	}
}

// SummonResult is the outcome of a summon.
type SummonResult struct {
	Character     CharacterView  `json:"character"`
	Mode          character.Mode `json:"mode"`
	PityTriggered bool           `json:"pity_triggered"`
	PityCounter   int            `json:"pity_counter"`
	Balance       int64          `json:"balance"`
}

// ParticipationResult is the outcome of a solo event attempt. A rejected
// attempt has Eligibility.OK false and no Outcome.
type ParticipationResult struct {
	EventID     string            `json:"event_id"`
	EventName   string            `json:"event_name"`
	Eligibility event.Eligibility `json:"eligibility"`
	EnergyCost  int               `json:"energy_cost"`
	Outcome     *event.Outcome    `json:"outcome,omitempty"`
	Character   *CharacterView    `json:"character,omitempty"`
	Balance     int64             `json:"balance"`
}

// ChatOutcome reports the result of one chat message.
type ChatOutcome struct {
	account.ChatResult
	Coins        int64 `json:"coins"`
	AccountLevel int   `json:"account_level"`
	SkillPoints  int   `json:"skill_points"`
}

// SkillView is a skill definition with the user's progress in it.
type SkillView struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Branch      string        `json:"branch"`
	Level       int           `json:"level"`
	MaxLevel    int           `json:"max_level"`
	NextCost    int           `json:"next_cost"`
	Effects     skill.Effects `json:"effects"`
}

func newSkillView(def *skill.Definition, level int) SkillView {
	v := SkillView{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Branch:      def.Branch,
		Level:       level,
		MaxLevel:    def.MaxLevel,
		Effects:     def.EffectsAt(level),
	}
	if v.Effects == nil {
		v.Effects = skill.Effects{}
	}
	if level < def.MaxLevel {
		v.NextCost = def.Costs[max(level, 0)]
	}
	return v
}
