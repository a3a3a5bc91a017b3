package gameserver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/waifu/internal/game/skill"
	"github.com/cory-johannsen/waifu/internal/storage/postgres"
)

// Skills lists every skill with the user's level in it, and the user's
// unspent skill points.
func (s *Service) Skills(ctx context.Context, telegramID int64) ([]SkillView, int, error) {
	u, err := s.userFor(ctx, telegramID)
	if err != nil {
		return nil, 0, err
	}
	levels, err := s.store.Skills.Levels(ctx, u.ID)
	if err != nil {
		return nil, 0, err
	}
	defs := s.skills.All()
	out := make([]SkillView, 0, len(defs))
	for _, d := range defs {
		out = append(out, newSkillView(d, levels[d.ID]))
	}
	return out, u.SkillPoints, nil
}

// UpgradeSkill raises skillID by one level, paying its skill-point cost.
//
// Postcondition: Returns skill.ErrUnknownSkill, skill.ErrMaxLevel or
// skill.ErrNotEnoughPoints without changing state. On success the user's
// cached effects are invalidated.
func (s *Service) UpgradeSkill(ctx context.Context, telegramID int64, skillID string) (SkillView, error) {
	u, err := s.userFor(ctx, telegramID)
	if err != nil {
		return SkillView{}, err
	}
	def, ok := s.skills.Get(skillID)
	if !ok {
		return SkillView{}, fmt.Errorf("%w: %q", skill.ErrUnknownSkill, skillID)
	}
	var level int
	err = s.store.WithTx(ctx, func(tx postgres.Repos) error {
		locked, err := tx.Users.GetByIDForUpdate(ctx, u.ID)
		if err != nil {
			return err
		}
		levels, err := tx.Skills.Levels(ctx, u.ID)
		if err != nil {
			return err
		}
		cost, err := s.skills.UpgradeCost(skillID, levels[skillID])
		if err != nil {
			return err
		}
		if locked.SkillPoints < cost {
			return fmt.Errorf("%w: %q costs %d, have %d", skill.ErrNotEnoughPoints, skillID, cost, locked.SkillPoints)
		}
		if _, err := tx.Users.Spend(ctx, u.ID, postgres.SkillPoints, int64(cost)); err != nil {
			return err
		}
		level = levels[skillID] + 1
		return tx.Skills.SetLevel(ctx, u.ID, skillID, level)
	})
	if err != nil {
		return SkillView{}, err
	}
	s.effects.Invalidate(ctx, u.ID)
	s.logger.Info("skill upgraded", zap.Int64("user_id", u.ID), zap.String("skill", skillID), zap.Int("level", level))
	return newSkillView(def, level), nil
}
