package gameserver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/waifu/internal/game/character"
	"github.com/cory-johannsen/waifu/internal/storage/postgres"
)

// PityForced reports whether a standard summon at counter is upgraded to a
// premium draw. A threshold <= 0 disables pity.
func PityForced(counter, threshold int) bool {
	return threshold > 0 && counter >= threshold
}

// NextPity returns the counter after a summon of rarity r.
func NextPity(counter int, r character.Rarity) int {
	if r >= character.Rare {
		return 0
	}
	return counter + 1
}

// Summon draws a new character for the user, paying coins for a standard
// draw or gems for a premium one.
//
// Postcondition: on success exactly one character is created, the cost is
// debited and the pity counter updated atomically. Returns
// postgres.ErrInsufficientFunds when the balance is too low.
func (s *Service) Summon(ctx context.Context, telegramID int64, premium bool) (SummonResult, error) {
	u, err := s.userFor(ctx, telegramID)
	if err != nil {
		return SummonResult{}, err
	}
	cur, cost := postgres.Coins, s.rules.SummonCost
	balance := u.Coins
	if premium {
		cur, cost, balance = postgres.Gems, s.rules.PremiumSummonCost, u.Gems
	}
	if balance < cost {
		return SummonResult{}, fmt.Errorf("%w: %s needs %d, have %d", postgres.ErrInsufficientFunds, cur, cost, balance)
	}

	mode := character.ModeStandard
	forced := false
	if premium {
		mode = character.ModePremium
	} else if PityForced(u.PityCounter, s.rules.PityThreshold) {
		mode, forced = character.ModePremium, true
	}

	fx, err := s.effectsFor(ctx, s.store.Repos, u.ID)
	if err != nil {
		return SummonResult{}, err
	}
	card, err := s.store.Characters.NextCardNumber(ctx)
	if err != nil {
		return SummonResult{}, err
	}
	// Image probing can be slow; it stays outside the transaction.
	drawn := s.gen.GenerateMode(ctx, mode, card, &u.ID, fx)

	var res SummonResult
	err = s.store.WithTx(ctx, func(tx postgres.Repos) error {
		locked, err := tx.Users.GetByIDForUpdate(ctx, u.ID)
		if err != nil {
			return err
		}
		left, err := tx.Users.Spend(ctx, u.ID, cur, cost)
		if err != nil {
			return err
		}
		created, err := tx.Characters.Create(ctx, drawn)
		if err != nil {
			return err
		}
		pity := locked.PityCounter
		if !premium {
			pity = NextPity(pity, created.Rarity)
		} else if created.Rarity >= character.Rare {
			pity = 0
		}
		if err := tx.Users.SavePity(ctx, u.ID, pity); err != nil {
			return err
		}
		res = SummonResult{
			Character:     NewCharacterView(created, fx),
			Mode:          mode,
			PityTriggered: forced,
			PityCounter:   pity,
			Balance:       left,
		}
		return nil
	})
	if err != nil {
		return SummonResult{}, err
	}

	s.metrics.Summons.WithLabelValues(res.Character.Rarity.String(), mode.String()).Inc()
	s.logger.Info("summon",
		zap.Int64("user_id", u.ID),
		zap.Int64("character_id", res.Character.ID),
		zap.String("rarity", res.Character.Rarity.String()),
		zap.Stringer("mode", mode),
		zap.Bool("pity", forced),
	)
	return res, nil
}
