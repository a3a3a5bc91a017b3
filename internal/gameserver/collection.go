package gameserver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/waifu/internal/game/account"
	"github.com/cory-johannsen/waifu/internal/storage/postgres"
)

// Profile returns the user's account summary with their current effects.
func (s *Service) Profile(ctx context.Context, telegramID int64) (Profile, error) {
	u, err := s.userFor(ctx, telegramID)
	if err != nil {
		return Profile{}, err
	}
	fx, err := s.effectsFor(ctx, s.store.Repos, u.ID)
	if err != nil {
		return Profile{}, err
	}
	return newProfile(u, fx), nil
}

// Waifus lists the user's characters, favorites first.
func (s *Service) Waifus(ctx context.Context, telegramID int64) ([]CharacterView, error) {
	u, err := s.userFor(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	fx, err := s.effectsFor(ctx, s.store.Repos, u.ID)
	if err != nil {
		return nil, err
	}
	chars, err := s.store.Characters.ListByOwner(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	out := make([]CharacterView, 0, len(chars))
	for _, c := range chars {
		out = append(out, NewCharacterView(c, fx))
	}
	return out, nil
}

// Waifu returns one of the user's characters.
//
// Postcondition: Returns ErrNotOwner for a character owned by someone else.
func (s *Service) Waifu(ctx context.Context, telegramID, characterID int64) (CharacterView, error) {
	u, err := s.userFor(ctx, telegramID)
	if err != nil {
		return CharacterView{}, err
	}
	c, err := ownedCharacter(ctx, s.store.Repos, characterID, u.ID, false)
	if err != nil {
		return CharacterView{}, err
	}
	fx, err := s.effectsFor(ctx, s.store.Repos, u.ID)
	if err != nil {
		return CharacterView{}, err
	}
	return NewCharacterView(c, fx), nil
}

// SetFavorite marks or unmarks one of the user's characters as a favorite.
func (s *Service) SetFavorite(ctx context.Context, telegramID, characterID int64, favorite bool) error {
	u, err := s.userFor(ctx, telegramID)
	if err != nil {
		return err
	}
	if _, err := ownedCharacter(ctx, s.store.Repos, characterID, u.ID, false); err != nil {
		return err
	}
	return s.store.Characters.SetFavorite(ctx, characterID, u.ID, favorite)
}

// Activate makes characterID the user's single active character.
func (s *Service) Activate(ctx context.Context, telegramID, characterID int64) error {
	u, err := s.userFor(ctx, telegramID)
	if err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(tx postgres.Repos) error {
		if _, err := ownedCharacter(ctx, tx, characterID, u.ID, true); err != nil {
			return err
		}
		return tx.Characters.SetActive(ctx, characterID, u.ID)
	})
}

// Chat records one chat message from the user in chatID and credits the
// daily-capped coin reward and account experience.
func (s *Service) Chat(ctx context.Context, telegramID int64, username string, chatID int64) (ChatOutcome, error) {
	u, err := s.store.Users.GetOrCreateByTelegramID(ctx, telegramID, username)
	if err != nil {
		return ChatOutcome{}, fmt.Errorf("resolving user %d: %w", telegramID, err)
	}
	now := s.now()
	var out ChatOutcome
	err = s.store.WithTx(ctx, func(tx postgres.Repos) error {
		locked, err := tx.Users.GetByIDForUpdate(ctx, u.ID)
		if err != nil {
			return err
		}
		r := locked.RecordChat(s.rules.Chat, now)
		if err := tx.Users.SaveChatState(ctx, locked); err != nil {
			return err
		}
		out = chatOutcome(locked, r)
		return nil
	})
	if err != nil {
		return ChatOutcome{}, err
	}
	if chatID != 0 {
		if err := s.activity.Touch(ctx, chatID, u.ID, now); err != nil {
			s.logger.Warn("recording chat activity failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
	return out, nil
}

func chatOutcome(u *account.User, r account.ChatResult) ChatOutcome {
	return ChatOutcome{
		ChatResult:   r,
		Coins:        u.Coins,
		AccountLevel: u.AccountLevel,
		SkillPoints:  u.SkillPoints,
	}
}

// ClearWaifus deletes every character and resets card numbering.
func (s *Service) ClearWaifus(ctx context.Context) (int64, error) {
	n, err := s.store.Characters.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Warn("cleared all characters", zap.Int64("deleted", n))
	return n, nil
}
