package gameserver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/waifu/internal/game/character"
	"github.com/cory-johannsen/waifu/internal/game/dice"
	"github.com/cory-johannsen/waifu/internal/game/event"
	"github.com/cory-johannsen/waifu/internal/storage/postgres"
)

// EventView describes an event definition for listing.
type EventView struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	Description     string               `json:"description"`
	Stats           []character.StatName `json:"stats"`
	BonusProfession string               `json:"bonus_profession,omitempty"`
	EnergyCost      int                  `json:"energy_cost"`
	Reward          event.Reward         `json:"reward"`
	FilterType      event.FilterType     `json:"filter_type,omitempty"`
	FilterValue     string               `json:"filter_value,omitempty"`
}

// Events lists every registered event with the base energy cost.
func (s *Service) Events() []EventView {
	defs := s.events.All()
	out := make([]EventView, 0, len(defs))
	for _, d := range defs {
		out = append(out, EventView{
			ID:              d.ID,
			Name:            d.Name,
			Description:     d.Description,
			Stats:           d.Stats,
			BonusProfession: d.BonusProfession,
			EnergyCost:      event.EnergyCost(d, nil),
			Reward:          d.Reward,
			FilterType:      d.Filter.Type,
			FilterValue:     d.Filter.Value,
		})
	}
	return out
}

// Participate enters one of the user's characters into eventID. An
// ineligible character is reported through the result, not as an error.
//
// Postcondition: on an eligible attempt the character's progress and the
// user's coin balance are updated in one transaction.
func (s *Service) Participate(ctx context.Context, telegramID, characterID int64, eventID string) (ParticipationResult, error) {
	u, err := s.userFor(ctx, telegramID)
	if err != nil {
		return ParticipationResult{}, err
	}
	def, ok := s.events.Get(eventID)
	if !ok {
		s.metrics.EventParticipations.WithLabelValues(eventID, "unknown").Inc()
		return ParticipationResult{
			EventID:     eventID,
			EventName:   event.UnknownEventName,
			Eligibility: event.Eligibility{Reason: event.ReasonUnknownEvent},
		}, nil
	}

	res := ParticipationResult{EventID: def.ID, EventName: def.Name}
	err = s.store.WithTx(ctx, func(tx postgres.Repos) error {
		c, err := ownedCharacter(ctx, tx, characterID, u.ID, true)
		if err != nil {
			return err
		}
		fx, err := s.effectsFor(ctx, tx, u.ID)
		if err != nil {
			return err
		}
		res.EnergyCost = event.EnergyCost(def, fx)
		res.Eligibility = s.engine.Eligible(c, res.EnergyCost)
		if !res.Eligibility.OK {
			return nil
		}
		score := s.engine.ScoreDefinition(c, def)
		out := s.engine.Apply(c, event.RewardsFor(score, def, fx), res.EnergyCost)
		out.Score = score
		if err := tx.Characters.SaveProgress(ctx, c); err != nil {
			return err
		}
		balance, err := tx.Users.Credit(ctx, u.ID, postgres.Coins, out.Reward.Coins)
		if err != nil {
			return err
		}
		view := NewCharacterView(c, fx)
		res.Outcome, res.Character, res.Balance = &out, &view, balance
		return nil
	})
	if err != nil {
		return ParticipationResult{}, err
	}

	result := "rejected"
	if res.Eligibility.OK {
		result = "completed"
		if res.Outcome.LevelUp != nil {
			s.metrics.LevelUps.Add(float64(res.Outcome.LevelUp.LevelsGained()))
		}
	}
	s.metrics.EventParticipations.WithLabelValues(def.ID, result).Inc()
	return res, nil
}

// OpenOffer returns the user's open solo offer, drawing a new one if none is open.
func (s *Service) OpenOffer(ctx context.Context, telegramID int64) (event.Offer, error) {
	u, err := s.userFor(ctx, telegramID)
	if err != nil {
		return event.Offer{}, err
	}
	return s.offers.Offer(u.ID)
}

// AcceptOffer resolves an offer by participating with characterID. The offer
// is reopened when the attempt fails or the character is ineligible, so the
// user may retry with another character before it expires.
func (s *Service) AcceptOffer(ctx context.Context, telegramID int64, offerID string, characterID int64) (ParticipationResult, error) {
	u, err := s.userFor(ctx, telegramID)
	if err != nil {
		return ParticipationResult{}, err
	}
	o, err := s.offers.Accept(offerID, u.ID)
	if err != nil {
		return ParticipationResult{}, err
	}
	res, err := s.Participate(ctx, telegramID, characterID, o.EventID)
	if err != nil || !res.Eligibility.OK {
		s.offers.Reopen(offerID)
	}
	return res, err
}

// DeclineOffer closes the user's offer without participating.
func (s *Service) DeclineOffer(ctx context.Context, telegramID int64, offerID string) (event.Offer, error) {
	u, err := s.userFor(ctx, telegramID)
	if err != nil {
		return event.Offer{}, err
	}
	return s.offers.Decline(offerID, u.ID)
}

// StartGroupEvent opens a group event in chatID, inviting the users active
// there within the activity window. eventID may be empty for a random event.
func (s *Service) StartGroupEvent(ctx context.Context, chatID int64, eventID string) (event.GroupEvent, error) {
	if eventID == "" {
		defs := s.events.All()
		if len(defs) == 0 {
			return event.GroupEvent{}, event.ErrNoEvents
		}
		eventID = dice.Pick(s.src, defs).ID
	}
	invitees, err := s.activity.ActiveSince(ctx, chatID, s.now().Add(-s.rules.ActivityWindow))
	if err != nil {
		s.logger.Warn("loading chat activity failed; group open to all", zap.Int64("chat_id", chatID), zap.Error(err))
		invitees = nil
	}
	return s.groups.Start(chatID, eventID, invitees)
}

// GroupEvent returns a group event snapshot.
func (s *Service) GroupEvent(id string) (event.GroupEvent, bool) {
	return s.groups.Get(id)
}

// RespondGroup records the user's answer to a group event. Accepting
// requires one of the user's own characters.
func (s *Service) RespondGroup(ctx context.Context, telegramID int64, groupID string, characterID int64, accept bool) (event.GroupEvent, error) {
	u, err := s.userFor(ctx, telegramID)
	if err != nil {
		return event.GroupEvent{}, err
	}
	if accept {
		if _, err := ownedCharacter(ctx, s.store.Repos, characterID, u.ID, false); err != nil {
			return event.GroupEvent{}, err
		}
	}
	return s.groups.Respond(groupID, u.ID, characterID, accept)
}

// FinalizeGroup settles a group event ahead of its timer.
func (s *Service) FinalizeGroup(ctx context.Context, groupID string) (event.GroupResult, error) {
	return s.groups.Finalize(ctx, groupID)
}

// ScoreParticipant scores p's character for ev. An ineligible or foreign
// character returns an error and is left out of the placements.
func (s *Service) ScoreParticipant(ctx context.Context, ev event.GroupEvent, p event.Participant) (float64, error) {
	def, ok := s.events.Get(ev.EventID)
	if !ok {
		return 0, fmt.Errorf("%w: %q", event.ErrEventNotFound, ev.EventID)
	}
	c, err := ownedCharacter(ctx, s.store.Repos, p.CharacterID, p.UserID, false)
	if err != nil {
		return 0, err
	}
	fx, err := s.effectsFor(ctx, s.store.Repos, p.UserID)
	if err != nil {
		return 0, err
	}
	if el := s.engine.Eligible(c, event.EnergyCost(def, fx)); !el.OK {
		return 0, fmt.Errorf("character %d: %s", c.ID, el.Reason)
	}
	return s.engine.ScoreDefinition(c, def), nil
}

// Settle applies rewards and placement mood bonuses for a finalized group
// event. Each placement commits separately; failures are joined.
func (s *Service) Settle(ctx context.Context, res event.GroupResult) error {
	def, ok := s.events.Get(res.EventID)
	if !ok {
		s.metrics.GroupEvents.WithLabelValues("failed").Inc()
		return fmt.Errorf("%w: %q", event.ErrEventNotFound, res.EventID)
	}
	var errs []error
	for _, pl := range res.Placements {
		if err := s.settlePlacement(ctx, def, pl); err != nil {
			errs = append(errs, fmt.Errorf("settling user %d: %w", pl.UserID, err))
		}
	}
	outcome := "settled"
	if len(errs) > 0 {
		outcome = "failed"
	}
	s.metrics.GroupEvents.WithLabelValues(outcome).Inc()
	return errors.Join(errs...)
}

func (s *Service) settlePlacement(ctx context.Context, def *event.Definition, pl event.Placement) error {
	return s.store.WithTx(ctx, func(tx postgres.Repos) error {
		c, err := ownedCharacter(ctx, tx, pl.CharacterID, pl.UserID, true)
		if err != nil {
			return err
		}
		fx, err := s.effectsFor(ctx, tx, pl.UserID)
		if err != nil {
			return err
		}
		out := s.engine.Apply(c, event.RewardsFor(pl.Score, def, fx), event.EnergyCost(def, fx))
		if pl.MoodBonus > 0 {
			event.AddMood(c, pl.MoodBonus, s.now())
		}
		if err := tx.Characters.SaveProgress(ctx, c); err != nil {
			return err
		}
		if _, err := tx.Users.Credit(ctx, pl.UserID, postgres.Coins, out.Reward.Coins); err != nil {
			return err
		}
		if out.LevelUp != nil {
			s.metrics.LevelUps.Add(float64(out.LevelUp.LevelsGained()))
		}
		return nil
	})
}

var _ event.Settler = (*Service)(nil)
