package event

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrGroupClosed is returned when responding to a finalized group event.
	ErrGroupClosed = errors.New("group event closed")
	// ErrNotInvited is returned when a user outside the invitation list responds.
	ErrNotInvited = errors.New("user not invited")
)

// GroupStatus is the lifecycle state of a group event.
type GroupStatus string

const (
	GroupOpen      GroupStatus = "open"
	GroupFinalized GroupStatus = "finalized"
)

// PlacementMoodBonus is the flat mood bonus for the top three finishers.
var PlacementMoodBonus = []float64{15, 10, 5}

// Participant is a user who accepted a group invitation with a character.
type Participant struct {
	UserID      int64 `json:"user_id"`
	CharacterID int64 `json:"character_id"`
}

// GroupEvent is a snapshot of a group event's state.
type GroupEvent struct {
	ID           string        `json:"id"`
	ChatID       int64         `json:"chat_id"`
	EventID      string        `json:"event_id"`
	EventName    string        `json:"event_name"`
	Invitees     []int64       `json:"invitees"`
	Participants []Participant `json:"participants"`
	Declined     []int64       `json:"declined"`
	Status       GroupStatus   `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	ExpiresAt    time.Time     `json:"expires_at"`
}

// Placement is one ranked participant in a finalized group event.
type Placement struct {
	Participant
	Rank      int     `json:"rank"`
	Score     float64 `json:"score"`
	MoodBonus float64 `json:"mood_bonus"`
}

// GroupResult is the outcome of finalizing a group event.
type GroupResult struct {
	EventID          string      `json:"event_id"`
	Event            GroupEvent  `json:"event"`
	NoParticipants   bool        `json:"no_participants"`
	AlreadyFinalized bool        `json:"already_finalized"`
	Placements       []Placement `json:"placements"`
}

// Settler scores and rewards group participants. ScoreParticipant errors
// exclude that participant from the ranking.
type Settler interface {
	ScoreParticipant(ctx context.Context, ev GroupEvent, p Participant) (float64, error)
	Settle(ctx context.Context, res GroupResult) error
}

type groupState struct {
	ev       GroupEvent
	invited  map[int64]bool
	accepted map[int64]int64
	declined map[int64]bool
	order    []int64
	timer    *Timer
}

// Finalized events stay readable for this many windows.
const groupRetention = 10

// GroupBook tracks group events and finalizes each one exactly once.
type GroupBook struct {
	mu       sync.Mutex
	registry *Registry
	window   time.Duration
	settler  Settler
	logger   *zap.Logger
	now      func() time.Time
	events   map[string]*groupState
}

// NewGroupBook creates a GroupBook whose events collect responses for window.
//
// Precondition: window > 0; registry, settler and logger must be non-nil.
func NewGroupBook(registry *Registry, window time.Duration, settler Settler, logger *zap.Logger) *GroupBook {
	return &GroupBook{
		registry: registry,
		window:   window,
		settler:  settler,
		logger:   logger,
		now:      time.Now,
		events:   make(map[string]*groupState),
	}
}

// Start opens a group event in chatID for eventID and schedules finalization
// after the window.
func (b *GroupBook) Start(chatID int64, eventID string, invitees []int64) (GroupEvent, error) {
	def, ok := b.registry.Get(eventID)
	if !ok {
		return GroupEvent{}, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	now := b.now()
	st := &groupState{
		ev: GroupEvent{
			ID:        uuid.NewString(),
			ChatID:    chatID,
			EventID:   def.ID,
			EventName: def.Name,
			Invitees:  append([]int64(nil), invitees...),
			Status:    GroupOpen,
			StartedAt: now,
			ExpiresAt: now.Add(b.window),
		},
		invited:  make(map[int64]bool, len(invitees)),
		accepted: make(map[int64]int64),
		declined: make(map[int64]bool),
	}
	for _, u := range invitees {
		st.invited[u] = true
	}

	b.mu.Lock()
	b.pruneLocked(now)
	b.events[st.ev.ID] = st
	id := st.ev.ID
	st.timer = NewTimer(b.window, func() { b.finalizeFromTimer(id) })
	snap := st.snapshot()
	b.mu.Unlock()

	b.logger.Info("group event started",
		zap.String("group_id", id),
		zap.Int64("chat_id", chatID),
		zap.String("event", eventID),
		zap.Int("invitees", len(invitees)),
	)
	return snap, nil
}

// Get returns a snapshot of the group event with id.
func (b *GroupBook) Get(id string) (GroupEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.events[id]
	if !ok {
		return GroupEvent{}, false
	}
	return st.snapshot(), true
}

// Respond records userID's answer. Accepting again replaces the chosen
// character. An empty invitation list admits anyone.
func (b *GroupBook) Respond(id string, userID, characterID int64, accept bool) (GroupEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.events[id]
	if !ok {
		return GroupEvent{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	if st.ev.Status != GroupOpen || !b.now().Before(st.ev.ExpiresAt) {
		return st.snapshot(), ErrGroupClosed
	}
	if len(st.invited) > 0 && !st.invited[userID] {
		return st.snapshot(), ErrNotInvited
	}
	if accept {
		if _, seen := st.accepted[userID]; !seen {
			st.order = append(st.order, userID)
		}
		st.accepted[userID] = characterID
		delete(st.declined, userID)
	} else {
		if _, was := st.accepted[userID]; was {
			delete(st.accepted, userID)
			st.order = removeID(st.order, userID)
		}
		st.declined[userID] = true
	}
	return st.snapshot(), nil
}

// Finalize closes the event, scores every participant, ranks them by score
// and settles rewards. Calling it again, or on an event nobody joined,
// returns a NoParticipants result without error.
func (b *GroupBook) Finalize(ctx context.Context, id string) (GroupResult, error) {
	b.mu.Lock()
	st, ok := b.events[id]
	if !ok {
		b.mu.Unlock()
		return GroupResult{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	if st.ev.Status == GroupFinalized {
		snap := st.snapshot()
		b.mu.Unlock()
		return GroupResult{EventID: id, Event: snap, NoParticipants: true, AlreadyFinalized: true}, nil
	}
	st.ev.Status = GroupFinalized
	if st.timer != nil {
		st.timer.Stop()
	}
	snap := st.snapshot()
	b.mu.Unlock()

	res := GroupResult{EventID: id, Event: snap}
	if len(snap.Participants) == 0 {
		res.NoParticipants = true
		b.logger.Info("group event finalized without participants", zap.String("group_id", id))
		return res, nil
	}

	for _, p := range snap.Participants {
		score, err := b.settler.ScoreParticipant(ctx, snap, p)
		if err != nil {
			b.logger.Warn("group participant excluded",
				zap.String("group_id", id),
				zap.Int64("user_id", p.UserID),
				zap.Error(err),
			)
			continue
		}
		res.Placements = append(res.Placements, Placement{Participant: p, Score: score})
	}
	sort.SliceStable(res.Placements, func(i, j int) bool {
		return res.Placements[i].Score > res.Placements[j].Score
	})
	for i := range res.Placements {
		res.Placements[i].Rank = i + 1
		if i < len(PlacementMoodBonus) {
			res.Placements[i].MoodBonus = PlacementMoodBonus[i]
		}
	}
	if len(res.Placements) == 0 {
		res.NoParticipants = true
		return res, nil
	}
	if err := b.settler.Settle(ctx, res); err != nil {
		return res, fmt.Errorf("settling group event %s: %w", id, err)
	}
	b.logger.Info("group event finalized",
		zap.String("group_id", id),
		zap.Int("placements", len(res.Placements)),
	)
	return res, nil
}

func (b *GroupBook) finalizeFromTimer(id string) {
	if _, err := b.Finalize(context.Background(), id); err != nil {
		b.logger.Error("group event finalization failed", zap.String("group_id", id), zap.Error(err))
	}
}

// pruneLocked drops finalized events that expired more than groupRetention
// windows ago.
func (b *GroupBook) pruneLocked(now time.Time) {
	cutoff := now.Add(-groupRetention * b.window)
	for id, st := range b.events {
		if st.ev.Status == GroupFinalized && st.ev.ExpiresAt.Before(cutoff) {
			delete(b.events, id)
		}
	}
}

// Close stops every pending finalization timer.
func (b *GroupBook) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, st := range b.events {
		if st.timer != nil {
			st.timer.Stop()
		}
	}
}

func (st *groupState) snapshot() GroupEvent {
	ev := st.ev
	ev.Invitees = append([]int64(nil), st.ev.Invitees...)
	ev.Participants = make([]Participant, 0, len(st.order))
	for _, u := range st.order {
		ev.Participants = append(ev.Participants, Participant{UserID: u, CharacterID: st.accepted[u]})
	}
	ev.Declined = make([]int64, 0, len(st.declined))
	for u := range st.declined {
		ev.Declined = append(ev.Declined, u)
	}
	sort.Slice(ev.Declined, func(i, j int) bool { return ev.Declined[i] < ev.Declined[j] })
	return ev
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
