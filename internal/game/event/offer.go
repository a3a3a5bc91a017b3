package event

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/waifu/internal/game/dice"
)

var (
	// ErrOfferNotFound is returned for an unknown offer id.
	ErrOfferNotFound = errors.New("offer not found")
	// ErrOfferExpired is returned when the accept window has passed.
	ErrOfferExpired = errors.New("offer expired")
	// ErrOfferResolved is returned when the offer was already accepted or declined.
	ErrOfferResolved = errors.New("offer already resolved")
	// ErrNotOfferOwner is returned when a user responds to someone else's offer.
	ErrNotOfferOwner = errors.New("offer belongs to another user")
	// ErrNoEvents is returned when no event definitions are loaded.
	ErrNoEvents = errors.New("no events available")
)

// OfferStatus is the lifecycle state of a solo offer.
type OfferStatus string

const (
	OfferOpen     OfferStatus = "open"
	OfferAccepted OfferStatus = "accepted"
	OfferDeclined OfferStatus = "declined"
	OfferExpired  OfferStatus = "expired"
)

// Offer is a random solo event proposed to one user.
type Offer struct {
	ID        string      `json:"id"`
	UserID    int64       `json:"user_id"`
	EventID   string      `json:"event_id"`
	EventName string      `json:"event_name"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
	Status    OfferStatus `json:"status"`
}

// OfferBook tracks open solo offers. Each user has at most one open offer.
type OfferBook struct {
	mu       sync.Mutex
	registry *Registry
	src      dice.Source
	window   time.Duration
	now      func() time.Time

	offers map[string]*Offer
	byUser map[int64]string
	timers map[string]*Timer
}

// NewOfferBook creates an OfferBook whose offers stay open for window.
//
// Precondition: window > 0.
func NewOfferBook(registry *Registry, src dice.Source, window time.Duration) *OfferBook {
	return &OfferBook{
		registry: registry,
		src:      src,
		window:   window,
		now:      time.Now,
		offers:   make(map[string]*Offer),
		byUser:   make(map[int64]string),
		timers:   make(map[string]*Timer),
	}
}

// Offer opens a random solo offer for userID, or returns the user's
// existing open offer.
func (b *OfferBook) Offer(userID int64) (Offer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id, ok := b.byUser[userID]; ok {
		if o := b.offers[id]; o != nil && o.Status == OfferOpen && b.now().Before(o.ExpiresAt) {
			return *o, nil
		}
	}
	defs := b.registry.All()
	if len(defs) == 0 {
		return Offer{}, ErrNoEvents
	}
	def := dice.Pick(b.src, defs)
	now := b.now()
	o := &Offer{
		ID:        uuid.NewString(),
		UserID:    userID,
		EventID:   def.ID,
		EventName: def.Name,
		CreatedAt: now,
		ExpiresAt: now.Add(b.window),
		Status:    OfferOpen,
	}
	b.pruneLocked(now)
	b.offers[o.ID] = o
	b.byUser[userID] = o.ID
	b.timers[o.ID] = NewTimer(b.window, func() { b.expire(o.ID) })
	return *o, nil
}

// Get returns the offer with id.
func (b *OfferBook) Get(id string) (Offer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.offers[id]
	if !ok {
		return Offer{}, false
	}
	return *o, true
}

// Accept resolves offer id as accepted by userID.
func (b *OfferBook) Accept(id string, userID int64) (Offer, error) {
	return b.resolve(id, userID, OfferAccepted)
}

// Decline resolves offer id as declined by userID.
func (b *OfferBook) Decline(id string, userID int64) (Offer, error) {
	return b.resolve(id, userID, OfferDeclined)
}

// Reopen returns an accepted offer to the open state so the user can retry
// with another character before the window closes.
func (b *OfferBook) Reopen(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.offers[id]; ok && o.Status == OfferAccepted && b.now().Before(o.ExpiresAt) {
		o.Status = OfferOpen
	}
}

func (b *OfferBook) resolve(id string, userID int64, to OfferStatus) (Offer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.offers[id]
	if !ok {
		return Offer{}, fmt.Errorf("%w: %s", ErrOfferNotFound, id)
	}
	if o.UserID != userID {
		return Offer{}, ErrNotOfferOwner
	}
	if o.Status == OfferOpen && !b.now().Before(o.ExpiresAt) {
		o.Status = OfferExpired
	}
	switch o.Status {
	case OfferExpired:
		return *o, ErrOfferExpired
	case OfferAccepted, OfferDeclined:
		return *o, ErrOfferResolved
	}
	o.Status = to
	return *o, nil
}

func (b *OfferBook) expire(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.offers[id]; ok && o.Status == OfferOpen {
		o.Status = OfferExpired
	}
	delete(b.timers, id)
}

// pruneLocked drops closed offers older than two windows.
func (b *OfferBook) pruneLocked(now time.Time) {
	for id, o := range b.offers {
		if o.Status != OfferOpen && now.Sub(o.ExpiresAt) > b.window {
			delete(b.offers, id)
			if b.byUser[o.UserID] == id {
				delete(b.byUser, o.UserID)
			}
		}
	}
}

// Close stops every pending expiry timer.
func (b *OfferBook) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, t := range b.timers {
		t.Stop()
		delete(b.timers, id)
	}
}
