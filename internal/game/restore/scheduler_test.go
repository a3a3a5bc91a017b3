package restore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/waifu/internal/game/character"
	"github.com/cory-johannsen/waifu/internal/game/restore"
	"github.com/cory-johannsen/waifu/internal/game/skill"
	"github.com/cory-johannsen/waifu/internal/observability"
)

type memStore struct {
	mu      sync.Mutex
	chars   []*character.Character
	saved   [][]*character.Character
	listErr error
}

func (m *memStore) ListAllForRestore(context.Context) ([]*character.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*character.Character, len(m.chars))
	for i, c := range m.chars {
		cp := *c
		if c.Dynamic != nil {
			d := *c.Dynamic
			cp.Dynamic = &d
		}
		out[i] = &cp
	}
	return out, nil
}

func (m *memStore) SaveDynamicBatch(_ context.Context, chars []*character.Character) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, chars)
	return nil
}

func (m *memStore) batches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

type effectsByOwner map[int64]skill.Effects

func (e effectsByOwner) Effects(_ context.Context, userID int64) (skill.Effects, error) {
	fx, ok := e[userID]
	if !ok {
		return nil, errors.New("effects unavailable")
	}
	return fx, nil
}

func owner(id int64) *int64 { return &id }

func newScheduler(store restore.Store, fx skill.EffectSource, m *observability.Metrics) *restore.Scheduler {
	return restore.NewScheduler(store, fx, time.Hour, zap.NewNop(), m)
}

func TestSweep_IsolatesFailures(t *testing.T) {
	past := time.Now().Add(-10 * time.Minute)
	store := &memStore{chars: []*character.Character{
		{ID: 1, Level: 1, OwnerID: owner(7), Dynamic: &character.Dynamic{Energy: 10, MaxEnergy: 100, LastRestore: past}},
		{ID: 2, Level: 1, OwnerID: owner(8), Dynamic: &character.Dynamic{Energy: 10, MaxEnergy: 100, LastRestore: past}},
		{ID: 3, Level: 1},
		{ID: 4, Level: 1, Dynamic: &character.Dynamic{Energy: 10, MaxEnergy: 100, LastRestore: time.Now()}},
	}}
	m := observability.NewMetrics()
	s := newScheduler(store, effectsByOwner{7: {skill.MaxEnergy: 10}}, m)

	rep, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Evaluated)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 2, rep.Updated)

	require.Equal(t, 1, store.batches())
	ids := []int64{store.saved[0][0].ID, store.saved[0][1].ID}
	assert.ElementsMatch(t, []int64{1, 3}, ids)
	assert.Equal(t, 110, store.saved[0][0].Dynamic.MaxEnergy)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RestoreSweeps))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RestoreFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RestoreUpdated))
}

func TestSweep_NothingToSave(t *testing.T) {
	store := &memStore{chars: []*character.Character{
		{ID: 1, Level: 1, Dynamic: &character.Dynamic{Energy: 10, MaxEnergy: 100, LastRestore: time.Now()}},
	}}
	rep, err := newScheduler(store, effectsByOwner{}, observability.NewMetrics()).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Updated)
	assert.Equal(t, 0, store.batches())
}

func TestSweep_ListError(t *testing.T) {
	store := &memStore{listErr: errors.New("db down")}
	_, err := newScheduler(store, effectsByOwner{}, observability.NewMetrics()).Sweep(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestScheduler_StartStop(t *testing.T) {
	store := &memStore{chars: []*character.Character{{ID: 1, Level: 1}}}
	s := restore.NewScheduler(store, effectsByOwner{}, 10*time.Millisecond, zap.NewNop(), observability.NewMetrics())

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()
	require.Eventually(t, func() bool { return store.batches() > 0 }, time.Second, 5*time.Millisecond)
	s.Stop()
	require.NoError(t, <-done)
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	s := newScheduler(&memStore{}, effectsByOwner{}, observability.NewMetrics())
	s.Stop()
	s.Stop()
}
