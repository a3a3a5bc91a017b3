package skill_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/waifu/internal/game/skill"
)

func TestParseEffect_KnownNames(t *testing.T) {
	for _, e := range skill.AllEffects() {
		got, err := skill.ParseEffect(e.String())
		require.NoError(t, err)
		assert.Equal(t, e, got)
	}
	assert.Len(t, skill.AllEffects(), 19)
}

func TestParseEffect_RejectsTypo(t *testing.T) {
	_, err := skill.ParseEffect("rare_chanse")
	assert.Error(t, err)
}

func TestEffects_GetDefaultsToZero(t *testing.T) {
	var fx skill.Effects
	assert.Equal(t, 0.0, fx.Get(skill.PowerBonus))
}

func TestEffects_JSONUsesNames(t *testing.T) {
	fx := skill.Effects{skill.RareChance: 0.05, skill.MaxEnergy: 10}
	data, err := json.Marshal(fx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rare_chance":0.05,"max_energy":10}`, string(data))

	var back skill.Effects
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, fx, back)

	assert.Error(t, json.Unmarshal([]byte(`{"bogus":1}`), &back))
}

func TestEffects_MergeIsAdditiveAndPure(t *testing.T) {
	a := skill.Effects{skill.PowerBonus: 0.1}
	b := skill.Effects{skill.PowerBonus: 0.2, skill.LuckBonus: 0.05}
	m := a.Merge(b)
	assert.InDelta(t, 0.3, m.Get(skill.PowerBonus), 1e-9)
	assert.InDelta(t, 0.05, m.Get(skill.LuckBonus), 1e-9)
	assert.Equal(t, 0.1, a.Get(skill.PowerBonus))
	assert.Len(t, b, 2)
}

func TestEffects_Property_MergeCommutes(t *testing.T) {
	all := skill.AllEffects()
	gen := rapid.MapOf(rapid.SampledFrom(all), rapid.Float64Range(0, 1))
	rapid.Check(t, func(rt *rapid.T) {
		a := skill.Effects(gen.Draw(rt, "a"))
		b := skill.Effects(gen.Draw(rt, "b"))
		ab := a.Merge(b)
		ba := b.Merge(a)
		for _, e := range all {
			if d := ab.Get(e) - ba.Get(e); d > 1e-12 || d < -1e-12 {
				rt.Fatalf("merge not commutative for %s", e)
			}
		}
	})
}
