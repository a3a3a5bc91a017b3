package event_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/waifu/internal/game/character"
	"github.com/cory-johannsen/waifu/internal/game/event"
)

func write(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func TestLoadDirectory_SingleAndSequence(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "one.yaml", `
id: library
name: Library Study
description: Hit the books.
stats: [intellect]
bonus_profession: scholar
reward: {coins: 25, experience: 15}
`)
	write(t, dir, "many.yaml", `
- id: sprint
  name: Sprint
  stats: [speed, power]
  energy_cost: 30
  reward: {coins: 10, experience: 5}
- id: kitsune_night
  name: Kitsune Night
  stats: [charm, luck]
  filter: {type: race, value: kitsune}
  script: kitsune_bonus
  reward: {coins: 40, experience: 20}
`)
	reg, err := event.LoadDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())

	lib, ok := reg.Get("library")
	require.True(t, ok)
	assert.Equal(t, []character.StatName{character.StatIntellect}, lib.Stats)
	assert.Equal(t, int64(25), lib.Reward.Coins)

	k, ok := reg.Get("kitsune_night")
	require.True(t, ok)
	assert.Equal(t, event.FilterRace, k.Filter.Type)
	assert.Equal(t, "kitsune_bonus", k.Script)

	ids := []string{}
	for _, d := range reg.All() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"kitsune_night", "library", "sprint"}, ids)
}

func TestLoadDirectory_RejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown stat":  "id: x\nname: X\nstats: [stamina]\n",
		"no stats":      "id: x\nname: X\n",
		"unknown field": "id: x\nname: X\nstats: [luck]\ncolour: red\n",
		"bad filter":    "id: x\nname: X\nstats: [luck]\nfilter: {type: height, value: tall}\n",
		"filter value":  "id: x\nname: X\nstats: [luck]\nfilter: {type: race}\n",
		"rarity value":  "id: x\nname: X\nstats: [luck]\nfilter: {type: rarity, value: Epic}\n",
		"negative cost": "id: x\nname: X\nstats: [luck]\nenergy_cost: -1\n",
		"missing id":    "name: X\nstats: [luck]\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			write(t, dir, "bad.yaml", body)
			_, err := event.LoadDirectory(dir)
			assert.Error(t, err)
		})
	}
}

func TestLoadDirectory_RejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.yaml", "id: x\nname: X\nstats: [luck]\n")
	write(t, dir, "b.yaml", "id: x\nname: Y\nstats: [luck]\n")
	_, err := event.LoadDirectory(dir)
	assert.Error(t, err)
}

func TestLoadDirectory_ShippedContent(t *testing.T) {
	reg, err := event.LoadDirectory(filepath.Join("..", "..", "..", "content", "events"))
	require.NoError(t, err)
	assert.Greater(t, reg.Len(), 0)
}
