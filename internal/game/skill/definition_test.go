package skill_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/waifu/internal/game/skill"
)

const luckySkill = `
id: lucky_star
name: Lucky Star
description: Better odds on every summon.
branch: gacha
max_level: 3
costs: [1, 2, 3]
levels:
  - rare_chance: 0.02
  - rare_chance: 0.04
    epic_chance: 0.01
  - rare_chance: 0.06
    epic_chance: 0.02
`

func writeSkill(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func TestLoadDirectory_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "lucky.yaml", luckySkill)
	writeSkill(t, dir, "README.md", "ignored")

	reg, err := skill.LoadDirectory(dir)
	require.NoError(t, err)
	def, ok := reg.Get("lucky_star")
	require.True(t, ok)
	assert.Equal(t, "gacha", def.Branch)
	assert.Equal(t, 3, def.MaxLevel)
	assert.Equal(t, 0.04, def.EffectsAt(2).Get(skill.RareChance))
	assert.Equal(t, 0.01, def.EffectsAt(2).Get(skill.EpicChance))
	assert.Equal(t, 0.06, def.EffectsAt(99).Get(skill.RareChance), "levels above the cap use the top table")
	assert.Nil(t, def.EffectsAt(0))
}

func TestLoadDirectory_RejectsUnknownEffect(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "bad.yaml", `
id: typo
name: Typo
max_level: 1
costs: [1]
levels:
  - powr_bonus: 0.1
`)
	_, err := skill.LoadDirectory(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "powr_bonus")
}

func TestLoadDirectory_RejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "bad.yaml", `
id: x
name: X
max_level: 1
costs: [1]
levels: [{power_bonus: 0.1}]
colour: red
`)
	_, err := skill.LoadDirectory(dir)
	assert.Error(t, err)
}

func TestLoadDirectory_RejectsLevelCountMismatch(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "bad.yaml", `
id: x
name: X
max_level: 2
costs: [1, 1]
levels: [{power_bonus: 0.1}]
`)
	_, err := skill.LoadDirectory(dir)
	assert.Error(t, err)
}

func TestLoadDirectory_MissingDir(t *testing.T) {
	_, err := skill.LoadDirectory("/nonexistent/skills")
	assert.Error(t, err)
}

func TestLoadDirectory_ShippedContent(t *testing.T) {
	reg, err := skill.LoadDirectory(filepath.Join("..", "..", "..", "content", "skills"))
	require.NoError(t, err)
	assert.NotEmpty(t, reg.All())
}

func TestRegistry_UpgradeCost(t *testing.T) {
	reg := skill.NewRegistry()
	reg.Register(&skill.Definition{ID: "a", MaxLevel: 2, Costs: []int{1, 3}, Levels: []skill.Effects{{}, {}}})

	cost, err := reg.UpgradeCost("a", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, cost)

	cost, err = reg.UpgradeCost("a", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, cost)

	_, err = reg.UpgradeCost("a", 2)
	assert.True(t, errors.Is(err, skill.ErrMaxLevel))

	_, err = reg.UpgradeCost("missing", 0)
	assert.True(t, errors.Is(err, skill.ErrUnknownSkill))
}

func TestRegistry_AllIsOrdered(t *testing.T) {
	reg := skill.NewRegistry()
	reg.Register(&skill.Definition{ID: "z", Branch: "a"})
	reg.Register(&skill.Definition{ID: "b", Branch: "b"})
	reg.Register(&skill.Definition{ID: "a", Branch: "a"})
	var ids []string
	for _, d := range reg.All() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"a", "z", "b"}, ids)
}

func TestLoadDirectory_SequenceFile(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "pair.yaml", `
- id: a
  name: A
  max_level: 1
  costs: [1]
  levels: [{power_bonus: 0.1}]
- id: b
  name: B
  max_level: 1
  costs: [2]
  levels: [{charm_bonus: 0.1}]
`)
	reg, err := skill.LoadDirectory(dir)
	require.NoError(t, err)
	assert.Len(t, reg.All(), 2)
}

func TestLoadDirectory_RejectsDuplicateAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "a.yaml", luckySkill)
	writeSkill(t, dir, "b.yaml", luckySkill)
	_, err := skill.LoadDirectory(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}
