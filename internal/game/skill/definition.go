package skill

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownSkill is returned when a skill id is not registered.
	ErrUnknownSkill = errors.New("unknown skill")
	// ErrMaxLevel is returned when upgrading a skill already at its cap.
	ErrMaxLevel = errors.New("skill already at max level")
	// ErrNotEnoughPoints is returned when a user cannot afford an upgrade.
	ErrNotEnoughPoints = errors.New("not enough skill points")
)

// Definition is the static definition of a skill, loaded from YAML.
// Effects are defined per level, not interpolated.
type Definition struct {
	ID          string
	Name        string
	Description string
	Branch      string
	MaxLevel    int
	// Costs[i] is the skill-point cost to go from level i to level i+1.
	Costs []int
	// Levels[i] is the effect table at level i+1.
	Levels []Effects
}

type definitionYAML struct {
	ID          string               `yaml:"id"`
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	Branch      string               `yaml:"branch"`
	MaxLevel    int                  `yaml:"max_level"`
	Costs       []int                `yaml:"costs"`
	Levels      []map[string]float64 `yaml:"levels"`
}

// EffectsAt returns the effect table for level. Levels above MaxLevel use the
// top table; levels <= 0 contribute nothing.
func (d *Definition) EffectsAt(level int) Effects {
	if level <= 0 || len(d.Levels) == 0 {
		return nil
	}
	if level > len(d.Levels) {
		level = len(d.Levels)
	}
	return d.Levels[level-1]
}

func (y definitionYAML) toDefinition() (*Definition, error) {
	if y.ID == "" {
		return nil, errors.New("skill id must not be empty")
	}
	if y.MaxLevel < 1 {
		return nil, fmt.Errorf("skill %q: max_level must be >= 1, got %d", y.ID, y.MaxLevel)
	}
	if len(y.Levels) != y.MaxLevel {
		return nil, fmt.Errorf("skill %q: %d level tables for max_level %d", y.ID, len(y.Levels), y.MaxLevel)
	}
	if len(y.Costs) != y.MaxLevel {
		return nil, fmt.Errorf("skill %q: %d costs for max_level %d", y.ID, len(y.Costs), y.MaxLevel)
	}
	def := &Definition{
		ID:          y.ID,
		Name:        y.Name,
		Description: y.Description,
		Branch:      y.Branch,
		MaxLevel:    y.MaxLevel,
		Costs:       y.Costs,
		Levels:      make([]Effects, len(y.Levels)),
	}
	for i, c := range y.Costs {
		if c < 1 {
			return nil, fmt.Errorf("skill %q: cost for level %d must be >= 1, got %d", y.ID, i+1, c)
		}
	}
	for i, raw := range y.Levels {
		fx := make(Effects, len(raw))
		for name, v := range raw {
			e, err := ParseEffect(name)
			if err != nil {
				return nil, fmt.Errorf("skill %q level %d: %w", y.ID, i+1, err)
			}
			if v < 0 {
				return nil, fmt.Errorf("skill %q level %d: %s must not be negative", y.ID, i+1, name)
			}
			fx[e] = v
		}
		def.Levels[i] = fx
	}
	return def, nil
}

// Registry holds all known skill Definitions keyed by ID.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds def to the registry, overwriting any existing entry with the same ID.
// Precondition: def must not be nil and def.ID must not be empty.
func (r *Registry) Register(def *Definition) {
	r.defs[def.ID] = def
}

// Get returns the Definition for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*Definition, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns every registered Definition ordered by branch then ID.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Branch != out[j].Branch {
			return out[i].Branch < out[j].Branch
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// UpgradeCost returns the skill-point cost to raise id from currentLevel to currentLevel+1.
//
// Postcondition: Returns ErrUnknownSkill or ErrMaxLevel when the upgrade is impossible.
func (r *Registry) UpgradeCost(id string, currentLevel int) (int, error) {
	d, ok := r.defs[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSkill, id)
	}
	if currentLevel >= d.MaxLevel {
		return 0, fmt.Errorf("%w: %q is level %d of %d", ErrMaxLevel, id, currentLevel, d.MaxLevel)
	}
	if currentLevel < 0 {
		currentLevel = 0
	}
	return d.Costs[currentLevel], nil
}

// LoadDirectory reads every *.yaml file in dir and returns a populated
// Registry. A file may hold one skill or a YAML sequence of skills.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails to
// parse or names an unknown effect.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading skill dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		raws, err := decodeFile(path)
		if err != nil {
			return nil, err
		}
		for _, raw := range raws {
			def, err := raw.toDefinition()
			if err != nil {
				return nil, fmt.Errorf("validating %q: %w", path, err)
			}
			if _, dup := reg.Get(def.ID); dup {
				return nil, fmt.Errorf("validating %q: duplicate skill id %q", path, def.ID)
			}
			reg.Register(def)
		}
	}
	return reg, nil
}

func decodeFile(path string) ([]definitionYAML, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		var raws []definitionYAML
		if err := dec.Decode(&raws); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		return raws, nil
	}
	var raw definitionYAML
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	return []definitionYAML{raw}, nil
}
