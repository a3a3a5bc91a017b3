// Package event implements timed mini-events: definitions loaded from YAML,
// the eligibility, scoring and reward engine, solo offers, group events and
// the automatic group-event scheduler.
package event

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/waifu/internal/game/character"
)

// ErrEventNotFound is returned when an event id is not registered.
var ErrEventNotFound = errors.New("event not found")

// FilterType selects which character descriptor a themed event matches on.
type FilterType string

const (
	FilterNone        FilterType = ""
	FilterRace        FilterType = "race"
	FilterProfession  FilterType = "profession"
	FilterNationality FilterType = "nationality"
	FilterRarity      FilterType = "rarity"
)

// Filter restricts an event's bonus to matching characters.
type Filter struct {
	Type  FilterType `yaml:"type"`
	Value string     `yaml:"value"`
}

// Reward is a base or computed (coins, experience) pair.
type Reward struct {
	Coins      int64   `yaml:"coins" json:"coins"`
	Experience int64   `yaml:"experience" json:"experience"`
	Multiplier float64 `yaml:"-" json:"multiplier,omitempty"`
}

// Definition is the static definition of an event, loaded from YAML.
type Definition struct {
	ID              string               `yaml:"id"`
	Name            string               `yaml:"name"`
	Description     string               `yaml:"description"`
	Stats           []character.StatName `yaml:"stats"`
	BonusProfession string               `yaml:"bonus_profession"`
	// EnergyCost overrides the base cost when > 0.
	EnergyCost int    `yaml:"energy_cost"`
	Reward     Reward `yaml:"reward"`
	Filter     Filter `yaml:"filter"`
	// Script names a Lua function that may adjust the score.
	Script string `yaml:"script"`
}

// Validate checks the definition's invariants.
func (d *Definition) Validate() error {
	var errs []string
	if d.ID == "" {
		errs = append(errs, "id must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "name must not be empty")
	}
	if len(d.Stats) == 0 {
		errs = append(errs, "stats must not be empty")
	}
	for _, s := range d.Stats {
		if !character.ValidStat(s) {
			errs = append(errs, fmt.Sprintf("unknown stat %q", s))
		}
	}
	if d.EnergyCost < 0 {
		errs = append(errs, "energy_cost must not be negative")
	}
	if d.Reward.Coins < 0 || d.Reward.Experience < 0 {
		errs = append(errs, "reward values must not be negative")
	}
	switch d.Filter.Type {
	case FilterNone:
	case FilterRace, FilterProfession, FilterNationality:
		if d.Filter.Value == "" {
			errs = append(errs, fmt.Sprintf("filter %q requires a value", d.Filter.Type))
		}
	case FilterRarity:
		if d.Filter.Value != "" {
			errs = append(errs, "rarity filter takes no value")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown filter type %q", d.Filter.Type))
	}
	if len(errs) > 0 {
		return fmt.Errorf("event %q: %s", d.ID, strings.Join(errs, "; "))
	}
	return nil
}

// Registry holds all known event Definitions keyed by ID.
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

// All returns every Definition ordered by ID.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int { return len(r.defs) }

// LoadDirectory reads every *.yaml file in dir. A file may hold a single
// definition or a YAML sequence of definitions.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails to parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading event dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		defs, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		for _, def := range defs {
			if err := def.Validate(); err != nil {
				return nil, fmt.Errorf("validating %q: %w", path, err)
			}
			if _, dup := reg.Get(def.ID); dup {
				return nil, fmt.Errorf("validating %q: duplicate event id %q", path, def.ID)
			}
			reg.Register(def)
		}
	}
	return reg, nil
}

func loadFile(path string) ([]*Definition, error) {
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
		var defs []*Definition
		if err := dec.Decode(&defs); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		return defs, nil
	}
	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	return []*Definition{&def}, nil
}
