package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/waifu/internal/game/character"
	"github.com/cory-johannsen/waifu/internal/game/dice"
	"github.com/cory-johannsen/waifu/internal/game/event"
)

// Manager owns one sandboxed LState holding every loaded hook.
//
// An LState is single-threaded, so every call holds the mutex.
type Manager struct {
	mu        sync.Mutex
	L         *lua.LState
	instLimit int
	src       dice.Source
	logger    *zap.Logger
}

// NewManager creates a Manager with an empty VM. instLimit <= 0 uses
// DefaultInstructionLimit.
//
// Precondition: src and logger must be non-nil.
func NewManager(src dice.Source, logger *zap.Logger, instLimit int) *Manager {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	m := &Manager{instLimit: instLimit, src: src, logger: logger}
	m.L = NewSandboxedState()
	m.RegisterModules(m.L)
	return m
}

// LoadDirectory executes every *.lua file in dir in lexicographic order.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns the number of files loaded, or the first load error.
func (m *Manager) LoadDirectory(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("scripting: reading %q: %w", path, err)
		}
		if err := m.LoadString(string(src)); err != nil {
			return 0, fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}
	return len(files), nil
}

// LoadString executes a chunk of Lua source in the shared VM.
func (m *Manager) LoadString(src string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return withLimit(m.L, m.instLimit, func() error { return m.L.DoString(src) })
}

// HasHook reports whether a global function named hook is defined.
func (m *Manager) HasHook(hook string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.L.GetGlobal(hook).(*lua.LFunction)
	return ok
}

// CallHook calls the named global function with args. Returns (LNil, false)
// when the hook is undefined or fails; runtime errors are logged at Warn.
//
// Postcondition: Returns the first return value and true on success.
func (m *Manager) CallHook(hook string, args ...lua.LValue) (lua.LValue, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fn, ok := m.L.GetGlobal(hook).(*lua.LFunction)
	if !ok {
		m.logger.Debug("scripting: hook not defined", zap.String("hook", hook))
		return lua.LNil, false
	}
	err := withLimit(m.L, m.instLimit, func() error {
		return m.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...)
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error", zap.String("hook", hook), zap.Error(err))
		m.L.SetTop(0)
		return lua.LNil, false
	}
	ret := m.L.Get(-1)
	m.L.Pop(1)
	return ret, true
}

// AdjustScore calls hook(character, event, score) and uses a numeric return
// value as the new score. Any failure or non-number result keeps score.
func (m *Manager) AdjustScore(hook string, c *character.Character, def *event.Definition, score float64) float64 {
	m.mu.Lock()
	charTbl := characterTable(m.L, c)
	eventTbl := eventTable(m.L, def)
	m.mu.Unlock()

	ret, ok := m.CallHook(hook, charTbl, eventTbl, lua.LNumber(score))
	if !ok {
		return score
	}
	n, isNum := ret.(lua.LNumber)
	if !isNum {
		m.logger.Warn("scripting: score hook returned non-number",
			zap.String("hook", hook),
			zap.String("type", ret.Type().String()),
		)
		return score
	}
	adjusted := float64(n)
	if adjusted < 0 {
		adjusted = 0
	}
	return adjusted
}

// Close releases the VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.L.Close()
}

func characterTable(L *lua.LState, c *character.Character) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "name", lua.LString(c.Name))
	L.SetField(t, "rarity", lua.LString(c.Rarity.String()))
	L.SetField(t, "race", lua.LString(c.Race))
	L.SetField(t, "profession", lua.LString(c.Profession))
	L.SetField(t, "nationality", lua.LString(c.Nationality))
	L.SetField(t, "level", lua.LNumber(c.Level))
	stats := L.NewTable()
	for _, s := range character.StatNames {
		L.SetField(stats, string(s), lua.LNumber(c.Stats.Get(s)))
	}
	L.SetField(t, "stats", stats)
	if d := c.Dynamic; d != nil {
		L.SetField(t, "energy", lua.LNumber(d.Energy))
		L.SetField(t, "mood", lua.LNumber(d.Mood))
		L.SetField(t, "loyalty", lua.LNumber(d.Loyalty))
	}
	tags := L.NewTable()
	for _, tag := range c.Tags {
		tags.Append(lua.LString(tag))
	}
	L.SetField(t, "tags", tags)
	return t
}

func eventTable(L *lua.LState, def *event.Definition) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "id", lua.LString(def.ID))
	L.SetField(t, "name", lua.LString(def.Name))
	L.SetField(t, "bonus_profession", lua.LString(def.BonusProfession))
	L.SetField(t, "filter_type", lua.LString(string(def.Filter.Type)))
	L.SetField(t, "filter_value", lua.LString(def.Filter.Value))
	return t
}
