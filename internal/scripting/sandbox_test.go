package scripting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

func TestNewSandboxedState_StripsUnsafeGlobals(t *testing.T) {
	L := NewSandboxedState()
	defer L.Close()
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require", "os", "io"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), name)
	}
	assert.NotEqual(t, lua.LNil, L.GetGlobal("math"))
	assert.NotEqual(t, lua.LNil, L.GetGlobal("string"))
}

func TestWithLimit_StopsRunawayScript(t *testing.T) {
	L := NewSandboxedState()
	defer L.Close()
	err := withLimit(L, 1000, func() error { return L.DoString(`while true do end`) })
	require.Error(t, err)

	err = withLimit(L, 1000, func() error { return L.DoString(`x = 1 + 1`) })
	assert.NoError(t, err, "each call gets a fresh budget")
}
