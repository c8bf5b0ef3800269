package agent

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRoster(t *testing.T) {
	r := DefaultRoster()

	assert.Equal(t, []string{"beacon", "forge", "echo", "scout", "sentinel"}, r.IDs())
	assert.Equal(t, 5, r.Len())

	beacon, ok := r.Lookup("beacon")
	require.True(t, ok)
	assert.Equal(t, "Product Strategist", beacon.Role)
	assert.Equal(t, "🎯 Beacon", beacon.Label())

	_, ok = r.Lookup("ghost")
	assert.False(t, ok)
}

func TestNewRoster_Validation(t *testing.T) {
	_, err := NewRoster(nil)
	assert.Error(t, err)

	_, err = NewRoster([]Agent{{ID: "a"}, {ID: "a"}})
	assert.ErrorContains(t, err, "duplicate")

	_, err = NewRoster([]Agent{{ID: "  "}})
	assert.Error(t, err)

	_, err = NewRoster([]Agent{{ID: "../etc"}})
	assert.Error(t, err)
}

func TestNewRoster_DefaultsName(t *testing.T) {
	r, err := NewRoster([]Agent{{ID: "nova", Role: "Ops"}})
	require.NoError(t, err)

	a, ok := r.Lookup("nova")
	require.True(t, ok)
	assert.Equal(t, "Nova", a.Name)
	assert.Equal(t, "Nova", a.Label())
}

func TestRoster_AllReturnsCopy(t *testing.T) {
	r := DefaultRoster()
	all := r.All()
	all[0].Name = "changed"

	a, _ := r.Lookup("beacon")
	assert.Equal(t, "Beacon", a.Name)
}

func TestPaths(t *testing.T) {
	assert.Equal(t, filepath.Join("/root", "forge", "memory", "WORKING.md"), MemoryFile("/root", "forge"))
	assert.Equal(t, filepath.Join("/root", "forge", "notes"), NotesDir("/root", "forge"))
}
