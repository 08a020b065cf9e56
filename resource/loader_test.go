package resource

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeJSON writes v as JSON to dir/filename.
func writeJSON(t *testing.T, dir, filename string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), data, 0644))
}

func TestLoader_BuiltinCatalogValid(t *testing.T) {
	rl := NewLoader("")
	require.NoError(t, rl.Load())

	assert.Len(t, rl.Moves(), len(builtinMoves))
	assert.Len(t, rl.Species(), len(builtinSpecies))
	assert.NotEmpty(t, rl.Teams())

	m := rl.MoveByID(5)
	require.NotNil(t, m)
	assert.Equal(t, "Flamethrower", m.Name)
	assert.Equal(t, Fire, m.Type)

	s := rl.SpeciesByID(6)
	require.NotNil(t, s)
	assert.True(t, s.HasType(Flying))
	assert.False(t, s.HasType(Water))

	assert.Nil(t, rl.MoveByID(999))
	assert.Nil(t, rl.SpeciesByID(999))
	assert.Nil(t, rl.Team("nope"))
}

func TestLoader_OrderedListings(t *testing.T) {
	rl := NewLoader("")
	require.NoError(t, rl.Load())
	moves := rl.Moves()
	for i := 1; i < len(moves); i++ {
		assert.Less(t, moves[i-1].ID, moves[i].ID)
	}
	species := rl.Species()
	for i := 1; i < len(species); i++ {
		assert.Less(t, species[i-1].ID, species[i].ID)
	}
}

func TestLoader_MissingDirIsBuiltinOnly(t *testing.T) {
	rl := NewLoader(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, rl.Load())
	assert.NotNil(t, rl.SpeciesByID(25))
}

func TestLoader_Overrides(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "moves.json", []interface{}{
		nil,
		map[string]interface{}{"id": 100, "name": "Aqua Jet", "type": "water", "power": 40, "accuracy": 100, "pp": 20},
		map[string]interface{}{"id": 1, "name": "Tackle", "type": "normal", "power": 50, "accuracy": 100, "pp": 35},
	})
	writeJSON(t, dir, "species.json", []interface{}{
		map[string]interface{}{
			"id": 500, "name": "Testmon", "types": []string{"water"},
			"base_stats": map[string]int{"hp": 50, "attack": 50, "defense": 50, "sp_attack": 50, "sp_defense": 50, "speed": 50},
			"moves":      []int{100, 1},
		},
	})
	writeJSON(t, dir, "teams.json", []interface{}{
		map[string]interface{}{"id": "custom", "name": "Custom", "species": []int{500, 25}},
	})

	rl := NewLoader(dir)
	require.NoError(t, rl.Load())

	assert.Equal(t, 50, rl.MoveByID(1).Power)
	require.NotNil(t, rl.MoveByID(100))
	assert.Equal(t, Water, rl.MoveByID(100).Type)
	require.NotNil(t, rl.SpeciesByID(500))
	require.NotNil(t, rl.Team("custom"))
	assert.Equal(t, []int{500, 25}, rl.Team("custom").Species)
}

func TestLoader_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "moves.json"), []byte("{not json"), 0644))
	err := NewLoader(dir).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoader_RejectsUnknownMoveReference(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "species.json", []interface{}{
		map[string]interface{}{
			"id": 501, "name": "Broken", "types": []string{"fire"},
			"base_stats": map[string]int{"hp": 10},
			"moves":      []int{4242},
		},
	})
	err := NewLoader(dir).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown move")
}

func TestLoader_RejectsStatusMoveWithoutEffect(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "moves.json", []interface{}{
		map[string]interface{}{"id": 200, "name": "Splash", "type": "water", "power": 0, "accuracy": 100},
	})
	require.Error(t, NewLoader(dir).Load())
}

func TestLoader_RejectsOversizedTeam(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "teams.json", []interface{}{
		map[string]interface{}{"id": "big", "species": []int{1, 4, 7, 25, 26, 39, 52}},
	})
	require.Error(t, NewLoader(dir).Load())
}

func TestStatEffect_JSON(t *testing.T) {
	m := NewLoader("").MoveByID(28)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stat":"attack"`)
	assert.Contains(t, string(data), `"self":true`)
}
