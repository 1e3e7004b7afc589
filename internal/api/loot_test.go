// ABOUTME: Tests for the static class and loot-table endpoints
// ABOUTME: Uses small inline YAML fixtures loaded through the loot package

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raidworks/sleeplocker/internal/loot"
	"github.com/raidworks/sleeplocker/internal/store"
)

const testClassesYAML = `
classes:
  - className: Mage
    roles: [DPS]
  - className: Priest
    roles: [Healer, DPS]
`

const testLootYAML = `
dungeons:
  - dungeonKey: mc
    locations: [Lucifron, Magmadar]
    loot:
      - itemName: Staff of Dominance
        locations: [Lucifron]
      - itemName: Crimson Shocker
        locations: [Lucifron, Magmadar]
`

func newLootTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	classesPath := filepath.Join(dir, "classes.yaml")
	lootPath := filepath.Join(dir, "loot.yaml")
	require.NoError(t, os.WriteFile(classesPath, []byte(testClassesYAML), 0644))
	require.NoError(t, os.WriteFile(lootPath, []byte(testLootYAML), 0644))

	lootCfg, err := loot.Load(classesPath, lootPath)
	require.NoError(t, err)

	st, err := store.NewSQLiteStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	mux := http.NewServeMux()
	New(st, lootCfg).RegisterRoutes(mux)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string) apiResponse {
	t.Helper()

	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestClasses(t *testing.T) {
	ts := newLootTestServer(t)

	env := get(t, ts, "/classes")
	require.True(t, env.Success)

	var classes []loot.CharacterClass
	require.NoError(t, json.Unmarshal(env.Result, &classes))
	require.Len(t, classes, 2)
	assert.Equal(t, "Mage", classes[0].ClassName)
	assert.Equal(t, []string{"Healer", "DPS"}, classes[1].Roles)
}

func TestClasses_NoConfig(t *testing.T) {
	ts, _ := newTestServer(t)

	env := get(t, ts, "/classes")
	require.True(t, env.Success)
	assert.Equal(t, "[]", string(env.Result))
}

func TestLootTable(t *testing.T) {
	ts := newLootTestServer(t)

	env := get(t, ts, "/lootTable?dungeonKey=mc")
	require.True(t, env.Success)

	var result struct {
		DungeonKey string              `json:"dungeonKey"`
		Locations  []loot.LootLocation `json:"locations"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &result))
	assert.Equal(t, "mc", result.DungeonKey)
	require.Len(t, result.Locations, 2)
	assert.Equal(t, "Lucifron", result.Locations[0].LocationName)
	assert.Equal(t, []string{"Staff of Dominance"}, result.Locations[0].Loot)
	assert.Equal(t, loot.SharedLootLocation, result.Locations[1].LocationName)
	assert.Equal(t, []string{"Crimson Shocker"}, result.Locations[1].Loot)
}

func TestLootTable_UnknownDungeon(t *testing.T) {
	ts := newLootTestServer(t)

	env := get(t, ts, "/lootTable?dungeonKey=nope")
	requireFailure(t, env, "Unknown dungeon.")
}

func TestLootTable_MissingKey(t *testing.T) {
	ts := newLootTestServer(t)

	env := get(t, ts, "/lootTable")
	requireFailure(t, env, "Invalid input.")
}
