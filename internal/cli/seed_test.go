package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigbla/sigbla-app-sub004/internal/store"
)

const pricesSeed = `
table: prices: {
	"item": {"0": "apple", "1": "pear"}
	"price": {"0": 1.50, "1": {double: 2.5}}
}
table: empty: {}
`

func TestSeed_SavesTables(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prices.cue", pricesSeed)
	dbPath := filepath.Join(dir, "tables.db")

	out, err := execute(t, "seed", "--db", dbPath, path)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded prices: 2 column(s), 4 cell(s)")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	infos, err := st.ListTables(t.Context())
	require.NoError(t, err)
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	assert.Contains(t, names, "prices")
}

func TestSeed_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prices.cue", pricesSeed)

	out, err := execute(t, "--format", "json", "seed", "--db", filepath.Join(dir, "t.db"), path)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   SeedResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.NotEmpty(t, resp.Data.Tables)
	assert.Equal(t, "prices", resp.Data.Tables[len(resp.Data.Tables)-1].Name)
}

func TestSeed_InvalidSeed(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.cue", `table: t: {"A": {"x": 1}}`)

	out, err := execute(t, "seed", "--db", filepath.Join(dir, "t.db"), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeInvalidSeed+"]")
	assert.Contains(t, out, "row index must be an integer")
}

func TestSeed_MissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "seed", "--db", filepath.Join(dir, "t.db"), filepath.Join(dir, "nope.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSeed_RequiresDB(t *testing.T) {
	path := writeFile(t, t.TempDir(), "prices.cue", pricesSeed)
	_, err := execute(t, "seed", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
