package script

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigbla/sigbla-app-sub004/internal/table"
	"github.com/sigbla/sigbla-app-sub004/internal/testutil"
	"github.com/sigbla/sigbla-app-sub004/internal/value"
)

func findColumn(t *testing.T, st SeedTable, h table.Header) SeedColumn {
	t.Helper()
	for _, c := range st.Columns {
		if c.Header == h {
			return c
		}
	}
	t.Fatalf("column %s not in seed", h)
	return SeedColumn{}
}

func TestParseSeed_Kinds(t *testing.T) {
	seed, err := ParseSeed([]byte(`
table: inventory: {
	"name": {"0": "widget", "2": "gadget", "1": null}
	"qty": {"0": 3, "1": 99999999999999999999}
	"price": {"0": 12.50}
	"notes/web": {"0": {web: "<i>new</i>"}}
	"ratio": {"0": {double: 0.25}, "1": {bigint: "7"}}
}
`), "inline.cue")
	require.NoError(t, err)
	require.Len(t, seed.Tables, 1)

	st := seed.Tables[0]
	assert.Equal(t, "inventory", st.Name)
	require.Len(t, st.Columns, 5)

	name := findColumn(t, st, table.H("name"))
	require.Len(t, name.Entries, 2, "null leaves the cell absent")
	assert.Equal(t, int64(0), name.Entries[0].Index)
	assert.Equal(t, int64(2), name.Entries[1].Index, "entries are sorted by index")
	assert.Equal(t, value.Text("gadget"), name.Entries[1].Value)

	qty := findColumn(t, st, table.H("qty"))
	assert.Equal(t, value.Int(3), qty.Entries[0].Value)
	assert.Equal(t, value.KindBigInt, value.KindOf(qty.Entries[1].Value))
	assert.Equal(t, "99999999999999999999", qty.Entries[1].Value.String())

	price := findColumn(t, st, table.H("price"))
	assert.Equal(t, value.KindDecimal, value.KindOf(price.Entries[0].Value))
	assert.True(t, value.Equal(value.NewDecimal(125, -1), price.Entries[0].Value))

	web := findColumn(t, st, table.H("notes", "web"))
	assert.Equal(t, value.Web("<i>new</i>"), web.Entries[0].Value)

	ratio := findColumn(t, st, table.H("ratio"))
	assert.Equal(t, value.Double(0.25), ratio.Entries[0].Value)
	assert.Equal(t, value.KindBigInt, value.KindOf(ratio.Entries[1].Value))
}

func TestParseSeed_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", `table: {`, "failed to compile seed"},
		{"no table", `other: 1`, "seed has no table field"},
		{"bad index", `table: t: {"A": {"first": 1}}`, "row index must be an integer"},
		{"bool value", `table: t: {"A": {"0": true}}`, "unsupported seed value"},
		{"list value", `table: t: {"A": {"0": [1]}}`, "unsupported seed value"},
		{"two kinds", `table: t: {"A": {"0": {int: 1, text: "x"}}}`, "exactly one kind field"},
		{"unknown kind", `table: t: {"A": {"0": {color: "red"}}}`, "unknown kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSeed([]byte(tt.src), "bad.cue")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSeed_ErrorCarriesPosition(t *testing.T) {
	_, err := ParseSeed([]byte("table: t: {\n\t\"A\": {\"x\": 1}\n}\n"), "pos.cue")
	require.Error(t, err)

	var se *SeedError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Pos, "pos.cue:2")
}

func TestSeed_Apply(t *testing.T) {
	seed, err := LoadSeed("testdata/seeds/prices.cue")
	require.NoError(t, err)

	reg := table.NewRegistry(table.WithIDGenerator(testutil.NewSequentialIDs("t")))
	require.NoError(t, seed.Apply(context.Background(), reg))

	tbl, ok := reg.Lookup("prices")
	require.True(t, ok)
	assert.ElementsMatch(t,
		[]table.Header{table.H("item"), table.H("price"), table.H("stock", "count")},
		tbl.Headers())
	assert.Equal(t, []int64{0, 1}, tbl.Indexes())
	assert.Equal(t, value.Text("pear"), tbl.Get(table.H("item"), 1, table.IndexAt).Value)
	assert.Equal(t, value.Double(2.5), tbl.Get(table.H("price"), 1, table.IndexAt).Value)
}

func TestSeed_ApplyIsOneBatch(t *testing.T) {
	seed, err := ParseSeed([]byte(`table: t: {"A": {"0": 1, "1": 2}, "B": {"0": 3}}`), "batch.cue")
	require.NoError(t, err)

	reg := table.NewRegistry()
	tbl := reg.Table("t")
	var calls, events int
	_, err = tbl.Subscribe(context.Background(), table.TableSource(), func(_ context.Context, evs table.Events) error {
		calls++
		events += len(evs)
		return nil
	}, table.SkipHistory())
	require.NoError(t, err)

	require.NoError(t, seed.Apply(context.Background(), reg))
	assert.Equal(t, 1, calls, "one delivery per seeded table")
	assert.Equal(t, 3, events)
}

func TestLoadSeed_MissingFile(t *testing.T) {
	_, err := LoadSeed("testdata/seeds/missing.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read seed file")
}
