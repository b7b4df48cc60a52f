package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigbla/sigbla-app-sub004/internal/table"
	"github.com/sigbla/sigbla-app-sub004/internal/value"
)

// writeScript writes content to a temp file and returns its path.
func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScript_ValidFile(t *testing.T) {
	path := writeScript(t, `
name: basic
description: "Write one cell"
tables:
  t:
    - column: A
      cells: {0: 1}
steps:
  - op: set
    table: t
    column: [sales, "2024"]
    index: 3
    value: {decimal: "12.50"}
assertions:
  - type: cell
    table: t
    column: A
    index: 0
    expect: 1
`)

	s, err := LoadScript(path)
	require.NoError(t, err)

	assert.Equal(t, "basic", s.Name)
	require.Len(t, s.Steps, 1)
	st := s.Steps[0]
	assert.Equal(t, OpSet, st.Op)
	assert.Equal(t, table.H("sales", "2024"), st.Column.Header)
	require.NotNil(t, st.Index)
	assert.Equal(t, int64(3), *st.Index)
	assert.Equal(t, "12.50", st.Value.Value.String())
	assert.Equal(t, value.KindDecimal, value.KindOf(st.Value.Value))

	require.Len(t, s.Tables["t"], 1)
	assert.Equal(t, value.Int(1), s.Tables["t"][0].Cells[0].Value)
}

func TestLoadScript_MissingFile(t *testing.T) {
	_, err := LoadScript(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read script file")
}

func TestLoadScript_UnknownField(t *testing.T) {
	path := writeScript(t, `
name: typo
description: d
step:
  - op: compact
    table: t
assertions:
  - type: version
    table: t
`)

	_, err := LoadScript(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScript_SeedResolvedAgainstScript(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed.cue"), []byte(`table: t: {"A": {"0": 1}}`), 0644))
	path := filepath.Join(dir, "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: seeded
description: d
seed: seed.cue
steps:
  - op: compact
    table: t
assertions:
  - type: indexes
    table: t
    indexes: [0]
`), 0644))

	s, err := LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "seed.cue"), s.Seed)
}

func TestLoadScript_MissingSeed(t *testing.T) {
	path := writeScript(t, `
name: seeded
description: d
seed: nowhere.cue
steps:
  - op: compact
    table: t
assertions:
  - type: version
    table: t
`)

	_, err := LoadScript(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed file not found")
}

func TestValidate_Errors(t *testing.T) {
	base := func() *Script {
		return &Script{
			Name:        "s",
			Description: "d",
			Steps:       []Step{{Op: OpCompact, Table: "t"}},
			Assertions:  []Assertion{{Type: AssertVersion, Table: "t"}},
		}
	}
	one := int64(1)

	tests := []struct {
		name   string
		mutate func(*Script)
		want   string
	}{
		{"missing name", func(s *Script) { s.Name = "" }, "name is required"},
		{"missing description", func(s *Script) { s.Description = "" }, "description is required"},
		{"no steps", func(s *Script) { s.Steps = nil }, "steps list is required"},
		{"no assertions", func(s *Script) { s.Assertions = nil }, "assertions list is required"},
		{"missing op", func(s *Script) { s.Steps[0].Op = "" }, "op is required"},
		{"unknown op", func(s *Script) { s.Steps[0].Op = "explode" }, `unknown op "explode"`},
		{"missing table", func(s *Script) { s.Steps[0].Table = "" }, "table is required"},
		{"set without column", func(s *Script) {
			s.Steps[0] = Step{Op: OpSet, Table: "t", Index: &one}
		}, "column is required for set"},
		{"set without index", func(s *Script) {
			s.Steps[0] = Step{Op: OpSet, Table: "t", Column: Header{table.H("A")}}
		}, "index is required for set"},
		{"move without order", func(s *Script) {
			s.Steps[0] = Step{Op: OpMoveColumn, Table: "t", Column: Header{table.H("A")},
				Target: &Target{Column: Header{table.H("B")}}}
		}, "unknown placement"},
		{"move without target", func(s *Script) {
			s.Steps[0] = Step{Op: OpMoveColumn, Table: "t", Column: Header{table.H("A")}, Order: "to"}
		}, "target is required"},
		{"row move without target index", func(s *Script) {
			s.Steps[0] = Step{Op: OpMoveRow, Table: "t", Index: &one, Order: "after", Target: &Target{}}
		}, "target.index is required"},
		{"to-table without table", func(s *Script) {
			s.Steps[0] = Step{Op: OpCopyColumnToTable, Table: "t", Column: Header{table.H("A")}, Target: &Target{}}
		}, "target.table is required"},
		{"rename without to", func(s *Script) {
			s.Steps[0] = Step{Op: OpRename, Table: "t", Column: Header{table.H("A")}}
		}, "to is required for rename"},
		{"clone without name", func(s *Script) {
			s.Steps[0] = Step{Op: OpClone, Table: "t"}
		}, "name is required for clone"},
		{"bad relation", func(s *Script) {
			s.Steps[0] = Step{Op: OpRemoveRow, Table: "t", Index: &one, Relation: "near"}
		}, "near"},
		{"unknown assertion", func(s *Script) { s.Assertions[0].Type = "vibes" }, `unknown assertion type "vibes"`},
		{"cell without column", func(s *Script) {
			s.Assertions[0] = Assertion{Type: AssertCell, Table: "t"}
		}, "table and column are required"},
		{"unknown listener", func(s *Script) {
			s.Assertions[0] = Assertion{Type: AssertEventCount, Listener: "ghost"}
		}, `unknown listener "ghost"`},
		{"duplicate listener", func(s *Script) {
			s.Listeners = []ListenerSpec{{Name: "l", Table: "t"}, {Name: "l", Table: "t"}}
		}, `duplicate name "l"`},
		{"bad source", func(s *Script) {
			s.Listeners = []ListenerSpec{{Name: "l", Table: "t", Source: SourceSpec{Kind: "range"}}}
		}, "source column and to are required"},
		{"empty seeded column", func(s *Script) {
			s.Tables = map[string][]ColumnData{"t": {{}}}
		}, "column is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(s)
			err := Validate(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	require.NoError(t, Validate(base()))
}

func TestSourceSpec_Build(t *testing.T) {
	tests := []struct {
		name string
		spec SourceSpec
	}{
		{"default", SourceSpec{}},
		{"table", SourceSpec{Kind: "table"}},
		{"column", SourceSpec{Kind: "column", Column: Header{table.H("A")}}},
		{"row", SourceSpec{Kind: "row", Index: 2}},
		{"cell", SourceSpec{Kind: "cell", Column: Header{table.H("A")}, Index: 2}},
		{"range", SourceSpec{Kind: "range", Column: Header{table.H("A")}, To: Header{table.H("B")}, ToIndex: 4}},
		{"union", SourceSpec{Kind: "union", Sources: []SourceSpec{{Kind: "row"}, {Kind: "table"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := tt.spec.build()
			require.NoError(t, err)
			assert.NotNil(t, src)
		})
	}

	_, err := SourceSpec{Kind: "union"}.build()
	assert.Error(t, err)
	_, err = SourceSpec{Kind: "column"}.build()
	assert.Error(t, err)
	_, err = SourceSpec{Kind: "galaxy"}.build()
	assert.Error(t, err)
}
