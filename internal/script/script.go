package script

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sigbla/sigbla-app-sub004/internal/table"
)

// Script is a deterministic sequence of table operations with
// assertions over the outcome.
type Script struct {
	// Name uniquely identifies this script. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this script demonstrates.
	Description string `yaml:"description"`

	// Seed is an optional CUE file applied before the inline tables.
	// Relative paths are resolved against the script file's directory.
	Seed string `yaml:"seed,omitempty"`

	// Tables holds inline initial data, keyed by table name. Columns are
	// created in list order.
	Tables map[string][]ColumnData `yaml:"tables,omitempty"`

	// Listeners are subscribed after seeding and before the first step.
	Listeners []ListenerSpec `yaml:"listeners,omitempty"`

	// Steps are applied in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final tables and the trace.
	Assertions []Assertion `yaml:"assertions"`
}

// ColumnData is one seeded column.
type ColumnData struct {
	Column Header            `yaml:"column"`
	Cells  map[int64]Literal `yaml:"cells"`
}

// ListenerSpec subscribes a listener that records every event it
// receives into the trace.
type ListenerSpec struct {
	Name        string     `yaml:"name"`
	Table       string     `yaml:"table"`
	Source      SourceSpec `yaml:"source"`
	Order       int        `yaml:"order,omitempty"`
	SkipHistory bool       `yaml:"skip_history,omitempty"`
}

// SourceSpec selects the cells a listener observes.
type SourceSpec struct {
	// Kind is one of table, column, row, cell, range, union.
	Kind string `yaml:"kind"`

	Column  Header       `yaml:"column,omitempty"`
	Index   int64        `yaml:"index,omitempty"`
	To      Header       `yaml:"to,omitempty"`
	ToIndex int64        `yaml:"to_index,omitempty"`
	Sources []SourceSpec `yaml:"sources,omitempty"`
}

// Step is one operation.
type Step struct {
	// Op names the operation; see the Op* constants.
	Op string `yaml:"op"`

	Table    string `yaml:"table"`
	Column   Header `yaml:"column,omitempty"`
	Index    *int64 `yaml:"index,omitempty"`
	Relation string `yaml:"relation,omitempty"`

	// Order is the placement for moves and copies: to, before, after.
	Order string `yaml:"order,omitempty"`

	// Target is the right-hand side of moves, copies, and swaps. An empty
	// target table means the step's own table.
	Target *Target `yaml:"target,omitempty"`

	// To is the new name for rename, and the optional new name for
	// column moves and copies.
	To Header `yaml:"to,omitempty"`

	// Name is the new table name for clone.
	Name string `yaml:"name,omitempty"`

	// Value is written by set. Null clears the cell.
	Value Literal `yaml:"value,omitempty"`

	// ExpectError is the error code the step must fail with, for
	// example INVALID_COLUMN.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Target addresses the right-hand side of a step.
type Target struct {
	Table  string `yaml:"table,omitempty"`
	Column Header `yaml:"column,omitempty"`
	Index  *int64 `yaml:"index,omitempty"`
}

// Step operations.
const (
	OpSet               = "set"
	OpClear             = "clear"
	OpMoveColumn        = "move_column"
	OpCopyColumn        = "copy_column"
	OpMoveColumnToTable = "move_column_to_table"
	OpCopyColumnToTable = "copy_column_to_table"
	OpRename            = "rename"
	OpRemoveColumn      = "remove_column"
	OpMoveRow           = "move_row"
	OpCopyRow           = "copy_row"
	OpRemoveRow         = "remove_row"
	OpSwapColumns       = "swap_columns"
	OpSwapRows          = "swap_rows"
	OpClone             = "clone"
	OpCompact           = "compact"
	OpRemoveTable       = "remove_table"
)

// Assertion validates the final state or the trace.
type Assertion struct {
	// Type is one of cell, headers, indexes, version, event_count.
	Type string `yaml:"type"`

	Table    string `yaml:"table,omitempty"`
	Column   Header `yaml:"column,omitempty"`
	Index    int64  `yaml:"index,omitempty"`
	Relation string `yaml:"relation,omitempty"`

	// Expect is the expected cell value (cell). Null expects absent.
	Expect Literal `yaml:"expect,omitempty"`

	// Headers is the expected visible header order (headers).
	Headers []Header `yaml:"headers,omitempty"`

	// Indexes is the expected row index list (indexes).
	Indexes []int64 `yaml:"indexes,omitempty"`

	// Version is the expected table version (version).
	Version int64 `yaml:"version,omitempty"`

	// Listener and Count check how many events a listener received
	// (event_count).
	Listener string `yaml:"listener,omitempty"`
	Count    int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertCell       = "cell"
	AssertHeaders    = "headers"
	AssertIndexes    = "indexes"
	AssertVersion    = "version"
	AssertEventCount = "event_count"
)

// LoadScript reads and parses a script YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}

	s, err := ParseScript(data)
	if err != nil {
		return nil, err
	}

	// Resolve the seed path relative to the script before validation
	if s.Seed != "" && !filepath.IsAbs(s.Seed) {
		s.Seed = filepath.Join(filepath.Dir(path), s.Seed)
	}

	if err := validateScript(s); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	return s, nil
}

// ParseScript parses script YAML without validating it.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &s, nil
}

// Validate checks a parsed script. LoadScript calls it.
func Validate(s *Script) error {
	return validateScript(s)
}

func validateScript(s *Script) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Seed != "" {
		if _, err := os.Stat(s.Seed); os.IsNotExist(err) {
			return fmt.Errorf("seed file not found: %s", s.Seed)
		}
	}

	for name, columns := range s.Tables {
		for i, c := range columns {
			if c.Column.IsZero() {
				return fmt.Errorf("tables.%s[%d]: column is required", name, i)
			}
		}
	}

	names := make(map[string]bool)
	for i, l := range s.Listeners {
		if l.Name == "" {
			return fmt.Errorf("listeners[%d]: name is required", i)
		}
		if names[l.Name] {
			return fmt.Errorf("listeners[%d]: duplicate name %q", i, l.Name)
		}
		names[l.Name] = true
		if l.Table == "" {
			return fmt.Errorf("listeners[%d]: table is required", i)
		}
		if _, err := l.Source.build(); err != nil {
			return fmt.Errorf("listeners[%d]: %w", i, err)
		}
	}

	for i := range s.Steps {
		if err := validateStep(&s.Steps[i]); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(&s.Assertions[i], names); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(st *Step) error {
	if st.Table == "" {
		return fmt.Errorf("table is required")
	}
	if st.Relation != "" {
		if _, err := table.ParseIndexRelation(st.Relation); err != nil {
			return err
		}
	}

	needColumn := func() error {
		if st.Column.IsZero() {
			return fmt.Errorf("column is required for %s", st.Op)
		}
		return nil
	}
	needIndex := func() error {
		if st.Index == nil {
			return fmt.Errorf("index is required for %s", st.Op)
		}
		return nil
	}
	needTarget := func(column, index bool) error {
		if st.Target == nil {
			return fmt.Errorf("target is required for %s", st.Op)
		}
		if column && st.Target.Column.IsZero() {
			return fmt.Errorf("target.column is required for %s", st.Op)
		}
		if index && st.Target.Index == nil {
			return fmt.Errorf("target.index is required for %s", st.Op)
		}
		return nil
	}
	needOrder := func() error {
		_, err := table.ParsePlacement(st.Order)
		return err
	}

	switch st.Op {
	case OpSet:
		if err := needColumn(); err != nil {
			return err
		}
		return needIndex()
	case OpClear, OpCompact, OpRemoveTable:
		return nil
	case OpMoveColumn, OpCopyColumn:
		if err := needColumn(); err != nil {
			return err
		}
		if err := needOrder(); err != nil {
			return err
		}
		return needTarget(true, false)
	case OpMoveColumnToTable, OpCopyColumnToTable:
		if err := needColumn(); err != nil {
			return err
		}
		if err := needTarget(false, false); err != nil {
			return err
		}
		if st.Target.Table == "" {
			return fmt.Errorf("target.table is required for %s", st.Op)
		}
		return nil
	case OpRename:
		if err := needColumn(); err != nil {
			return err
		}
		if st.To.IsZero() {
			return fmt.Errorf("to is required for rename")
		}
		return nil
	case OpRemoveColumn:
		return needColumn()
	case OpMoveRow, OpCopyRow:
		if err := needIndex(); err != nil {
			return err
		}
		if err := needOrder(); err != nil {
			return err
		}
		return needTarget(false, true)
	case OpRemoveRow:
		return needIndex()
	case OpSwapColumns:
		if err := needColumn(); err != nil {
			return err
		}
		return needTarget(true, false)
	case OpSwapRows:
		if err := needIndex(); err != nil {
			return err
		}
		return needTarget(false, true)
	case OpClone:
		if st.Name == "" {
			return fmt.Errorf("name is required for clone")
		}
		return nil
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
}

func validateAssertion(a *Assertion, listeners map[string]bool) error {
	switch a.Type {
	case AssertCell:
		if a.Table == "" || a.Column.IsZero() {
			return fmt.Errorf("table and column are required for cell")
		}
		if a.Relation != "" {
			if _, err := table.ParseIndexRelation(a.Relation); err != nil {
				return err
			}
		}
	case AssertHeaders, AssertIndexes, AssertVersion:
		if a.Table == "" {
			return fmt.Errorf("table is required for %s", a.Type)
		}
	case AssertEventCount:
		if !listeners[a.Listener] {
			return fmt.Errorf("unknown listener %q for event_count", a.Listener)
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for event_count")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// build converts the listener source into a table.Source.
func (s SourceSpec) build() (table.Source, error) {
	switch s.Kind {
	case "table", "":
		return table.TableSource(), nil
	case "column":
		if s.Column.IsZero() {
			return nil, fmt.Errorf("source column is required")
		}
		return table.ColumnSource(s.Column.Header), nil
	case "row":
		return table.RowSource(s.Index), nil
	case "cell":
		if s.Column.IsZero() {
			return nil, fmt.Errorf("source column is required")
		}
		return table.CellSource(s.Column.Header, s.Index), nil
	case "range":
		if s.Column.IsZero() || s.To.IsZero() {
			return nil, fmt.Errorf("source column and to are required for range")
		}
		return table.RangeSource(s.Column.Header, s.Index, s.To.Header, s.ToIndex), nil
	case "union":
		if len(s.Sources) == 0 {
			return nil, fmt.Errorf("union needs at least one source")
		}
		parts := make([]table.Source, 0, len(s.Sources))
		for i, sub := range s.Sources {
			src, err := sub.build()
			if err != nil {
				return nil, fmt.Errorf("sources[%d]: %w", i, err)
			}
			parts = append(parts, src)
		}
		return table.Union(parts...), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", s.Kind)
	}
}
