package script

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"golang.org/x/text/unicode/norm"

	"github.com/sigbla/sigbla-app-sub004/internal/table"
	"github.com/sigbla/sigbla-app-sub004/internal/value"
)

// Seed is the content of a CUE seed file: tables in file order, each
// with columns in file order.
type Seed struct {
	Tables []SeedTable
}

// SeedTable is one seeded table.
type SeedTable struct {
	Name    string
	Columns []SeedColumn
}

// SeedColumn is one seeded column. Entries are sorted by index.
type SeedColumn struct {
	Header  table.Header
	Entries []table.Entry
}

// SeedError reports a seed value that could not be converted, with its
// CUE position.
type SeedError struct {
	Path    string
	Message string
	Pos     string
}

func (e *SeedError) Error() string {
	if e.Pos != "" {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// LoadSeed compiles a CUE seed file.
//
// The file declares `table: <name>: <column>: {"<index>": value}`.
// Column keys hold labels joined by "/". CUE ints become Int (BigInt when
// they do not fit), floats become Decimal so their digits survive,
// strings become Text, and null leaves the cell absent. Other kinds are
// written as a one-key struct, for example {web: "<b>x</b>"} or
// {double: 2.5}.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data, path)
}

// ParseSeed compiles seed CUE source. filename is used in positions.
func ParseSeed(data []byte, filename string) (*Seed, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile seed: %w", err)
	}

	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return nil, fmt.Errorf("seed has no table field")
	}

	tables, err := tablesVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("table: %w", err)
	}

	seed := &Seed{}
	for tables.Next() {
		name := tables.Selector().Unquoted()
		st, err := parseSeedTable(name, tables.Value())
		if err != nil {
			return nil, err
		}
		seed.Tables = append(seed.Tables, st)
	}
	return seed, nil
}

func parseSeedTable(name string, v cue.Value) (SeedTable, error) {
	st := SeedTable{Name: name}

	columns, err := v.Fields()
	if err != nil {
		return st, &SeedError{Path: "table." + name, Message: err.Error(), Pos: posOf(v)}
	}
	for columns.Next() {
		key := columns.Selector().Unquoted()
		path := fmt.Sprintf("table.%s.%q", name, key)

		h, err := table.NewHeader(strings.Split(key, "/")...)
		if err != nil {
			return st, &SeedError{Path: path, Message: err.Error(), Pos: posOf(columns.Value())}
		}
		entries, err := parseSeedCells(path, columns.Value())
		if err != nil {
			return st, err
		}
		st.Columns = append(st.Columns, SeedColumn{Header: h, Entries: entries})
	}
	return st, nil
}

func parseSeedCells(path string, v cue.Value) ([]table.Entry, error) {
	cells, err := v.Fields()
	if err != nil {
		return nil, &SeedError{Path: path, Message: err.Error(), Pos: posOf(v)}
	}

	var entries []table.Entry
	for cells.Next() {
		key := cells.Selector().Unquoted()
		cellPath := fmt.Sprintf("%s.%q", path, key)

		index, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, &SeedError{Path: cellPath, Message: "row index must be an integer", Pos: posOf(cells.Value())}
		}
		val, err := cueValue(cells.Value())
		if err != nil {
			return nil, &SeedError{Path: cellPath, Message: err.Error(), Pos: posOf(cells.Value())}
		}
		if val == nil {
			continue
		}
		entries = append(entries, table.Entry{Index: index, Value: val})
	}

	slices.SortFunc(entries, func(a, b table.Entry) int {
		switch {
		case a.Index < b.Index:
			return -1
		case a.Index > b.Index:
			return 1
		default:
			return 0
		}
	})
	return entries, nil
}

// cueValue converts one concrete CUE value.
func cueValue(v cue.Value) (value.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, err
		}
		return value.Text(norm.NFC.String(s)), nil
	case cue.IntKind:
		if i, err := v.Int64(); err == nil {
			return value.Int(i), nil
		}
		n, err := v.Int(nil)
		if err != nil {
			return nil, err
		}
		return value.NewBigInt(n), nil
	case cue.FloatKind:
		raw, err := numberText(v)
		if err != nil {
			return nil, err
		}
		return value.ParseDecimal(raw)
	case cue.StructKind:
		return typedCUEValue(v)
	default:
		return nil, fmt.Errorf("unsupported seed value of kind %s", v.Kind())
	}
}

// typedCUEValue reads {<kind>: raw}.
func typedCUEValue(v cue.Value) (value.Value, error) {
	fields, err := v.Fields()
	if err != nil {
		return nil, err
	}

	var kind string
	var raw cue.Value
	n := 0
	for fields.Next() {
		kind = fields.Selector().Unquoted()
		raw = fields.Value()
		n++
	}
	if n != 1 {
		return nil, fmt.Errorf("typed value needs exactly one kind field, got %d", n)
	}

	var text string
	switch raw.Kind() {
	case cue.StringKind:
		text, err = raw.String()
	case cue.IntKind, cue.FloatKind:
		text, err = numberText(raw)
	default:
		err = fmt.Errorf("%s value must be a string or a number", kind)
	}
	if err != nil {
		return nil, err
	}
	return parseTyped(kind, text)
}

// numberText returns the literal digits of a CUE number.
func numberText(v cue.Value) (string, error) {
	b, err := v.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func posOf(v cue.Value) string {
	pos := v.Pos()
	if !pos.IsValid() {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", pos.Filename(), pos.Line(), pos.Column())
}

// Apply writes the seed into reg. Tables are created on demand and
// columns are materialized in seed order before any cell is written, so
// column order follows the file even for columns without cells.
func (s *Seed) Apply(ctx context.Context, reg *table.Registry) error {
	for _, st := range s.Tables {
		t := reg.Table(st.Name)
		for _, c := range st.Columns {
			if _, err := t.Column(c.Header); err != nil {
				return fmt.Errorf("seed %s%s: %w", st.Name, c.Header, err)
			}
		}
		err := t.Batch(ctx, func(ctx context.Context) error {
			for _, c := range st.Columns {
				for _, e := range c.Entries {
					if err := t.Set(ctx, c.Header, e.Index, e.Value); err != nil {
						return fmt.Errorf("seed %s%s@%d: %w", st.Name, c.Header, e.Index, err)
					}
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
