package table

import (
	"maps"
	"slices"
	"sync/atomic"

	"github.com/sigbla/sigbla-app-sub004/internal/value"
)

// ColumnMeta holds the position rank of a column and whether it has ever
// been written.
type ColumnMeta struct {
	// Order ranks columns left to right. Unique within a table.
	Order int64

	// Prenatal columns exist as metadata only and are hidden from Headers
	// and Indexes until their first write.
	Prenatal bool
}

// Ref is an immutable snapshot of a table.
//
// A Ref is never modified after it has been published. Each mutation
// derives a new Ref that shares the *Cells of every untouched column with
// its predecessor.
//
// INVARIANTS:
//   - columns and cells have exactly the same key set
//   - version increases by one per committed mutation
//   - counter is shared by every Ref of the same table
type Ref struct {
	columns map[Header]ColumnMeta
	cells   map[Header]*Cells
	version int64
	counter *atomic.Int64
}

func newRef() *Ref {
	return &Ref{
		columns: make(map[Header]ColumnMeta),
		cells:   make(map[Header]*Cells),
		counter: new(atomic.Int64),
	}
}

// next returns a writable successor: maps are shallow-copied and the
// version is bumped. Callers mutate the maps before publishing it.
func (r *Ref) next() *Ref {
	return &Ref{
		columns: maps.Clone(r.columns),
		cells:   maps.Clone(r.cells),
		version: r.version + 1,
		counter: r.counter,
	}
}

// detach copies r with a private column counter starting after the
// highest order in use.
func (r *Ref) detach() *Ref {
	counter := new(atomic.Int64)
	counter.Store(r.counter.Load())
	return &Ref{
		columns: r.columns,
		cells:   r.cells,
		version: r.version,
		counter: counter,
	}
}

// Version returns the snapshot version.
func (r *Ref) Version() int64 {
	return r.version
}

// Meta returns the metadata for h, including prenatal columns.
func (r *Ref) Meta(h Header) (ColumnMeta, bool) {
	m, ok := r.columns[h]
	return m, ok
}

// Contains reports whether h is a visible (non-prenatal) column.
func (r *Ref) Contains(h Header) bool {
	m, ok := r.columns[h]
	return ok && !m.Prenatal
}

// Column returns the stored cells of h, or nil if h does not exist.
// The returned Cells is shared; it is immutable.
func (r *Ref) Column(h Header) *Cells {
	return r.cells[h]
}

// Headers returns visible columns in left-to-right order.
func (r *Ref) Headers() []Header {
	return r.sortedHeaders(false)
}

// allHeaders returns every column, prenatal included, in order.
func (r *Ref) allHeaders() []Header {
	return r.sortedHeaders(true)
}

func (r *Ref) sortedHeaders(withPrenatal bool) []Header {
	out := make([]Header, 0, len(r.columns))
	for h, m := range r.columns {
		if m.Prenatal && !withPrenatal {
			continue
		}
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b Header) int {
		return compareColumns(a, r.columns[a], b, r.columns[b])
	})
	return out
}

func compareColumns(a Header, am ColumnMeta, b Header, bm ColumnMeta) int {
	if am.Order != bm.Order {
		if am.Order < bm.Order {
			return -1
		}
		return 1
	}
	return a.Compare(b)
}

// Indexes returns the sorted union of row indexes across visible columns.
func (r *Ref) Indexes() []int64 {
	seen := make(map[int64]struct{})
	for h, m := range r.columns {
		if m.Prenatal {
			continue
		}
		for _, k := range r.cells[h].Keys() {
			seen[k] = struct{}{}
		}
	}
	out := make([]int64, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Get resolves (h, index, rel). It returns the value, the index it was
// found at, and whether anything matched.
func (r *Ref) Get(h Header, index int64, rel IndexRelation) (value.Value, int64, bool) {
	return r.cells[h].Resolve(index, rel)
}

// cell builds the view of (h, index) for the named table. Absent values
// produce an absent cell. fallback supplies the order when h is not in r.
func (r *Ref) cell(table string, h Header, index int64, fallback int64) Cell {
	order := fallback
	if m, ok := r.columns[h]; ok {
		order = m.Order
	}
	v, _ := r.cells[h].Get(index)
	return Cell{Table: table, Header: h, Order: order, Index: index, Value: v}
}

// Row materializes one cell per visible column for index under rel.
// Columns where rel finds nothing are skipped.
func (r *Ref) Row(table string, index int64, rel IndexRelation) []Cell {
	var out []Cell
	for _, h := range r.Headers() {
		v, at, ok := r.cells[h].Resolve(index, rel)
		if !ok {
			continue
		}
		out = append(out, Cell{Table: table, Header: h, Order: r.columns[h].Order, Index: at, Value: v})
	}
	return out
}

// Snapshot is a plain, serializable copy of a Ref.
type Snapshot struct {
	Version int64
	Columns []ColumnSnapshot
}

// ColumnSnapshot is one column of a Snapshot.
type ColumnSnapshot struct {
	Header   Header
	Order    int64
	Prenatal bool
	Entries  []Entry
}

// Snapshot copies r into a Snapshot, columns in order.
func (r *Ref) Snapshot() Snapshot {
	s := Snapshot{Version: r.version}
	for _, h := range r.allHeaders() {
		m := r.columns[h]
		s.Columns = append(s.Columns, ColumnSnapshot{
			Header:   h,
			Order:    m.Order,
			Prenatal: m.Prenatal,
			Entries:  r.cells[h].Entries(),
		})
	}
	return s
}

// refFromSnapshot rebuilds a Ref. Duplicate headers or orders are rejected.
func refFromSnapshot(table string, s Snapshot) (*Ref, error) {
	r := newRef()
	r.version = s.Version

	orders := make(map[int64]Header)
	var maxOrder int64 = -1
	for _, c := range s.Columns {
		if c.Header.IsZero() {
			return nil, newColumnError(table, c.Header, "snapshot column without header")
		}
		if _, dup := r.columns[c.Header]; dup {
			return nil, newColumnError(table, c.Header, "duplicate column in snapshot")
		}
		if other, dup := orders[c.Order]; dup {
			return nil, newColumnError(table, c.Header, "order %d already used by %s", c.Order, other)
		}
		orders[c.Order] = c.Header

		r.columns[c.Header] = ColumnMeta{Order: c.Order, Prenatal: c.Prenatal}
		r.cells[c.Header] = NewCells(c.Entries...)
		maxOrder = max(maxOrder, c.Order)
	}
	r.counter.Store(maxOrder + 1)
	return r, nil
}
