package table

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sigbla/sigbla-app-sub004/internal/value"
)

// errColumnGone signals that a column vanished between materialization
// and the write that needed it. Set retries on it.
var errColumnGone = errors.New("column removed concurrently")

// Table owns the current Ref of one named table and its listeners.
//
// Thread-safety model:
//   - Reads load the current Ref atomically and never block
//   - Single-cell writes use the CAS loop in apply and take no lock
//   - Structural edits hold mu while computing and committing new Refs
//   - Listener dispatch runs after mu is released
//
// INVARIANTS:
//   - ref is never nil
//   - closed is set once and never cleared
//   - seq is unique within the registry and fixes lock order
type Table struct {
	name     string
	id       string
	seq      int64
	registry *Registry

	ref    atomic.Pointer[Ref]
	closed atomic.Bool

	mu     sync.Mutex
	events *dispatcher
}

// Name returns the table's name.
func (t *Table) Name() string {
	return t.name
}

// ID returns the table's unique identity.
func (t *Table) ID() string {
	return t.id
}

// Ref returns the current snapshot.
func (t *Table) Ref() *Ref {
	return t.ref.Load()
}

// Version returns the version of the current snapshot.
func (t *Table) Version() int64 {
	return t.ref.Load().version
}

// Closed reports whether the table has been closed by its registry.
func (t *Table) Closed() bool {
	return t.closed.Load()
}

func (t *Table) checkOpen() error {
	if t == nil {
		return &Error{Code: ErrCodeInvalidTable, Message: "nil table"}
	}
	if t.closed.Load() {
		return newTableError(t.name, "table is closed")
	}
	return nil
}

// apply atomically replaces the current Ref with f(current).
//
// f must be pure: it may run several times when writers race. An error
// from f aborts without committing. Returns the exact pair this
// application produced.
func (t *Table) apply(f func(*Ref) (*Ref, error)) (*Ref, *Ref, error) {
	for {
		old := t.ref.Load()
		next, err := f(old)
		if err != nil {
			return old, old, err
		}
		if t.ref.CompareAndSwap(old, next) {
			return old, next, nil
		}
	}
}

// materialize ensures h exists, creating it prenatal with a fresh order.
// Returns the column's metadata.
func (t *Table) materialize(h Header) (ColumnMeta, error) {
	if h.IsZero() {
		return ColumnMeta{}, newColumnError(t.name, h, "empty header")
	}
	for {
		cur := t.ref.Load()
		if m, ok := cur.columns[h]; ok {
			return m, nil
		}
		if t.closed.Load() {
			return ColumnMeta{}, newTableError(t.name, "table is closed")
		}

		// Order is taken outside any transform so retries never reuse it
		m := ColumnMeta{Order: cur.counter.Add(1) - 1, Prenatal: true}
		next := cur.next()
		next.columns[h] = m
		next.cells[h] = emptyCells
		if t.ref.CompareAndSwap(cur, next) {
			return m, nil
		}
	}
}

// Set stores v at (h, index). A nil v clears the cell. Text and Web
// values must be valid UTF-8.
//
// The column is materialized if needed and stops being prenatal on the
// first non-nil write. Every other column is shared with the previous Ref.
func (t *Table) Set(ctx context.Context, h Header, index int64, v value.Value) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	if err := value.Validate(v); err != nil {
		return err
	}
	for {
		if _, err := t.materialize(h); err != nil {
			return err
		}
		old, next, err := t.apply(func(cur *Ref) (*Ref, error) {
			if _, ok := cur.columns[h]; !ok {
				return nil, errColumnGone
			}
			return cur.withCell(h, index, v), nil
		})
		if errors.Is(err, errColumnGone) {
			continue
		}
		if err != nil {
			return err
		}
		if !t.wants(ctx) {
			return nil
		}
		return t.publish(ctx, Events{{
			Old:    old.cell(t.name, h, index, next.columns[h].Order),
			New:    next.cell(t.name, h, index, 0),
			oldRef: old,
			newRef: next,
		}})
	}
}

// SetAny coerces x with value.Of and stores it.
func (t *Table) SetAny(ctx context.Context, h Header, index int64, x any) error {
	v, err := value.Of(x)
	if err != nil {
		return err
	}
	return t.Set(ctx, h, index, v)
}

// withCell derives the successor of r with one cell replaced.
func (r *Ref) withCell(h Header, index int64, v value.Value) *Ref {
	next := r.next()
	if v != nil {
		m := next.columns[h]
		m.Prenatal = false
		next.columns[h] = m
	}
	next.cells[h] = r.cells[h].Put(index, v)
	return next
}

// Get reads (h, index) under rel. When nothing resolves, the result is an
// absent cell at the requested index. Get never materializes h.
func (t *Table) Get(h Header, index int64, rel IndexRelation) Cell {
	cur := t.ref.Load()
	v, at, _ := cur.Get(h, index, rel)
	var order int64
	if m, ok := cur.columns[h]; ok {
		order = m.Order
	}
	return Cell{Table: t.name, Header: h, Order: order, Index: at, Value: v}
}

// Row returns one cell per visible column at index under rel.
func (t *Table) Row(index int64, rel IndexRelation) []Cell {
	return t.ref.Load().Row(t.name, index, rel)
}

// Headers returns visible columns in order.
func (t *Table) Headers() []Header {
	return t.ref.Load().Headers()
}

// Indexes returns the sorted row indexes of visible columns.
func (t *Table) Indexes() []int64 {
	return t.ref.Load().Indexes()
}

// Contains reports whether h is a visible column.
func (t *Table) Contains(h Header) bool {
	return t.ref.Load().Contains(h)
}

// Column looks up h, materializing it as a prenatal column if needed.
func (t *Table) Column(h Header) (ColumnRef, error) {
	if err := t.checkOpen(); err != nil {
		return ColumnRef{}, err
	}
	if _, err := t.materialize(h); err != nil {
		return ColumnRef{}, err
	}
	return ColumnRef{Table: t, Header: h}, nil
}

// RowAt addresses a row. No state changes.
func (t *Table) RowAt(index int64, rel IndexRelation) RowRef {
	return RowRef{Table: t, Index: index, Relation: rel}
}

// Clone returns a detached table with the current contents. The clone
// shares cell storage with t and gets its own column counter and
// listener registry. It is not registered under any name.
func (t *Table) Clone(name string) *Table {
	return t.registry.newTable(name, t.ref.Load().detach())
}

func (t *Table) close() {
	t.closed.Store(true)
	t.events.shutdown()
}

// wants reports whether mutations should derive events at all.
func (t *Table) wants(ctx context.Context) bool {
	return batchFor(ctx, t) != nil || t.events.hasListeners()
}

// emit hands events to the active batch or queues them for dispatch.
// It returns the queued entry, or nil when nothing was queued.
// Safe to call while holding the structural guard.
func (t *Table) emit(ctx context.Context, evs Events) *pending {
	if len(evs) == 0 {
		return nil
	}
	if b := batchFor(ctx, t); b != nil {
		b.add(evs)
		return nil
	}
	return t.events.enqueue(ctx, evs)
}

// publish emits and then drains. Never call it while holding mu.
func (t *Table) publish(ctx context.Context, evs Events) error {
	return t.events.drain(t.emit(ctx, evs))
}

// ColumnRef addresses a column of a table.
type ColumnRef struct {
	Table  *Table
	Header Header
}

// RowRef addresses a row of a table through an IndexRelation.
type RowRef struct {
	Table    *Table
	Index    int64
	Relation IndexRelation
}
