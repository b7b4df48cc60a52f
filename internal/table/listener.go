package table

import (
	"context"
	"fmt"
)

// Listener receives the events relevant to its source.
//
// The ctx carries the active listener chain; pass it to any write the
// listener performs so loop detection can see it. A write made with a
// context that lacks the chain waits for its own delivery and deadlocks
// if it targets the table being drained. A returned error is
// reported to the writer that triggered the delivery and does not undo
// the write.
type Listener func(ctx context.Context, events Events) error

// Source selects which events a listener receives.
// Sources are built with TableSource, ColumnSource, RowSource,
// CellSource, RangeSource, and Union.
type Source interface {
	matches(c Cell, ref *Ref) bool
}

type tableSource struct{}

func (tableSource) matches(Cell, *Ref) bool { return true }

// TableSource matches every event of the table.
func TableSource() Source { return tableSource{} }

type columnSource struct{ header Header }

func (s columnSource) matches(c Cell, _ *Ref) bool { return c.Header == s.header }

// ColumnSource matches events on column h.
func ColumnSource(h Header) Source { return columnSource{header: h} }

type rowSource struct{ index int64 }

func (s rowSource) matches(c Cell, _ *Ref) bool { return c.Index == s.index }

// RowSource matches events on row index.
func RowSource(index int64) Source { return rowSource{index: index} }

type cellSource struct {
	header Header
	index  int64
}

func (s cellSource) matches(c Cell, _ *Ref) bool {
	return c.Header == s.header && c.Index == s.index
}

// CellSource matches events on the single location (h, index).
func CellSource(h Header, index int64) Source {
	return cellSource{header: h, index: index}
}

type rangeSource struct {
	from, to           Header
	fromIndex, toIndex int64
}

// matches checks the cell against the column span as positioned in ref.
func (s rangeSource) matches(c Cell, ref *Ref) bool {
	if ref == nil {
		return false
	}
	fm, ok := ref.columns[s.from]
	if !ok {
		return false
	}
	tm, ok := ref.columns[s.to]
	if !ok {
		return false
	}
	lo, hi := min(fm.Order, tm.Order), max(fm.Order, tm.Order)
	ilo, ihi := min(s.fromIndex, s.toIndex), max(s.fromIndex, s.toIndex)
	return c.Order >= lo && c.Order <= hi && c.Index >= ilo && c.Index <= ihi
}

// RangeSource matches the rectangle spanning columns from..to (by their
// current positions) and rows fromIndex..toIndex, bounds included.
func RangeSource(from Header, fromIndex int64, to Header, toIndex int64) Source {
	return rangeSource{from: from, to: to, fromIndex: fromIndex, toIndex: toIndex}
}

type unionSource []Source

func (u unionSource) matches(c Cell, ref *Ref) bool {
	for _, s := range u {
		if s.matches(c, ref) {
			return true
		}
	}
	return false
}

// Union matches events that any of sources matches.
func Union(sources ...Source) Source {
	return unionSource(sources)
}

// listener is one registration on a table's dispatcher.
type listener struct {
	seq         int64
	name        string
	order       int
	allowLoop   bool
	skipHistory bool
	oldKinds    kindSet
	newKinds    kindSet

	src     Source
	fn      Listener
	version int64
}

func (l *listener) String() string {
	if l.name != "" {
		return l.name
	}
	return fmt.Sprintf("listener-%d", l.seq)
}

// accepts reports whether e is in scope and passes the kind filters.
func (l *listener) accepts(e Event) bool {
	if !l.oldKinds.has(e.Old.Value) || !l.newKinds.has(e.New.Value) {
		return false
	}
	return l.src.matches(e.Old, e.oldRef) || l.src.matches(e.New, e.newRef)
}

// filter keeps the events this listener has not seen yet.
func (l *listener) filter(evs Events) Events {
	return evs.Filter(func(e Event) bool {
		return e.newRef.version > l.version && l.accepts(e)
	})
}

// call invokes fn, turning a panic into an error.
func (l *listener) call(ctx context.Context, evs Events) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener %s panicked: %v", l, r)
		}
	}()
	return l.fn(ctx, evs)
}

// Handle controls one subscription.
type Handle struct {
	d *dispatcher
	l *listener
}

// Name returns the listener name, or a generated one if none was given.
func (h *Handle) Name() string {
	return h.l.String()
}

// Unsubscribe removes the listener permanently. Deliveries already
// started still complete.
func (h *Handle) Unsubscribe() {
	h.d.remove(h.l)
}

// Subscribe registers fn for the events src selects.
//
// Unless SkipHistory is given, fn first receives one event per existing
// value in scope (absent to current) before Subscribe returns. If that
// delivery fails the listener is removed and the error is returned.
// Returns INVALID_LISTENER for a nil source or function.
func (t *Table) Subscribe(ctx context.Context, src Source, fn Listener, opts ...ListenerOption) (*Handle, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	if src == nil || fn == nil {
		return nil, &Error{Code: ErrCodeInvalidListener, Message: "listener needs a source and a function", Table: t.name}
	}

	l := &listener{src: src, fn: fn}
	for _, opt := range opts {
		opt(l)
	}
	ref := t.events.add(l, t.ref.Load)
	h := &Handle{d: t.events, l: l}

	if l.skipHistory {
		return h, nil
	}
	evs := history(t.name, ref).Filter(l.accepts)
	if len(evs) == 0 {
		return h, nil
	}
	if err := l.call(withChain(ctx, chainFrom(ctx).push(l)), evs); err != nil {
		t.events.remove(l)
		return nil, fmt.Errorf("deliver history to %s: %w", l, err)
	}
	return h, nil
}

// history lists every visible value of ref as an absent-to-current event.
func history(table string, ref *Ref) Events {
	var out Events
	for _, h := range ref.Headers() {
		m := ref.columns[h]
		for _, e := range ref.cells[h].Entries() {
			out = append(out, Event{
				Old:    Cell{Table: table, Header: h, Order: m.Order, Index: e.Index},
				New:    Cell{Table: table, Header: h, Order: m.Order, Index: e.Index, Value: e.Value},
				oldRef: ref,
				newRef: ref,
			})
		}
	}
	return out
}
