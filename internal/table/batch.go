package table

import (
	"context"
	"errors"
	"slices"
	"sync"
)

type batchKey struct{}

// batchState buffers the events of one table during Batch.
type batchState struct {
	table  *Table
	start  *Ref
	parent *batchState

	mu     sync.Mutex
	events Events
}

func batchFor(ctx context.Context, t *Table) *batchState {
	b, _ := ctx.Value(batchKey{}).(*batchState)
	for ; b != nil; b = b.parent {
		if b.table == t {
			return b
		}
	}
	return nil
}

func (b *batchState) add(evs Events) {
	b.mu.Lock()
	b.events = append(b.events, evs...)
	b.mu.Unlock()
}

// rebase collapses the buffer to one event per location, old taken from
// the batch start and new from end. Locations keep the order of their
// last occurrence.
func (b *batchState) rebase(end *Ref) Events {
	b.mu.Lock()
	defer b.mu.Unlock()

	last := make(map[location]int, len(b.events))
	for i, e := range b.events {
		last[location{header: e.New.Header, index: e.New.Index}] = i
	}
	locs := make([]location, 0, len(last))
	for loc := range last {
		locs = append(locs, loc)
	}
	slices.SortFunc(locs, func(a, c location) int {
		return last[a] - last[c]
	})

	col := newCollector(b.table.name)
	for _, loc := range locs {
		col.add(b.start, end, loc.header, loc.index)
	}
	return col.out
}

// Batch runs fn and publishes the table's events once it returns.
//
// Events produced through the ctx passed to fn are buffered and then
// delivered as a single sequence with one event per touched location,
// old read from the snapshot at batch start and new from the snapshot at
// the end. Writes commit as they happen; a batch is not a transaction.
// Nested batches on the same table flatten into the outermost one.
//
// Buffered events are published even when fn fails. fn's error and any
// listener error are both returned.
func (t *Table) Batch(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	if batchFor(ctx, t) != nil {
		return fn(ctx)
	}

	parent, _ := ctx.Value(batchKey{}).(*batchState)
	b := &batchState{table: t, start: t.ref.Load(), parent: parent}
	err := fn(context.WithValue(ctx, batchKey{}, b))

	evs := b.rebase(t.ref.Load())
	if len(evs) == 0 {
		return err
	}
	return errors.Join(err, t.publish(ctx, evs))
}

// batchTables runs fn inside a batch on a and, if different, on b.
func batchTables(ctx context.Context, a, b *Table, fn func(ctx context.Context) error) error {
	if a == b {
		return a.Batch(ctx, fn)
	}
	return a.Batch(ctx, func(ctx context.Context) error {
		return b.Batch(ctx, fn)
	})
}

// ClearCell removes the value at (column, index).
func ClearCell(ctx context.Context, column ColumnRef, index int64) error {
	return column.Table.Set(ctx, column.Header, index, nil)
}

// ClearColumn removes every value of column. The column itself stays.
func ClearColumn(ctx context.Context, column ColumnRef) error {
	t := column.Table
	return t.Batch(ctx, func(ctx context.Context) error {
		for _, i := range t.ref.Load().cells[column.Header].Keys() {
			if err := t.Set(ctx, column.Header, i, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// ClearRow removes the resolved row from every column.
func ClearRow(ctx context.Context, row RowRef) error {
	t := row.Table
	return t.Batch(ctx, func(ctx context.Context) error {
		for _, c := range t.Row(row.Index, row.Relation) {
			if err := t.Set(ctx, c.Header, c.Index, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// ClearTable removes every value of t. Columns stay.
func ClearTable(ctx context.Context, t *Table) error {
	return t.Batch(ctx, func(ctx context.Context) error {
		cur := t.ref.Load()
		for _, h := range cur.Headers() {
			for _, i := range cur.cells[h].Keys() {
				if err := t.Set(ctx, h, i, nil); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Compact renumbers the rows of t contiguously from 0, keeping their order.
func Compact(ctx context.Context, t *Table) error {
	return t.Batch(ctx, func(ctx context.Context) error {
		scratch := t.Clone(t.name)
		if err := ClearTable(ctx, t); err != nil {
			return err
		}
		for i, index := range scratch.Indexes() {
			if err := CopyRow(ctx, scratch.RowAt(index, IndexAt), To, t.RowAt(int64(i), IndexAt)); err != nil {
				return err
			}
		}
		return nil
	})
}
