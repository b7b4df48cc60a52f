package table

import (
	"context"
	"errors"

	"github.com/sigbla/sigbla-app-sub004/internal/value"
)

// MoveRow relocates the row left resolves to, across every column.
//
// right must use IndexAt. To replaces right's values column by column
// (clearing cells where left has nothing). After writes at right+1 and
// shifts every row at or beyond it up by one; Before writes at right-1
// and shifts every row at or below it down by one. Shifts apply to every
// column of the destination so no column keeps a row another vacated.
func MoveRow(ctx context.Context, left RowRef, order Placement, right RowRef) error {
	return relocateRow(ctx, opMove, left, order, right)
}

// CopyRow is MoveRow without removing the source row.
func CopyRow(ctx context.Context, left RowRef, order Placement, right RowRef) error {
	return relocateRow(ctx, opCopy, left, order, right)
}

// RemoveRow deletes the row the address resolves to, in every column.
func RemoveRow(ctx context.Context, row RowRef) error {
	t := row.Table
	if err := t.checkOpen(); err != nil {
		return err
	}

	var p *pending
	t.mu.Lock()
	old, next, _ := t.apply(func(cur *Ref) (*Ref, error) {
		return cur.withoutRow(row.Index, row.Relation), nil
	})
	if t.wants(ctx) {
		c := newCollector(t.name)
		c.row(old, next, row.Index, row.Relation)
		p = t.emit(ctx, c.out)
	}
	t.mu.Unlock()

	return t.events.drain(p)
}

// SwapRows exchanges the values of two exact rows in every column.
func SwapRows(ctx context.Context, a, b RowRef) error {
	if err := checkPair(a.Table, b.Table); err != nil {
		return err
	}
	for _, r := range []RowRef{a, b} {
		if r.Relation != IndexAt {
			return newRowError(r.Table.name, r.Index, "swapped rows must be addressed exactly, got %s", r.Relation)
		}
	}
	if a == b {
		return nil
	}
	return batchTables(ctx, a.Table, b.Table, func(ctx context.Context) error {
		scratch := a.Table.registry.Detached(a.Table.name)
		if err := CopyRow(ctx, a, To, scratch.RowAt(a.Index, IndexAt)); err != nil {
			return err
		}
		if err := CopyRow(ctx, b, To, a); err != nil {
			return err
		}
		return CopyRow(ctx, scratch.RowAt(a.Index, IndexAt), To, b)
	})
}

func relocateRow(ctx context.Context, op opKind, left RowRef, order Placement, right RowRef) error {
	t1, t2 := left.Table, right.Table
	if err := checkPair(t1, t2); err != nil {
		return err
	}
	if !order.valid() {
		return newRowError(t2.name, right.Index, "unknown placement %s", order)
	}
	if right.Relation != IndexAt {
		return newRowError(t2.name, right.Index, "target row must be addressed exactly, got %s", right.Relation)
	}
	same := t1 == t2

	var p1, p2 *pending
	unlock := lockTables(t1, t2)
	err := func() error {
		var old1, next1, old2, next2 *Ref
		var plan rowPlan
		if same {
			self := left.lands(t1.ref.Load(), right.Index)
			plan = rowPlans[rowPlanKey{op: op, to: order == To, same: true, self: self}]
			if plan.reject {
				return newRowError(t1.name, left.Index, "cannot %s row %d %s itself", op, left.Index, order)
			}
			old1, next1, _ = t1.apply(func(cur *Ref) (*Ref, error) {
				return cur.placeRow(op, left.Index, left.Relation, order, right.Index), nil
			})
			old2, next2 = old1, next1
		} else {
			plan = rowPlans[rowPlanKey{op: op, to: order == To}]
			var err error
			old1, next1, err = transferSource(op, left, t2)
			if err != nil {
				return err
			}
			old2, next2, _ = t2.apply(func(cur *Ref) (*Ref, error) {
				return cur.receiveRow(old1, left.Index, left.Relation, order, right.Index), nil
			})
		}

		want1, want2 := t1.wants(ctx), t2.wants(ctx)
		if !want1 && !want2 {
			return nil
		}
		c1, c2 := newCollector(t1.name), newCollector(t2.name)
		if same {
			c2 = c1
		}
		for _, r := range plan.roles {
			switch r {
			case rowLeft:
				c1.row(old1, next1, left.Index, left.Relation)
			case rowRight:
				c2.rows(old2, next2, []int64{right.Index})
			case rowShift:
				c2.rows(old2, next2, shiftedIndexes(old2, next2, order, right.Index))
			}
		}
		if want1 {
			p1 = t1.emit(ctx, c1.out)
		}
		if !same && want2 {
			p2 = t2.emit(ctx, c2.out)
		}
		return nil
	}()
	unlock()

	if err != nil {
		return err
	}
	if same {
		return t1.events.drain(p1)
	}
	return drainTables(queued{t1, p1}, queued{t2, p2})
}

// lands reports whether row resolves to index in r: exactly for IndexAt,
// otherwise in at least one column.
func (row RowRef) lands(r *Ref, index int64) bool {
	if row.Relation == IndexAt {
		return row.Index == index
	}
	for _, c := range r.cells {
		if _, at, ok := c.Resolve(row.Index, row.Relation); ok && at == index {
			return true
		}
	}
	return false
}

// transferSource prepares the source side of a cross-table row edit and
// returns the source snapshot pair. Every source column is materialized
// in dst before a move removes anything from the source, so a failure
// leaves the source untouched. Both structural guards must be held.
func transferSource(op opKind, left RowRef, dst *Table) (*Ref, *Ref, error) {
	src := left.Table
	for {
		for _, h := range src.ref.Load().allHeaders() {
			if _, err := dst.materialize(h); err != nil {
				return nil, nil, err
			}
		}
		have := dst.ref.Load()

		old := src.ref.Load()
		next := old
		var err error
		if op == opMove {
			old, next, err = src.apply(func(cur *Ref) (*Ref, error) {
				if !have.covers(cur) {
					return nil, errColumnGone
				}
				return cur.withoutRow(left.Index, left.Relation), nil
			})
		} else if !have.covers(old) {
			err = errColumnGone
		}
		if errors.Is(err, errColumnGone) {
			// A concurrent Set created a source column after materialization
			continue
		}
		return old, next, err
	}
}

// covers reports whether r holds every column of other.
func (r *Ref) covers(other *Ref) bool {
	for h := range other.columns {
		if _, ok := r.columns[h]; !ok {
			return false
		}
	}
	return true
}

// placeCell writes v into c at the position p names relative to right.
// A nil v leaves the target empty.
func placeCell(c *Cells, p Placement, right int64, v value.Value) *Cells {
	switch p {
	case After:
		at := right + 1
		return c.shift(func(k int64) bool { return k >= at }, 1).Put(at, v)
	case Before:
		at := right - 1
		return c.shift(func(k int64) bool { return k <= at }, -1).Put(at, v)
	default:
		return c.Put(right, v)
	}
}

// placeRow derives a same-table row edit.
func (r *Ref) placeRow(op opKind, index int64, rel IndexRelation, p Placement, right int64) *Ref {
	next := r.next()
	for h, c := range r.cells {
		v, at, ok := c.Resolve(index, rel)
		if op == opMove && ok {
			c = c.Remove(at)
		}
		next.cells[h] = placeCell(c, p, right, v)
	}
	return next
}

// receiveRow derives the destination side of a cross-table row edit.
// Every column of src must already exist in r.
func (r *Ref) receiveRow(src *Ref, index int64, rel IndexRelation, p Placement, right int64) *Ref {
	next := r.next()
	for h, c := range r.cells {
		var v value.Value
		if sm, ok := src.columns[h]; ok {
			v, _, _ = src.cells[h].Resolve(index, rel)
			m := next.columns[h]
			m.Prenatal = m.Prenatal && sm.Prenatal
			next.columns[h] = m
		}
		next.cells[h] = placeCell(c, p, right, v)
	}
	return next
}

// withoutRow derives the successor of r with the resolved row removed
// from every column.
func (r *Ref) withoutRow(index int64, rel IndexRelation) *Ref {
	next := r.next()
	for h, c := range r.cells {
		if _, at, ok := c.Resolve(index, rel); ok {
			next.cells[h] = c.Remove(at)
		}
	}
	return next
}
