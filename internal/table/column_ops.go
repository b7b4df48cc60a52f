package table

import "context"

// MoveColumn relocates left's contents relative to right under withName.
//
// To replaces right. Before and After insert next to right and re-rank
// the columns in between by rewriting orders only. A column already named
// withName in the destination is replaced. When left and right live in
// different tables, left is removed from its table and both tables are
// updated under their guards before any event is published.
func MoveColumn(ctx context.Context, left ColumnRef, order Placement, right ColumnRef, withName Header) error {
	return relocateColumn(ctx, opMove, left, order, right, withName)
}

// CopyColumn is MoveColumn without removing the source. Copying a
// column onto itself under another name renames it.
func CopyColumn(ctx context.Context, left ColumnRef, order Placement, right ColumnRef, withName Header) error {
	return relocateColumn(ctx, opCopy, left, order, right, withName)
}

// MoveColumnToTable appends left's contents to target under withName,
// after every existing column.
func MoveColumnToTable(ctx context.Context, left ColumnRef, target *Table, withName Header) error {
	return relocateColumn(ctx, opMove, left, toEnd, ColumnRef{Table: target}, withName)
}

// CopyColumnToTable is MoveColumnToTable without removing the source.
func CopyColumnToTable(ctx context.Context, left ColumnRef, target *Table, withName Header) error {
	return relocateColumn(ctx, opCopy, left, toEnd, ColumnRef{Table: target}, withName)
}

// Rename gives column a new header in place.
func Rename(ctx context.Context, column ColumnRef, withName Header) error {
	return MoveColumn(ctx, column, To, column, withName)
}

// RemoveColumn deletes column and every value it holds.
func RemoveColumn(ctx context.Context, column ColumnRef) error {
	t := column.Table
	if err := t.checkOpen(); err != nil {
		return err
	}
	h := column.Header

	var p *pending
	t.mu.Lock()
	old, next, err := t.apply(func(cur *Ref) (*Ref, error) {
		if _, ok := cur.columns[h]; !ok {
			return nil, newColumnError(t.name, h, "column not found")
		}
		return cur.without(h), nil
	})
	if err == nil && t.wants(ctx) {
		c := newCollector(t.name)
		c.column(old, next, h)
		p = t.emit(ctx, c.out)
	}
	t.mu.Unlock()

	if err != nil {
		return err
	}
	return t.events.drain(p)
}

// SwapColumns exchanges the contents of a and b. Positions stay put.
func SwapColumns(ctx context.Context, a, b ColumnRef) error {
	if err := checkPair(a.Table, b.Table); err != nil {
		return err
	}
	if a == b {
		return nil
	}
	return batchTables(ctx, a.Table, b.Table, func(ctx context.Context) error {
		scratch := a.Table.registry.Detached(a.Table.name)
		if err := CopyColumnToTable(ctx, a, scratch, a.Header); err != nil {
			return err
		}
		if err := CopyColumn(ctx, b, To, a, a.Header); err != nil {
			return err
		}
		return CopyColumn(ctx, ColumnRef{Table: scratch, Header: a.Header}, To, b, b.Header)
	})
}

func relocateColumn(ctx context.Context, op opKind, left ColumnRef, order Placement, right ColumnRef, withName Header) error {
	t1, t2 := left.Table, right.Table
	if err := checkPair(t1, t2); err != nil {
		return err
	}
	if left.Header.IsZero() {
		return newColumnError(t1.name, left.Header, "empty source header")
	}
	if withName.IsZero() {
		return newColumnError(t2.name, withName, "empty target header")
	}
	same := t1 == t2

	var roles []columnRole
	if order == toEnd {
		roles = tablePlans[tablePlanKey{op: op, same: same, l: left.Header == withName}]
	} else {
		if !order.valid() {
			return newColumnError(t2.name, right.Header, "unknown placement %s", order)
		}
		if right.Header.IsZero() {
			return newColumnError(t2.name, right.Header, "empty anchor header")
		}
		plan := columnPlans[columnPlanKey{
			op:     op,
			around: order != To,
			same:   same,
			l:      left.Header == withName,
			r:      right.Header == withName,
			lr:     left.Header == right.Header,
		}]
		if plan.reject {
			return newColumnError(t1.name, left.Header, "cannot %s column %s itself", op, order)
		}
		roles = plan.roles
	}

	var p1, p2 *pending
	unlock := lockTables(t1, t2)
	err := func() error {
		if _, ok := t1.ref.Load().columns[left.Header]; !ok {
			return newColumnError(t1.name, left.Header, "column not found")
		}
		if order != toEnd {
			if _, ok := t2.ref.Load().columns[right.Header]; !ok {
				return newColumnError(t2.name, right.Header, "column not found")
			}
		}
		if _, err := t2.materialize(withName); err != nil {
			return err
		}

		var drop Header
		if same && op == opMove {
			drop = left.Header
		}

		// Source side. Only a cross-table move commits here.
		old1, next1 := t1.ref.Load(), t1.ref.Load()
		src := old1
		if !same && op == opMove {
			var err error
			old1, next1, err = t1.apply(func(cur *Ref) (*Ref, error) {
				if _, ok := cur.columns[left.Header]; !ok {
					return nil, newColumnError(t1.name, left.Header, "column not found")
				}
				return cur.without(left.Header), nil
			})
			if err != nil {
				return err
			}
			src = old1
		}
		meta := src.columns[left.Header]
		cells := src.cells[left.Header]

		old2, next2, err := t2.apply(func(cur *Ref) (*Ref, error) {
			if same {
				if _, ok := cur.columns[left.Header]; !ok {
					return nil, newColumnError(t1.name, left.Header, "column not found")
				}
				meta, cells = cur.columns[left.Header], cur.cells[left.Header]
			}
			return cur.place(cells, meta.Prenatal, order, right.Header, withName, drop), nil
		})
		if err != nil {
			return err
		}
		if same {
			old1, next1 = old2, next2
		}

		want1, want2 := t1.wants(ctx), t2.wants(ctx)
		if !want1 && !want2 {
			return nil
		}
		c1, c2 := newCollector(t1.name), newCollector(t2.name)
		if same {
			c2 = c1
		}
		for _, r := range roles {
			switch r {
			case roleLeft:
				c1.column(old1, next1, left.Header)
			case roleRight:
				c2.column(old2, next2, right.Header)
			case roleNew:
				c2.column(old2, next2, withName)
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

// without derives the successor of r with h removed.
func (r *Ref) without(h Header) *Ref {
	next := r.next()
	delete(next.columns, h)
	delete(next.cells, h)
	return next
}

// place derives the successor of r where withName holds cells at the
// position given by p and right. drop, if set, is removed as well.
//
// The new left-to-right sequence is computed over every column including
// prenatal ones, and the sorted orders already in use are handed out
// along it. withName must already exist in r so the pool is large enough.
func (r *Ref) place(cells *Cells, prenatal bool, p Placement, right, withName, drop Header) *Ref {
	base := r.allHeaders()
	skip := func(h Header) bool {
		return h == withName || (!drop.IsZero() && h == drop)
	}

	seq := make([]Header, 0, len(base))
	for _, h := range base {
		if p != toEnd && h == right {
			switch p {
			case To:
				seq = append(seq, withName)
			case Before:
				seq = append(seq, withName)
				if !skip(h) {
					seq = append(seq, h)
				}
			case After:
				if !skip(h) {
					seq = append(seq, h)
				}
				seq = append(seq, withName)
			}
			continue
		}
		if skip(h) {
			continue
		}
		seq = append(seq, h)
	}
	if p == toEnd {
		seq = append(seq, withName)
	}

	next := &Ref{
		columns: make(map[Header]ColumnMeta, len(seq)),
		cells:   make(map[Header]*Cells, len(seq)),
		version: r.version + 1,
		counter: r.counter,
	}
	for i, h := range seq {
		m, c := r.columns[h], r.cells[h]
		if h == withName {
			m.Prenatal, c = prenatal, cells
		}
		m.Order = r.columns[base[i]].Order
		next.columns[h] = m
		next.cells[h] = c
	}
	return next
}
