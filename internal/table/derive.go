package table

import "slices"

type location struct {
	header Header
	index  int64
}

// collector accumulates the events of one table, reporting each location
// at most once. The first event for a location wins.
type collector struct {
	table string
	seen  map[location]bool
	out   Events
}

func newCollector(table string) *collector {
	return &collector{table: table, seen: make(map[location]bool)}
}

func (c *collector) add(old, next *Ref, h Header, index int64) {
	loc := location{header: h, index: index}
	if c.seen[loc] {
		return
	}
	c.seen[loc] = true

	var oldOrder, newOrder int64
	om, oldOK := old.columns[h]
	nm, newOK := next.columns[h]
	switch {
	case oldOK && newOK:
		oldOrder, newOrder = om.Order, nm.Order
	case oldOK:
		oldOrder, newOrder = om.Order, om.Order
	case newOK:
		oldOrder, newOrder = nm.Order, nm.Order
	}

	c.out = append(c.out, Event{
		Old:    old.cell(c.table, h, index, oldOrder),
		New:    next.cell(c.table, h, index, newOrder),
		oldRef: old,
		newRef: next,
	})
}

// column reports every row h holds in old or next.
func (c *collector) column(old, next *Ref, h Header) {
	for _, i := range mergeKeys(old.cells[h], next.cells[h]) {
		c.add(old, next, h, i)
	}
}

// row reports index resolved under rel in each visible column of old.
// Columns where rel finds nothing report the requested index.
func (c *collector) row(old, next *Ref, index int64, rel IndexRelation) {
	for _, h := range visibleHeaders(old, next) {
		_, at, _ := old.cells[h].Resolve(index, rel)
		c.add(old, next, h, at)
	}
}

// rows reports every visible column at each of indexes.
func (c *collector) rows(old, next *Ref, indexes []int64) {
	headers := visibleHeaders(old, next)
	for _, i := range indexes {
		for _, h := range headers {
			c.add(old, next, h, i)
		}
	}
}

// mergeKeys returns the sorted union of the keys of a and b.
func mergeKeys(a, b *Cells) []int64 {
	out := make([]int64, 0, a.Len()+b.Len())
	out = append(out, a.Keys()...)
	out = append(out, b.Keys()...)
	slices.Sort(out)
	return slices.Compact(out)
}

// visibleHeaders returns headers visible in old or next, ordered by
// their position in next and then in old.
func visibleHeaders(old, next *Ref) []Header {
	seen := make(map[Header]ColumnMeta)
	for h, m := range old.columns {
		if !m.Prenatal {
			seen[h] = m
		}
	}
	for h, m := range next.columns {
		if !m.Prenatal {
			seen[h] = m
		}
	}
	out := make([]Header, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b Header) int {
		return compareColumns(a, seen[a], b, seen[b])
	})
	return out
}

// shiftedIndexes returns the indexes of old or next that lie strictly
// beyond right in the direction of p.
func shiftedIndexes(old, next *Ref, p Placement, right int64) []int64 {
	beyond := func(i int64) bool {
		if p == Before {
			return i < right
		}
		return i > right
	}
	var out []int64
	for _, i := range old.Indexes() {
		if beyond(i) {
			out = append(out, i)
		}
	}
	for _, i := range next.Indexes() {
		if beyond(i) {
			out = append(out, i)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
