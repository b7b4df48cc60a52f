package table

import (
	"slices"

	"github.com/sigbla/sigbla-app-sub004/internal/value"
)

// Cells is an immutable index → value map sorted by index.
//
// Every mutating method returns a new Cells and leaves the receiver
// untouched, so a Cells can be shared freely between Refs. A nil *Cells
// is a valid empty map.
type Cells struct {
	keys []int64
	vals []value.Value
}

// Entry is one stored (index, value) pair.
type Entry struct {
	Index int64
	Value value.Value
}

var emptyCells = &Cells{}

// NewCells builds a Cells from entries in any order. Later duplicates win
// and nil values are dropped.
func NewCells(entries ...Entry) *Cells {
	c := emptyCells
	for _, e := range entries {
		c = c.Put(e.Index, e.Value)
	}
	return c
}

// Len returns the number of stored entries.
func (c *Cells) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Keys returns the stored indexes in ascending order.
func (c *Cells) Keys() []int64 {
	if c == nil {
		return nil
	}
	return slices.Clone(c.keys)
}

// Entries returns all stored pairs in ascending index order.
func (c *Cells) Entries() []Entry {
	out := make([]Entry, c.Len())
	for i := range out {
		out[i] = Entry{Index: c.keys[i], Value: c.vals[i]}
	}
	return out
}

// Get returns the value stored exactly at index.
func (c *Cells) Get(index int64) (value.Value, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := slices.BinarySearch(c.keys, index)
	if !ok {
		return nil, false
	}
	return c.vals[i], true
}

// Put returns a copy with index set to v. A nil v removes index.
func (c *Cells) Put(index int64, v value.Value) *Cells {
	if v == nil {
		return c.Remove(index)
	}
	if c == nil {
		c = emptyCells
	}

	i, ok := slices.BinarySearch(c.keys, index)
	if ok {
		vals := slices.Clone(c.vals)
		vals[i] = v
		return &Cells{keys: c.keys, vals: vals}
	}

	keys := make([]int64, 0, len(c.keys)+1)
	keys = append(keys, c.keys[:i]...)
	keys = append(keys, index)
	keys = append(keys, c.keys[i:]...)

	vals := make([]value.Value, 0, len(c.vals)+1)
	vals = append(vals, c.vals[:i]...)
	vals = append(vals, v)
	vals = append(vals, c.vals[i:]...)

	return &Cells{keys: keys, vals: vals}
}

// Remove returns a copy without index. Returns the receiver when index is
// not present.
func (c *Cells) Remove(index int64) *Cells {
	if c == nil {
		return emptyCells
	}
	i, ok := slices.BinarySearch(c.keys, index)
	if !ok {
		return c
	}
	return &Cells{
		keys: slices.Delete(slices.Clone(c.keys), i, i+1),
		vals: slices.Delete(slices.Clone(c.vals), i, i+1),
	}
}

// shift returns a copy where every key accepted by match moves by delta.
// Keys that are not matched keep their position.
func (c *Cells) shift(match func(int64) bool, delta int64) *Cells {
	if c.Len() == 0 {
		return c
	}

	keys := make([]int64, len(c.keys))
	changed := false
	for i, k := range c.keys {
		if match(k) {
			k += delta
			changed = true
		}
		keys[i] = k
	}
	if !changed {
		return c
	}

	// Threshold shifts keep the order; anything else is rebuilt
	if isStrictlySorted(keys) {
		return &Cells{keys: keys, vals: slices.Clone(c.vals)}
	}
	out := emptyCells
	for i, k := range keys {
		out = out.Put(k, c.vals[i])
	}
	return out
}

func isStrictlySorted(keys []int64) bool {
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			return false
		}
	}
	return true
}
