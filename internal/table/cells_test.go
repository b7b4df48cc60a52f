package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigbla/sigbla-app-sub004/internal/value"
)

// =============================================================================
// Cells
// =============================================================================

func TestCells_PutIsCopyOnWrite(t *testing.T) {
	base := NewCells(Entry{1, value.Int(1)})
	next := base.Put(2, value.Int(2))

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, next.Len())
	assert.Equal(t, []int64{1, 2}, next.Keys())

	replaced := next.Put(1, value.Text("x"))
	v, ok := next.Get(1)
	require.True(t, ok)
	assert.Equal(t, value.Int(1), v)

	v, ok = replaced.Get(1)
	require.True(t, ok)
	assert.Equal(t, value.Text("x"), v)
}

func TestCells_PutNilRemoves(t *testing.T) {
	c := NewCells(Entry{1, value.Int(1)}, Entry{2, value.Int(2)})

	removed := c.Put(1, nil)
	assert.Equal(t, []int64{2}, removed.Keys())

	assert.Same(t, c, c.Remove(9), "removing a missing key returns the receiver")
}

func TestCells_NilIsEmpty(t *testing.T) {
	var c *Cells
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Keys())
	assert.Empty(t, c.Entries())

	_, ok := c.Get(0)
	assert.False(t, ok)

	assert.Equal(t, []int64{3}, c.Put(3, value.Int(3)).Keys())
}

func TestNewCells_SortsAndDropsNil(t *testing.T) {
	c := NewCells(Entry{9, value.Int(9)}, Entry{2, value.Int(2)}, Entry{5, nil}, Entry{2, value.Int(20)})

	assert.Equal(t, []Entry{{2, value.Int(20)}, {9, value.Int(9)}}, c.Entries())
}

func TestCells_Shift(t *testing.T) {
	c := NewCells(Entry{1, value.Int(1)}, Entry{2, value.Int(2)}, Entry{3, value.Int(3)})

	up := c.shift(func(k int64) bool { return k >= 2 }, 1)
	assert.Equal(t, []int64{1, 3, 4}, up.Keys())
	v, _ := up.Get(4)
	assert.Equal(t, value.Int(3), v)

	down := c.shift(func(k int64) bool { return k <= 2 }, -1)
	assert.Equal(t, []int64{0, 1, 3}, down.Keys())

	assert.Same(t, c, c.shift(func(k int64) bool { return k > 10 }, 1), "no match keeps the receiver")
}

func TestCells_ShiftRebuildsWhenOrderChanges(t *testing.T) {
	c := NewCells(Entry{1, value.Int(1)}, Entry{2, value.Int(2)})

	moved := c.shift(func(k int64) bool { return k == 1 }, 5)
	assert.Equal(t, []Entry{{2, value.Int(2)}, {6, value.Int(1)}}, moved.Entries())
}

// =============================================================================
// IndexRelation resolution
// =============================================================================

func TestResolve_RoundTripAddressing(t *testing.T) {
	c := NewCells(Entry{2, value.Text("two")}, Entry{5, value.Text("five")}, Entry{9, value.Text("nine")})

	at := func(i int64) value.Value {
		v, _, ok := c.Resolve(i, IndexAt)
		require.True(t, ok)
		return v
	}

	tests := []struct {
		name      string
		index     int64
		rel       IndexRelation
		want      value.Value
		wantIndex int64
	}{
		{"at_or_before falls back", 7, IndexAtOrBefore, at(5), 5},
		{"at_or_after exact", 5, IndexAtOrAfter, at(5), 5},
		{"before", 5, IndexBefore, at(2), 2},
		{"after", 5, IndexAfter, at(9), 9},
		{"at", 5, IndexAt, value.Text("five"), 5},
		{"at_or_before exact", 9, IndexAtOrBefore, at(9), 9},
		{"at_or_after falls forward", 6, IndexAtOrAfter, at(9), 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, idx, ok := c.Resolve(tt.index, tt.rel)
			require.True(t, ok)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, tt.wantIndex, idx)
		})
	}
}

func TestResolve_NotFound(t *testing.T) {
	c := NewCells(Entry{2, value.Int(2)}, Entry{5, value.Int(5)})

	tests := []struct {
		name  string
		index int64
		rel   IndexRelation
	}{
		{"at missing", 3, IndexAt},
		{"before first", 2, IndexBefore},
		{"after last", 5, IndexAfter},
		{"at_or_before below first", 1, IndexAtOrBefore},
		{"at_or_after above last", 6, IndexAtOrAfter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, idx, ok := c.Resolve(tt.index, tt.rel)
			assert.False(t, ok)
			assert.Nil(t, v)
			assert.Equal(t, tt.index, idx, "unresolved lookups report the requested index")
		})
	}

	var empty *Cells
	_, _, ok := empty.Resolve(0, IndexAtOrAfter)
	assert.False(t, ok)
}

func TestParseIndexRelation(t *testing.T) {
	for r := IndexAt; r <= IndexAtOrAfter; r++ {
		got, err := ParseIndexRelation(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	got, err := ParseIndexRelation("")
	require.NoError(t, err)
	assert.Equal(t, IndexAt, got)

	_, err = ParseIndexRelation("near")
	assert.True(t, IsInvalidRow(err))
}
