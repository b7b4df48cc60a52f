package table

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigbla/sigbla-app-sub004/internal/value"
)

// =============================================================================
// Reads and single-cell writes
// =============================================================================

func TestTable_SetAndGet(t *testing.T) {
	ctx := context.Background()
	tbl := newTestRegistry().Table("t")

	require.NoError(t, tbl.Set(ctx, H("A"), 1, value.Int(10)))
	require.NoError(t, tbl.SetAny(ctx, H("A"), 2, "text"))

	c := tbl.Get(H("A"), 1, IndexAt)
	assert.Equal(t, value.Int(10), c.Value)
	assert.Equal(t, "t", c.Table)
	assert.Equal(t, int64(1), c.Index)

	c = tbl.Get(H("A"), 7, IndexAtOrBefore)
	assert.Equal(t, value.Text("text"), c.Value)
	assert.Equal(t, int64(2), c.Index)

	missing := tbl.Get(H("A"), 7, IndexAt)
	assert.True(t, missing.IsAbsent())
	assert.Equal(t, int64(7), missing.Index)
}

func TestTable_SetAnyRejectsUnsupported(t *testing.T) {
	tbl := newTestRegistry().Table("t")

	err := tbl.SetAny(context.Background(), H("A"), 0, struct{}{})
	assert.True(t, IsInvalidValue(err))
	assert.Empty(t, tbl.Headers())
}

func TestTable_SetRejectsInvalidUTF8(t *testing.T) {
	tbl := newTestRegistry().Table("t")
	before := tbl.Ref()

	err := tbl.Set(context.Background(), H("A"), 0, value.Text("x\xff"))
	assert.True(t, IsInvalidValue(err))
	assert.Equal(t, ErrCodeInvalidValue, CodeOf(err))

	err = tbl.SetAny(context.Background(), H("A"), 0, "y\xc3")
	assert.True(t, IsInvalidValue(err))

	assert.Same(t, before, tbl.Ref(), "no column is materialized")
}

func TestTable_GetDoesNotMaterialize(t *testing.T) {
	tbl := newTestRegistry().Table("t")
	before := tbl.Version()

	tbl.Get(H("ghost"), 0, IndexAt)

	assert.Equal(t, before, tbl.Version())
	_, ok := tbl.Ref().Meta(H("ghost"))
	assert.False(t, ok)
}

func TestTable_PrenatalColumns(t *testing.T) {
	ctx := context.Background()
	tbl := newTestRegistry().Table("t")

	_, err := tbl.Column(H("A"))
	require.NoError(t, err)

	m, ok := tbl.Ref().Meta(H("A"))
	require.True(t, ok)
	assert.True(t, m.Prenatal)
	assert.Empty(t, tbl.Headers(), "prenatal columns are invisible")
	assert.False(t, tbl.Contains(H("A")))

	require.NoError(t, tbl.Set(ctx, H("A"), 0, value.Int(1)))
	m, _ = tbl.Ref().Meta(H("A"))
	assert.False(t, m.Prenatal)
	assert.Equal(t, []Header{H("A")}, tbl.Headers())
}

func TestTable_HeadersFollowOrder(t *testing.T) {
	ctx := context.Background()
	tbl := newTestRegistry().Table("t")

	for _, h := range []string{"C", "A", "B"} {
		require.NoError(t, tbl.Set(ctx, H(h), 0, value.Int(1)))
	}
	assert.Equal(t, []Header{H("C"), H("A"), H("B")}, tbl.Headers())
}

func TestTable_Row(t *testing.T) {
	tbl := newTestRegistry().Table("t")
	fill(t, tbl, H("A"), 1, value.Int(1), value.Int(2))
	fill(t, tbl, H("B"), 5, value.Int(5))

	row := tbl.Row(4, IndexAtOrBefore)
	require.Len(t, row, 2)
	assert.Equal(t, int64(2), row[0].Index)
	assert.Equal(t, value.Int(2), row[0].Value)

	row = tbl.Row(5, IndexAt)
	require.Len(t, row, 1, "columns that fail to resolve are skipped")
	assert.Equal(t, H("B"), row[0].Header)

	assert.Equal(t, []int64{1, 2, 5}, tbl.Indexes())
}

// =============================================================================
// Snapshot invariants
// =============================================================================

func TestTable_StructuralSharingOnSet(t *testing.T) {
	tbl := newTestRegistry().Table("t")
	fill(t, tbl, H("A"), 0, value.Int(1))
	fill(t, tbl, H("B"), 0, value.Int(2))
	fill(t, tbl, H("C"), 0, value.Int(3))

	old := tbl.Ref()
	require.NoError(t, tbl.Set(context.Background(), H("B"), 1, value.Int(9)))
	next := tbl.Ref()

	assert.Same(t, old.Column(H("A")), next.Column(H("A")))
	assert.Same(t, old.Column(H("C")), next.Column(H("C")))
	assert.NotSame(t, old.Column(H("B")), next.Column(H("B")))
	assert.Equal(t, old.Version()+1, next.Version())
}

func TestTable_VersionMonotonic(t *testing.T) {
	ctx := context.Background()
	tbl := newTestRegistry().Table("t")
	fill(t, tbl, H("A"), 0, value.Int(1), value.Int(2))

	steps := []func() error{
		func() error { return tbl.Set(ctx, H("A"), 0, nil) },
		func() error { return Rename(ctx, col(tbl, "A"), H("B")) },
		func() error { return MoveColumn(ctx, col(tbl, "B"), To, col(tbl, "B"), H("B")) },
		func() error { return MoveRow(ctx, tbl.RowAt(1, IndexAt), After, tbl.RowAt(3, IndexAt)) },
		func() error { return RemoveColumn(ctx, col(tbl, "B")) },
	}

	for i, step := range steps {
		before := tbl.Version()
		require.NoError(t, step(), "step %d", i)
		assert.Greater(t, tbl.Version(), before, "step %d", i)
	}
}

func TestTable_ConcurrentSetsAllCommit(t *testing.T) {
	ctx := context.Background()
	tbl := newTestRegistry().Table("t")
	_, err := tbl.Column(H("A"))
	require.NoError(t, err)
	start := tbl.Version()

	const numGoroutines = 20
	const setsPerGoroutine = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for g := 0; g < numGoroutines; g++ {
		go func(g int) {
			defer wg.Done()
			for i := 0; i < setsPerGoroutine; i++ {
				idx := int64(g*setsPerGoroutine + i)
				assert.NoError(t, tbl.Set(ctx, H("A"), idx, value.Int(idx)))
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, start+numGoroutines*setsPerGoroutine, tbl.Version(), "one version per committed write")
	assert.Equal(t, numGoroutines*setsPerGoroutine, tbl.Ref().Column(H("A")).Len())
}

func TestApply_ErrorDoesNotCommit(t *testing.T) {
	tbl := newTestRegistry().Table("t")
	fill(t, tbl, H("A"), 0, value.Int(1))
	before := tbl.Ref()

	old, next, err := tbl.apply(func(*Ref) (*Ref, error) {
		return nil, newColumnError("t", H("A"), "nope")
	})

	require.Error(t, err)
	assert.Same(t, before, old)
	assert.Same(t, before, next)
	assert.Same(t, before, tbl.Ref())
}

func TestApply_RetriesOnRace(t *testing.T) {
	tbl := newTestRegistry().Table("t")
	fill(t, tbl, H("A"), 0, value.Int(1))

	calls := 0
	old, next, err := tbl.apply(func(cur *Ref) (*Ref, error) {
		calls++
		if calls == 1 {
			// Another writer commits while this transform runs
			require.NoError(t, tbl.Set(context.Background(), H("A"), 1, value.Int(2)))
		}
		return cur.withCell(H("A"), 2, value.Int(3)), nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, old.Version()+1, next.Version())
	assert.Equal(t, 3, next.Column(H("A")).Len(), "the racing write is kept")
}

func TestTable_ClosedRejectsWrites(t *testing.T) {
	reg := newTestRegistry()
	tbl := reg.Table("t")
	fill(t, tbl, H("A"), 0, value.Int(1))

	require.True(t, reg.Delete("t"))

	err := tbl.Set(context.Background(), H("A"), 1, value.Int(2))
	assert.True(t, IsInvalidTable(err))
	_, err = tbl.Column(H("B"))
	assert.True(t, IsInvalidTable(err))

	assert.Equal(t, value.Int(1), tbl.Get(H("A"), 0, IndexAt).Value, "reads still work")
}

func TestRef_Snapshot(t *testing.T) {
	tbl := newTestRegistry().Table("t")
	fill(t, tbl, H("A"), 3, value.Int(1))
	_, err := tbl.Column(H("P"))
	require.NoError(t, err)

	s := tbl.Ref().Snapshot()
	assert.Equal(t, tbl.Version(), s.Version)
	require.Len(t, s.Columns, 2)
	assert.Equal(t, H("A"), s.Columns[0].Header)
	assert.Equal(t, []Entry{{3, value.Int(1)}}, s.Columns[0].Entries)
	assert.True(t, s.Columns[1].Prenatal)
}

func TestEvents_EmptySequence(t *testing.T) {
	var evs Events

	_, err := evs.OldRef()
	assert.True(t, IsInvalidSequence(err))
	_, err = evs.NewRef()
	assert.True(t, IsInvalidSequence(err))
}

func TestCell_CompareAndEqual(t *testing.T) {
	absent := Cell{}
	one := Cell{Value: value.Int(1)}
	oneDouble := Cell{Value: value.Double(1)}
	text := Cell{Value: value.Text("a")}

	assert.Negative(t, absent.Compare(one))
	assert.Negative(t, one.Compare(text))
	assert.True(t, one.Equal(oneDouble), "numbers compare across kinds")
}
