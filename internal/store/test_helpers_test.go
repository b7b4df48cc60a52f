package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sigbla/sigbla-app-sub004/internal/table"
	"github.com/sigbla/sigbla-app-sub004/internal/testutil"
	"github.com/sigbla/sigbla-app-sub004/internal/value"
)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestRegistry() *table.Registry {
	return table.NewRegistry(table.WithIDGenerator(testutil.NewSequentialIDs("t")))
}

// createTestTable builds a table holding one value of every kind plus a
// prenatal column.
func createTestTable(t *testing.T, reg *table.Registry, name string) *table.Table {
	t.Helper()
	ctx := context.Background()
	tbl := reg.Table(name)

	writes := []struct {
		h     table.Header
		index int64
		v     value.Value
	}{
		{table.H("name"), 0, value.Text("alpha")},
		{table.H("name"), 1, value.Text("beta")},
		{table.H("qty"), 0, value.Int(-7)},
		{table.H("qty"), 5, value.Double(2.5)},
		{table.H("big", "n"), 2, mustParse(t, value.ParseBigInt, "123456789012345678901234567890")},
		{table.H("price"), 3, mustParse(t, value.ParseDecimal, "-12.3400")},
		{table.H("page"), 4, value.Web("<b>hi</b>")},
	}
	for _, w := range writes {
		if err := tbl.Set(ctx, w.h, w.index, w.v); err != nil {
			t.Fatalf("Set(%s, %d) failed: %v", w.h, w.index, err)
		}
	}
	if _, err := tbl.Column(table.H("empty")); err != nil {
		t.Fatalf("Column() failed: %v", err)
	}
	return tbl
}

func mustParse[V value.Value](t *testing.T, parse func(string) (V, error), s string) value.Value {
	t.Helper()
	v, err := parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}
