package store

import (
	"context"
	"errors"
	"testing"

	"github.com/sigbla/sigbla-app-sub004/internal/table"
	"github.com/sigbla/sigbla-app-sub004/internal/value"
)

func TestLoadSnapshot_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tbl := createTestTable(t, newTestRegistry(), "inventory")
	want := tbl.Ref().Snapshot()

	if err := s.SaveTable(ctx, "inventory", tbl.Ref()); err != nil {
		t.Fatalf("SaveTable() failed: %v", err)
	}
	got, err := s.LoadSnapshot(ctx, "inventory")
	if err != nil {
		t.Fatalf("LoadSnapshot() failed: %v", err)
	}

	if got.Version != want.Version {
		t.Errorf("version = %d, want %d", got.Version, want.Version)
	}
	if len(got.Columns) != len(want.Columns) {
		t.Fatalf("columns = %d, want %d", len(got.Columns), len(want.Columns))
	}
	for i, wc := range want.Columns {
		gc := got.Columns[i]
		if gc.Header != wc.Header || gc.Order != wc.Order || gc.Prenatal != wc.Prenatal {
			t.Errorf("column %d = %s/%d/%v, want %s/%d/%v",
				i, gc.Header, gc.Order, gc.Prenatal, wc.Header, wc.Order, wc.Prenatal)
		}
		if len(gc.Entries) != len(wc.Entries) {
			t.Errorf("column %s: entries = %d, want %d", wc.Header, len(gc.Entries), len(wc.Entries))
			continue
		}
		for j, we := range wc.Entries {
			ge := gc.Entries[j]
			if ge.Index != we.Index || value.KindOf(ge.Value) != value.KindOf(we.Value) || !value.Equal(ge.Value, we.Value) {
				t.Errorf("column %s entry %d = %d:%v, want %d:%v", wc.Header, j, ge.Index, ge.Value, we.Index, we.Value)
			}
		}
	}
}

func TestLoadSnapshot_DecimalKeepsScale(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tbl := createTestTable(t, newTestRegistry(), "t")

	if err := s.SaveTable(ctx, "t", tbl.Ref()); err != nil {
		t.Fatalf("SaveTable() failed: %v", err)
	}
	got, err := s.LoadSnapshot(ctx, "t")
	if err != nil {
		t.Fatalf("LoadSnapshot() failed: %v", err)
	}

	for _, c := range got.Columns {
		if c.Header != table.H("price") {
			continue
		}
		if s := c.Entries[0].Value.String(); s != "-12.3400" {
			t.Errorf("decimal = %s, want -12.3400", s)
		}
		return
	}
	t.Fatal("price column missing")
}

func TestLoadSnapshot_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.LoadSnapshot(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadSnapshot() error = %v, want ErrNotFound", err)
	}
}

func TestLoadSnapshot_CorruptCell(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tbl := createTestTable(t, newTestRegistry(), "t")
	if err := s.SaveTable(ctx, "t", tbl.Ref()); err != nil {
		t.Fatalf("SaveTable() failed: %v", err)
	}

	mustExec(t, s.db, "UPDATE cells SET tag = 2 WHERE idx = 4")

	if _, err := s.LoadSnapshot(ctx, "t"); err == nil {
		t.Error("expected error for mismatched tag")
	}
}

func TestLoad_RestoresIntoRegistry(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	src := createTestTable(t, newTestRegistry(), "inventory")
	if err := s.SaveTable(ctx, "inventory", src.Ref()); err != nil {
		t.Fatalf("SaveTable() failed: %v", err)
	}

	reg := newTestRegistry()
	tbl, err := s.Load(ctx, reg, "inventory")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if got, ok := reg.Lookup("inventory"); !ok || got != tbl {
		t.Error("restored table is not registered")
	}
	if got := tbl.Get(table.H("name"), 1, table.IndexAt).Value; got != value.Text("beta") {
		t.Errorf("name/1 = %v, want beta", got)
	}
	if tbl.Contains(table.H("empty")) {
		t.Error("prenatal column became visible")
	}

	// New columns continue after the stored ones
	if err := tbl.Set(ctx, table.H("fresh"), 0, value.Int(1)); err != nil {
		t.Fatal(err)
	}
	headers := tbl.Headers()
	if last := headers[len(headers)-1]; last != table.H("fresh") {
		t.Errorf("last header = %s, want [fresh]", last)
	}
}

func TestListTables_Empty(t *testing.T) {
	s := createTestStore(t)

	infos, err := s.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables() failed: %v", err)
	}
	if infos == nil || len(infos) != 0 {
		t.Errorf("ListTables() = %#v, want empty non-nil slice", infos)
	}
}
