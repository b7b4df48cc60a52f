package table

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigbla/sigbla-app-sub004/internal/testutil"
	"github.com/sigbla/sigbla-app-sub004/internal/value"
)

func newTestRegistry(opts ...RegistryOption) *Registry {
	base := []RegistryOption{
		WithIDGenerator(testutil.NewSequentialIDs("t")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return NewRegistry(append(base, opts...)...)
}

// fill writes values into column h starting at row first.
func fill(t *testing.T, tbl *Table, h Header, first int64, values ...value.Value) {
	t.Helper()
	for i, v := range values {
		require.NoError(t, tbl.Set(context.Background(), h, first+int64(i), v))
	}
}

func col(tbl *Table, labels ...string) ColumnRef {
	return ColumnRef{Table: tbl, Header: H(labels...)}
}

// columnValues returns h's entries as index → value.
func columnValues(tbl *Table, h Header) map[int64]value.Value {
	out := make(map[int64]value.Value)
	for _, e := range tbl.Ref().Column(h).Entries() {
		out[e.Index] = e.Value
	}
	return out
}

// recorder collects delivered events.
type recorder struct {
	mu      sync.Mutex
	batches []Events
}

func (r *recorder) listen(_ context.Context, evs Events) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, evs)
	return nil
}

func (r *recorder) events() Events {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out Events
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func (r *recorder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = nil
}

// watch subscribes a recorder to the whole table without history.
func watch(t *testing.T, tbl *Table) *recorder {
	t.Helper()
	rec := &recorder{}
	_, err := tbl.Subscribe(context.Background(), TableSource(), rec.listen, SkipHistory())
	require.NoError(t, err)
	return rec
}

type loc struct {
	table  string
	header string
	index  int64
}

func locations(evs Events) map[loc]int {
	out := make(map[loc]int)
	for _, e := range evs {
		out[loc{e.New.Table, e.New.Header.String(), e.New.Index}]++
	}
	return out
}
