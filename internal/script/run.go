package script

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/sigbla/sigbla-app-sub004/internal/table"
	"github.com/sigbla/sigbla-app-sub004/internal/testutil"
	"github.com/sigbla/sigbla-app-sub004/internal/value"
)

// RunOption configures Run.
type RunOption func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger passed to the registry. Logs are discarded
// by default.
func WithLogger(l *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = l
	}
}

// runner executes one script against a fresh registry.
type runner struct {
	reg    *table.Registry
	clock  *table.Clock
	logger *slog.Logger

	mu     sync.Mutex
	result *Result
}

// Run executes a script and returns the result.
//
// Each script runs against a fresh registry with sequential table IDs.
// Execution flow:
//  1. Apply the seed file, then the inline tables
//  2. Subscribe listeners (history is recorded unless skipped)
//  3. Apply steps, checking expected errors
//  4. Evaluate assertions if every step behaved as expected
//
// The returned error covers setup failures only. Step and assertion
// failures are reported through Result.
func Run(s *Script, opts ...RunOption) (*Result, error) {
	cfg := runConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &runner{
		reg: table.NewRegistry(
			table.WithLogger(cfg.logger),
			table.WithIDGenerator(testutil.NewSequentialIDs("t")),
		),
		clock:  table.NewClock(),
		logger: cfg.logger,
		result: NewResult(),
	}
	r.result.Registry = r.reg

	ctx := context.Background()

	if s.Seed != "" {
		seed, err := LoadSeed(s.Seed)
		if err != nil {
			return nil, err
		}
		if err := seed.Apply(ctx, r.reg); err != nil {
			return nil, err
		}
	}
	if err := r.applyTables(ctx, s.Tables); err != nil {
		return nil, err
	}

	for _, l := range s.Listeners {
		if err := r.subscribe(ctx, l); err != nil {
			return nil, fmt.Errorf("listener %s: %w", l.Name, err)
		}
	}

	for i := range s.Steps {
		if !r.step(ctx, i, &s.Steps[i]) {
			break
		}
	}

	if r.result.Pass {
		for i, a := range s.Assertions {
			if err := r.assert(a); err != nil {
				r.result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
			}
		}
	}

	r.logger.Debug("script finished",
		"script", s.Name,
		"pass", r.result.Pass,
		"trace", len(r.result.Trace))
	return r.result, nil
}

func (r *runner) applyTables(ctx context.Context, tables map[string][]ColumnData) error {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		t := r.reg.Table(name)
		for _, c := range tables[name] {
			if _, err := t.Column(c.Column.Header); err != nil {
				return fmt.Errorf("table %s: %w", name, err)
			}
			indexes := make([]int64, 0, len(c.Cells))
			for i := range c.Cells {
				indexes = append(indexes, i)
			}
			slices.Sort(indexes)
			for _, i := range indexes {
				if err := t.Set(ctx, c.Column.Header, i, c.Cells[i].Value); err != nil {
					return fmt.Errorf("table %s%s@%d: %w", name, c.Column.Header, i, err)
				}
			}
		}
	}
	return nil
}

func (r *runner) subscribe(ctx context.Context, l ListenerSpec) error {
	src, err := l.Source.build()
	if err != nil {
		return err
	}

	opts := []table.ListenerOption{table.Name(l.Name), table.WithOrder(l.Order)}
	if l.SkipHistory {
		opts = append(opts, table.SkipHistory())
	}

	name := l.Name
	_, err = r.reg.Table(l.Table).Subscribe(ctx, src, func(_ context.Context, evs table.Events) error {
		r.record(name, evs)
		return nil
	}, opts...)
	return err
}

// record appends one trace entry per event, ordered by location.
func (r *runner) record(listener string, evs table.Events) {
	sorted := slices.Clone(evs)
	slices.SortStableFunc(sorted, func(a, b table.Event) int {
		if c := a.New.Header.Compare(b.New.Header); c != 0 {
			return c
		}
		switch {
		case a.New.Index < b.New.Index:
			return -1
		case a.New.Index > b.New.Index:
			return 1
		default:
			return 0
		}
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range sorted {
		r.result.Trace = append(r.result.Trace, TraceEntry{
			Seq:      r.clock.Next(),
			Type:     EntryEvent,
			Listener: listener,
			Table:    e.New.Table,
			Old:      cellText(e.Old),
			New:      cellText(e.New),
		})
	}
}

func cellText(c table.Cell) string {
	return fmt.Sprintf("%s@%d=%s", c.Header, c.Index, formatValue(c.Value))
}

// step applies one step. It returns false if the run should stop.
func (r *runner) step(ctx context.Context, i int, st *Step) bool {
	r.mu.Lock()
	at := len(r.result.Trace)
	r.result.Trace = append(r.result.Trace, TraceEntry{
		Seq:   r.clock.Next(),
		Type:  EntryStep,
		Op:    st.Op,
		Table: st.Table,
	})
	r.mu.Unlock()

	err := r.apply(ctx, st)
	code := string(table.CodeOf(err))

	r.mu.Lock()
	defer r.mu.Unlock()
	entry := &r.result.Trace[at]
	if t, ok := r.reg.Lookup(st.Table); ok {
		entry.Version = t.Version()
	}
	if err != nil {
		entry.Error = code
		if code == "" {
			entry.Error = err.Error()
		}
	}

	switch {
	case err == nil && st.ExpectError == "":
		return true
	case err == nil:
		r.result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got none", i, st.Op, st.ExpectError))
		return true
	case st.ExpectError == "":
		r.result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, st.Op, err))
		return false
	case code != st.ExpectError:
		r.result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got %v", i, st.Op, st.ExpectError, err))
		return true
	default:
		r.logger.Debug("expected step error", "step", i, "op", st.Op, "code", code)
		return true
	}
}

func (r *runner) apply(ctx context.Context, st *Step) error {
	if st.Op == OpRemoveTable {
		if !r.reg.Delete(st.Table) {
			return &table.Error{Code: table.ErrCodeInvalidTable, Message: "table not found", Table: st.Table}
		}
		return nil
	}

	t := r.reg.Table(st.Table)
	rel, err := table.ParseIndexRelation(st.Relation)
	if err != nil {
		return err
	}
	column := table.ColumnRef{Table: t, Header: st.Column.Header}
	withName := st.To.Header
	if withName.IsZero() {
		withName = st.Column.Header
	}

	switch st.Op {
	case OpSet:
		return t.Set(ctx, st.Column.Header, *st.Index, st.Value.Value)

	case OpClear:
		switch {
		case !st.Column.IsZero() && st.Index != nil:
			return table.ClearCell(ctx, column, *st.Index)
		case !st.Column.IsZero():
			return table.ClearColumn(ctx, column)
		case st.Index != nil:
			return table.ClearRow(ctx, t.RowAt(*st.Index, rel))
		default:
			return table.ClearTable(ctx, t)
		}

	case OpMoveColumn, OpCopyColumn:
		order, err := table.ParsePlacement(st.Order)
		if err != nil {
			return err
		}
		right := table.ColumnRef{Table: r.target(st, t), Header: st.Target.Column.Header}
		if st.Op == OpMoveColumn {
			return table.MoveColumn(ctx, column, order, right, withName)
		}
		return table.CopyColumn(ctx, column, order, right, withName)

	case OpMoveColumnToTable:
		return table.MoveColumnToTable(ctx, column, r.target(st, t), withName)

	case OpCopyColumnToTable:
		return table.CopyColumnToTable(ctx, column, r.target(st, t), withName)

	case OpRename:
		return table.Rename(ctx, column, st.To.Header)

	case OpRemoveColumn:
		return table.RemoveColumn(ctx, column)

	case OpMoveRow, OpCopyRow:
		order, err := table.ParsePlacement(st.Order)
		if err != nil {
			return err
		}
		left := t.RowAt(*st.Index, rel)
		right := r.target(st, t).RowAt(*st.Target.Index, table.IndexAt)
		if st.Op == OpMoveRow {
			return table.MoveRow(ctx, left, order, right)
		}
		return table.CopyRow(ctx, left, order, right)

	case OpRemoveRow:
		return table.RemoveRow(ctx, t.RowAt(*st.Index, rel))

	case OpSwapColumns:
		right := table.ColumnRef{Table: r.target(st, t), Header: st.Target.Column.Header}
		return table.SwapColumns(ctx, column, right)

	case OpSwapRows:
		left := t.RowAt(*st.Index, table.IndexAt)
		right := r.target(st, t).RowAt(*st.Target.Index, table.IndexAt)
		return table.SwapRows(ctx, left, right)

	case OpClone:
		_, err := r.reg.Clone(t, st.Name)
		return err

	case OpCompact:
		return table.Compact(ctx, t)

	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
}

// target returns the step's target table, defaulting to t.
func (r *runner) target(st *Step, t *table.Table) *table.Table {
	if st.Target == nil || st.Target.Table == "" {
		return t
	}
	return r.reg.Table(st.Target.Table)
}

func (r *runner) assert(a Assertion) error {
	if a.Type == AssertEventCount {
		r.mu.Lock()
		got := r.result.EventCount(a.Listener)
		r.mu.Unlock()
		if got != a.Count {
			return r.failure(a.Type,
				fmt.Sprintf("%d events for listener %s", a.Count, a.Listener),
				fmt.Sprintf("%d events", got))
		}
		return nil
	}

	t, ok := r.reg.Lookup(a.Table)
	if !ok {
		return r.failure(a.Type, fmt.Sprintf("table %s", a.Table), "table not found")
	}

	switch a.Type {
	case AssertCell:
		rel, err := table.ParseIndexRelation(a.Relation)
		if err != nil {
			return err
		}
		got := t.Get(a.Column.Header, a.Index, rel).Value
		want := a.Expect.Value
		if value.KindOf(got) != value.KindOf(want) || !value.Equal(got, want) {
			return r.failure(a.Type,
				fmt.Sprintf("%s%s@%d (%s) = %s", a.Table, a.Column.Header, a.Index, rel, formatValue(want)),
				formatValue(got))
		}

	case AssertHeaders:
		want := make([]table.Header, len(a.Headers))
		for i, h := range a.Headers {
			want[i] = h.Header
		}
		if got := t.Headers(); !slices.Equal(got, want) {
			return r.failure(a.Type, fmt.Sprintf("headers %v", want), fmt.Sprintf("headers %v", got))
		}

	case AssertIndexes:
		if got := t.Indexes(); !slices.Equal(got, a.Indexes) {
			return r.failure(a.Type, fmt.Sprintf("indexes %v", a.Indexes), fmt.Sprintf("indexes %v", got))
		}

	case AssertVersion:
		if got := t.Version(); got != a.Version {
			return r.failure(a.Type, fmt.Sprintf("version %d", a.Version), fmt.Sprintf("version %d", got))
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func (r *runner) failure(typ, expected, actual string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &AssertionError{
		Type:     typ,
		Expected: expected,
		Actual:   actual,
		Trace:    slices.Clone(r.result.Trace),
	}
}
