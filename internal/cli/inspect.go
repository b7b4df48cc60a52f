package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sigbla/sigbla-app-sub004/internal/store"
	"github.com/sigbla/sigbla-app-sub004/internal/table"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Database string
}

// InspectCell is one stored cell.
type InspectCell struct {
	Index int64  `json:"index"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// InspectColumn is one stored column with its cells.
type InspectColumn struct {
	Header   []string      `json:"header"`
	Order    int64         `json:"order"`
	Prenatal bool          `json:"prenatal,omitempty"`
	Cells    []InspectCell `json:"cells"`
}

// InspectTable is a stored table snapshot.
type InspectTable struct {
	Name    string          `json:"name"`
	Version int64           `json:"version"`
	Columns []InspectColumn `json:"columns"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect [table]",
		Short: "List stored tables or print one",
		Long: `Read tables saved in a SQLite database.

Without arguments, lists every stored table with its version and size.
With a table name, prints its columns and cells.

Example:
  sigbla inspect --db ./tables.db
  sigbla inspect --db ./tables.db prices --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runInspect(opts *InspectOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
	}

	st, err := store.Open(opts.Database, store.WithLogger(logger))
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	if len(args) == 0 {
		return listTables(ctx, st, formatter)
	}
	return showTable(ctx, st, args[0], formatter)
}

func listTables(ctx context.Context, st *store.Store, f *OutputFormatter) error {
	infos, err := st.ListTables(ctx)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeStore, "failed to list tables", err)
	}

	if f.Format == "json" {
		return f.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(f.Writer, "No tables stored.")
		return nil
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tCOLUMNS\tCELLS")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", info.Name, info.Version, info.Columns, info.Cells)
	}
	return tw.Flush()
}

func showTable(ctx context.Context, st *store.Store, name string, f *OutputFormatter) error {
	snap, err := st.LoadSnapshot(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return f.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("table not stored: %s", name), nil)
	}
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeStore, "failed to load table", err)
	}

	out := toInspectTable(name, snap)
	if f.Format == "json" {
		return f.Success(out)
	}

	fmt.Fprintf(f.Writer, "%s (version %d)\n", out.Name, out.Version)
	for i, col := range snap.Columns {
		flag := ""
		if col.Prenatal {
			flag = " prenatal"
		}
		fmt.Fprintf(f.Writer, "%s%s\n", col.Header, flag)
		for _, cell := range out.Columns[i].Cells {
			fmt.Fprintf(f.Writer, "  %d\t%s\t%s\n", cell.Index, cell.Kind, cell.Value)
		}
	}
	return nil
}

func toInspectTable(name string, snap table.Snapshot) InspectTable {
	out := InspectTable{
		Name:    name,
		Version: snap.Version,
		Columns: make([]InspectColumn, 0, len(snap.Columns)),
	}
	for _, col := range snap.Columns {
		ic := InspectColumn{
			Header:   col.Header.Labels(),
			Order:    col.Order,
			Prenatal: col.Prenatal,
			Cells:    make([]InspectCell, 0, len(col.Entries)),
		}
		for _, e := range col.Entries {
			ic.Cells = append(ic.Cells, InspectCell{
				Index: e.Index,
				Kind:  e.Value.Kind().String(),
				Value: e.Value.String(),
			})
		}
		out.Columns = append(out.Columns, ic)
	}
	return out
}
