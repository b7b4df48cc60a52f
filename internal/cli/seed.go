package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigbla/sigbla-app-sub004/internal/script"
	"github.com/sigbla/sigbla-app-sub004/internal/store"
	"github.com/sigbla/sigbla-app-sub004/internal/table"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Database string
}

// SeedResult lists the tables written by the seed command.
type SeedResult struct {
	Tables []store.TableInfo `json:"tables"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <file.cue>",
		Short: "Load a CUE seed into a database",
		Long: `Compile a CUE seed file and save its tables to a SQLite database.

Tables already stored under the same name are replaced.

Example:
  sigbla seed --db ./tables.db ./seeds/prices.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSeed(opts *SeedOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("seed file not found: %s", path), nil)
	}

	seed, err := script.LoadSeed(path)
	if err != nil {
		var seedErr *script.SeedError
		details := any(nil)
		if errors.As(err, &seedErr) {
			details = seedErr.Pos
		}
		_ = formatter.Error(ErrCodeInvalidSeed, err.Error(), details)
		return WrapExitError(ExitFailure, "invalid seed", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reg := table.NewRegistry(table.WithLogger(logger))
	if err := seed.Apply(ctx, reg); err != nil {
		return formatter.fail(ExitFailure, ErrCodeInvalidSeed, "failed to apply seed", err)
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

	if err := st.SaveRegistry(ctx, reg); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, "failed to save tables", err)
	}

	stored, err := st.ListTables(ctx)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, "failed to list tables", err)
	}
	seeded := make(map[string]bool, len(seed.Tables))
	for _, t := range seed.Tables {
		seeded[t.Name] = true
	}
	result := SeedResult{Tables: []store.TableInfo{}}
	for _, info := range stored {
		if seeded[info.Name] {
			result.Tables = append(result.Tables, info)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	for _, info := range result.Tables {
		fmt.Fprintf(formatter.Writer, "seeded %s: %d column(s), %d cell(s), version %d\n",
			info.Name, info.Columns, info.Cells, info.Version)
	}
	return nil
}
