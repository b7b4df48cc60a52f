package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sigbla/sigbla-app-sub004/internal/script"
	"github.com/sigbla/sigbla-app-sub004/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// RunResult is the outcome of one script run.
type RunResult struct {
	Script string              `json:"script"`
	Pass   bool                `json:"pass"`
	Trace  []script.TraceEntry `json:"trace"`
	Errors []string            `json:"errors,omitempty"`
	Saved  []string            `json:"saved,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Run a script and print its trace",
		Long: `Run a YAML script against a fresh set of tables.

Prints every step and listener event in order, then the assertion
results. With --db the final tables are saved to a SQLite database,
creating it if it doesn't exist.

Example:
  sigbla run ./scripts/rename.yaml
  sigbla run --db ./tables.db ./scripts/rename.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database to save the final tables to")

	return cmd
}

func runScript(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd)

	s, err := script.LoadScript(path)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeInvalidScript, "failed to load script", err)
	}

	logger.Debug("running script", "script", s.Name, "steps", len(s.Steps))
	result, err := script.Run(s, script.WithLogger(logger))
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeInvalidSeed, "script setup failed", err)
	}

	out := RunResult{
		Script: s.Name,
		Pass:   result.Pass,
		Trace:  result.Trace,
		Errors: result.Errors,
	}

	if opts.Database != "" {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		saved, err := saveTables(ctx, opts.Database, result, logger)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, "failed to save tables", err)
		}
		out.Saved = saved
	}

	if formatter.Format == "json" {
		if !out.Pass {
			if err := formatter.Failure(ErrCodeScriptFailed, "script failed", out); err != nil {
				return err
			}
			return NewExitError(ExitFailure, fmt.Sprintf("script %s failed", s.Name))
		}
		return formatter.Success(out)
	}

	w := formatter.Writer
	for _, entry := range out.Trace {
		fmt.Fprintf(w, "[%d] %s\n", entry.Seq, entry)
	}
	for _, name := range out.Saved {
		fmt.Fprintf(w, "saved %s\n", name)
	}
	if !out.Pass {
		fmt.Fprintf(w, "✗ %s\n", s.Name)
		for _, e := range out.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("script %s failed", s.Name))
	}
	fmt.Fprintf(w, "✓ %s\n", s.Name)
	return nil
}

// saveTables writes every table of the run to the database at path and
// returns the saved names.
func saveTables(ctx context.Context, path string, result *script.Result, logger *slog.Logger) ([]string, error) {
	st, err := store.Open(path, store.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	if err := st.SaveRegistry(ctx, result.Registry); err != nil {
		return nil, err
	}
	return result.Registry.Names(), nil
}
