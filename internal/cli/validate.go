package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sigbla/sigbla-app-sub004/internal/script"
)

// FileValidation is the validation outcome of one script.
type FileValidation struct {
	Path  string `json:"path"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <script>...",
		Short: "Validate scripts without running them",
		Long: `Parse and validate YAML scripts without running them.

Checks step and assertion fields, listener sources and value literals.
A script's seed file is compiled as well.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		fv := FileValidation{Path: path, Valid: true}
		if err := validateFile(path); err != nil {
			fv.Valid = false
			fv.Error = err.Error()
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if formatter.Format == "json" {
		if !result.Valid {
			if err := formatter.Failure(ErrCodeInvalidScript, "validation failed", result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d file(s)", countInvalid(result)))
		}
		return formatter.Success(result)
	}

	w := formatter.Writer
	for _, fv := range result.Files {
		if fv.Valid {
			fmt.Fprintf(w, "✓ %s\n", fv.Path)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", fv.Path)
		fmt.Fprintf(w, "  %s\n", fv.Error)
	}
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d file(s)", countInvalid(result)))
	}
	return nil
}

// validateFile loads a script and compiles its seed, if any.
func validateFile(path string) error {
	s, err := script.LoadScript(path)
	if err != nil {
		return err
	}
	if s.Seed != "" {
		if _, err := script.LoadSeed(s.Seed); err != nil {
			return err
		}
	}
	return nil
}

func countInvalid(r ValidationResult) int {
	n := 0
	for _, fv := range r.Files {
		if !fv.Valid {
			n++
		}
	}
	return n
}
