package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/chrona/internal/harness"
)

// FileValidation holds the validation outcome for one scenario file.
type FileValidation struct {
	File   string                    `json:"file"`
	Valid  bool                      `json:"valid"`
	Errors []harness.ValidationError `json:"errors,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Validate scenario files without running them",
		Long: `Check scenario files against the scenario schema and the structural
rules the runner enforces (known kinds, finite times, valid rates, actions
with known operators, well-formed assertions).

Exit codes:
  0 - All files are valid
  1 - One or more files are invalid
  2 - Command error`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	for _, file := range files {
		f.VerboseLog("Validating %s", file)
		errs := harness.ValidateFile(file)
		fv := FileValidation{File: file, Valid: len(errs) == 0, Errors: errs}
		result.Files = append(result.Files, fv)
		if !fv.Valid {
			result.Valid = false
		}
	}

	if f.JSON() {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		for _, fv := range result.Files {
			if fv.Valid {
				fmt.Fprintf(f.Writer, "✓ %s\n", fv.File)
				continue
			}
			fmt.Fprintf(f.Writer, "✗ %s\n", fv.File)
			for _, e := range fv.Errors {
				fmt.Fprintf(f.Writer, "  %s\n", e.Error())
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}
