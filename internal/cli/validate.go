package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/signupflow/internal/harness"
	"github.com/roach88/signupflow/internal/validation"
)

// FileError is one problem found in one file.
type FileError struct {
	File    string `json:"file"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool        `json:"valid"`
	Files  int         `json:"files"`
	Errors []FileError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check scenario and policy files",
		Long: `Check scenario files (.yaml, .yml) and CUE policy files (.cue)
without running anything.

Scenarios are checked for unknown fields, malformed steps and assertions,
and an invalid embedded policy. Policies are checked against the policy
schema: unknown fields, out-of-range lengths and bad patterns.

Examples:
  signupflow validate scenarios/*.yaml
  signupflow validate policy.cue --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	var errs []FileError
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)
		if fe := validateFile(file); fe != nil {
			errs = append(errs, *fe)
		}
	}

	if len(errs) > 0 {
		return outputValidationErrors(formatter, len(files), errs)
	}
	return outputValidateSuccess(formatter, len(files))
}

// validateFile checks one file by extension and returns its first problem.
func validateFile(file string) *FileError {
	switch filepath.Ext(file) {
	case ".yaml", ".yml":
		if _, err := harness.LoadScenario(file); err != nil {
			return &FileError{File: file, Code: CodeInvalidScenario, Message: err.Error()}
		}
	case ".cue":
		if _, err := validation.LoadPolicy(file); err != nil {
			fe := &FileError{File: file, Code: CodeInvalidPolicy, Message: err.Error()}
			var pe *validation.PolicyError
			if errors.As(err, &pe) && pe.Pos.IsValid() {
				fe.Line = pe.Pos.Line()
			}
			return fe
		}
	default:
		return &FileError{
			File:    file,
			Code:    CodeUnknownFile,
			Message: fmt.Sprintf("unsupported file type %q (want .yaml, .yml or .cue)", filepath.Ext(file)),
		}
	}
	return nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, files int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Files: files})
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d file(s) valid\n", files)
	return nil
}

// outputValidationErrors outputs every file problem.
func outputValidationErrors(formatter *OutputFormatter, files int, errs []FileError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Files: files, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, fe := range errs {
		if fe.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", fe.File, fe.Line)
		} else {
			fmt.Fprintln(formatter.Writer, fe.File)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", fe.Code, fe.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
