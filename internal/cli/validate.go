package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/equal1/eq1-pulse/internal/ir"
	"github.com/equal1/eq1-pulse/internal/schema"
	"github.com/equal1/eq1-pulse/internal/validate"
)

// ValidationResult holds validation results for JSON output.
type ValidationResult struct {
	Valid  bool            `json:"valid"`
	Issues []schema.Issue  `json:"issues,omitempty"`
	Error  *ValidationFail `json:"error,omitempty"`
}

// ValidationFail is one scope or type failure, with its node path.
type ValidationFail struct {
	Kind    string `json:"kind"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <program-file>",
		Short: "Check a program against the wire schema and scope rules",
		Long: `Validate a program document without resolving it.

The document is checked structurally against the wire schema first, then
for scope and type errors: undeclared or forward references, duplicate
declarations, unit mismatches, and malformed pulses.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	raw, err := ReadProgramBytes(path)
	if err != nil {
		formatter.Error(err.Error(), nil)
		return err
	}

	// Structural check first: schema issues read better than decode errors.
	issues, err := schema.Program(raw)
	if err != nil {
		return WrapExitError(ExitCommandError, "schema check failed", err)
	}
	if len(issues) > 0 {
		if opts.Format == "json" {
			if err := formatter.Success(ValidationResult{Valid: false, Issues: issues}); err != nil {
				return err
			}
		} else {
			for _, issue := range issues {
				formatter.Error(issue.Message, issue.Path)
			}
		}
		return NewExitError(ExitFailure, "program does not match the wire schema")
	}
	formatter.VerboseLog("schema check passed for %s", path)

	var prog ir.Program
	if err := prog.UnmarshalJSON(raw); err != nil {
		decodeErr := WrapExitError(ExitFailure, "cannot decode program", err)
		formatter.Error(decodeErr.Error(), nil)
		return decodeErr
	}

	if _, err := validate.Program(prog); err != nil {
		fail := toValidationFail(err)
		if opts.Format == "json" {
			if err := formatter.Success(ValidationResult{Valid: false, Error: fail}); err != nil {
				return err
			}
		} else {
			formatter.Error(fail.Message, fail.Path)
		}
		return NewExitError(ExitFailure, "program is invalid")
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}
	return formatter.Success("program is valid")
}

func toValidationFail(err error) *ValidationFail {
	var verr *validate.Error
	if errors.As(err, &verr) {
		return &ValidationFail{
			Kind:    string(verr.Kind),
			Path:    verr.Path,
			Message: verr.Message,
		}
	}
	return &ValidationFail{Message: err.Error()}
}
