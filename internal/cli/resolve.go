package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/equal1/eq1-pulse/internal/ir"
	"github.com/equal1/eq1-pulse/internal/resolve"
	"github.com/equal1/eq1-pulse/internal/validate"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "resolve <program-file>",
		Short: "Resolve a program to absolute start times",
		Long: `Validate a program and resolve every operation to an absolute start.

Sequences resolve through per-channel cursors; schedules resolve through
their anchor reference graph. The output is the canonical serialization
of the resolved document, suitable for hashing and archiving.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(rootOpts, args[0], outputPath, cmd)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the resolved document to a file instead of stdout")
	return cmd
}

func runResolve(opts *RootOptions, path, outputPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	doc, err := loadAndResolve(opts, path, formatter)
	if err != nil {
		formatter.Error(err.Error(), nil)
		return err
	}

	canonical, err := ir.MarshalCanonical(doc)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot serialize resolved document", err)
	}

	if contentID, err := doc.ContentID(); err == nil {
		formatter.VerboseLog("resolved content id: %s", contentID)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, append(canonical, '\n'), 0o644); err != nil {
			return WrapExitError(ExitCommandError, "cannot write output file", err)
		}
		formatter.VerboseLog("wrote %s", outputPath)
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(canonical))
	return nil
}

// loadAndResolve runs the full pipeline: load, validate, resolve.
func loadAndResolve(opts *RootOptions, path string, formatter *OutputFormatter) (*resolve.Document, error) {
	prog, _, err := LoadProgram(path)
	if err != nil {
		return nil, err
	}

	if _, err := validate.Program(prog); err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) {
			return nil, WrapExitError(ExitFailure,
				fmt.Sprintf("validation failed at %s", verr.Path), err)
		}
		return nil, WrapExitError(ExitFailure, "validation failed", err)
	}
	formatter.VerboseLog("validation passed for %s", path)

	doc, err := resolve.Program(prog)
	if err != nil {
		var rerr *resolve.Error
		if errors.As(err, &rerr) {
			return nil, WrapExitError(ExitFailure,
				fmt.Sprintf("resolution failed at %s", rerr.Path), err)
		}
		return nil, WrapExitError(ExitFailure, "resolution failed", err)
	}
	return doc, nil
}
