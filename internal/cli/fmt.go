package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/equal1/eq1-pulse/internal/ir"
)

// NewFmtCommand creates the fmt command.
func NewFmtCommand(rootOpts *RootOptions) *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "fmt <program-file>",
		Short: "Print a program's canonical serialization",
		Long: `Re-serialize a program in canonical form.

Canonical form sorts object keys by UTF-16 code units, normalizes
strings to NFC, and escapes minimally. Two equivalent programs have
byte-identical canonical forms and therefore equal content ids.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(rootOpts, args[0], write, cmd)
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite the file in place instead of printing")
	return cmd
}

func runFmt(opts *RootOptions, path string, write bool, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	prog, _, err := LoadProgram(path)
	if err != nil {
		formatter.Error(err.Error(), nil)
		return err
	}

	canonical, err := ir.MarshalCanonical(prog)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot serialize program", err)
	}

	if contentID, err := ir.ProgramID(prog); err == nil {
		formatter.VerboseLog("content id: %s", contentID)
	}

	if write {
		if err := os.WriteFile(path, append(canonical, '\n'), 0o644); err != nil {
			return WrapExitError(ExitCommandError, "cannot rewrite program file", err)
		}
		formatter.VerboseLog("rewrote %s", path)
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(canonical))
	return nil
}
