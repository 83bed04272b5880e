package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global CLI options shared across commands.
type RootOptions struct {
	Verbose bool
	Format  string
}

// ValidFormats lists the accepted output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root eq1pulse command with all subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	rootCmd := &cobra.Command{
		Use:   "eq1pulse",
		Short: "Pulse program tooling",
		Long: `eq1pulse works with hardware-agnostic pulse programs.

A program is a JSON or YAML document: a sequence timed by per-channel
cursors, or a schedule timed by anchors into a reference graph. The
tool validates programs, resolves them to absolute start times, prints
their canonical serialization, and archives them by content id.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text or json)")

	rootCmd.AddCommand(NewValidateCommand(opts))
	rootCmd.AddCommand(NewResolveCommand(opts))
	rootCmd.AddCommand(NewFmtCommand(opts))
	rootCmd.AddCommand(NewArchiveCommand(opts))

	return rootCmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if format == f {
			return true
		}
	}
	return false
}
