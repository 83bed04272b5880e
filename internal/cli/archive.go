package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/equal1/eq1-pulse/internal/ir"
	"github.com/equal1/eq1-pulse/internal/resolve"
	"github.com/equal1/eq1-pulse/internal/store"
	"github.com/equal1/eq1-pulse/internal/validate"
)

// NewArchiveCommand creates the archive command group.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive programs by content id",
		Long: `Archive programs in a content-addressed SQLite database.

Programs are keyed by the SHA-256 of their canonical serialization, so
archiving an equivalent program twice stores it once. Resolved documents
are archived alongside the program they were resolved from.`,
	}

	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the archive database (required)")
	cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(newArchivePutCommand(rootOpts, &dbPath))
	cmd.AddCommand(newArchiveGetCommand(rootOpts, &dbPath))
	cmd.AddCommand(newArchiveListCommand(rootOpts, &dbPath))

	return cmd
}

func newArchivePutCommand(rootOpts *RootOptions, dbPath *string) *cobra.Command {
	var withResolved bool

	cmd := &cobra.Command{
		Use:           "put <program-file>",
		Short:         "Validate and archive a program",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchivePut(rootOpts, *dbPath, args[0], withResolved, cmd)
		},
	}

	cmd.Flags().BoolVar(&withResolved, "resolved", false, "also resolve the program and archive the resolved document")
	return cmd
}

func runArchivePut(opts *RootOptions, dbPath, path string, withResolved bool, cmd *cobra.Command) error {
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
	if _, err := validate.Program(prog); err != nil {
		formatter.Error(err.Error(), nil)
		return WrapExitError(ExitFailure, "program is invalid", err)
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot open archive", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	contentID, err := s.PutProgram(ctx, prog)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot archive program", err)
	}

	result := map[string]any{"content_id": contentID}
	if withResolved {
		doc, err := resolve.Program(prog)
		if err != nil {
			formatter.Error(err.Error(), nil)
			return WrapExitError(ExitFailure, "resolution failed", err)
		}
		resolvedID, err := s.PutResolved(ctx, contentID, doc)
		if err != nil {
			return WrapExitError(ExitCommandError, "cannot archive resolved document", err)
		}
		result["resolved_content_id"] = resolvedID
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	if withResolved {
		return formatter.Success(fmt.Sprintf("archived %s (resolved %s)",
			contentID, result["resolved_content_id"]))
	}
	return formatter.Success(fmt.Sprintf("archived %s", contentID))
}

func newArchiveGetCommand(rootOpts *RootOptions, dbPath *string) *cobra.Command {
	var resolved bool

	cmd := &cobra.Command{
		Use:           "get <content-id>",
		Short:         "Print an archived program in canonical form",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveGet(rootOpts, *dbPath, args[0], resolved, cmd)
		},
	}

	cmd.Flags().BoolVar(&resolved, "resolved", false, "print the archived resolved document instead of the program")
	return cmd
}

func runArchiveGet(opts *RootOptions, dbPath, contentID string, resolved bool, cmd *cobra.Command) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot open archive", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	var canonical []byte
	if resolved {
		doc, err := s.GetResolved(ctx, contentID)
		if err != nil {
			return WrapExitError(ExitFailure, "cannot load resolved document", err)
		}
		canonical, err = ir.MarshalCanonical(doc)
		if err != nil {
			return WrapExitError(ExitCommandError, "cannot serialize resolved document", err)
		}
	} else {
		prog, err := s.GetProgram(ctx, contentID)
		if err != nil {
			return WrapExitError(ExitFailure, "cannot load program", err)
		}
		canonical, err = ir.MarshalCanonical(prog)
		if err != nil {
			return WrapExitError(ExitCommandError, "cannot serialize program", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(canonical))
	return nil
}

func newArchiveListCommand(rootOpts *RootOptions, dbPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List archived programs, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveList(rootOpts, *dbPath, limit, cmd)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries")
	return cmd
}

func runArchiveList(opts *RootOptions, dbPath string, limit int, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot open archive", err)
	}
	defer s.Close()

	entries, err := s.ListPrograms(cmd.Context(), limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot list archive", err)
	}

	if opts.Format == "json" {
		return formatter.Success(entries)
	}
	for _, e := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-8s  %s\n", e.ContentID, e.Kind, e.CreatedAt)
	}
	return nil
}
