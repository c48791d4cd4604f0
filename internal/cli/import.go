package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/denorm/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
}

// ImportResult is the JSON payload of the import command.
type ImportResult struct {
	store.WriteStats
	Partitions []string `json:"partitions"`
	Seq        int64    `json:"seq"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <store-file>",
		Short: "Write an entity store file into a SQLite snapshot",
		Long: `Write every entity of a JSON or YAML entity store into a SQLite snapshot.

The database is created if it doesn't exist. Entities whose content is
unchanged are left untouched, so re-importing the same file is a no-op.

Example:
  denorm import --db library.db store.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runImport(opts *ImportOptions, storeFile string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.logger()

	entities, err := LoadStoreFile(storeFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load store", err)
	}

	logger.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	stats, err := st.PutStore(ctx, entities)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to write store", err)
	}
	partitions, err := st.Partitions(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list partitions", err)
	}
	logger.Info("store imported", "written", stats.Written, "unchanged", stats.Unchanged, "seq", st.Seq())

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return formatter.Success(ImportResult{WriteStats: stats, Partitions: partitions, Seq: st.Seq()})
	}
	return formatter.Success(fmt.Sprintf("Imported %d entities (%d unchanged) into %s",
		stats.Written, stats.Unchanged, opts.Database))
}
