package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/refcache/refcache/internal/cache"
	"github.com/refcache/refcache/internal/export"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Database string
	Policies []string
}

// ExportSummary is the JSON payload for an export run.
type ExportSummary struct {
	Database string `json:"database"`
	Entities int    `json:"entities"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <payload-file>",
		Short: "Normalize a payload and export the entity table to SQLite",
		Long: `Normalize a payload, then write the resulting entity table into a
SQLite database for offline inspection. Each export replaces the
previous contents of the database. The database is an inspection
artifact; the cache never reads it back.

Examples:
  refcache export --db ./entities.db payload.json
  refcache export --db ./entities.db --policies policies.cue payload.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringSliceVar(&opts.Policies, "policies", nil, "CUE policy files (later files win)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runExport(opts *ExportOptions, payloadPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	payload, err := LoadPayload(payloadPath, cmd.InOrStdin())
	if err != nil {
		_ = formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load payload", err)
	}

	set, err := loadPolicySet(opts.Policies)
	if err != nil {
		_ = formatter.Error(ErrCodePolicy, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load policies", err)
	}

	c := cache.New(cache.WithPolicies(set))
	c.Write(payload)
	table := c.Extract()

	slog.Info("opening database", "path", opts.Database)
	db, err := export.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeExport, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := db.WriteSnapshot(cmd.Context(), table, set); err != nil {
		_ = formatter.Error(ErrCodeExport, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to export entity table", err)
	}
	slog.Debug("export complete", "entities", len(table))

	if opts.Format == "json" {
		return formatter.Success(ExportSummary{
			Database: opts.Database,
			Entities: len(table),
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entities to %s\n", len(table), opts.Database)
	return nil
}
