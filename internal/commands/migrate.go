package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"billbook/internal/storage"
)

func newMigrateCommand(opts *options) *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations, or roll back with --down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.ensureDBDir(); err != nil {
				return err
			}
			if down > 0 {
				if err := storage.RollbackMigrations(opts.dbPath, down); err != nil {
					return err
				}
				opts.logger.Info("Rolled back migrations", "steps", down, "path", opts.dbPath)
			} else {
				if err := storage.RunMigrations(opts.dbPath); err != nil {
					return err
				}
				opts.logger.Info("Migrations applied", "path", opts.dbPath)
			}
			return printVersion(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "number of migrations to roll back")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.ensureDBDir(); err != nil {
				return err
			}
			return printVersion(cmd, opts)
		},
	})

	return cmd
}

func printVersion(cmd *cobra.Command, opts *options) error {
	version, dirty, ok, err := storage.MigrationVersion(opts.dbPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch {
	case !ok:
		fmt.Fprintln(out, "schema version: none")
	case dirty:
		fmt.Fprintf(out, "schema version: %d (dirty)\n", version)
		opts.logger.Warn("Schema is dirty, fix it before running migrations again", "version", version)
	default:
		fmt.Fprintf(out, "schema version: %d\n", version)
	}
	return nil
}
