// Package commands implements the billbookctl command tree.
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"billbook/internal/config"
	"billbook/internal/log"
	"billbook/internal/storage"
)

type options struct {
	cfg    *config.Config
	logger *log.Logger
	dbPath string
}

func (o *options) openStore() (*storage.SQLiteStore, error) {
	store, err := storage.NewSQLiteStore(o.dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", o.dbPath, err)
	}
	return store, nil
}

func (o *options) ensureDBDir() error {
	if err := os.MkdirAll(filepath.Dir(o.dbPath), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	return nil
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand(cfg *config.Config, logger *log.Logger) *cobra.Command {
	if logger == nil {
		logger = log.Discard()
	}
	opts := &options{cfg: cfg, logger: logger.WithComponent(log.ComponentCLI)}

	rootCmd := &cobra.Command{
		Use:   "billbookctl",
		Short: "Administer a billbook database",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", cfg.SQLiteDBPath, "path to the SQLite database")

	rootCmd.AddCommand(
		newMigrateCommand(opts),
		newUserCommand(opts),
		newCategoriesCommand(opts),
	)

	return rootCmd
}
