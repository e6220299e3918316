package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/config"
	"fintrack/internal/storage"
)

func newDBCommand(loadCfg func() (*config.Config, error)) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the SQLite schema",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "database file (default SQLITE_DB_PATH)")

	dbPath := func() (string, error) {
		if path != "" {
			return path, nil
		}
		cfg, err := loadCfg()
		if err != nil {
			return "", fmt.Errorf("loading config: %w", err)
		}
		return cfg.SQLiteDBPath, nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := dbPath()
				if err != nil {
					return err
				}
				version, dirty, err := storage.SchemaVersion(p)
				if err != nil {
					return err
				}
				state := "clean"
				if dirty {
					state = "dirty"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: version %d (%s)\n", p, version, state)
				return nil
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending schema migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := dbPath()
				if err != nil {
					return err
				}
				if err := storage.RunMigrations(p); err != nil {
					return err
				}
				version, _, err := storage.SchemaVersion(p)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: migrated to version %d\n", p, version)
				return nil
			},
		},
	)
	return cmd
}
