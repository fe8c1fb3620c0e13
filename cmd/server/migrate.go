package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"animetracker/internal/config"
	"animetracker/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadTooling(configFiles...)
			if err != nil {
				return err
			}
			if err := ensureDir(cfg.DBConfig.Path); err != nil {
				return err
			}
			db, err := database.Open(cfg.DBConfig.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(db); err != nil {
				return err
			}
			version, dirty, err := database.SchemaVersion(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d (dirty=%t) in %s\n", version, dirty, cfg.DBConfig.Path)
			return nil
		},
	}
}
