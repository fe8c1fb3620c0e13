package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"animetracker/internal/catalog"
	"animetracker/internal/config"
	"animetracker/pkg/database"
)

func newFetchCatalogCmd() *cobra.Command {
	var (
		out    string
		limit  int
		seedDB bool
	)

	cmd := &cobra.Command{
		Use:   "fetch-catalog",
		Short: "Pull the catalog's top list and write it as a show seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadTooling(configFiles...)
			if err != nil {
				return err
			}
			log, closeLog, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			if out == "" {
				out = cfg.DBConfig.SeedFile
			}

			client := catalog.NewHTTPClient(cfg.CatalogConfig.BaseURL, cfg.CatalogConfig.Timeout(), log)
			raw, err := client.Top(cmd.Context(), limit)
			if err != nil {
				return err
			}
			shows, err := catalog.DecodeShows(raw)
			if err != nil {
				return err
			}

			if err := ensureDir(out); err != nil {
				return err
			}
			b, err := json.MarshalIndent(shows, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d shows -> %s\n", len(shows), out)

			if !seedDB {
				return nil
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
			n, err := database.SeedShows(db, shows)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d shows into %s\n", n, cfg.DBConfig.Path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output json path (defaults to SEED_FILE)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 25, "number of shows to fetch")
	cmd.Flags().BoolVar(&seedDB, "seed", false, "also insert the fetched shows into the database")
	return cmd
}
