package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"animetracker/internal/config"
	"animetracker/internal/show"
	"animetracker/internal/watchlist"
	"animetracker/pkg/database"
)

func newInspectCmd() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print every show and one user's joined watchlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadTooling(configFiles...)
			if err != nil {
				return err
			}
			// Open would create an empty file; inspect never writes
			if _, err := os.Stat(cfg.DBConfig.Path); errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("database not found: %s (run migrate first)", cfg.DBConfig.Path)
			} else if err != nil {
				return fmt.Errorf("stat database: %w", err)
			}
			db, err := database.Open(cfg.DBConfig.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			shows, err := show.NewRegistry(db).List(ctx)
			if err != nil {
				return err
			}
			// operator view; bypasses the ledger's ownership check
			items, err := watchlist.NewSQLStore(db).ListByUser(ctx, userID)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			fmt.Fprintf(cmd.OutOrStdout(), "shows (%d):\n", len(shows))
			if err := enc.Encode(shows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "watchlist for user %d (%d):\n", userID, len(items))
			return enc.Encode(items)
		},
	}
	cmd.Flags().Int64VarP(&userID, "user", "u", 1, "user id whose watchlist to print")
	return cmd
}
