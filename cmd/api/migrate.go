package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"signapi/internal/database"
	"signapi/internal/database/migration"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the signing schema if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer rt.shutdown()

		db, err := database.NewPostgres(ctx, rt.cfg.Database, rt.log)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		return migration.EnsureMigrated(ctx, db, rt.log, rt.cfg.Database.Host)
	},
}
