package main

import (
	"errors"

	"github.com/spf13/cobra"

	"condo/internal/platform/postgres"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd.Context())
			log := commonRun(cfg)
			db, err := postgres.New(cmd.Context(), cfg.Postgres)
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("CONDO_DATABASE_URL is not set")
			}
			defer db.Close()
			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			log.Info("schema applied")
			return nil
		},
	}
}
