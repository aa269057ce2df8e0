package main

import (
	"errors"

	"github.com/spf13/cobra"
	"zubari/internal/config"
	"zubari/internal/infra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.StoreDriver == config.StoreDriverMemory {
			return errors.New("STORE_DRIVER=memory has no schema to migrate")
		}

		log, err := infra.NewLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		db, err := infra.OpenDatabase(cfg, log)
		if err != nil {
			return err
		}
		defer infra.CloseDatabase(db, log)

		if err := infra.Migrate(db); err != nil {
			return err
		}
		log.Info("schema up to date")
		return nil
	},
}
