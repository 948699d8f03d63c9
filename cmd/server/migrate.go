package main

import (
	"fmt"

	"sweet_shop/internal/config"
	"sweet_shop/internal/seed"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.Storage == config.StorageMemory {
			return fmt.Errorf("migrate needs STORAGE=%s", config.StoragePostgres)
		}
		// openStorage applies the schema
		store, err := openStorage(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		store.Close()
		fmt.Println("Schema is up to date")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the sample catalog",
	Long:  "Insert the sample categories and sweets. Existing names are left untouched.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.Storage == config.StorageMemory {
			return fmt.Errorf("seed needs STORAGE=%s; use 'serve --seed' for in-memory storage", config.StoragePostgres)
		}
		store, err := openStorage(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		res, err := seed.Run(cmd.Context(), store.repos, logger)
		if err != nil {
			return err
		}
		fmt.Printf("Added %d categories and %d sweets (%d already present)\n", res.Categories, res.Sweets, res.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}
