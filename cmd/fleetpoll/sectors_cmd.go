package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nmslite/fleetpoll/internal/database"
	"github.com/nmslite/fleetpoll/internal/sectors"
)

func newSectorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sectors",
		Short: "Manage the sector mapping",
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Load a sector CSV into PostgreSQL",
		Long: `Read an IP/Sector CSV file and upsert every row into the ip_sectors table.
Pending migrations are applied first.

Example:
  fleetpoll sectors import -c config.yaml --file ip_sector.csv`,
		RunE: runSectorsImport,
	}
	importCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	importCmd.Flags().StringP("file", "f", "", "sector CSV file (default: sectors.csv_path from config)")
	_ = importCmd.MarkFlagRequired("config")

	cmd.AddCommand(importCmd)
	return cmd
}

func runSectorsImport(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, logger, closer, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := cfg.ValidateDatabase(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		path = cfg.Sectors.CSVPath
	}
	m, err := sectors.LoadCSV(path, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pool, err := database.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		return err
	}

	n, err := sectors.Import(ctx, pool, m, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d sector mappings from %s\n", n, path)
	return nil
}
