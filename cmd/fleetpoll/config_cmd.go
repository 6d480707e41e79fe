package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nmslite/fleetpoll/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	example := &cobra.Command{
		Use:   "example",
		Short: "Print an annotated example config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.DumpExampleConfig(cmd.OutOrStdout())
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate a config file",
		Long: `Validate a fleetpoll configuration file without polling anything.

This command parses the YAML, applies FLEETPOLL_* environment overrides and
defaults, and validates all fields. With --serve the auth section needed by
the HTTP API is checked too.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  fleetpoll config validate -c config.yaml`,
		RunE: runValidate,
	}
	validate.Flags().StringP("config", "c", "", "path to config file (required)")
	validate.Flags().Bool("serve", false, "also validate settings required by serve")
	_ = validate.MarkFlagRequired("config")

	cmd.AddCommand(example, validate)
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if serve, _ := cmd.Flags().GetBool("serve"); serve {
		if err := cfg.ValidateServe(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  SNMP:        v%s port %d timeout %s retries %d\n",
		cfg.SNMP.Version, cfg.SNMP.Port, cfg.SNMP.Timeout(), cfg.SNMP.Retries)
	fmt.Fprintf(out, "  Devices:     %d\n", len(cfg.Inventory.Devices))
	fmt.Fprintf(out, "  Attributes:  %d + fallback %q (%d OIDs)\n",
		len(cfg.Inventory.Attributes), cfg.Inventory.Fallback.Name, len(cfg.Inventory.Fallback.OIDs))
	fmt.Fprintf(out, "  Concurrency: %d\n", cfg.Poller.Concurrency)
	fmt.Fprintf(out, "  Sectors:     %s\n", cfg.Sectors.Source)
	fmt.Fprintf(out, "  Output:      %s\n", cfg.Output.Path)

	return nil
}
