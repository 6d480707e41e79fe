package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nmslite/fleetpoll/internal/inventory"
	"github.com/nmslite/fleetpoll/internal/report"
)

func newPollCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poll [ip ...]",
		Short: "Poll the fleet once and write the report",
		Long: `Poll every device once and write the consolidated CSV report.

Devices given as arguments replace inventory.devices from the config file.
Each entry is an address, a CIDR block or an inclusive address range.
A sector mapping that cannot be loaded stops the run before any device is
contacted. Per-device failures are written into the report cells and never
abort the run.

Exit codes:
  0 - Report written
  1 - Startup failed or the report could not be written

Example:
  fleetpoll poll -c config.yaml
  fleetpoll poll -c config.yaml -o /srv/reports/printers_info.csv 10.1.1.12 10.1.1.100-10.1.1.120`,
		RunE: runPoll,
	}

	cmd.Flags().StringP("config", "c", "", "path to config file (required)")
	cmd.Flags().StringP("output", "o", "", "report path (default: output.path from config)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func runPoll(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, logger, closer, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	defer closer.Close()

	entries := cfg.Inventory.Devices
	if len(args) > 0 {
		entries = args
	}
	devices, err := inventory.ExpandTargets(entries)
	if err != nil {
		return fmt.Errorf("invalid device list: %w", err)
	}
	if len(devices) == 0 {
		return errors.New("no devices to poll: list them in inventory.devices or pass them as arguments")
	}

	outPath, _ := cmd.Flags().GetString("output")
	if outPath == "" {
		outPath = cfg.Output.Path
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	res := a.fleet.Run(ctx, devices)
	if err := a.Close(); err != nil {
		logger.WarnContext(ctx, "Failed to release SNMP sessions", slog.Any("error", err))
	}

	if err := report.WriteFile(outPath, a.fleet.Columns(), res.Records); err != nil {
		logger.ErrorContext(ctx, "Failed to write report",
			slog.String("path", outPath),
			slog.String("run_id", res.RunID.String()),
			slog.Any("error", err),
		)
		return err
	}

	failed := 0
	for _, r := range res.Records {
		if r.Failed() > 0 {
			failed++
		}
	}
	logger.InfoContext(ctx, "Report written",
		slog.String("path", outPath),
		slog.String("run_id", res.RunID.String()),
		slog.Int("devices", len(res.Records)),
		slog.Int("devices_with_errors", failed),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s (%d devices, %d with errors)\n", outPath, len(res.Records), failed)

	return nil
}
