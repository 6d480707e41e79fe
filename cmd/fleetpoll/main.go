// Package main is the entry point for the fleetpoll CLI.
//
// fleetpoll reads a fixed set of SNMP attributes from every device in a
// fleet, tags each device with its sector and writes one CSV report.
//
// Usage:
//
//	fleetpoll poll -c config.yaml            # Poll the fleet once and write the report
//	fleetpoll serve -c config.yaml           # Serve reports over HTTP
//	fleetpoll config example > config.yaml   # Print an annotated example config
//	fleetpoll sectors import -c config.yaml --file ip_sector.csv
//	fleetpoll version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fleetpoll",
		Short: "Poll a printer fleet over SNMP and build a sector report",
		Long: `fleetpoll polls network devices over SNMP, reads a fixed ordered set of
attributes from each, resolves a fallback attribute across candidate OIDs,
joins each device with its sector and writes a consolidated CSV report.

Quick start:
  1. fleetpoll config example > config.yaml
  2. Edit inventory.devices and sectors.csv_path
  3. fleetpoll poll -c config.yaml`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newPollCmd(),
		newServeCmd(),
		newConfigCmd(),
		newSectorsCmd(),
		newEncryptCmd(),
		newHashPasswordCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of this fleetpoll binary.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "fleetpoll %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}
