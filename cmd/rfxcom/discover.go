package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/rfxcom/internal/discovery"
	"github.com/muurk/rfxcom/internal/transceiver"
	"github.com/muurk/rfxcom/internal/ui"
)

var (
	scanTimeout int
	bridgeName  string
)

func init() {
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(bridgesCmd)

	bridgesCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Scan timeout in seconds")
	bridgesCmd.Flags().StringVar(&bridgeName, "name", "", "Wait for the bridge with this instance name only")
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := transceiver.ListPorts()
		if err != nil {
			return fmt.Errorf("failed to list serial ports: %w", err)
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found. Is the transceiver plugged in?")
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

// bridgesCmd finds 'rfxcom listen --bridge' instances on the network
var bridgesCmd = &cobra.Command{
	Use:   "bridges",
	Short: "Find rfxcom bridges on the network",
	Long: `Scan for rfxcom event bridges advertised over mDNS/DNS-SD and print
the websocket URLs to connect to.`,
	Example: `  # Scan for 5 seconds (default)
  rfxcom bridges

  # Longer scan for busy networks
  rfxcom bridges --timeout 15

  # Look up one bridge by name
  rfxcom bridges --name kitchen-pi`,
	RunE: func(cmd *cobra.Command, args []string) error {
		printer := ui.NewPrinter(nil)
		printer.Println(fmt.Sprintf("Scanning for rfxcom bridges (timeout: %ds)...", scanTimeout))
		printer.Newline()

		timeout := time.Duration(scanTimeout) * time.Second
		var bridges []*discovery.Bridge
		if bridgeName != "" {
			scanner := discovery.NewScanner()
			scanner.Timeout = timeout
			b, err := scanner.FindBridge(context.Background(), bridgeName)
			if err != nil {
				return err
			}
			bridges = append(bridges, b)
		} else {
			var err error
			bridges, err = discovery.ScanForBridges(timeout)
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}
		}

		if len(bridges) == 0 {
			printer.PrintLines(
				"No bridges found.",
				"",
				"Troubleshooting:",
				"  - Start a bridge with 'rfxcom listen --bridge --advertise'",
				"  - Check that both machines are on the same network segment",
				"  - Try increasing --timeout",
			)
			return nil
		}

		printer.Println(fmt.Sprintf("Found %d bridge(s):", len(bridges)))
		for i, b := range bridges {
			printer.Println(ui.RenderHorizontalDivider(printer.Width(), "─"))
			lines := []string{
				fmt.Sprintf("%d. %s", i+1, b.Instance),
				fmt.Sprintf("   Address:  %s:%d", b.IP, b.Port),
				fmt.Sprintf("   Events:   %s", b.EventsURL()),
				fmt.Sprintf("   Commands: %s", b.CommandURL()),
			}
			if v := b.GetMetadata("version"); v != "" {
				lines = append(lines, fmt.Sprintf("   Version:  %s", v))
			}
			printer.PrintLines(lines...)
		}
		return nil
	},
}
