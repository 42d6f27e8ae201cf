// Rfxcom drives an RFXtrx433 radio transceiver over its serial port.
//
// It decodes everything the transceiver hears (interface status, transmitter
// acknowledgments, LightwaveRF switches, X10 security sensors and OWL
// electricity meters), sends switch and interface commands, and can expose
// the live event stream to other programs as a websocket bridge.
//
// Usage:
//
//	rfxcom [command] [flags]
//
// See 'rfxcom --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/rfxcom/internal/config"
	"github.com/muurk/rfxcom/internal/logging"
	"github.com/muurk/rfxcom/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	portName   string
	baudRate   int
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "rfxcom",
	Short: "RFXtrx433 transceiver driver",
	Long: `A driver and toolkit for RFXtrx433 USB radio transceivers.

Listens for 433.92MHz sensor and switch traffic, sends LightwaveRF
on/off commands, and bridges the decoded event stream to websocket
clients on the local network.

The serial port, device aliases and bridge settings are read from the
config file (see 'rfxcom config init').`,
	Version:      version.Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Silent unless --log-level or RFXCOM_LOG_LEVEL asks otherwise
		return logging.Initialize(logLevel)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port (overrides the config file)")
	rootCmd.PersistentFlags().IntVar(&baudRate, "baud", 0, "Baud rate (default 38400)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is the user config directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rfxcom %s\n", version.Full())
	},
}

// resolveConfigPath returns --config or the default location
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

// loadConfig reads the config file, falling back to defaults when absent
func loadConfig() (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
