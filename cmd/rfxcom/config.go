package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/rfxcom/internal/config"
	"github.com/muurk/rfxcom/internal/ui"
)

var aliasNickname string

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configAliasCmd)
	configCmd.AddCommand(configUnaliasCmd)
	rootCmd.AddCommand(configCmd)

	configAliasCmd.Flags().StringVar(&aliasNickname, "nickname", "", "Friendly name shown alongside the alias")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the rfxcom config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Example: `  # Create the config with the transceiver's port
  rfxcom config init --port /dev/ttyUSB0`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		cfg, err := config.CreateDefaultConfig(path, portName)
		if err != nil {
			return err
		}
		ui.NewPrinter(nil).PrintSuccess("Config created", map[string]string{
			"Path":    path,
			"Port":    cfg.Serial.Port,
			"Devices": strconv.Itoa(len(cfg.Devices)),
		})
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

var configAliasCmd = &cobra.Command{
	Use:   "alias <name> <id> <unit>",
	Short: "Name a LightwaveRF device",
	Example: `  # Let 'rfxcom send light-on kitchen' address 0x0A0B0C unit 1
  rfxcom config alias kitchen 0x0A0B0C 1 --nickname "Kitchen ceiling"`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		unit, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid unit code %q: %w", args[2], err)
		}
		if err := cfg.SetAlias(args[0], args[1], unit); err != nil {
			return err
		}
		dev := cfg.GetDevice(args[0])
		if aliasNickname != "" {
			dev.Nickname = aliasNickname
		}
		if err := saveConfig(cfg); err != nil {
			return err
		}
		ui.NewPrinter(nil).PrintSuccess("Alias saved", map[string]string{
			"Alias": args[0],
			"ID":    dev.ID,
			"Unit":  strconv.Itoa(dev.Unit),
		})
		return nil
	},
}

var configUnaliasCmd = &cobra.Command{
	Use:   "unalias <name>",
	Short: "Forget a device alias",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.RemoveAlias(args[0]) {
			return fmt.Errorf("no alias named %q", args[0])
		}
		return saveConfig(cfg)
	},
}

// saveConfig writes cfg back to --config or the default location
func saveConfig(cfg *config.Config) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	return cfg.SaveTo(path)
}
