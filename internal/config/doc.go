// Package config provides user configuration management for rfxcom.
//
// This package manages a YAML-based configuration file holding the serial
// port to open, the event bridge settings, and aliases for Lighting5 devices
// so commands can say "hallway" instead of "0x0A0B0C" unit 1. The
// configuration follows OS-specific conventions for storage location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/rfxcom/config.yaml or $HOME/.config/rfxcom/config.yaml
//   - macOS: $HOME/.config/rfxcom/config.yaml
//   - Windows: %LOCALAPPDATA%\rfxcom\config.yaml
//
// # Usage Example
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := cfg.SetAlias("hallway", "0x0A0B0C", 1); err != nil {
//	    log.Fatal(err)
//	}
//
//	id, unit, _ := cfg.ResolveDevice("hallway")
//
//	// Save changes atomically
//	if err := cfg.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// File operations are protected by a mutex to ensure atomic writes. A
// Config value itself is not safe for concurrent mutation.
package config
