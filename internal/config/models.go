package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/muurk/rfxcom/internal/protocol"
)

const (
	currentVersion = 1
	defaultBaud    = 38400
	defaultAddr    = ":8080"
	defaultName    = "rfxcom"
)

// Config represents the entire user configuration file.
type Config struct {
	Version  int                `yaml:"version"`
	Serial   *SerialPrefs       `yaml:"serial,omitempty"`
	Bridge   *BridgePrefs       `yaml:"bridge,omitempty"`
	LogLevel string             `yaml:"log_level,omitempty"`
	Devices  map[string]*Device `yaml:"devices,omitempty"` // Keyed by alias
}

// SerialPrefs selects the transceiver port.
type SerialPrefs struct {
	Port string `yaml:"port"`           // Device path (e.g., /dev/ttyUSB0)
	Baud int    `yaml:"baud,omitempty"` // Defaults to 38400
}

// BridgePrefs configures the websocket event bridge.
type BridgePrefs struct {
	Addr      string `yaml:"addr"`                // Listen address (e.g., ":8080")
	Advertise bool   `yaml:"advertise"`           // Announce the bridge over mDNS
	Name      string `yaml:"name,omitempty"`      // mDNS instance name
	CertPath  string `yaml:"cert_path,omitempty"` // TLS certificate (PEM)
	KeyPath   string `yaml:"key_path,omitempty"`  // TLS private key (PEM)
}

// TLSEnabled reports whether both halves of a key pair are configured
func (b *BridgePrefs) TLSEnabled() bool {
	return b.CertPath != "" && b.KeyPath != ""
}

// Device is a named Lighting5 device.
type Device struct {
	ID       string    `yaml:"id"`                  // 3-byte id, e.g. "0x0A0B0C"
	Unit     int       `yaml:"unit"`                // Unit code
	Nickname string    `yaml:"nickname,omitempty"`  // User-friendly name
	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last time the device was heard
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Version:  currentVersion,
		Serial:   &SerialPrefs{Baud: defaultBaud},
		Bridge:   &BridgePrefs{Addr: defaultAddr, Name: defaultName},
		LogLevel: "info",
		Devices:  make(map[string]*Device),
	}
}

// applyDefaults fills in sections a hand-edited file may leave out.
func (c *Config) applyDefaults() {
	if c.Serial == nil {
		c.Serial = &SerialPrefs{}
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = defaultBaud
	}
	if c.Bridge == nil {
		c.Bridge = &BridgePrefs{}
	}
	if c.Bridge.Addr == "" {
		c.Bridge.Addr = defaultAddr
	}
	if c.Bridge.Name == "" {
		c.Bridge.Name = defaultName
	}
	if c.Devices == nil {
		c.Devices = make(map[string]*Device)
	}
}

// NormalizeID parses a device id and returns it in canonical "0x0A0B0C" form.
func NormalizeID(id string) (string, error) {
	raw, err := protocol.ParseDeviceID(id)
	if err != nil {
		return "", err
	}
	return protocol.FormatDeviceID(raw), nil
}

// SetAlias names a device. The id must be a 3-byte Lighting5 id.
func (c *Config) SetAlias(alias, id string, unit int) error {
	if alias == "" {
		return fmt.Errorf("alias must not be empty")
	}
	dev := &Device{ID: id, Unit: unit}
	if err := dev.validate(); err != nil {
		return fmt.Errorf("device %q: %w", alias, err)
	}
	dev.ID, _ = NormalizeID(id)

	if c.Devices == nil {
		c.Devices = make(map[string]*Device)
	}
	if existing, ok := c.Devices[alias]; ok {
		dev.Nickname = existing.Nickname
		dev.LastSeen = existing.LastSeen
	}
	c.Devices[alias] = dev
	return nil
}

// RemoveAlias deletes a named device. Returns false if it did not exist.
func (c *Config) RemoveAlias(alias string) bool {
	if _, ok := c.Devices[alias]; !ok {
		return false
	}
	delete(c.Devices, alias)
	return true
}

// GetDevice retrieves a device by alias.
// Returns nil if the alias doesn't exist.
func (c *Config) GetDevice(alias string) *Device {
	return c.Devices[alias]
}

// Aliases returns the configured aliases in sorted order.
func (c *Config) Aliases() []string {
	aliases := make([]string, 0, len(c.Devices))
	for alias := range c.Devices {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// ResolveDevice maps an alias or a literal id to the id to transmit to.
// A configured alias wins; otherwise target is returned as the id and found
// is false so the caller knows the unit must come from elsewhere.
func (c *Config) ResolveDevice(target string) (id string, unit int, found bool) {
	if dev, ok := c.Devices[target]; ok {
		return dev.ID, dev.Unit, true
	}
	return target, 0, false
}

// RecordSeen stamps every device with the given id as heard at t.
// Returns the aliases that matched.
func (c *Config) RecordSeen(id string, t time.Time) []string {
	want, err := NormalizeID(id)
	if err != nil {
		return nil
	}

	var matched []string
	for _, alias := range c.Aliases() {
		dev := c.Devices[alias]
		if got, err := NormalizeID(dev.ID); err == nil && got == want {
			dev.LastSeen = t
			matched = append(matched, alias)
		}
	}
	return matched
}

// Validate checks the configuration for values the driver cannot use.
func (c *Config) Validate() error {
	if c.Version != currentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, currentVersion)
	}
	if c.Serial != nil && c.Serial.Baud < 0 {
		return fmt.Errorf("invalid baud rate: %d", c.Serial.Baud)
	}
	if c.Bridge != nil && (c.Bridge.CertPath == "") != (c.Bridge.KeyPath == "") {
		return fmt.Errorf("bridge TLS needs both cert_path and key_path")
	}
	for _, alias := range c.Aliases() {
		if err := c.Devices[alias].validate(); err != nil {
			return fmt.Errorf("device %q: %w", alias, err)
		}
	}
	return nil
}

func (d *Device) validate() error {
	raw, err := protocol.ParseDeviceID(d.ID)
	if err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("id %s is %d bytes, lighting5 ids are 3", d.ID, len(raw))
	}
	if d.Unit < 0 || d.Unit > 255 {
		return fmt.Errorf("unit %d out of range 0-255", d.Unit)
	}
	return nil
}
