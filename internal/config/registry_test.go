package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "rfxcom") {
		t.Errorf("GetConfigDir() = %v, should contain 'rfxcom'", configDir)
	}

	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("macOS config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux and other Unix systems")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if configDir != filepath.Join("/tmp/xdg", "rfxcom") {
		t.Errorf("GetConfigDir() = %v, want /tmp/xdg/rfxcom", configDir)
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.Version != 1 {
		t.Errorf("NewConfig().Version = %v, want 1", cfg.Version)
	}
	if cfg.Serial.Baud != 38400 {
		t.Errorf("NewConfig().Serial.Baud = %v, want 38400", cfg.Serial.Baud)
	}
	if cfg.Bridge.Addr != ":8080" {
		t.Errorf("NewConfig().Bridge.Addr = %v, want :8080", cfg.Bridge.Addr)
	}
	if cfg.Devices == nil {
		t.Error("NewConfig().Devices should not be nil")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestSetAlias(t *testing.T) {
	tests := []struct {
		name    string
		alias   string
		id      string
		unit    int
		wantID  string
		wantErr bool
	}{
		{name: "canonical id", alias: "hall", id: "0x0A0B0C", unit: 1, wantID: "0x0A0B0C"},
		{name: "lowercase without prefix", alias: "porch", id: "f09ac7", unit: 16, wantID: "0xF09AC7"},
		{name: "two byte id", alias: "meter", id: "0x1234", unit: 1, wantErr: true},
		{name: "not hex", alias: "bad", id: "0xZZZZZZ", unit: 1, wantErr: true},
		{name: "unit out of range", alias: "big", id: "0x0A0B0C", unit: 300, wantErr: true},
		{name: "empty alias", alias: "", id: "0x0A0B0C", unit: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := cfg.SetAlias(tt.alias, tt.id, tt.unit)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetAlias() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if len(cfg.Devices) != 0 {
					t.Errorf("failed SetAlias() still stored %d devices", len(cfg.Devices))
				}
				return
			}
			dev := cfg.GetDevice(tt.alias)
			if dev == nil {
				t.Fatal("device should exist after SetAlias()")
			}
			if dev.ID != tt.wantID || dev.Unit != tt.unit {
				t.Errorf("device = %s/%d, want %s/%d", dev.ID, dev.Unit, tt.wantID, tt.unit)
			}
		})
	}
}

func TestSetAlias_KeepsMetadata(t *testing.T) {
	cfg := NewConfig()
	seen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := cfg.SetAlias("hall", "0x0A0B0C", 1); err != nil {
		t.Fatal(err)
	}
	cfg.Devices["hall"].Nickname = "Hallway light"
	cfg.Devices["hall"].LastSeen = seen

	if err := cfg.SetAlias("hall", "0x0A0B0D", 2); err != nil {
		t.Fatal(err)
	}

	dev := cfg.GetDevice("hall")
	if dev.Nickname != "Hallway light" || !dev.LastSeen.Equal(seen) {
		t.Errorf("re-aliasing dropped metadata: %+v", dev)
	}
	if dev.ID != "0x0A0B0D" || dev.Unit != 2 {
		t.Errorf("device = %s/%d, want 0x0A0B0D/2", dev.ID, dev.Unit)
	}
}

func TestResolveDevice(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.SetAlias("hall", "0x0A0B0C", 4); err != nil {
		t.Fatal(err)
	}

	id, unit, found := cfg.ResolveDevice("hall")
	if !found || id != "0x0A0B0C" || unit != 4 {
		t.Errorf("ResolveDevice(hall) = %s %d %v", id, unit, found)
	}

	id, unit, found = cfg.ResolveDevice("0x010203")
	if found || id != "0x010203" || unit != 0 {
		t.Errorf("ResolveDevice(literal) = %s %d %v", id, unit, found)
	}
}

func TestRecordSeen(t *testing.T) {
	cfg := NewConfig()
	_ = cfg.SetAlias("hall-1", "0x0A0B0C", 1)
	_ = cfg.SetAlias("hall-2", "0x0A0B0C", 2)
	_ = cfg.SetAlias("porch", "0xF09AC7", 1)

	now := time.Now()
	matched := cfg.RecordSeen("0a0b0c", now)

	if len(matched) != 2 || matched[0] != "hall-1" || matched[1] != "hall-2" {
		t.Errorf("RecordSeen() matched %v, want [hall-1 hall-2]", matched)
	}
	if !cfg.Devices["hall-1"].LastSeen.Equal(now) {
		t.Error("hall-1 LastSeen not updated")
	}
	if !cfg.Devices["porch"].LastSeen.IsZero() {
		t.Error("porch LastSeen should be untouched")
	}
	if got := cfg.RecordSeen("garbage", now); got != nil {
		t.Errorf("RecordSeen(garbage) = %v, want nil", got)
	}
}

func TestRemoveAlias(t *testing.T) {
	cfg := NewConfig()
	_ = cfg.SetAlias("hall", "0x0A0B0C", 1)

	if !cfg.RemoveAlias("hall") {
		t.Error("RemoveAlias(hall) = false, want true")
	}
	if cfg.RemoveAlias("hall") {
		t.Error("second RemoveAlias(hall) = true, want false")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "wrong version", mutate: func(c *Config) { c.Version = 2 }, wantErr: true},
		{name: "negative baud", mutate: func(c *Config) { c.Serial.Baud = -1 }, wantErr: true},
		{name: "cert without key", mutate: func(c *Config) { c.Bridge.CertPath = "cert.pem" }, wantErr: true},
		{name: "cert and key", mutate: func(c *Config) {
			c.Bridge.CertPath = "cert.pem"
			c.Bridge.KeyPath = "key.pem"
		}},
		{name: "hand-edited bad device", mutate: func(c *Config) {
			c.Devices["x"] = &Device{ID: "0x01", Unit: 1}
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := NewConfig()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Bridge.Advertise = true
	if err := cfg.SetAlias("hall", "0x0A0B0C", 1); err != nil {
		t.Fatal(err)
	}
	cfg.Devices["hall"].Nickname = "Hallway"

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind after save")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if loaded.Serial.Port != "/dev/ttyUSB0" || loaded.Serial.Baud != 38400 {
		t.Errorf("serial = %+v", loaded.Serial)
	}
	if !loaded.Bridge.Advertise {
		t.Error("bridge advertise lost on reload")
	}
	dev := loaded.GetDevice("hall")
	if dev == nil || dev.ID != "0x0A0B0C" || dev.Nickname != "Hallway" {
		t.Errorf("loaded device = %+v", dev)
	}
}

func TestLoadFrom_Missing(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Version != 1 || cfg.Devices == nil {
		t.Errorf("missing file should give defaults, got %+v", cfg)
	}
}

func TestLoadFrom_HandEdited(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `version: 1
serial:
  port: /dev/ttyACM0
devices:
  porch:
    id: "0xF09AC7"
    unit: 2
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	// Omitted sections fall back to defaults
	if cfg.Serial.Baud != 38400 {
		t.Errorf("Baud = %d, want default 38400", cfg.Serial.Baud)
	}
	if cfg.Bridge == nil || cfg.Bridge.Addr != ":8080" {
		t.Errorf("Bridge = %+v, want default addr", cfg.Bridge)
	}
	if id, unit, ok := cfg.ResolveDevice("porch"); !ok || id != "0xF09AC7" || unit != 2 {
		t.Errorf("ResolveDevice(porch) = %s %d %v", id, unit, ok)
	}
}

func TestLoadFrom_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "bad yaml", data: "version: [1"},
		{name: "future version", data: "version: 9\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFrom(path); err == nil {
				t.Error("LoadFrom() should fail")
			}
		})
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := CreateDefaultConfig(path, "/dev/ttyUSB1")
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if cfg.Serial.Port != "/dev/ttyUSB1" {
		t.Errorf("Port = %q", cfg.Serial.Port)
	}
	if cfg.GetDevice("example-light") == nil {
		t.Error("example device missing")
	}

	if _, err := CreateDefaultConfig(path, ""); err == nil {
		t.Error("CreateDefaultConfig() should refuse to overwrite")
	}
}

func BenchmarkGetConfigDir(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = GetConfigDir()
	}
}

func BenchmarkResolveDevice(b *testing.B) {
	cfg := NewConfig()
	_ = cfg.SetAlias("hall", "0x0A0B0C", 1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cfg.ResolveDevice("hall")
	}
}
