package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Bridge represents an rfxcom event bridge found on the network
type Bridge struct {
	// Instance is the advertised instance name (e.g., "rfxcom")
	Instance string

	// Hostname is the mDNS hostname of the machine running the bridge
	Hostname string

	// IP is the bridge address, IPv4 when one was advertised
	IP string

	// Port is the bridge HTTP port
	Port int

	// Metadata contains the TXT record data ("version", "tls", "port")
	Metadata map[string]string

	// DiscoveredAt is when the bridge was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the bridge
func (b *Bridge) String() string {
	return fmt.Sprintf("rfxcom bridge %q (%s) at %s", b.Instance, b.Hostname, b.hostPort())
}

// TLS reports whether the bridge advertised a TLS listener
func (b *Bridge) TLS() bool {
	return b.GetMetadata("tls") == "true"
}

// BaseURL returns the HTTP base URL for the bridge
func (b *Bridge) BaseURL() string {
	if b.TLS() {
		return "https://" + b.hostPort()
	}
	return "http://" + b.hostPort()
}

// EventsURL returns the websocket URL that streams decoded events
func (b *Bridge) EventsURL() string {
	return b.wsURL("/events")
}

// CommandURL returns the websocket URL that accepts commands
func (b *Bridge) CommandURL() string {
	return b.wsURL("/command")
}

func (b *Bridge) wsURL(path string) string {
	if b.TLS() {
		return "wss://" + b.hostPort() + path
	}
	return "ws://" + b.hostPort() + path
}

func (b *Bridge) hostPort() string {
	return net.JoinHostPort(b.IP, strconv.Itoa(b.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (b *Bridge) GetMetadata(key string) string {
	if b.Metadata == nil {
		return ""
	}
	return b.Metadata[key]
}
