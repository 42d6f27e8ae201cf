package transceiver

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// DefaultBaud is the RFXtrx USB interface speed
const DefaultBaud = 38400

// Port is the byte source and sink a Transceiver talks to
type Port interface {
	io.ReadWriteCloser
}

// inputFlusher is implemented by ports that can drop unread input
type inputFlusher interface {
	ResetInputBuffer() error
}

// SerialConfig holds serial port configuration
type SerialConfig struct {
	Name        string        // Device path (e.g., /dev/ttyUSB0)
	Baud        int           // Baud rate
	ReadTimeout time.Duration // 0 blocks until data arrives
}

// DefaultSerialConfig returns the 38400 8N1 settings the transceiver expects
func DefaultSerialConfig(name string) SerialConfig {
	return SerialConfig{
		Name: name,
		Baud: DefaultBaud,
	}
}

// OpenSerial opens a serial port with the specified configuration
func OpenSerial(cfg SerialConfig) (Port, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("no serial port specified")
	}
	if cfg.Baud == 0 {
		cfg.Baud = DefaultBaud
	}

	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.Name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Name, err)
	}

	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("failed to set read timeout on %s: %w", cfg.Name, err)
		}
	}

	return port, nil
}

// ListPorts returns the serial ports present on the system
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
