package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/muurk/rfxcom/internal/config"
	"github.com/muurk/rfxcom/internal/logging"
	"github.com/muurk/rfxcom/internal/metrics"
	"github.com/muurk/rfxcom/internal/transceiver"
)

// openTransceiver opens the serial port named by --port or the config file
func openTransceiver(cfg *config.Config, m *metrics.DriverMetrics) (*transceiver.Transceiver, string, error) {
	serialCfg := transceiver.DefaultSerialConfig(portName)
	if serialCfg.Name == "" && cfg.Serial != nil {
		serialCfg.Name = cfg.Serial.Port
	}
	if serialCfg.Name == "" {
		return nil, "", fmt.Errorf("no serial port configured: pass --port or set serial.port in the config file")
	}
	switch {
	case baudRate > 0:
		serialCfg.Baud = baudRate
	case cfg.Serial != nil && cfg.Serial.Baud > 0:
		serialCfg.Baud = cfg.Serial.Baud
	}

	port, err := transceiver.OpenSerial(serialCfg)
	if err != nil {
		return nil, serialCfg.Name, err
	}
	logging.LogConnection(serialCfg.Name, "opened")

	var opts []transceiver.Option
	if m != nil {
		opts = append(opts, transceiver.WithMetrics(m))
	}
	return transceiver.New(port, opts...), serialCfg.Name, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// closeTransceiver closes tx, logging rather than failing the command
func closeTransceiver(tx *transceiver.Transceiver, name string) {
	if err := tx.Close(); err != nil {
		logging.Warn("Error closing serial port", zap.String("port", name), zap.Error(err))
	}
	logging.LogConnection(name, "closed")
	logging.Sync()
}
