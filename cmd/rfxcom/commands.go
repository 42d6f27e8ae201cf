package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/rfxcom/internal/bridge"
	"github.com/muurk/rfxcom/internal/config"
	"github.com/muurk/rfxcom/internal/logging"
	"github.com/muurk/rfxcom/internal/metrics"
	"github.com/muurk/rfxcom/internal/protocol"
	"github.com/muurk/rfxcom/internal/transceiver"
	"github.com/muurk/rfxcom/internal/ui"
	"github.com/muurk/rfxcom/internal/version"
)

// Command flags
var (
	bridgeEnabled bool
	bridgeAddr    string
	advertise     bool
	recordSeen    bool
	waitTimeout   time.Duration
)

func init() {
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(sendCmd)
}

// listenCmd prints decoded events, optionally bridging them to websockets
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print every message the transceiver receives",
	Long: `Open the transceiver, reset it, and print every decoded message
until interrupted.

With --bridge the event stream is also served to websocket clients on
/events, commands are accepted on /command, and Prometheus metrics are
exposed on /metrics.`,
	Example: `  # Print events from the configured port
  rfxcom listen

  # Use a specific port and remember when aliased devices were heard
  rfxcom listen --port /dev/ttyUSB0 --record

  # Serve events to the network and announce the bridge over mDNS
  rfxcom listen --bridge --addr :8080 --advertise`,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().BoolVar(&bridgeEnabled, "bridge", false, "Serve events and commands over websockets")
	listenCmd.Flags().StringVar(&bridgeAddr, "addr", "", "Bridge listen address (overrides the config file)")
	listenCmd.Flags().BoolVar(&advertise, "advertise", false, "Announce the bridge over mDNS")
	listenCmd.Flags().BoolVar(&recordSeen, "record", false, "Save the last-seen time of aliased devices on exit")
}

func runListen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if bridgeEnabled && logLevel == "" && os.Getenv(logging.LogLevelEnvVar) == "" {
		// A bridge runs unattended, so it logs at the configured level
		if err := logging.Initialize(cfg.LogLevel); err != nil {
			return err
		}
	}

	reg := metrics.NewRegistry()
	m := metrics.NewDriverMetrics(reg)

	printer := ui.NewPrinter(nil)
	tx, name, err := openTransceiver(cfg, m)
	if err != nil {
		printer.PrintError("Cannot open transceiver", err, ui.SerialTroubleshooting)
		return err
	}
	defer closeTransceiver(tx, name)

	var mu sync.Mutex
	seen := 0
	tx.OnEvent(func(evt protocol.Event) {
		printer.PrintEntry(ui.EventEntry(evt, time.Now()))
		if !recordSeen {
			return
		}
		if id := deviceID(evt); id != "" {
			mu.Lock()
			seen += len(cfg.RecordSeen(id, time.Now()))
			mu.Unlock()
		}
	})
	tx.OnDiagnostic(func(d transceiver.Diagnostic) {
		printer.PrintEntry(ui.DiagnosticEntry(d))
	})

	ctx, cancel := signalContext()
	defer cancel()

	tx.Start(ctx)
	if _, err := tx.Initialise(ctx); err != nil {
		return fmt.Errorf("failed to initialise transceiver: %w", err)
	}

	if bridgeEnabled {
		err = serveBridge(ctx, cfg, tx, reg, m)
	} else {
		select {
		case <-ctx.Done():
		case <-tx.Done():
			err = errors.New("serial connection closed")
		}
	}

	if recordSeen {
		mu.Lock()
		defer mu.Unlock()
		if seen > 0 {
			if serr := saveConfig(cfg); serr != nil {
				logging.Warn("Failed to save last-seen times", zap.Error(serr))
			}
		}
	}
	return err
}

// serveBridge runs the websocket bridge until ctx ends
func serveBridge(ctx context.Context, cfg *config.Config, tx *transceiver.Transceiver, reg *prometheus.Registry, m *metrics.DriverMetrics) error {
	prefs := cfg.Bridge
	if prefs == nil {
		prefs = config.NewConfig().Bridge
	}
	bcfg := bridge.Config{
		Addr:      prefs.Addr,
		CertPath:  prefs.CertPath,
		KeyPath:   prefs.KeyPath,
		Advertise: prefs.Advertise || advertise,
		Name:      prefs.Name,
		Version:   version.Version,
	}
	if bridgeAddr != "" {
		bcfg.Addr = bridgeAddr
	}

	srv, err := bridge.New(bcfg, tx,
		bridge.WithMetrics(reg, m),
		bridge.WithResolver(cfg.ResolveDevice),
	)
	if err != nil {
		return fmt.Errorf("failed to create bridge: %w", err)
	}
	return srv.Start(ctx)
}

// deviceID returns the transmitter id of a sensor or switch event
func deviceID(evt protocol.Event) string {
	switch e := evt.(type) {
	case *protocol.Lighting5Event:
		return e.ID
	case *protocol.Security1Event:
		return e.ID
	case *protocol.Elec2Event:
		return e.ID
	}
	return ""
}

// monitorCmd launches the interactive event monitor
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch transceiver traffic in an interactive view",
	Long: `Open the transceiver and show a live, scrollable log of every
decoded message and diagnostic.

Press s to request interface status, r to reset the interface and q to
quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !ui.IsTerminal() {
			return errors.New("monitor needs an interactive terminal, use 'rfxcom listen' instead")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tx, name, err := openTransceiver(cfg, nil)
		if err != nil {
			ui.NewPrinter(nil).PrintError("Cannot open transceiver", err, ui.SerialTroubleshooting)
			return err
		}
		defer closeTransceiver(tx, name)

		ctx, cancel := signalContext()
		defer cancel()
		return ui.RunMonitor(ctx, tx, name)
	},
}

// sendCmd writes a single command to the transceiver
var sendCmd = &cobra.Command{
	Use:   "send <reset|status|reset-tamper|light-on|light-off> [device] [unit]",
	Short: "Send a command to the transceiver",
	Long: `Send one command and wait for the transceiver to answer.

Interface commands (reset, status, reset-tamper) take no device. Switch
commands (light-on, light-off) take a device alias from the config file,
or a 3-byte id such as 0x0A0B0C followed by a unit code.`,
	Example: `  # Ask the interface for its firmware and receiver type
  rfxcom send status

  # Switch a configured device on
  rfxcom send light-on kitchen

  # Switch a device off by id and unit
  rfxcom send light-off 0xF09AC7 16`,
	Args: cobra.RangeArgs(1, 3),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().DurationVar(&waitTimeout, "wait", 2*time.Second, "How long to wait for the transceiver's answer (0 disables)")
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	op := args[0]
	var (
		id   string
		unit int
	)
	switch op {
	case "reset", "status", "reset-tamper":
		if len(args) > 1 {
			return fmt.Errorf("%s takes no device", op)
		}
	case "light-on", "light-off":
		id, unit, err = resolveTarget(cfg, args[1:])
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown command %q", op)
	}

	printer := ui.NewPrinter(nil)
	params := map[string]string{"Command": op}
	if id != "" {
		params["Device"] = id
		params["Unit"] = strconv.Itoa(unit)
	}
	printer.PrintHeader("Send Command", "rfxcom send "+op, params)

	tx, name, err := openTransceiver(cfg, nil)
	if err != nil {
		printer.PrintError("Cannot open transceiver", err, ui.SerialTroubleshooting)
		return err
	}
	defer closeTransceiver(tx, name)

	// Listeners go in before the write so a fast answer is not missed
	answers := make(chan protocol.Event, 8)
	tx.OnStatus(func(e *protocol.StatusEvent) { offer(answers, e) })
	tx.OnResponse(func(e *protocol.ResponseEvent) { offer(answers, e) })

	ctx, cancel := signalContext()
	defer cancel()
	tx.Start(ctx)

	written := make(chan error, 1)
	done := func(err error, n int) { written <- err }

	var seq int
	switch op {
	case "reset":
		seq = tx.Reset(done)
	case "status":
		seq = tx.GetStatus(done)
	case "reset-tamper":
		seq = tx.ResetTamper(done)
	case "light-on":
		seq, err = tx.LightOn(id, byte(unit), done)
	case "light-off":
		seq, err = tx.LightOff(id, byte(unit), done)
	}
	if err != nil {
		printer.PrintError("Invalid device", err, nil)
		return err
	}

	if err := <-written; err != nil {
		printer.PrintError("Write failed", err, ui.SerialTroubleshooting)
		return err
	}

	details := map[string]string{"Sequence": strconv.Itoa(seq)}
	if op == "reset" || waitTimeout <= 0 {
		// A reset is never answered
		printer.PrintSuccess("Command written", details)
		return nil
	}

	answer, err := awaitAnswer(ctx, answers, seq, waitTimeout)
	if err != nil {
		details["Answer"] = err.Error()
		printer.PrintWarning("Command written, no answer", details)
		return nil
	}
	details["Answer"] = answer.String()
	if r, ok := answer.(*protocol.ResponseEvent); ok && !r.OK() {
		printer.PrintError("Transmitter rejected command", errors.New(r.Message), nil)
		return fmt.Errorf("transmitter rejected command: %s", r.Message)
	}
	printer.PrintSuccess("Command acknowledged", details)
	return nil
}

// resolveTarget turns [device] [unit] arguments into an id and unit code
func resolveTarget(cfg *config.Config, args []string) (string, int, error) {
	if len(args) == 0 {
		return "", 0, errors.New("a device alias or id is required")
	}
	id, unit, found := cfg.ResolveDevice(args[0])
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 || n > 255 {
			return "", 0, fmt.Errorf("invalid unit code %q: must be 0-255", args[1])
		}
		unit = n
	} else if !found {
		return "", 0, fmt.Errorf("%q is not a configured alias, so a unit code is required", args[0])
	}
	return id, unit, nil
}

// awaitAnswer waits for the status or acknowledgment carrying seq
func awaitAnswer(ctx context.Context, answers <-chan protocol.Event, seq int, timeout time.Duration) (protocol.Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case evt := <-answers:
			if evt.Sequence() == byte(seq) {
				return evt, nil
			}
		case <-timer.C:
			return nil, fmt.Errorf("no answer within %s", timeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// offer delivers evt without blocking the reader
func offer(ch chan<- protocol.Event, evt protocol.Event) {
	select {
	case ch <- evt:
	default:
	}
}
