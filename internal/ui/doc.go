// Package ui provides terminal output for the rfxcom CLI.
//
// Two styles of output are offered. One-shot commands (send, config, ports)
// print a Header banner followed by a Result box, and stream log lines
// through a Printer. The monitor command runs a Bubble Tea program that
// shows every decoded event and diagnostic as it arrives:
//
//	tx := transceiver.New(port)
//	if err := ui.RunMonitor(ctx, tx, "/dev/ttyUSB0"); err != nil {
//	    return err
//	}
//
// RunMonitor starts the transceiver and performs the start-up handshake
// itself. Keys: s requests interface status, r resets the interface and
// q quits.
//
// # Logging Integration
//
// zap logging is silent unless RFXCOM_LOG_LEVEL is set, so curated UI
// output is not interleaved with log lines.
package ui
