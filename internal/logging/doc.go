// Package logging provides structured logging for the rfxcom tools.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns used throughout the driver, bridge and CLI.
//
// # Log Levels
//
//   - Debug: Raw frame hex dumps in both directions
//   - Info: Decoded events, queued commands, bridge connections
//   - Warn: Unhandled packet types, decode failures, serial read errors
//   - Error: Write failures, startup failures
//
// # Structured Logging
//
//	logging.Info("Transceiver ready",
//	    zap.String("port", "/dev/ttyUSB0"),
//	    zap.Int("baud", 38400),
//	)
//
// # Specialized Logging
//
//	logging.LogFrame("received", raw)
//	logging.LogEvent(evt)
//	logging.LogCommand(cmd)
//	logging.LogConnection(remoteAddr, "websocket_upgraded")
//
// # Configuration
//
// The level comes from the argument to Initialize, or the RFXCOM_LOG_LEVEL
// environment variable. With neither set logging is silent, which keeps the
// terminal monitor clean.
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Logs go to stderr so that `rfxcom listen` can pipe events on stdout.
package logging
