package transceiver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/rfxcom/internal/logging"
)

// Reset queues an interface reset and returns its sequence number. The
// interface output is noise for a while afterwards; Initialise handles that.
func (t *Transceiver) Reset(done WriteHandler) int {
	return t.send(t.encoder.Reset(), done)
}

// GetStatus queues an interface status query and returns its sequence
// number. The answer arrives as a StatusEvent.
func (t *Transceiver) GetStatus(done WriteHandler) int {
	return t.send(t.encoder.GetStatus(), done)
}

// ResetTamper queues a tamper reset and returns its sequence number
func (t *Transceiver) ResetTamper(done WriteHandler) int {
	return t.send(t.encoder.ResetTamper(), done)
}

// LightOn queues a Lighting5 "on" for deviceID and unit. A malformed id is
// returned as a *protocol.ParseError and nothing is sent.
func (t *Transceiver) LightOn(deviceID string, unit byte, done WriteHandler) (int, error) {
	cmd, err := t.encoder.LightOn(deviceID, unit)
	if err != nil {
		return 0, err
	}
	return t.send(cmd, done), nil
}

// LightOff queues a Lighting5 "off" for deviceID and unit
func (t *Transceiver) LightOff(deviceID string, unit byte, done WriteHandler) (int, error) {
	cmd, err := t.encoder.LightOff(deviceID, unit)
	if err != nil {
		return 0, err
	}
	return t.send(cmd, done), nil
}

// Initialise runs the start-up handshake: reset the interface, discard
// everything it sends for the reset delay, then ask for its status. It
// returns the sequence number of the status query; the StatusEvent that
// answers it is delivered to OnStatus listeners.
func (t *Transceiver) Initialise(ctx context.Context) (int, error) {
	t.receiving.Store(false)
	defer func() {
		t.resync.Store(true)
		t.receiving.Store(true)
	}()

	seq := t.Reset(nil)
	logging.Debug("Reset sent, waiting for interface", zap.Int("seq", seq), zap.Duration("delay", t.resetDelay))

	timer := time.NewTimer(t.resetDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-t.done:
		return 0, ErrClosed
	case <-timer.C:
	}

	if f, ok := t.port.(inputFlusher); ok {
		if err := f.ResetInputBuffer(); err != nil {
			logging.Warn("Failed to flush serial input", zap.Error(err))
		}
	}

	t.resync.Store(true)
	t.receiving.Store(true)
	return t.GetStatus(nil), nil
}
