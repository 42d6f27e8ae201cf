package transceiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/rfxcom/internal/logging"
	"github.com/muurk/rfxcom/internal/metrics"
	"github.com/muurk/rfxcom/internal/protocol"
)

const (
	defaultWriteQueue = 32
	defaultReadBuffer = 256

	// DefaultResetDelay is how long the interface needs after a reset
	// before its output is meaningful again
	DefaultResetDelay = 500 * time.Millisecond
)

// ErrClosed is reported to write handlers once the transceiver is closed
var ErrClosed = errors.New("transceiver: closed")

// WriteError wraps a failed port write with the command that was being sent
type WriteError struct {
	Command protocol.Command
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("transceiver: write %s seq=%d: %v", e.Command.Kind, e.Command.Seq, e.Err)
}

// Unwrap returns the underlying port error
func (e *WriteError) Unwrap() error {
	return e.Err
}

// WriteHandler is called once a queued command has been written (err nil)
// or has failed. n is the number of bytes written.
type WriteHandler func(err error, n int)

type writeRequest struct {
	cmd  protocol.Command
	done WriteHandler
}

// Option configures a Transceiver
type Option func(*Transceiver)

// WithMetrics records driver counters into m
func WithMetrics(m *metrics.DriverMetrics) Option {
	return func(t *Transceiver) { t.metrics = m }
}

// WithWriteQueue sets how many commands may wait for the writer
func WithWriteQueue(n int) Option {
	return func(t *Transceiver) {
		if n > 0 {
			t.queueSize = n
		}
	}
}

// WithReadBufferSize sets the size of each port read
func WithReadBufferSize(n int) Option {
	return func(t *Transceiver) {
		if n > 0 {
			t.readSize = n
		}
	}
}

// WithResetDelay overrides how long Initialise waits after a reset
func WithResetDelay(d time.Duration) Option {
	return func(t *Transceiver) { t.resetDelay = d }
}

// Transceiver is one connection to an RFXtrx interface
type Transceiver struct {
	*Listeners

	port        Port
	reassembler *protocol.Reassembler
	encoder     *protocol.Encoder
	metrics     *metrics.DriverMetrics

	queueSize  int
	readSize   int
	resetDelay time.Duration
	writes     chan writeRequest

	// receiving is false while Initialise waits out the post-reset noise.
	// resync asks the reader to drop any partial frame before the next chunk.
	receiving atomic.Bool
	resync    atomic.Bool

	startOnce sync.Once
	closeOnce sync.Once
	mu        sync.RWMutex // guards closed against in-flight sends
	closed    bool
	closeErr  error
	done      chan struct{}
	stopped   chan struct{} // closed once both loops exited and the queue is drained
	wg        sync.WaitGroup
}

// New creates a transceiver on port. Nothing is read or written until Start.
func New(port Port, opts ...Option) *Transceiver {
	t := &Transceiver{
		Listeners:   &Listeners{},
		port:        port,
		reassembler: protocol.NewReassembler(),
		encoder:     protocol.NewEncoder(protocol.NewSequence()),
		queueSize:   defaultWriteQueue,
		readSize:    defaultReadBuffer,
		resetDelay:  DefaultResetDelay,
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.writes = make(chan writeRequest, t.queueSize)
	t.receiving.Store(true)
	return t
}

// Sequence returns the connection's sequence allocator
func (t *Transceiver) Sequence() *protocol.Sequence {
	return t.encoder.Sequence()
}

// Start launches the read and write loops and emits ready. Cancelling ctx
// closes the transceiver. Calling Start more than once, or after Close,
// has no effect.
func (t *Transceiver) Start(ctx context.Context) {
	t.startOnce.Do(func() {
		if !t.launch(ctx) {
			return
		}
		logging.Info("Transceiver started")
		t.emitReady()
	})
}

// launch starts the loops unless the transceiver is already closed
func (t *Transceiver) launch(ctx context.Context) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return false
	}

	t.wg.Add(2)
	go t.readLoop()
	go t.writeLoop()

	go func() {
		select {
		case <-ctx.Done():
			_ = t.Close()
		case <-t.done:
		}
	}()
	return true
}

// Done is closed when the connection ends: Close, a cancelled Start
// context, end of stream or a read error.
func (t *Transceiver) Done() <-chan struct{} {
	return t.done
}

// Close closes Done and the port, then returns without waiting for the
// loops. They exit in the background, and commands still queued are then
// reported to their handlers with ErrClosed. Close may therefore be called
// from listeners and write handlers, which run on the loops themselves.
func (t *Transceiver) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)

		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()

		t.closeErr = t.port.Close()
		go t.finish()
	})
	return t.closeErr
}

// finish waits for both loops, then fails whatever is left in the queue
func (t *Transceiver) finish() {
	defer close(t.stopped)
	t.wg.Wait()

	for {
		select {
		case req := <-t.writes:
			settle(req, ErrClosed, 0)
		default:
			logging.Info("Transceiver closed")
			return
		}
	}
}

// HandleBytes feeds a chunk read from the port through reassembly and
// dispatch. The read loop calls it for every read; it is exported for
// callers that pump bytes themselves instead of calling Start. It must not
// be mixed with Start, and it is not safe for concurrent use.
func (t *Transceiver) HandleBytes(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	if t.metrics != nil {
		t.metrics.BytesReceived.Add(float64(len(chunk)))
	}

	if !t.receiving.Load() {
		logging.Debug("Discarding bytes during reset", zap.Int("bytes", len(chunk)))
		t.resync.Store(true)
		return
	}
	if t.resync.CompareAndSwap(true, false) {
		t.reassembler.Reset()
	}

	for _, raw := range t.reassembler.Feed(chunk) {
		t.handleFrame(raw)
	}
}

func (t *Transceiver) handleFrame(raw []byte) {
	logging.LogFrame("received", raw)
	if t.metrics != nil {
		t.metrics.FramesTotal.Inc()
	}

	evt, err := protocol.DecodeRaw(raw)
	if err != nil {
		t.reportDecodeFailure(raw, err)
		return
	}

	if t.metrics != nil {
		t.metrics.DecodedTotal.WithLabelValues(evt.PacketType().String()).Inc()
	}
	logging.LogEvent(evt)
	t.emitEvent(evt)
}

func (t *Transceiver) reportDecodeFailure(raw []byte, err error) {
	d := Diagnostic{Kind: DiagDecodeError, Raw: raw, Err: err, Time: time.Now()}
	if len(raw) > 1 {
		d.PacketType = protocol.PacketType(raw[1])
	}

	var unhandled *protocol.UnhandledPacketError
	if errors.As(err, &unhandled) {
		d.Kind = DiagUnhandledPacket
		d.PacketType = unhandled.Type
		if t.metrics != nil {
			t.metrics.Unhandled.WithLabelValues(fmt.Sprintf("0x%02X", byte(unhandled.Type))).Inc()
		}
		logging.Warn("Unhandled packet type",
			zap.String("type", fmt.Sprintf("0x%02X", byte(unhandled.Type))),
			zap.String("raw", protocol.HexDump(raw)))
	} else {
		if t.metrics != nil {
			t.metrics.DecodeErrors.WithLabelValues(d.PacketType.String()).Inc()
		}
		logging.Warn("Failed to decode frame",
			zap.Error(err),
			zap.String("raw", protocol.HexDump(raw)))
	}

	t.emitDiagnostic(d)
}

func (t *Transceiver) readLoop() {
	defer t.wg.Done()

	buf := make([]byte, t.readSize)
	for {
		n, err := t.port.Read(buf)
		if n > 0 {
			t.HandleBytes(buf[:n])
		}
		if err == nil {
			// Ports with a read timeout return 0, nil when idle
			select {
			case <-t.done:
				return
			default:
				continue
			}
		}

		select {
		case <-t.done:
			return
		default:
		}

		if errors.Is(err, io.EOF) {
			logging.Info("Transceiver stream ended")
			t.emitDiagnostic(Diagnostic{Kind: DiagEndOfStream, Err: err, Time: time.Now()})
			_ = t.Close()
			return
		}

		if t.metrics != nil {
			t.metrics.ReadErrors.Inc()
		}
		logging.Error("Read from transceiver failed", zap.Error(err))
		t.emitDiagnostic(Diagnostic{Kind: DiagReadError, Err: err, Time: time.Now()})
		_ = t.Close()
		return
	}
}

func (t *Transceiver) writeLoop() {
	defer t.wg.Done()

	for {
		select {
		case req := <-t.writes:
			t.write(req)
		case <-t.done:
			return
		}
	}
}

func (t *Transceiver) write(req writeRequest) {
	n, err := t.port.Write(req.cmd.Bytes)
	if err != nil {
		err = &WriteError{Command: req.cmd, Err: err}
		if t.metrics != nil {
			t.metrics.WriteErrors.Inc()
		}
		logging.Error("Write to transceiver failed", zap.Error(err))
		t.emitDiagnostic(Diagnostic{Kind: DiagWriteError, Raw: req.cmd.Bytes, Err: err, Time: time.Now()})
	}
	settle(req, err, n)
}

// send queues cmd for the writer and returns its sequence number
func (t *Transceiver) send(cmd protocol.Command, done WriteHandler) int {
	logging.LogCommand(cmd)
	if t.metrics != nil {
		t.metrics.CommandsTotal.WithLabelValues(string(cmd.Kind)).Inc()
	}

	req := writeRequest{cmd: cmd, done: done}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		go settle(req, ErrClosed, 0)
		return cmd.Seq
	}

	select {
	case t.writes <- req:
	case <-t.done:
		go settle(req, ErrClosed, 0)
	}
	return cmd.Seq
}

func settle(req writeRequest, err error, n int) {
	if req.done != nil {
		req.done(err, n)
	}
}
