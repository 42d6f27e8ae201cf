package transceiver

import (
	"fmt"
	"sync"
	"time"

	"github.com/muurk/rfxcom/internal/protocol"
)

// DiagnosticKind classifies a non-fatal condition seen by the driver
type DiagnosticKind string

const (
	DiagUnhandledPacket DiagnosticKind = "unhandled_packet"
	DiagDecodeError     DiagnosticKind = "decode_error"
	DiagReadError       DiagnosticKind = "read_error"
	DiagEndOfStream     DiagnosticKind = "end_of_stream"
	DiagWriteError      DiagnosticKind = "write_error"
)

// Diagnostic is reported for unhandled packet types, undecodable frames and
// transport errors. The driver keeps running after every one of them.
type Diagnostic struct {
	Kind       DiagnosticKind      `json:"kind"`
	PacketType protocol.PacketType `json:"packetType,omitempty"`
	Raw        []byte              `json:"-"`
	Err        error               `json:"-"`
	Time       time.Time           `json:"time"`
}

// String returns a debug representation of the diagnostic
func (d Diagnostic) String() string {
	switch d.Kind {
	case DiagUnhandledPacket:
		return fmt.Sprintf("unhandled packet type 0x%02X: %s", byte(d.PacketType), protocol.HexDump(d.Raw))
	case DiagDecodeError:
		return fmt.Sprintf("cannot decode %s: %v", d.PacketType, d.Err)
	default:
		if d.Err != nil {
			return fmt.Sprintf("%s: %v", d.Kind, d.Err)
		}
		return string(d.Kind)
	}
}

// Listeners is a registry of typed callbacks, one list per event kind.
// Every registered callback for a kind is invoked, in registration order.
type Listeners struct {
	mu         sync.RWMutex
	ready      []func()
	status     []func(*protocol.StatusEvent)
	response   []func(*protocol.ResponseEvent)
	lighting5  []func(*protocol.Lighting5Event)
	elec2      []func(*protocol.Elec2Event)
	security1  []func(*protocol.Security1Event)
	any        []func(protocol.Event)
	diagnostic []func(Diagnostic)
}

// OnReady registers a callback for when the connection becomes usable
func (l *Listeners) OnReady(fn func()) {
	l.mu.Lock()
	l.ready = append(l.ready, fn)
	l.mu.Unlock()
}

// OnStatus registers a callback for interface status messages
func (l *Listeners) OnStatus(fn func(*protocol.StatusEvent)) {
	l.mu.Lock()
	l.status = append(l.status, fn)
	l.mu.Unlock()
}

// OnResponse registers a callback for transmitter acknowledgments
func (l *Listeners) OnResponse(fn func(*protocol.ResponseEvent)) {
	l.mu.Lock()
	l.response = append(l.response, fn)
	l.mu.Unlock()
}

// OnLighting5 registers a callback for Lighting5 messages
func (l *Listeners) OnLighting5(fn func(*protocol.Lighting5Event)) {
	l.mu.Lock()
	l.lighting5 = append(l.lighting5, fn)
	l.mu.Unlock()
}

// OnElec2 registers a callback for electricity meter readings
func (l *Listeners) OnElec2(fn func(*protocol.Elec2Event)) {
	l.mu.Lock()
	l.elec2 = append(l.elec2, fn)
	l.mu.Unlock()
}

// OnSecurity1 registers a callback for security sensor messages
func (l *Listeners) OnSecurity1(fn func(*protocol.Security1Event)) {
	l.mu.Lock()
	l.security1 = append(l.security1, fn)
	l.mu.Unlock()
}

// OnEvent registers a callback invoked for every decoded event, after the
// typed callbacks
func (l *Listeners) OnEvent(fn func(protocol.Event)) {
	l.mu.Lock()
	l.any = append(l.any, fn)
	l.mu.Unlock()
}

// OnDiagnostic registers a callback for diagnostics
func (l *Listeners) OnDiagnostic(fn func(Diagnostic)) {
	l.mu.Lock()
	l.diagnostic = append(l.diagnostic, fn)
	l.mu.Unlock()
}

// snapshot copies a callback list under the read lock so callbacks run
// unlocked and may register further listeners
func snapshot[F any](l *Listeners, fns *[]F) []F {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]F(nil), (*fns)...)
}

func (l *Listeners) emitReady() {
	for _, fn := range snapshot(l, &l.ready) {
		fn()
	}
}

func (l *Listeners) emitEvent(evt protocol.Event) {
	switch e := evt.(type) {
	case *protocol.StatusEvent:
		for _, fn := range snapshot(l, &l.status) {
			fn(e)
		}
	case *protocol.ResponseEvent:
		for _, fn := range snapshot(l, &l.response) {
			fn(e)
		}
	case *protocol.Lighting5Event:
		for _, fn := range snapshot(l, &l.lighting5) {
			fn(e)
		}
	case *protocol.Elec2Event:
		for _, fn := range snapshot(l, &l.elec2) {
			fn(e)
		}
	case *protocol.Security1Event:
		for _, fn := range snapshot(l, &l.security1) {
			fn(e)
		}
	}

	for _, fn := range snapshot(l, &l.any) {
		fn(evt)
	}
}

func (l *Listeners) emitDiagnostic(d Diagnostic) {
	for _, fn := range snapshot(l, &l.diagnostic) {
		fn(d)
	}
}
