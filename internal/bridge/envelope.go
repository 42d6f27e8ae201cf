package bridge

import (
	"time"

	"github.com/muurk/rfxcom/internal/protocol"
	"github.com/muurk/rfxcom/internal/transceiver"
)

// Envelope kinds
const (
	KindStatus     = "status"
	KindResponse   = "response"
	KindLighting5  = "lighting5"
	KindElec2      = "elec2"
	KindSecurity1  = "security1"
	KindDiagnostic = "diagnostic"
)

// Envelope is one message on the /events stream
type Envelope struct {
	Kind  string    `json:"kind"`
	Time  time.Time `json:"time"`
	Event any       `json:"event"`
	Error string    `json:"error,omitempty"`
	Raw   string    `json:"raw,omitempty"`
}

// EventEnvelope wraps a decoded event
func EventEnvelope(evt protocol.Event) Envelope {
	return Envelope{Kind: eventKind(evt), Time: time.Now(), Event: evt}
}

// DiagnosticEnvelope wraps a driver diagnostic
func DiagnosticEnvelope(d transceiver.Diagnostic) Envelope {
	env := Envelope{Kind: KindDiagnostic, Time: d.Time, Event: d}
	if d.Err != nil {
		env.Error = d.Err.Error()
	}
	if len(d.Raw) > 0 {
		env.Raw = protocol.HexDump(d.Raw)
	}
	return env
}

func eventKind(evt protocol.Event) string {
	switch evt.(type) {
	case *protocol.StatusEvent:
		return KindStatus
	case *protocol.ResponseEvent:
		return KindResponse
	case *protocol.Lighting5Event:
		return KindLighting5
	case *protocol.Elec2Event:
		return KindElec2
	case *protocol.Security1Event:
		return KindSecurity1
	default:
		return evt.PacketType().String()
	}
}
