package protocol

import (
	"fmt"
	"sync"
)

// Message constructor library for building commands sent to the transceiver

// Interface control command codes (byte 4 of a 0x00 packet)
const (
	CmdReset       = 0x00
	CmdGetStatus   = 0x02
	CmdResetTamper = 0x0B
)

const (
	// interfaceControlLength is the length byte of every 0x00 packet (14 bytes total)
	interfaceControlLength = 0x0D

	// lighting5Length is the length byte of a 0x14 packet (11 bytes total)
	lighting5Length = 0x0A

	// seqOffset is where every command carries its sequence number
	seqOffset = 3

	// lighting5IDLength is the number of raw id bytes a Lighting5 device uses
	lighting5IDLength = 3
)

// MaxSequence is the largest sequence number handed out before wrapping to 0
const MaxSequence = 256

// Sequence allocates correlation numbers for outgoing commands.
//
// Values run 0, 1, ..., 256 and then start again at 0. A transceiver echoes
// the low byte of the value in its ResponseEvent. Each connection owns its own
// Sequence. Safe for concurrent use.
type Sequence struct {
	mu   sync.Mutex
	next int
}

// NewSequence creates an allocator starting at 0
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the current value and advances the counter
func (s *Sequence) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next > MaxSequence {
		s.next = 0
	}
	n := s.next
	s.next++
	return n
}

// Peek returns the value the next call to Next will return
func (s *Sequence) Peek() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next > MaxSequence {
		return 0
	}
	return s.next
}

// buildInterfaceControl constructs a 14-byte interface control packet (type 0x00)
//
// Packet Structure:
//
//	[0]     0x0D           Length (13 bytes follow)
//	[1]     0x00           Packet type (interface control)
//	[2]     0x00           Subtype
//	[3]     seq            Sequence number
//	[4]     cmnd           Command code
//	[5-13]  zeros          Reserved
func buildInterfaceControl(seq int, cmnd byte) []byte {
	msg := make([]byte, interfaceControlLength+1)
	msg[0] = interfaceControlLength
	msg[1] = byte(PacketInterfaceControl)
	msg[2] = 0x00
	msg[seqOffset] = byte(seq)
	msg[4] = cmnd
	return msg
}

// BuildReset constructs the interface reset command.
// Bytes received in the ~500ms after a reset are noise; follow it with
// BuildGetStatus once that window has passed.
func BuildReset(seq int) []byte {
	return buildInterfaceControl(seq, CmdReset)
}

// BuildGetStatus constructs the interface status query. The answer is a
// StatusEvent carrying the same sequence number.
func BuildGetStatus(seq int) []byte {
	return buildInterfaceControl(seq, CmdGetStatus)
}

// BuildResetTamper constructs the command that clears latched tamper alarms
// on the interface.
func BuildResetTamper(seq int) []byte {
	return buildInterfaceControl(seq, CmdResetTamper)
}

// BuildLighting5 constructs a Lighting5 (LightwaveRF) switch command
//
// Packet Structure:
//
//	[0]     0x0A           Length (10 bytes follow)
//	[1]     0x14           Packet type (Lighting5)
//	[2]     0x00           Subtype (LightwaveRF/Siemens)
//	[3]     seq            Sequence number
//	[4-6]   id             Device id, 3 bytes
//	[7]     unit           Unit code
//	[8]     cmnd           0x01 = on, 0x00 = off
//	[9]     0x00           Level
//	[10]    0x00           Filler / RSSI
func BuildLighting5(seq int, id []byte, unit byte, on bool) ([]byte, error) {
	if len(id) != lighting5IDLength {
		return nil, fmt.Errorf("lighting5 device id must be %d bytes, got %d", lighting5IDLength, len(id))
	}

	msg := make([]byte, lighting5Length+1)
	msg[0] = lighting5Length
	msg[1] = byte(PacketLighting5)
	msg[2] = 0x00
	msg[seqOffset] = byte(seq)
	copy(msg[4:7], id)
	msg[7] = unit
	if on {
		msg[8] = 0x01
	}
	return msg, nil
}

// CommandKind identifies an outgoing command
type CommandKind string

const (
	CommandReset       CommandKind = "reset"
	CommandGetStatus   CommandKind = "get-status"
	CommandResetTamper CommandKind = "reset-tamper"
	CommandLightOn     CommandKind = "light-on"
	CommandLightOff    CommandKind = "light-off"
)

// Command is an encoded outgoing message together with the sequence number
// it was tagged with
type Command struct {
	Kind  CommandKind
	Seq   int
	Bytes []byte
}

// String returns a debug representation of the command
func (c Command) String() string {
	return fmt.Sprintf("Command{kind=%s, seq=%d, bytes=%s}", c.Kind, c.Seq, HexDump(c.Bytes))
}

// Encoder builds commands tagged with numbers from a single Sequence
type Encoder struct {
	seq *Sequence
}

// NewEncoder creates an encoder allocating from seq
func NewEncoder(seq *Sequence) *Encoder {
	return &Encoder{seq: seq}
}

// Sequence returns the allocator used by the encoder
func (e *Encoder) Sequence() *Sequence {
	return e.seq
}

// Reset encodes an interface reset
func (e *Encoder) Reset() Command {
	n := e.seq.Next()
	return Command{Kind: CommandReset, Seq: n, Bytes: BuildReset(n)}
}

// GetStatus encodes an interface status query
func (e *Encoder) GetStatus() Command {
	n := e.seq.Next()
	return Command{Kind: CommandGetStatus, Seq: n, Bytes: BuildGetStatus(n)}
}

// ResetTamper encodes a tamper reset
func (e *Encoder) ResetTamper() Command {
	n := e.seq.Next()
	return Command{Kind: CommandResetTamper, Seq: n, Bytes: BuildResetTamper(n)}
}

// LightOn encodes a Lighting5 "on" for the device id (e.g. "0x0A0B0C") and
// unit code. A malformed id fails before a sequence number is consumed.
func (e *Encoder) LightOn(deviceID string, unit byte) (Command, error) {
	return e.lighting5(CommandLightOn, deviceID, unit, true)
}

// LightOff encodes a Lighting5 "off"
func (e *Encoder) LightOff(deviceID string, unit byte) (Command, error) {
	return e.lighting5(CommandLightOff, deviceID, unit, false)
}

func (e *Encoder) lighting5(kind CommandKind, deviceID string, unit byte, on bool) (Command, error) {
	id, err := ParseDeviceID(deviceID)
	if err != nil {
		return Command{}, err
	}
	if len(id) != lighting5IDLength {
		return Command{}, &ParseError{
			Input:  deviceID,
			Reason: fmt.Sprintf("lighting5 ids are %d bytes, got %d", lighting5IDLength, len(id)),
		}
	}

	n := e.seq.Next()
	msg, err := BuildLighting5(n, id, unit, on)
	if err != nil {
		return Command{}, err
	}
	return Command{Kind: kind, Seq: n, Bytes: msg}, nil
}
