package protocol

import (
	"fmt"
	"math"
)

// PacketType is the second byte of every frame
type PacketType byte

// Packet types understood by Decode
const (
	PacketInterfaceControl PacketType = 0x00 // Outgoing only: reset, get status, ...
	PacketInterfaceStatus  PacketType = 0x01
	PacketTransmitterAck   PacketType = 0x02
	PacketLighting5        PacketType = 0x14
	PacketSecurity1        PacketType = 0x20
	PacketEnergy2          PacketType = 0x5A
)

// ElecCalibration converts the Energy2 cumulative counter to watt-hours
const ElecCalibration = 223.666

// Minimum payload sizes (payload excludes the length and type bytes)
const (
	minStatusPayload    = 5  // subtype, seq, cmnd, receiver type, firmware
	minResponsePayload  = 3  // subtype, seq, message
	minLighting5Payload = 7  // subtype, seq, id1-3, unit, command
	minSecurity1Payload = 7  // subtype, seq, id1-3, status, battery
	minEnergy2Payload   = 15 // subtype, seq, id1-2, count, instant[4], total[6]
)

// String returns a human-readable name for a packet type
func (t PacketType) String() string {
	switch t {
	case PacketInterfaceControl:
		return "InterfaceControl"
	case PacketInterfaceStatus:
		return "InterfaceStatus"
	case PacketTransmitterAck:
		return "TransmitterAck"
	case PacketLighting5:
		return "Lighting5"
	case PacketSecurity1:
		return "Security1"
	case PacketEnergy2:
		return "Energy2"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", byte(t))
	}
}

// Receiver frequency bands reported in the interface status message
var receiverTypes = map[byte]string{
	0x50: "310MHz",
	0x51: "315MHz",
	0x52: "433.92MHz receiver only",
	0x53: "433.92MHz transceiver",
	0x55: "868.00MHz",
	0x56: "868.00MHz FSK",
	0x57: "868.30MHz",
	0x58: "868.30MHz FSK",
	0x59: "868.35MHz",
	0x5A: "868.35MHz FSK",
	0x5B: "868.95MHz",
}

// Transmitter acknowledgment messages, indexed by message code
var responseMessages = []string{
	"ACK - transmit OK",
	"ACK - transmit delayed",
	"NAK - transmitter did not lock onto frequency",
	"NAK - AC address zero in id1-id4 not allowed",
}

var lighting5Subtypes = []string{
	"LightwaveRF/Siemens",
	"EMW100 GAO/Everflourish",
}

var lighting5Commands = []string{
	"Off",
	"On",
}

var security1Subtypes = []string{
	"X10 security door/window sensor",
	"X10 security motion sensor",
	"X10 security remote",
}

// lookup returns table[code], or "" when the code has no entry
func lookup(table []string, code byte) string {
	if int(code) < len(table) {
		return table[code]
	}
	return ""
}

func describe(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// Event is a decoded inbound packet
type Event interface {
	PacketType() PacketType
	Sequence() byte
	String() string
}

// StatusEvent (type 0x01) - Interface status, answer to get-status and reset
type StatusEvent struct {
	Subtype         byte   `json:"subtype"`
	Seq             byte   `json:"seqnbr"`
	Command         byte   `json:"cmnd"`
	ReceiverType    string `json:"receiverType,omitempty"`
	FirmwareVersion byte   `json:"firmwareVersion"`
}

func (e *StatusEvent) PacketType() PacketType { return PacketInterfaceStatus }
func (e *StatusEvent) Sequence() byte         { return e.Seq }

func (e *StatusEvent) String() string {
	return fmt.Sprintf("Status{subtype=0x%02x, seq=%d, cmnd=0x%02x, receiver=%s, firmware=%d}",
		e.Subtype, e.Seq, e.Command, describe(e.ReceiverType), e.FirmwareVersion)
}

// ResponseEvent (type 0x02) - Transmitter acknowledgment for a sent command.
// Seq echoes the sequence number of the command being acknowledged.
type ResponseEvent struct {
	Subtype byte   `json:"subtype"`
	Seq     byte   `json:"seqnbr"`
	Code    byte   `json:"code"`
	Message string `json:"message,omitempty"`
}

func (e *ResponseEvent) PacketType() PacketType { return PacketTransmitterAck }
func (e *ResponseEvent) Sequence() byte         { return e.Seq }

// OK reports whether the transmitter accepted the command
func (e *ResponseEvent) OK() bool { return e.Code <= 0x01 }

func (e *ResponseEvent) String() string {
	return fmt.Sprintf("Response{seq=%d, code=%d, message=%s}", e.Seq, e.Code, describe(e.Message))
}

// Lighting5Event (type 0x14) - LightwaveRF / EMW100 switch command
type Lighting5Event struct {
	Subtype     byte   `json:"subtype"`
	SubtypeName string `json:"subtypeName,omitempty"`
	Seq         byte   `json:"seqnbr"`
	ID          string `json:"id"`
	UnitCode    byte   `json:"unitcode"`
	Command     string `json:"command,omitempty"`
	Level       byte   `json:"level"`
	RSSI        byte   `json:"rssi"`
}

func (e *Lighting5Event) PacketType() PacketType { return PacketLighting5 }
func (e *Lighting5Event) Sequence() byte         { return e.Seq }

func (e *Lighting5Event) String() string {
	return fmt.Sprintf("Lighting5{type=%s, id=%s, unit=%d, command=%s}",
		describe(e.SubtypeName), e.ID, e.UnitCode, describe(e.Command))
}

// Elec2Event (type 0x5A) - CM119/CM160 style electricity meter reading
type Elec2Event struct {
	Subtype      byte    `json:"subtype"`
	Seq          byte    `json:"seqnbr"`
	ID           string  `json:"id"`
	Count        byte    `json:"count"`
	CurrentWatts uint32  `json:"currentWatts"`
	TotalWatts   float64 `json:"totalWatts"`
	BatteryLevel byte    `json:"batteryLevel"`
	RSSI         byte    `json:"rssi"`
}

func (e *Elec2Event) PacketType() PacketType { return PacketEnergy2 }
func (e *Elec2Event) Sequence() byte         { return e.Seq }

func (e *Elec2Event) String() string {
	return fmt.Sprintf("Elec2{id=%s, count=%d, current=%dW, total=%.2fWh}",
		e.ID, e.Count, e.CurrentWatts, e.TotalWatts)
}

// Security1Event (type 0x20) - X10 security sensor or remote
type Security1Event struct {
	Subtype      byte   `json:"subtype"`
	SubtypeName  string `json:"subtypeName,omitempty"`
	Seq          byte   `json:"seqnbr"`
	ID           string `json:"id"`
	DeviceStatus byte   `json:"deviceStatus"`
	BatteryLevel byte   `json:"batteryLevel"`
}

func (e *Security1Event) PacketType() PacketType { return PacketSecurity1 }
func (e *Security1Event) Sequence() byte         { return e.Seq }

func (e *Security1Event) String() string {
	return fmt.Sprintf("Security1{type=%s, id=%s, status=0x%02x, battery=0x%02x}",
		describe(e.SubtypeName), e.ID, e.DeviceStatus, e.BatteryLevel)
}

// Decode selects the decoder for the frame's packet type. Unknown types
// return an *UnhandledPacketError and no event.
func Decode(f *Frame) (Event, error) {
	switch f.Type {
	case PacketInterfaceStatus:
		return decodeStatus(f.Payload)
	case PacketTransmitterAck:
		return decodeResponse(f.Payload)
	case PacketLighting5:
		return decodeLighting5(f.Payload)
	case PacketSecurity1:
		return decodeSecurity1(f.Payload)
	case PacketEnergy2:
		return decodeElec2(f.Payload)
	default:
		return nil, &UnhandledPacketError{Type: f.Type, Raw: f.Raw}
	}
}

// DecodeRaw parses and decodes a complete frame in one step
func DecodeRaw(raw []byte) (Event, error) {
	f, err := ParseFrame(raw)
	if err != nil {
		return nil, err
	}
	return Decode(f)
}

func decodeStatus(p []byte) (*StatusEvent, error) {
	if len(p) < minStatusPayload {
		return nil, shortPayload(PacketInterfaceStatus, len(p), minStatusPayload)
	}

	return &StatusEvent{
		Subtype:         p[0],
		Seq:             p[1],
		Command:         p[2],
		ReceiverType:    receiverTypes[p[3]],
		FirmwareVersion: p[4],
	}, nil
}

func decodeResponse(p []byte) (*ResponseEvent, error) {
	if len(p) < minResponsePayload {
		return nil, shortPayload(PacketTransmitterAck, len(p), minResponsePayload)
	}

	return &ResponseEvent{
		Subtype: p[0],
		Seq:     p[1],
		Code:    p[2],
		Message: lookup(responseMessages, p[2]),
	}, nil
}

func decodeLighting5(p []byte) (*Lighting5Event, error) {
	if len(p) < minLighting5Payload {
		return nil, shortPayload(PacketLighting5, len(p), minLighting5Payload)
	}

	evt := &Lighting5Event{
		Subtype:     p[0],
		SubtypeName: lookup(lighting5Subtypes, p[0]),
		Seq:         p[1],
		ID:          FormatDeviceID(p[2:5]),
		UnitCode:    p[5],
		Command:     lookup(lighting5Commands, p[6]),
	}
	if len(p) > 7 {
		evt.Level = p[7]
	}
	if len(p) > 8 {
		evt.RSSI = p[8] >> 4
	}
	return evt, nil
}

func decodeSecurity1(p []byte) (*Security1Event, error) {
	if len(p) < minSecurity1Payload {
		return nil, shortPayload(PacketSecurity1, len(p), minSecurity1Payload)
	}

	return &Security1Event{
		Subtype:      p[0],
		SubtypeName:  lookup(security1Subtypes, p[0]),
		Seq:          p[1],
		ID:           FormatDeviceID(p[2:5]),
		DeviceStatus: p[5],
		BatteryLevel: p[6],
	}, nil
}

func decodeElec2(p []byte) (*Elec2Event, error) {
	if len(p) < minEnergy2Payload {
		return nil, shortPayload(PacketEnergy2, len(p), minEnergy2Payload)
	}

	evt := &Elec2Event{
		Subtype:      p[0],
		Seq:          p[1],
		ID:           FormatDeviceID(p[2:4]),
		Count:        p[4],
		CurrentWatts: DecodeUint32(p[5:9]),
		TotalWatts:   roundTo2(float64(DecodeUint48(p[9:15])) / ElecCalibration),
	}
	if len(p) > 15 {
		evt.BatteryLevel = p[15] & 0x0F
		evt.RSSI = p[15] >> 4
	}
	return evt, nil
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
