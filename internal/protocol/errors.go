package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrFrameTooShort is returned when a frame has no room for the length
	// and packet type bytes.
	ErrFrameTooShort = errors.New("protocol: frame too short")

	// ErrShortPayload is returned when a payload is shorter than the fixed
	// fields its packet type requires.
	ErrShortPayload = errors.New("protocol: payload too short")

	// ErrUnhandledPacketType matches any *UnhandledPacketError.
	ErrUnhandledPacketType = errors.New("protocol: unhandled packet type")
)

// ParseError reports a malformed textual device identifier.
type ParseError struct {
	Input  string // Identifier as supplied by the caller
	Reason string // What was wrong with it
	Err    error  // Underlying error (if any)
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol: cannot parse device id %q: %s: %v", e.Input, e.Reason, e.Err)
	}
	return fmt.Sprintf("protocol: cannot parse device id %q: %s", e.Input, e.Reason)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnhandledPacketError is returned by Decode for packet types without a
// decoder. It carries the raw frame for diagnostics.
type UnhandledPacketError struct {
	Type PacketType
	Raw  []byte
}

func (e *UnhandledPacketError) Error() string {
	return fmt.Sprintf("protocol: unhandled packet type 0x%02X (%d bytes)", byte(e.Type), len(e.Raw))
}

// Is lets errors.Is(err, ErrUnhandledPacketType) match.
func (e *UnhandledPacketError) Is(target error) bool {
	return target == ErrUnhandledPacketType
}

func shortPayload(t PacketType, got, want int) error {
	return fmt.Errorf("%s: %w: %d bytes (minimum %d)", t, ErrShortPayload, got, want)
}
