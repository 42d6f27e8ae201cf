package protocol

import (
	"fmt"
)

// Frame represents one complete frame as it appeared on the wire
type Frame struct {
	Length  byte       // Bytes following the length byte
	Type    PacketType // Packet type tag
	Payload []byte     // Everything after the packet type (subtype, seq, fields)
	Raw     []byte     // Original frame bytes for debugging
}

// ParseFrame splits a complete frame into its length, packet type and payload.
// The payload aliases raw.
func ParseFrame(raw []byte) (*Frame, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("%w: %d bytes (minimum 2)", ErrFrameTooShort, len(raw))
	}

	return &Frame{
		Length:  raw[0],
		Type:    PacketType(raw[1]),
		Payload: raw[2:],
		Raw:     raw,
	}, nil
}

// String returns a debug representation of the frame
func (f *Frame) String() string {
	return fmt.Sprintf("Frame{len=%d, type=%s, payload=%d bytes}", f.Length, f.Type, len(f.Payload))
}

// Reassembler cuts an arbitrarily chunked byte stream into complete frames.
//
// The first buffered byte of each frame is its length; once length+1 bytes
// are buffered the frame is emitted and the remainder is examined as the start
// of the next frame. The stream must begin on a frame boundary: there is no
// sync pattern to recover from a bad first byte short of calling Reset.
//
// A Reassembler is not safe for concurrent use.
type Reassembler struct {
	buf      []byte
	required int // total size of the frame at the head of buf, 0 = unknown
}

// NewReassembler creates an empty reassembler positioned at a frame boundary
func NewReassembler() *Reassembler {
	return &Reassembler{}
}

// Feed appends chunk to the buffer and returns every frame it completed, in
// arrival order. Each returned frame is a fresh copy owned by the caller.
func (r *Reassembler) Feed(chunk []byte) [][]byte {
	r.buf = append(r.buf, chunk...)

	var frames [][]byte
	for len(r.buf) > 0 {
		if r.required == 0 {
			r.required = int(r.buf[0]) + 1
		}
		if len(r.buf) < r.required {
			break
		}

		frame := make([]byte, r.required)
		copy(frame, r.buf[:r.required])
		frames = append(frames, frame)

		r.buf = r.buf[r.required:]
		r.required = 0
	}

	// Release the backing array once fully drained
	if len(r.buf) == 0 {
		r.buf = nil
	}

	return frames
}

// Buffered returns the number of bytes held for an incomplete frame
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

// Pending returns the total size of the frame being accumulated, or 0 when
// no length byte has been seen yet.
func (r *Reassembler) Pending() int {
	return r.required
}

// Reset discards any partial frame and returns to a frame boundary.
func (r *Reassembler) Reset() {
	r.buf = nil
	r.required = 0
}
