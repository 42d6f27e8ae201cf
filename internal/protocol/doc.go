// Package protocol implements the RFXtrx transceiver binary protocol.
//
// This package handles reassembly, decoding, and construction of the
// length-prefixed frames exchanged with an RFXtrx433/868 USB transceiver over
// its serial link.
//
// # Frame Format
//
// Every message on the wire has the same shape:
//   - Length: 1 byte, the number of bytes that FOLLOW the length byte
//   - Packet type: 1 byte, selects the decoder
//   - Payload: Length-1 bytes (subtype, sequence number, type-specific fields)
//
// A frame is therefore Length+1 bytes in total. There is no sync byte and no
// checksum; the length prefix is the only integrity signal, so a stream must
// start on a frame boundary.
//
// # Packet Types
//
// The decoders cover:
//   - 0x01 Interface status (receiver frequency band, firmware version)
//   - 0x02 Transmitter acknowledgment (ACK/NAK for a sequence number)
//   - 0x14 Lighting5 (LightwaveRF, EMW100)
//   - 0x20 Security1 (door/window sensors, motion sensors, remotes)
//   - 0x5A Energy2 (CM119/160 style electricity meters)
//
// Unknown packet types are reported through an *UnhandledPacketError and are
// never fatal.
//
// # Usage Example - Receiving
//
//	r := protocol.NewReassembler()
//	for _, raw := range r.Feed(chunk) {
//	    frame, err := protocol.ParseFrame(raw)
//	    if err != nil {
//	        continue
//	    }
//	    evt, err := protocol.Decode(frame)
//	    if errors.Is(err, protocol.ErrUnhandledPacketType) {
//	        continue
//	    }
//	    fmt.Println(evt)
//	}
//
// # Usage Example - Sending
//
//	enc := protocol.NewEncoder(protocol.NewSequence())
//	cmd, err := enc.LightOn("0x0A0B0C", 1)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_, err = port.Write(cmd.Bytes)
//
// The sequence number in cmd.Seq is echoed by the transceiver in the
// matching ResponseEvent, which lets callers correlate acknowledgments.
//
// # Thread Safety
//
// Decoders, builders and hex helpers are stateless. A Reassembler must be
// owned by a single goroutine. Sequence is safe for concurrent use.
package protocol
