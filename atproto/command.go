package atproto

import "fmt"

// MaxCommandBytes bounds both the Text and Binary RawCommand payloads.
// Larger writes must be split across several Binary frames.
const MaxCommandBytes = 256

// RawCommand is a framed, ready-to-transmit command. Binary framing exists
// so a CIPSEND payload is never mistaken for, or mangled as, UTF-8 text.
type RawCommand struct {
	Binary bool
	bytes  []byte
}

// Text builds a text command, terminated with a single '\r' as the wire
// protocol requires. cmd should already include any leading "AT".
func Text(cmd string) RawCommand {
	b := append([]byte(cmd), '\r')
	if len(b) > MaxCommandBytes {
		b = b[:MaxCommandBytes]
	}
	return RawCommand{Binary: false, bytes: b}
}

// BinaryPayload wraps a raw byte payload (e.g. the body of a CIPSEND) with
// no framing or escaping at all.
func BinaryPayload(payload []byte) RawCommand {
	b := make([]byte, len(payload))
	copy(b, payload)
	if len(b) > MaxCommandBytes {
		b = b[:MaxCommandBytes]
	}
	return RawCommand{Binary: true, bytes: b}
}

// Bytes returns the wire representation of the command.
func (c RawCommand) Bytes() []byte {
	return c.bytes
}

func (c RawCommand) String() string {
	if c.Binary {
		return fmt.Sprintf("<%d binary bytes>", len(c.bytes))
	}
	return string(c.bytes)
}
