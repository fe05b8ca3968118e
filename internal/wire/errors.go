// Package wire implements the header, frame and ACK packet codec shared by
// the sender and receiver. Encoding is deterministic; decoding is total over
// well-formed input and fails with MalformedPacket otherwise.
package wire

import "fmt"

// MalformedPacket reports the offset of the first byte the codec could not
// make sense of. Transport code drops the datagram and keeps receiving; it
// never propagates this error past the packet boundary.
type MalformedPacket struct {
	Offset int
	Reason string
}

func (e *MalformedPacket) Error() string {
	return fmt.Sprintf("malformed packet at offset %d: %s", e.Offset, e.Reason)
}

func malformed(offset int, reason string) error {
	return &MalformedPacket{Offset: offset, Reason: reason}
}
