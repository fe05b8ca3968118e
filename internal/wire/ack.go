package wire

import "encoding/binary"

// ackKeyPhaseBit is bit 2 of byte 0 for ACK packets; bit 1 is reserved to
// distinguish ACK packets from handshake long headers (see IsHandshake).
const ackKeyPhaseBit = 0x04

// AckRange is an inclusive [Low, High] interval of contiguously received
// packet numbers.
type AckRange struct {
	Low  uint32
	High uint32
}

// ACK is the {header_form=1, key_phase, dcid, packet_number, ack_delay,
// block_count, blocks} packet from §3.
type ACK struct {
	KeyPhase     bool
	DCID         uint64
	PacketNumber uint32
	AckDelay     uint16 // milliseconds
	Ranges       []AckRange
}

// EncodeACK serializes a. Ranges are written in the order given; callers
// are responsible for sorting them ascending by Low and ensuring they do
// not overlap (§5 "Ordering guarantees").
func EncodeACK(a ACK) []byte {
	buf := make([]byte, 1+8+4+2+4+8*len(a.Ranges))
	byte0 := byte(LongHeaderBit)
	if a.KeyPhase {
		byte0 |= ackKeyPhaseBit
	}
	buf[0] = byte0
	binary.BigEndian.PutUint64(buf[1:9], a.DCID)
	binary.BigEndian.PutUint32(buf[9:13], a.PacketNumber)
	binary.BigEndian.PutUint16(buf[13:15], a.AckDelay)
	binary.BigEndian.PutUint32(buf[15:19], uint32(len(a.Ranges)))
	off := 19
	for _, r := range a.Ranges {
		binary.BigEndian.PutUint32(buf[off:off+4], r.Low)
		binary.BigEndian.PutUint32(buf[off+4:off+8], r.High)
		off += 8
	}
	return buf
}

// DecodeACK parses an ACK packet. It assumes the caller has already
// confirmed byte 0 carries LongHeaderBit and not the handshake fixed bit.
func DecodeACK(buf []byte) (ACK, error) {
	const headerLen = 1 + 8 + 4 + 2 + 4
	if len(buf) < headerLen {
		return ACK{}, malformed(0, "ack header truncated")
	}
	a := ACK{
		KeyPhase:     buf[0]&ackKeyPhaseBit != 0,
		DCID:         binary.BigEndian.Uint64(buf[1:9]),
		PacketNumber: binary.BigEndian.Uint32(buf[9:13]),
		AckDelay:     binary.BigEndian.Uint16(buf[13:15]),
	}
	count := int(binary.BigEndian.Uint32(buf[15:19]))
	if len(buf) < headerLen+8*count {
		return ACK{}, malformed(headerLen, "ack blocks truncated")
	}
	a.Ranges = make([]AckRange, count)
	off := headerLen
	for i := 0; i < count; i++ {
		a.Ranges[i] = AckRange{
			Low:  binary.BigEndian.Uint32(buf[off : off+4]),
			High: binary.BigEndian.Uint32(buf[off+4 : off+8]),
		}
		off += 8
	}
	return a, nil
}

// CoalesceRanges sorts the given packet numbers ascending and collapses
// them into the minimal list of inclusive ranges, merging consecutive
// integers (§4.5 ACK coalescing).
func CoalesceRanges(numbers []uint32) []AckRange {
	if len(numbers) == 0 {
		return nil
	}
	sorted := append([]uint32(nil), numbers...)
	insertionSort(sorted)

	ranges := make([]AckRange, 0, len(sorted))
	low, high := sorted[0], sorted[0]
	for _, n := range sorted[1:] {
		if n == high+1 {
			high = n
			continue
		}
		if n == high {
			continue // duplicate
		}
		ranges = append(ranges, AckRange{Low: low, High: high})
		low, high = n, n
	}
	ranges = append(ranges, AckRange{Low: low, High: high})
	return ranges
}

// insertionSort sorts small uint32 slices in place. The receiver's batches
// are bounded by how many packets arrive within one ack-delay window, so a
// simple sort avoids pulling in sort.Slice's reflection overhead for what
// is typically a handful of elements.
func insertionSort(s []uint32) {
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] > v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}
