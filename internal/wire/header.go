package wire

import "encoding/binary"

// LongHeaderBit is the canonical long/ACK marker: bit 0 of byte 0 of every
// packet the codec produces. 1 selects the long-header or ACK family, 0
// selects the short-header (data) family. This is the single place that
// tests the bit; nothing else compares against the ASCII literal '1'.
const LongHeaderBit = 0x01

// Within the long-header family (LongHeaderBit set), bit 1 of byte 0 further
// distinguishes a handshake long header (fixedBit set) from an ACK packet
// (fixedBit clear). A short-header packet reuses bit 1 as key_phase.
const fixedBit = 0x02

// handshakeVersion is the fixed version value carried by every long header
// this transport emits; there is no negotiation.
const handshakeVersion uint32 = 1

// LongHeader is the {header_form=1, fixed=1, packet_type, reserved,
// pn_length, version, dcid, scid, payload_length, payload} packet from §3.
// It carries a single handshake frame.
type LongHeader struct {
	PacketType byte // 2-bit; always 0 (handshake) in this transport
	DCID       uint32
	SCID       uint32
	Payload    []byte // an encoded handshake frame
}

func cidBytes(cid uint32) []byte {
	switch {
	case cid == 0:
		return []byte{0}
	case cid <= 0xff:
		return []byte{byte(cid)}
	case cid <= 0xffff:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(cid))
		return b
	case cid <= 0xffffff:
		return []byte{byte(cid >> 16), byte(cid >> 8), byte(cid)}
	default:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, cid)
		return b
	}
}

func cidFromBytes(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

// EncodeLongHeader serializes h.
func EncodeLongHeader(h LongHeader) []byte {
	dcid := cidBytes(h.DCID)
	scid := cidBytes(h.SCID)

	buf := make([]byte, 0, 1+4+1+len(dcid)+1+len(scid)+2+len(h.Payload))
	byte0 := byte(LongHeaderBit) | fixedBit | (h.PacketType&0x3)<<2
	buf = append(buf, byte0)

	var versionBuf [4]byte
	binary.BigEndian.PutUint32(versionBuf[:], handshakeVersion)
	buf = append(buf, versionBuf[:]...)

	buf = append(buf, byte(len(dcid)))
	buf = append(buf, dcid...)
	buf = append(buf, byte(len(scid)))
	buf = append(buf, scid...)

	var plenBuf [2]byte
	binary.BigEndian.PutUint16(plenBuf[:], uint16(len(h.Payload)))
	buf = append(buf, plenBuf[:]...)
	buf = append(buf, h.Payload...)
	return buf
}

// DecodeLongHeader parses a long header packet. It assumes the caller has
// already confirmed byte 0 carries LongHeaderBit|fixedBit.
func DecodeLongHeader(buf []byte) (LongHeader, error) {
	if len(buf) < 1+4+1 {
		return LongHeader{}, malformed(0, "long header truncated before dcid_len")
	}
	h := LongHeader{PacketType: (buf[0] >> 2) & 0x3}
	off := 1 + 4 // skip byte0, version (version is fixed; we don't reject mismatches)

	dcidLen := int(buf[off])
	off++
	if len(buf) < off+dcidLen+1 {
		return LongHeader{}, malformed(off, "long header truncated in dcid")
	}
	h.DCID = cidFromBytes(buf[off : off+dcidLen])
	off += dcidLen

	scidLen := int(buf[off])
	off++
	if len(buf) < off+scidLen+2 {
		return LongHeader{}, malformed(off, "long header truncated in scid")
	}
	h.SCID = cidFromBytes(buf[off : off+scidLen])
	off += scidLen

	if len(buf) < off+2 {
		return LongHeader{}, malformed(off, "long header truncated before payload_length")
	}
	plen := int(binary.BigEndian.Uint16(buf[off : off+2]))
	off += 2
	if len(buf) < off+plen {
		return LongHeader{}, malformed(off, "long header payload truncated")
	}
	h.Payload = append([]byte(nil), buf[off:off+plen]...)
	return h, nil
}

// ShortHeader is the {header_form=0, key_phase, dcid, packet_number,
// payload} packet from §3. It carries STREAM or CONNECTION_CLOSE frames.
type ShortHeader struct {
	KeyPhase     bool
	DCID         uint64
	PacketNumber uint32
	Payload      []byte
}

// EncodeShortHeader serializes h.
func EncodeShortHeader(h ShortHeader) []byte {
	buf := make([]byte, 1+8+4+len(h.Payload))
	byte0 := byte(0) // header_form = 0
	if h.KeyPhase {
		byte0 |= fixedBit // bit 1 doubles as key_phase outside the long-header family
	}
	buf[0] = byte0
	binary.BigEndian.PutUint64(buf[1:9], h.DCID)
	binary.BigEndian.PutUint32(buf[9:13], h.PacketNumber)
	copy(buf[13:], h.Payload)
	return buf
}

// DecodeShortHeader parses a short header packet. It assumes the caller has
// already confirmed byte 0 does not carry LongHeaderBit.
func DecodeShortHeader(buf []byte) (ShortHeader, error) {
	const headerLen = 1 + 8 + 4
	if len(buf) < headerLen {
		return ShortHeader{}, malformed(0, "short header truncated")
	}
	h := ShortHeader{
		KeyPhase:     buf[0]&fixedBit != 0,
		DCID:         binary.BigEndian.Uint64(buf[1:9]),
		PacketNumber: binary.BigEndian.Uint32(buf[9:13]),
	}
	h.Payload = append([]byte(nil), buf[headerLen:]...)
	return h, nil
}

// IsLongForm reports whether byte 0 of buf marks a long-header or ACK
// packet (true) versus a short-header data packet (false). It is the only
// place in the codec that inspects bit 0 directly.
func IsLongForm(buf []byte) bool {
	return len(buf) > 0 && buf[0]&LongHeaderBit != 0
}

// IsHandshake reports, for a buffer already known to be long-form, whether
// it is a handshake long header (true) or an ACK packet (false).
func IsHandshake(buf []byte) bool {
	return len(buf) > 0 && buf[0]&fixedBit != 0
}
