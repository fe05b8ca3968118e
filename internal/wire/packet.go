package wire

// PacketKind classifies a decoded datagram for dispatch by the state
// machines.
type PacketKind int

const (
	KindShort PacketKind = iota
	KindHandshake
	KindAck
)

// Packet is the result of Decode: exactly one of ShortHeader, LongHeader,
// or ACK is populated, selected by Kind.
type Packet struct {
	Kind  PacketKind
	Short ShortHeader
	Long  LongHeader
	Ack   ACK
}

// Decode classifies and parses a raw datagram using the bit-0/bit-1
// discrimination rule from §4.1.
func Decode(buf []byte) (Packet, error) {
	if len(buf) == 0 {
		return Packet{}, malformed(0, "empty datagram")
	}
	if !IsLongForm(buf) {
		sh, err := DecodeShortHeader(buf)
		if err != nil {
			return Packet{}, err
		}
		return Packet{Kind: KindShort, Short: sh}, nil
	}
	if IsHandshake(buf) {
		lh, err := DecodeLongHeader(buf)
		if err != nil {
			return Packet{}, err
		}
		return Packet{Kind: KindHandshake, Long: lh}, nil
	}
	ack, err := DecodeACK(buf)
	if err != nil {
		return Packet{}, err
	}
	return Packet{Kind: KindAck, Ack: ack}, nil
}

// EncodeHandshakePacket wraps a handshake hello literal in a long header.
func EncodeHandshakePacket(scid, dcid uint32, hello string) ([]byte, error) {
	frame, err := EncodeFrame(NewHandshakeFrame(hello))
	if err != nil {
		return nil, err
	}
	return EncodeLongHeader(LongHeader{DCID: dcid, SCID: scid, Payload: frame}), nil
}

// EncodeDataPacket wraps a single frame (STREAM or CONNECTION_CLOSE) in a
// short header addressed to dcid with the given packet number.
func EncodeDataPacket(dcid uint64, pn uint32, f Frame) ([]byte, error) {
	payload, err := EncodeFrame(f)
	if err != nil {
		return nil, err
	}
	return EncodeShortHeader(ShortHeader{DCID: dcid, PacketNumber: pn, Payload: payload}), nil
}
