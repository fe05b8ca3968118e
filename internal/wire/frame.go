package wire

import "encoding/binary"

// Frame type identifiers (§3).
const (
	FrameTypeHandshake      byte = 0x06 // CRYPTO-analog; data is an ASCII hello literal
	FrameTypeStream         byte = 0x08 // payload bytes for the single stream
	FrameTypeLegacyAck      byte = 0x02 // deprecated single-number ASCII ACK, ignored on receipt
	FrameTypeConnectionClose byte = 0x1c
)

// MaxFrameDataLen is the largest payload a single frame's 16-bit length field
// can describe.
const MaxFrameDataLen = 65535

// Frame is the {frame_type, stream_id, offset, length, data} record from §3.
type Frame struct {
	Type     byte
	StreamID uint32
	Offset   uint64
	Data     []byte
}

// EncodeFrame serializes f to its on-wire byte representation. It fails if
// the data is too large for the 16-bit length field.
func EncodeFrame(f Frame) ([]byte, error) {
	if len(f.Data) > MaxFrameDataLen {
		return nil, malformed(0, "frame data exceeds 65535 bytes")
	}
	buf := make([]byte, 1+4+8+2+len(f.Data))
	buf[0] = f.Type
	binary.BigEndian.PutUint32(buf[1:5], f.StreamID)
	binary.BigEndian.PutUint64(buf[5:13], f.Offset)
	binary.BigEndian.PutUint16(buf[13:15], uint16(len(f.Data)))
	copy(buf[15:], f.Data)
	return buf, nil
}

// DecodeFrame parses a frame from the head of buf and reports how many bytes
// it consumed. It fails with MalformedPacket if buf is too short for the
// frame header or the declared data length.
func DecodeFrame(buf []byte) (Frame, int, error) {
	const headerLen = 1 + 4 + 8 + 2
	if len(buf) < headerLen {
		return Frame{}, 0, malformed(0, "frame header truncated")
	}
	f := Frame{
		Type:     buf[0],
		StreamID: binary.BigEndian.Uint32(buf[1:5]),
		Offset:   binary.BigEndian.Uint64(buf[5:13]),
	}
	length := int(binary.BigEndian.Uint16(buf[13:15]))
	if len(buf) < headerLen+length {
		return Frame{}, 0, malformed(headerLen, "frame data truncated")
	}
	f.Data = append([]byte(nil), buf[headerLen:headerLen+length]...)
	return f, headerLen + length, nil
}

// NewHandshakeFrame builds a frame carrying an ASCII hello literal on
// stream 0 at offset 0, as used by both ClientHello and ServerHello.
func NewHandshakeFrame(hello string) Frame {
	return Frame{Type: FrameTypeHandshake, Data: []byte(hello)}
}

// NewStreamFrame builds a STREAM frame carrying a chunk of file data at the
// given byte offset.
func NewStreamFrame(streamID uint32, offset uint64, data []byte) Frame {
	return Frame{Type: FrameTypeStream, StreamID: streamID, Offset: offset, Data: data}
}

// NewConnectionCloseFrame builds the literal CONNECTION_CLOSE frame.
func NewConnectionCloseFrame() Frame {
	return Frame{Type: FrameTypeConnectionClose, Data: []byte("CONNECTION_CLOSE")}
}
