// Package receiver implements the file-transfer receiver's state machine
// (spec §4.5): Listening → Handshaked → Receiving → Closing → Closed.
package receiver

import (
	"io"
	"net"
	"time"

	"quicft/internal/config"
	"quicft/internal/endpoint"
	"quicft/internal/wire"
	"quicft/internal/xerr"
	"quicft/pkg/logger"
)

// State enumerates the receiver's lifecycle states.
type State int

const (
	StateListening State = iota
	StateHandshaked
	StateReceiving
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateHandshaked:
		return "handshaked"
	case StateReceiving:
		return "receiving"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// receiverCID is the §3 convention: receiver CID = 2.
const receiverCID uint32 = 2

// Session drives one inbound file transfer.
type Session struct {
	cfg config.ReceiverConfig
	ep  endpoint.Endpoint

	state State
	peer  net.Addr

	peerCID   uint32
	peerDCID  uint64 // peerCID widened to the short-header's 64-bit field
	nextAckPN uint32

	reasm *reassembler

	// stashedShort holds a short-header datagram observed while still
	// draining duplicate ClientHellos in Handshaked, to be processed as
	// the first packet of Receiving.
	stashedShort    []byte
	stashedShortSet bool
}

// New builds a Session that will write the transferred file to out.
func New(cfg config.ReceiverConfig, ep endpoint.Endpoint, out io.Writer) *Session {
	return &Session{
		cfg:   cfg,
		ep:    ep,
		state: StateListening,
		reasm: newReassembler(out),
	}
}

// Run blocks until the transfer completes (Closed) or a fatal error
// occurs. ErrIncompleteFile is returned if the peer closed the connection
// with a gap remaining in the delivered byte ranges.
func (s *Session) Run() error {
	if err := s.listen(); err != nil {
		return err
	}
	if err := s.handshaked(); err != nil {
		return err
	}
	if err := s.receiving(); err != nil {
		return err
	}
	return s.closing()
}

func (s *Session) listen() error {
	if err := s.ep.SetNonblocking(false); err != nil {
		return err
	}
	if err := s.ep.SetDeadline(0); err != nil {
		return err
	}
	for {
		buf, from, err := s.ep.Recv(s.cfg.MaxPacketBytes)
		if err != nil {
			return xerr.ErrEndpointIO
		}
		if !wire.IsLongForm(buf) {
			return xerr.ErrUnexpectedDataBeforeHandshake
		}
		if !wire.IsHandshake(buf) {
			continue // a stray ACK before handshake: ignore
		}
		lh, err := wire.DecodeLongHeader(buf)
		if err != nil {
			continue
		}
		frame, _, err := wire.DecodeFrame(lh.Payload)
		if err != nil || string(frame.Data) != "ClientHello" {
			continue
		}
		if lh.SCID == 0 {
			continue
		}
		s.peer = from
		s.peerCID = lh.SCID
		s.peerDCID = uint64(lh.SCID)

		reply, err := wire.EncodeHandshakePacket(receiverCID, s.peerCID, "ServerHello")
		if err != nil {
			return err
		}
		if err := s.ep.Send(reply, s.peer); err != nil {
			return xerr.ErrEndpointIO
		}
		s.state = StateHandshaked
		return nil
	}
}

func (s *Session) handshaked() error {
	if err := s.ep.SetDeadline(s.cfg.RetransmitWait); err != nil {
		return err
	}
	for {
		buf, _, err := s.ep.Recv(s.cfg.MaxPacketBytes)
		if err == endpoint.ErrTimedOut {
			break
		}
		if err != nil {
			return xerr.ErrEndpointIO
		}
		if !wire.IsLongForm(buf) {
			s.stashedShort = buf
			s.stashedShortSet = true
			break
		}
		if !wire.IsHandshake(buf) {
			continue
		}
		lh, err := wire.DecodeLongHeader(buf)
		if err != nil {
			continue
		}
		frame, _, err := wire.DecodeFrame(lh.Payload)
		if err != nil || string(frame.Data) != "ClientHello" {
			continue
		}
		reply, err := wire.EncodeHandshakePacket(receiverCID, s.peerCID, "ServerHello")
		if err != nil {
			return err
		}
		if err := s.ep.Send(reply, s.peer); err != nil {
			return xerr.ErrEndpointIO
		}
	}
	s.state = StateReceiving
	return nil
}

func (s *Session) receiving() error {
	var batchNumbers []uint32
	var batchDeadline time.Time
	batchActive := false

	if err := s.ep.SetNonblocking(false); err != nil {
		return err
	}

	processShort := func(buf []byte) (closed bool, err error) {
		sh, err := wire.DecodeShortHeader(buf)
		if err != nil {
			return false, nil
		}
		frame, _, err := wire.DecodeFrame(sh.Payload)
		if err != nil {
			return false, nil
		}
		switch frame.Type {
		case wire.FrameTypeConnectionClose:
			return true, nil
		case wire.FrameTypeStream:
			if err := s.reasm.insert(frame.Offset, frame.Data); err != nil {
				return false, err
			}
			if !batchActive {
				batchActive = true
				batchDeadline = time.Now().Add(s.cfg.AckDelay)
			}
			batchNumbers = appendIfAbsent(batchNumbers, sh.PacketNumber)
		}
		return false, nil
	}

	if s.stashedShortSet {
		closed, err := processShort(s.stashedShort)
		if err != nil {
			return err
		}
		if closed {
			s.state = StateClosing
			return nil
		}
		s.stashedShortSet = false
	}

	for {
		var deadline time.Duration
		if batchActive {
			remaining := time.Until(batchDeadline)
			if remaining <= 0 {
				if err := s.flushAckBatch(&batchNumbers); err != nil {
					return err
				}
				batchActive = false
				continue
			}
			deadline = remaining
		} else {
			deadline = s.cfg.IdleTimeout
		}
		if err := s.ep.SetDeadline(deadline); err != nil {
			return err
		}

		buf, _, err := s.ep.Recv(s.cfg.MaxPacketBytes)
		if err == endpoint.ErrTimedOut {
			if batchActive {
				if err := s.flushAckBatch(&batchNumbers); err != nil {
					return err
				}
				batchActive = false
				continue
			}
			// The peer went silent past idle_timeout with no batch
			// outstanding: treated as a graceful end-of-stream (§5, §7),
			// not a failure, so Run proceeds straight to closing().
			logger.Debug("receiver idle timeout, closing")
			s.state = StateClosing
			return nil
		}
		if err != nil {
			return xerr.ErrEndpointIO
		}
		if wire.IsLongForm(buf) {
			continue // stray handshake retransmission or ACK echo: ignore
		}

		closed, err := processShort(buf)
		if err != nil {
			return err
		}
		if closed {
			if batchActive {
				if err := s.flushAckBatch(&batchNumbers); err != nil {
					return err
				}
			}
			s.state = StateClosing
			return nil
		}
	}
}

func (s *Session) flushAckBatch(batchNumbers *[]uint32) error {
	ranges := wire.CoalesceRanges(*batchNumbers)
	s.nextAckPN++
	ack := wire.ACK{
		DCID:         s.peerDCID,
		PacketNumber: s.nextAckPN,
		AckDelay:     uint16(s.cfg.AckDelay.Milliseconds()),
		Ranges:       ranges,
	}
	*batchNumbers = (*batchNumbers)[:0]
	return s.sendACK(ack)
}

func (s *Session) sendACK(ack wire.ACK) error {
	if err := s.ep.Send(wire.EncodeACK(ack), s.peer); err != nil {
		return xerr.ErrEndpointIO
	}
	return nil
}

func (s *Session) closing() error {
	pkt, err := wire.EncodeDataPacket(s.peerDCID, s.nextAckPN+1, wire.NewConnectionCloseFrame())
	if err != nil {
		return err
	}
	if err := s.ep.Send(pkt, s.peer); err != nil {
		return xerr.ErrEndpointIO
	}
	s.state = StateClosed

	if !s.reasm.complete() {
		logger.Warn("receiver closed with gaps remaining", "gap_offsets", s.reasm.gaps())
		return xerr.ErrIncompleteFile
	}
	logger.Debug("receiver session closed cleanly")
	return nil
}

// State reports the session's current lifecycle state.
func (s *Session) State() State { return s.state }

func appendIfAbsent(s []uint32, v uint32) []uint32 {
	for _, existing := range s {
		if existing == v {
			return s
		}
	}
	return append(s, v)
}
