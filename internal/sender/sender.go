// Package sender implements the file-transfer sender's state machine
// (spec §4.4): Idle → Handshaking → Sending → Draining → Closing → Closed,
// driven by a single cooperative loop with no locking (§5).
package sender

import (
	"io"
	"net"
	"time"

	"quicft/internal/config"
	"quicft/internal/endpoint"
	"quicft/internal/loss"
	"quicft/internal/tracking"
	"quicft/internal/wire"
	"quicft/internal/xerr"
	"quicft/pkg/logger"
)

// State enumerates the sender's lifecycle states.
type State int

const (
	StateIdle State = iota
	StateHandshaking
	StateSending
	StateDraining
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHandshaking:
		return "handshaking"
	case StateSending:
		return "sending"
	case StateDraining:
		return "draining"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// senderCID and peerCID are the §3 convention: sender CID = 1, receiver
// CID = 2.
const (
	senderCID uint32 = 1
	peerCID   uint32 = 2
)

// defaultCloseWait bounds the wait for the peer's CONNECTION_CLOSE echo
// when time_threshold is disabled (0), mirroring loss.defaultPTOTimeout.
const defaultCloseWait = 50 * time.Millisecond

// Session drives one file transfer to a single peer address.
type Session struct {
	cfg  config.SenderConfig
	ep   endpoint.Endpoint
	peer net.Addr

	state State

	queue               *tracking.Queue
	nextPN              uint32
	counters            loss.Counters
	timeDetector        *loss.TimeThresholdDetector
	reorderDetector     *loss.ReorderingDetector
	ptoDetector         *loss.PTODetector
	lastAckArrival      time.Time
	ackArrivedThisCycle bool

	peerDCID uint64 // receiver's CID, widened for the short-header's 64-bit field
}

// New builds a Session ready to run against peer.
func New(cfg config.SenderConfig, ep endpoint.Endpoint, peer net.Addr) *Session {
	return &Session{
		cfg:             cfg,
		ep:              ep,
		peer:            peer,
		state:           StateIdle,
		queue:           tracking.New(),
		timeDetector:    &loss.TimeThresholdDetector{Threshold: cfg.TimeThreshold},
		reorderDetector: &loss.ReorderingDetector{Threshold: cfg.ReorderingThreshold},
		ptoDetector:     &loss.PTODetector{Timeout: cfg.PTOTimeout},
	}
}

// Run transfers src's remaining bytes to the peer and blocks until the
// connection reaches Closed or a fatal error occurs.
func (s *Session) Run(src io.Reader) error {
	if err := s.handshake(); err != nil {
		return err
	}
	if err := s.send(src); err != nil {
		return err
	}
	if err := s.drain(); err != nil {
		return err
	}
	return s.closeConn()
}

func (s *Session) handshake() error {
	s.state = StateHandshaking
	hello, err := wire.EncodeHandshakePacket(senderCID, peerCID, "ClientHello")
	if err != nil {
		return err
	}
	if err := s.ep.SetNonblocking(false); err != nil {
		return err
	}
	if err := s.ep.SetDeadline(s.cfg.HandshakeTimeout); err != nil {
		return err
	}

	retries := 0
	for {
		if err := s.ep.Send(hello, s.peer); err != nil {
			return xerr.ErrEndpointIO
		}
		buf, _, err := s.ep.Recv(s.cfg.MaxPacketBytes)
		if err == endpoint.ErrTimedOut {
			retries++
			if retries > s.cfg.HandshakeRetryLimit {
				return xerr.ErrHandshakeRetryExceeded
			}
			continue
		}
		if err != nil {
			return xerr.ErrEndpointIO
		}
		pkt, err := wire.Decode(buf)
		if err != nil {
			continue // malformed during handshake: ignore and keep waiting
		}
		if pkt.Kind != wire.KindHandshake {
			continue
		}
		frame, _, err := wire.DecodeFrame(pkt.Long.Payload)
		if err != nil || string(frame.Data) != "ServerHello" {
			continue
		}
		s.peerDCID = uint64(pkt.Long.SCID)
		break
	}

	if err := s.ep.SetNonblocking(true); err != nil {
		return err
	}
	s.state = StateSending
	return nil
}

// maxChunkLen is the largest STREAM frame payload a single short-header
// packet can carry under cfg.MaxPacketBytes, leaving room for the short
// header (13 bytes) and frame header (15 bytes).
func (s *Session) maxChunkLen() int {
	n := s.cfg.MaxPacketBytes - 13 - 15
	if n < 1 {
		n = 1
	}
	return n
}

func (s *Session) send(src io.Reader) error {
	chunk := make([]byte, s.maxChunkLen())
	var offset uint64

	for {
		n, readErr := src.Read(chunk)
		if n > 0 {
			frame := wire.NewStreamFrame(0, offset, chunk[:n])
			s.nextPN++
			pkt, err := wire.EncodeDataPacket(s.peerDCID, s.nextPN, frame)
			if err != nil {
				return err
			}
			s.queue.Enqueue(&tracking.Descriptor{
				PacketNumber:  s.nextPN,
				SendTimestamp: time.Now(),
				EncodedBytes:  pkt,
			})
			if err := s.ep.Send(pkt, s.peer); err != nil {
				return xerr.ErrEndpointIO
			}
			offset += uint64(n)

			if err := s.intake(); err != nil {
				return err
			}
			if err := s.detect(false); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}

	s.state = StateDraining
	return nil
}

func (s *Session) drain() error {
	for s.queue.Len() > 0 {
		if err := s.intake(); err != nil {
			return err
		}
		if err := s.detect(true); err != nil {
			return err
		}
	}
	return nil
}

// intake drains any pending ACKs non-blockingly, updating the tracking
// queue and the last-ack-arrival bookkeeping the time-threshold detector
// needs.
func (s *Session) intake() error {
	arrivedThisCycle := false
	for {
		buf, _, err := s.ep.Recv(s.cfg.MaxPacketBytes)
		if err == endpoint.ErrWouldBlock {
			break
		}
		if err != nil {
			return xerr.ErrEndpointIO
		}
		pkt, err := wire.Decode(buf)
		if err != nil {
			continue
		}
		if pkt.Kind != wire.KindAck {
			continue
		}
		s.queue.MarkAckedRanges(pkt.Ack.Ranges)
		s.queue.TrimAckedPrefix()
		s.lastAckArrival = time.Now()
		arrivedThisCycle = true
	}
	s.ackArrivedThisCycle = arrivedThisCycle
	return nil
}

func (s *Session) detect(draining bool) error {
	ctx := loss.Context{
		Now:                 time.Now(),
		LastAckArrival:      s.lastAckArrival,
		AckArrivedThisCycle: s.ackArrivedThisCycle,
		Draining:            draining,
		ReorderingThreshold: s.cfg.ReorderingThreshold,
	}

	send := func(b []byte) error {
		if err := s.ep.Send(b, s.peer); err != nil {
			return xerr.ErrEndpointIO
		}
		return nil
	}

	if lost := s.timeDetector.DetectLost(s.queue, ctx); len(lost) > 0 {
		if err := loss.Retransmit(s.queue, s.timeDetector.Name(), lost, &s.nextPN, ctx.Now, &s.counters, send); err != nil {
			return err
		}
	}
	if lost := s.reorderDetector.DetectLost(s.queue, ctx); len(lost) > 0 {
		if err := loss.Retransmit(s.queue, s.reorderDetector.Name(), lost, &s.nextPN, ctx.Now, &s.counters, send); err != nil {
			return err
		}
	}
	if lost := s.ptoDetector.DetectLost(s.queue, ctx); len(lost) > 0 {
		if err := loss.Retransmit(s.queue, s.ptoDetector.Name(), lost, &s.nextPN, ctx.Now, &s.counters, send); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) closeConn() error {
	s.state = StateClosing
	s.nextPN++
	pkt, err := wire.EncodeDataPacket(s.peerDCID, s.nextPN, wire.NewConnectionCloseFrame())
	if err != nil {
		return err
	}
	if err := s.ep.Send(pkt, s.peer); err != nil {
		return xerr.ErrEndpointIO
	}

	if err := s.ep.SetNonblocking(false); err != nil {
		return err
	}
	// time_threshold=0 is a valid reordering-only configuration (§6), but
	// the endpoint treats a zero deadline as block-forever (endpoint.go):
	// fall back to an internal default bound here the same way PTO does
	// when its own timeout is disabled, so a lost CONNECTION_CLOSE echo
	// can't hang the sender indefinitely.
	closeWait := s.cfg.TimeThreshold
	if closeWait <= 0 {
		closeWait = defaultCloseWait
	}
	if err := s.ep.SetDeadline(closeWait); err != nil {
		return err
	}
	for {
		buf, _, err := s.ep.Recv(s.cfg.MaxPacketBytes)
		if err == endpoint.ErrTimedOut {
			break
		}
		if err != nil {
			break
		}
		decoded, err := wire.Decode(buf)
		if err != nil {
			continue
		}
		if decoded.Kind == wire.KindShort {
			frame, _, err := wire.DecodeFrame(decoded.Short.Payload)
			if err == nil && frame.Type == wire.FrameTypeConnectionClose {
				break
			}
		}
	}

	s.state = StateClosed
	logger.Debug("sender session closed", "packets_retransmitted", s.counters.Total)
	return nil
}

// State reports the session's current lifecycle state, for tests and CLI
// progress reporting.
func (s *Session) State() State { return s.state }

// Counters exposes retransmission totals for CLI reporting.
func (s *Session) Counters() loss.Counters { return s.counters }
