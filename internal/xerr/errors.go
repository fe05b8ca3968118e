// Package xerr holds the session-fatal error taxonomy shared by the sender
// and receiver state machines (spec §7). Codec errors (wire.MalformedPacket)
// are handled separately: they are swallowed at the packet boundary and
// never reach this package.
package xerr

import "errors"

var (
	// ErrUnexpectedDataBeforeHandshake: the receiver saw a short-header
	// packet before learning the peer's CID. Fatal for the session.
	ErrUnexpectedDataBeforeHandshake = errors.New("quicft: short-header packet received before handshake completed")

	// ErrNoRecoveryAlgorithm: configuration disabled every loss detector.
	// Fatal at startup.
	ErrNoRecoveryAlgorithm = errors.New("quicft: time_threshold and reordering_threshold cannot both be disabled")

	// ErrHandshakeRetryExceeded: the sender's ClientHello retry count
	// exceeded its ceiling. Fatal.
	ErrHandshakeRetryExceeded = errors.New("quicft: handshake retry ceiling exceeded")

	// ErrIdleTimeout: the receiver exceeded its idle deadline. Treated as a
	// graceful, end-of-stream shutdown, not a failure.
	ErrIdleTimeout = errors.New("quicft: idle timeout")

	// ErrEndpointIO: the datagram endpoint failed in a way that is neither
	// would-block nor a deadline timeout. Fatal.
	ErrEndpointIO = errors.New("quicft: endpoint I/O error")

	// ErrIncompleteFile: the receiver reached close with a gap in the
	// delivered byte ranges (§6, §10).
	ErrIncompleteFile = errors.New("quicft: file has holes at close")
)
