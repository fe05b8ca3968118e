// Package endpoint is the thin adapter around non-blocking datagram
// send/recv and timeouts from spec §4.6. The codec and state machines
// consume only this interface; they never inspect socket internals.
package endpoint

import (
	"errors"
	"net"
	"time"
)

// ErrWouldBlock is returned by Recv in non-blocking mode when no datagram
// is immediately available.
var ErrWouldBlock = errors.New("endpoint: would block")

// ErrTimedOut is returned by Recv in blocking mode when the configured
// deadline elapses with no datagram available.
var ErrTimedOut = errors.New("endpoint: timed out")

// Endpoint is a datagram socket abstraction. Addresses are opaque values
// (net.Addr); callers must not assume a concrete type.
type Endpoint interface {
	// Send writes b to addr. Implementations do not fragment or buffer.
	Send(b []byte, addr net.Addr) error

	// Recv reads at most maxLen bytes from the next available datagram. It
	// returns ErrWouldBlock in non-blocking mode with nothing available,
	// or ErrTimedOut in blocking mode once the configured deadline elapses.
	Recv(maxLen int) ([]byte, net.Addr, error)

	// SetDeadline bounds blocking Recv calls. A zero or negative duration
	// clears the deadline (blocks indefinitely), matching spec's
	// `duration | None`.
	SetDeadline(d time.Duration) error

	// SetNonblocking switches Recv between blocking (bounded by the
	// configured deadline) and non-blocking (returns immediately) modes.
	SetNonblocking(nonblocking bool) error

	// Close releases the underlying socket.
	Close() error
}
