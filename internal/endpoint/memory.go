package endpoint

import (
	"net"
	"sync"
	"time"
)

// memAddr is an opaque in-memory address, satisfying net.Addr.
type memAddr string

func (a memAddr) Network() string { return "memory" }
func (a memAddr) String() string  { return string(a) }

type datagram struct {
	from net.Addr
	data []byte
}

// Network is an in-memory datagram fabric used by deterministic tests
// (spec §8's end-to-end scenarios) to exercise the sender and receiver
// state machines without real sockets or wall-clock-dependent network
// loss. DropFunc, when set, is consulted for every Send and may simulate
// loss by dropping the datagram; datagrams that are not dropped arrive in
// send order, with no reordering or duplication.
type Network struct {
	mu    sync.Mutex
	nodes map[string]chan datagram

	// DropFunc reports whether a datagram sent from "from" to "to" should
	// be silently dropped.
	DropFunc func(from, to net.Addr, b []byte) bool
}

// NewNetwork returns an empty in-memory fabric.
func NewNetwork() *Network {
	return &Network{nodes: make(map[string]chan datagram)}
}

// NewEndpoint registers and returns a new Memory endpoint bound to addr.
func (n *Network) NewEndpoint(addr string) *Memory {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := make(chan datagram, 256)
	n.nodes[addr] = ch
	return &Memory{net: n, self: memAddr(addr), inbox: ch}
}

func (n *Network) deliver(from net.Addr, to net.Addr, b []byte) {
	n.mu.Lock()
	ch, ok := n.nodes[to.String()]
	drop := n.DropFunc
	n.mu.Unlock()
	if !ok {
		return
	}
	if drop != nil && drop(from, to, b) {
		return
	}
	cp := append([]byte(nil), b...)
	ch <- datagram{from: from, data: cp}
}

// Memory is an Endpoint backed by an in-memory channel rather than a real
// socket.
type Memory struct {
	net         *Network
	self        net.Addr
	inbox       chan datagram
	mu          sync.Mutex
	deadline    time.Duration
	nonblocking bool
}

// Addr returns this endpoint's address, for tests that need to address it
// from another endpoint.
func (m *Memory) Addr() net.Addr { return m.self }

func (m *Memory) Send(b []byte, addr net.Addr) error {
	m.net.deliver(m.self, addr, b)
	return nil
}

func (m *Memory) Recv(maxLen int) ([]byte, net.Addr, error) {
	m.mu.Lock()
	nonblocking := m.nonblocking
	deadline := m.deadline
	m.mu.Unlock()

	if nonblocking {
		select {
		case dg := <-m.inbox:
			return truncate(dg.data, maxLen), dg.from, nil
		default:
			return nil, nil, ErrWouldBlock
		}
	}

	if deadline <= 0 {
		dg := <-m.inbox
		return truncate(dg.data, maxLen), dg.from, nil
	}
	timer := time.NewTimer(deadline)
	defer timer.Stop()
	select {
	case dg := <-m.inbox:
		return truncate(dg.data, maxLen), dg.from, nil
	case <-timer.C:
		return nil, nil, ErrTimedOut
	}
}

func truncate(b []byte, maxLen int) []byte {
	if len(b) > maxLen {
		return b[:maxLen]
	}
	return b
}

func (m *Memory) SetDeadline(d time.Duration) error {
	m.mu.Lock()
	m.deadline = d
	m.mu.Unlock()
	return nil
}

func (m *Memory) SetNonblocking(nonblocking bool) error {
	m.mu.Lock()
	m.nonblocking = nonblocking
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
