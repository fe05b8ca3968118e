package endpoint

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// UDP is an Endpoint backed by a real net.UDPConn, the same socket type the
// teacher server binds with net.ListenUDP (source/server/server.go).
type UDP struct {
	conn        *net.UDPConn
	connected   bool
	deadline    time.Duration
	nonblocking bool
}

// ListenUDP binds a UDP socket on addr, mirroring
// source/server/server.go's Start().
func ListenUDP(addr *net.UDPAddr) (*UDP, error) {
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("endpoint: failed to bind UDP socket: %w", err)
	}
	return &UDP{conn: conn}, nil
}

// DialUDP connects a UDP socket to a fixed peer address, for the sender
// side where the peer is pre-known (spec §1).
func DialUDP(addr *net.UDPAddr) (*UDP, error) {
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("endpoint: failed to dial UDP socket: %w", err)
	}
	return &UDP{conn: conn, connected: true}, nil
}

// Send writes b to addr. A connected socket (DialUDP) must use Write, not
// WriteTo: the latter returns net.ErrWriteToConnected on a pre-connected
// UDPConn regardless of what addr is passed.
func (u *UDP) Send(b []byte, addr net.Addr) error {
	var err error
	if u.connected {
		_, err = u.conn.Write(b)
	} else if addr == nil {
		_, err = u.conn.Write(b)
	} else {
		_, err = u.conn.WriteTo(b, addr)
	}
	if err != nil {
		return fmt.Errorf("endpoint: send failed: %w", err)
	}
	return nil
}

func (u *UDP) Recv(maxLen int) ([]byte, net.Addr, error) {
	if u.nonblocking {
		if err := u.conn.SetReadDeadline(time.Now()); err != nil {
			return nil, nil, err
		}
	} else if u.deadline > 0 {
		if err := u.conn.SetReadDeadline(time.Now().Add(u.deadline)); err != nil {
			return nil, nil, err
		}
	} else {
		if err := u.conn.SetReadDeadline(time.Time{}); err != nil {
			return nil, nil, err
		}
	}

	buf := make([]byte, maxLen)
	n, addr, err := u.conn.ReadFromUDP(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			if u.nonblocking {
				return nil, nil, ErrWouldBlock
			}
			return nil, nil, ErrTimedOut
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			if u.nonblocking {
				return nil, nil, ErrWouldBlock
			}
			return nil, nil, ErrTimedOut
		}
		return nil, nil, fmt.Errorf("endpoint: recv failed: %w", err)
	}
	return buf[:n], addr, nil
}

func (u *UDP) SetDeadline(d time.Duration) error {
	u.deadline = d
	return nil
}

func (u *UDP) SetNonblocking(nonblocking bool) error {
	u.nonblocking = nonblocking
	return nil
}

func (u *UDP) Close() error {
	return u.conn.Close()
}

// LocalAddr exposes the bound local address.
func (u *UDP) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}
