package endpoint

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemorySendRecvRoundTrip(t *testing.T) {
	fabric := NewNetwork()
	a := fabric.NewEndpoint("a")
	b := fabric.NewEndpoint("b")

	require.NoError(t, a.Send([]byte("hello"), b.Addr()))

	buf, from, err := b.Recv(1500)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf))
	require.Equal(t, "a", from.String())
}

func TestMemoryRecvNonblockingWouldBlock(t *testing.T) {
	fabric := NewNetwork()
	b := fabric.NewEndpoint("b")
	require.NoError(t, b.SetNonblocking(true))

	_, _, err := b.Recv(1500)
	require.ErrorIs(t, err, ErrWouldBlock)
}

func TestMemoryRecvDeadlineTimesOut(t *testing.T) {
	fabric := NewNetwork()
	b := fabric.NewEndpoint("b")
	require.NoError(t, b.SetDeadline(10*time.Millisecond))

	_, _, err := b.Recv(1500)
	require.ErrorIs(t, err, ErrTimedOut)
}

func TestMemoryRecvTruncatesToMaxLen(t *testing.T) {
	fabric := NewNetwork()
	a := fabric.NewEndpoint("a")
	b := fabric.NewEndpoint("b")

	require.NoError(t, a.Send([]byte("hello world"), b.Addr()))
	buf, _, err := b.Recv(5)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf))
}

func TestMemoryNetworkDropFunc(t *testing.T) {
	fabric := NewNetwork()
	a := fabric.NewEndpoint("a")
	b := fabric.NewEndpoint("b")
	fabric.DropFunc = func(from, to net.Addr, data []byte) bool {
		return true
	}

	require.NoError(t, a.Send([]byte("lost"), b.Addr()))
	require.NoError(t, b.SetDeadline(10*time.Millisecond))
	_, _, err := b.Recv(1500)
	require.ErrorIs(t, err, ErrTimedOut)
}
