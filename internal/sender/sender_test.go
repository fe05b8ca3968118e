package sender

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quicft/internal/config"
	"quicft/internal/endpoint"
	"quicft/internal/xerr"
)

func testConfig() config.SenderConfig {
	cfg := config.DefaultSenderConfig()
	cfg.HandshakeTimeout = 5 * time.Millisecond
	cfg.HandshakeRetryLimit = 3
	cfg.TimeThreshold = 20 * time.Millisecond
	cfg.PTOTimeout = 15 * time.Millisecond
	cfg.MaxPacketBytes = 256
	return cfg
}

func TestHandshakeRetryExceededWhenPeerNeverResponds(t *testing.T) {
	fabric := endpoint.NewNetwork()
	fabric.DropFunc = func(from, to net.Addr, b []byte) bool { return true } // silent peer
	ep := fabric.NewEndpoint("sender")
	peer := fabric.NewEndpoint("nobody").Addr()

	sess := New(testConfig(), ep, peer)
	err := sess.Run(bytes.NewReader([]byte("hello")))
	require.ErrorIs(t, err, xerr.ErrHandshakeRetryExceeded)
	require.Equal(t, StateHandshaking, sess.State())
}

func TestMaxChunkLenNeverGoesBelowOne(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPacketBytes = 1
	sess := &Session{cfg: cfg}
	require.Equal(t, 1, sess.maxChunkLen())
}

func TestMaxChunkLenLeavesRoomForHeaders(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPacketBytes = 256
	sess := &Session{cfg: cfg}
	require.Equal(t, 256-13-15, sess.maxChunkLen())
}

func TestStateStringCoversAllStates(t *testing.T) {
	cases := map[State]string{
		StateIdle:        "idle",
		StateHandshaking: "handshaking",
		StateSending:     "sending",
		StateDraining:    "draining",
		StateClosing:     "closing",
		StateClosed:      "closed",
		State(99):        "unknown",
	}
	for state, want := range cases {
		require.Equal(t, want, state.String())
	}
}

func TestCountersStartAtZero(t *testing.T) {
	fabric := endpoint.NewNetwork()
	ep := fabric.NewEndpoint("sender")
	peer := fabric.NewEndpoint("receiver").Addr()
	sess := New(testConfig(), ep, peer)
	require.Equal(t, 0, sess.Counters().Total)
	require.Equal(t, StateIdle, sess.State())
}
