// Package integration exercises the sender and receiver state machines
// together over the in-memory endpoint fabric, covering three of spec §8's
// end-to-end scenarios (no loss, 10% independent loss, a dropped first
// ClientHello) with smaller payloads, without real sockets or wall-clock sleeps beyond
// the configured (and shrunk-for-tests) protocol timeouts.
package integration

import (
	"bytes"
	"math/rand"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quicft/internal/config"
	"quicft/internal/endpoint"
	"quicft/internal/receiver"
	"quicft/internal/sender"
)

func testConfigs() (config.SenderConfig, config.ReceiverConfig) {
	sc := config.DefaultSenderConfig()
	sc.TimeThreshold = 20 * time.Millisecond
	sc.PTOTimeout = 15 * time.Millisecond
	sc.HandshakeTimeout = 10 * time.Millisecond
	sc.HandshakeRetryLimit = 20
	sc.MaxPacketBytes = 256

	rc := config.DefaultReceiverConfig()
	rc.AckDelay = 5 * time.Millisecond
	rc.IdleTimeout = 200 * time.Millisecond
	rc.RetransmitWait = 10 * time.Millisecond
	rc.MaxPacketBytes = 256
	return sc, rc
}

func runTransfer(t *testing.T, payload []byte, dropFunc func(from, to net.Addr, b []byte) bool) ([]byte, error, error) {
	t.Helper()
	fabric := endpoint.NewNetwork()
	fabric.DropFunc = dropFunc

	senderEP := fabric.NewEndpoint("sender")
	receiverEP := fabric.NewEndpoint("receiver")

	sc, rc := testConfigs()
	var out bytes.Buffer
	recv := receiver.New(rc, receiverEP, &out)
	send := sender.New(sc, senderEP, receiverEP.Addr())

	var wg sync.WaitGroup
	var recvErr, sendErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		recvErr = recv.Run()
	}()
	go func() {
		defer wg.Done()
		sendErr = send.Run(bytes.NewReader(payload))
	}()
	wg.Wait()

	return out.Bytes(), sendErr, recvErr
}

func TestNoLossSmallFileTransfersByteForByte(t *testing.T) {
	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	got, sendErr, recvErr := runTransfer(t, payload, nil)
	require.NoError(t, sendErr)
	require.NoError(t, recvErr)
	require.Equal(t, payload, got)
}

func TestLossyTransferStillCompletesByteForByte(t *testing.T) {
	payload := make([]byte, 8192)
	for i := range payload {
		payload[i] = byte(i % 256)
	}

	rng := rand.New(rand.NewSource(7))
	var dropMu sync.Mutex
	drop := func(from, to net.Addr, b []byte) bool {
		dropMu.Lock()
		defer dropMu.Unlock()
		// Independent 10% loss on every sender->receiver datagram,
		// matching spec §8 scenario 2; ACKs flow back undisturbed.
		if from.String() != "sender" {
			return false
		}
		return rng.Float64() < 0.10
	}

	got, sendErr, recvErr := runTransfer(t, payload, drop)
	require.NoError(t, sendErr)
	require.NoError(t, recvErr)
	require.Equal(t, payload, got)
}

func TestHandshakeLossStillCompletes(t *testing.T) {
	payload := []byte("small payload surviving a dropped first ClientHello")

	var dropMu sync.Mutex
	dropped := false
	drop := func(from, to net.Addr, b []byte) bool {
		dropMu.Lock()
		defer dropMu.Unlock()
		if !dropped && from.String() == "sender" {
			dropped = true
			return true // drop exactly the first ClientHello
		}
		return false
	}

	got, sendErr, recvErr := runTransfer(t, payload, drop)
	require.NoError(t, sendErr)
	require.NoError(t, recvErr)
	require.Equal(t, payload, got)
	require.True(t, dropped)
}
