package loss

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quicft/internal/tracking"
	"quicft/internal/wire"
)

func enqueued(t *testing.T, q *tracking.Queue, pn uint32, ts time.Time) *tracking.Descriptor {
	t.Helper()
	b, err := wire.EncodeDataPacket(2, pn, wire.NewStreamFrame(0, uint64(pn)*100, []byte("x")))
	require.NoError(t, err)
	d := &tracking.Descriptor{PacketNumber: pn, SendTimestamp: ts, EncodedBytes: b}
	q.Enqueue(d)
	return d
}

func TestTimeThresholdDetectorDisabledAtZero(t *testing.T) {
	det := &TimeThresholdDetector{Threshold: 0}
	q := tracking.New()
	enqueued(t, q, 1, time.Now().Add(-time.Hour))
	lost := det.DetectLost(q, Context{Now: time.Now()})
	require.Empty(t, lost)
}

func TestTimeThresholdDetectorUsesLastAckArrivalWhenNoAckThisCycle(t *testing.T) {
	det := &TimeThresholdDetector{Threshold: 100 * time.Millisecond}
	q := tracking.New()
	base := time.Now()
	enqueued(t, q, 1, base)

	// "now" is far in the future (sender outrunning the network), but no
	// ACK has arrived this cycle, so the last ACK arrival time (close to
	// send time) is used instead and the packet is not yet lost.
	lastAck := base.Add(50 * time.Millisecond)
	lost := det.DetectLost(q, Context{
		Now:                 base.Add(10 * time.Second),
		LastAckArrival:      lastAck,
		AckArrivedThisCycle: false,
	})
	require.Empty(t, lost)

	// Once an ACK has arrived this cycle, "now" is used directly.
	lost = det.DetectLost(q, Context{
		Now:                 base.Add(10 * time.Second),
		AckArrivedThisCycle: true,
	})
	require.Len(t, lost, 1)
}

func TestReorderingDetectorThresholdBoundary(t *testing.T) {
	det := &ReorderingDetector{Threshold: 10}
	q := tracking.New()
	now := time.Now()
	for pn := uint32(1); pn <= 20; pn++ {
		enqueued(t, q, pn, now)
	}
	// Only packet 13 (index 12) is acked. Indices below 12-10 = 2 (packets
	// 1 and 2) are lost; packet 3 (index 2) sits on the boundary and is not.
	q.MarkAckedRanges([]wire.AckRange{{Low: 13, High: 13}})

	lost := det.DetectLost(q, Context{Now: now})
	require.Len(t, lost, 2)
	require.Equal(t, uint32(1), lost[0].PacketNumber)
	require.Equal(t, uint32(2), lost[1].PacketNumber)
}

func TestReorderingDetectorDisabledAtZero(t *testing.T) {
	det := &ReorderingDetector{Threshold: 0}
	q := tracking.New()
	now := time.Now()
	enqueued(t, q, 1, now)
	lost := det.DetectLost(q, Context{Now: now})
	require.Empty(t, lost)
}

func TestPTOOnlyActiveDuringDrain(t *testing.T) {
	det := &PTODetector{Timeout: 10 * time.Millisecond}
	q := tracking.New()
	now := time.Now()
	enqueued(t, q, 1, now.Add(-time.Second))

	require.Empty(t, det.DetectLost(q, Context{Now: now, Draining: false}))
	require.NotEmpty(t, det.DetectLost(q, Context{Now: now, Draining: true}))
}

func TestPTOQueueLengthGate(t *testing.T) {
	det := &PTODetector{Timeout: time.Millisecond}
	q := tracking.New()
	now := time.Now()
	for pn := uint32(1); pn <= 25; pn++ {
		enqueued(t, q, pn, now.Add(-time.Second))
	}
	// gate = 2*max(reorderingThreshold, 10); with reorderingThreshold=5 the
	// gate is 20, queue length 25 exceeds it, so PTO stays inactive.
	lost := det.DetectLost(q, Context{Now: now, Draining: true, ReorderingThreshold: 5})
	require.Empty(t, lost)
}

func TestPTODefaultTimeoutWhenUnset(t *testing.T) {
	det := &PTODetector{}
	q := tracking.New()
	now := time.Now()
	enqueued(t, q, 1, now.Add(-time.Hour))
	lost := det.DetectLost(q, Context{Now: now, Draining: true})
	require.Len(t, lost, 1)
}

func TestRetransmitAssignsFreshNumbersAndCounters(t *testing.T) {
	q := tracking.New()
	now := time.Now()
	d1 := enqueued(t, q, 1, now.Add(-time.Hour))
	d2 := enqueued(t, q, 2, now.Add(-time.Hour))

	var sent [][]byte
	counters := &Counters{}
	nextPN := uint32(2)
	err := Retransmit(q, "time-threshold", []*tracking.Descriptor{d1, d2}, &nextPN, now, counters, func(b []byte) error {
		sent = append(sent, b)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, uint32(4), nextPN)
	require.Equal(t, 2, counters.Total)
	require.Equal(t, 2, counters.TimeThreshold)
	require.Len(t, sent, 2)

	// Both descriptors moved to the tail with new, unacked state.
	require.Equal(t, uint32(3), q.At(0).PacketNumber)
	require.Equal(t, uint32(4), q.At(1).PacketNumber)
}

// TestDetectorCompositionNoDoubleRetransmit checks §4.3's rule that a
// descriptor retransmitted by one detector in a cycle gets a fresh number
// and timestamp, so it cannot be re-declared lost by a later detector in
// the same cycle.
func TestDetectorCompositionNoDoubleRetransmit(t *testing.T) {
	q := tracking.New()
	now := time.Now()
	old := enqueued(t, q, 1, now.Add(-time.Hour))
	enqueued(t, q, 2, now.Add(-time.Hour))
	q.MarkAckedRanges([]wire.AckRange{{Low: 2, High: 2}})

	timeDet := &TimeThresholdDetector{Threshold: 10 * time.Millisecond}
	reorderDet := &ReorderingDetector{Threshold: 0}

	nextPN := uint32(2)
	counters := &Counters{}
	cycleCtx := Context{Now: now, AckArrivedThisCycle: true}

	lost := timeDet.DetectLost(q, cycleCtx)
	require.Equal(t, []*tracking.Descriptor{old}, lost)
	require.NoError(t, Retransmit(q, timeDet.Name(), lost, &nextPN, now, counters, func([]byte) error { return nil }))

	// The reordering pass now sees a queue with the old descriptor gone.
	lost = reorderDet.DetectLost(q, cycleCtx)
	require.Empty(t, lost)
	require.Equal(t, 1, counters.TimeThreshold)
	require.Equal(t, 0, counters.Reordering)
}
