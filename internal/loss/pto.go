package loss

import (
	"time"

	"quicft/internal/tracking"
)

// minPTOQueueFloor is the floor used in §4.3's queue-length gate:
// "queue length ≤ 2·max(reordering_threshold, 10)".
const minPTOQueueFloor = 10

// PTODetector recovers the tail of a transfer once no further ACKs will
// naturally arrive to trigger the reordering detector. It is only active
// during the drain phase, and only while the tracking queue is short
// enough that a handful of probe retransmissions can plausibly flush it
// (§4.3).
type PTODetector struct {
	Timeout time.Duration
}

// defaultPTOTimeout is used when Timeout is left unset (zero): "PTO is
// always available in the drain phase, using an internal default when
// disabled is not requested" (§4.3).
const defaultPTOTimeout = 50 * time.Millisecond

func (d *PTODetector) Name() string { return "pto" }

// DetectLost treats any unacked descriptor older than Timeout as lost,
// once the drain-phase and queue-length gates are satisfied.
func (d *PTODetector) DetectLost(q *tracking.Queue, ctx Context) []*tracking.Descriptor {
	if !ctx.Draining {
		return nil
	}
	gate := 2 * maxInt(ctx.ReorderingThreshold, minPTOQueueFloor)
	if q.Len() > gate {
		return nil
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultPTOTimeout
	}

	var lost []*tracking.Descriptor
	for i := 0; i < q.Len(); i++ {
		desc := q.At(i)
		if desc.Acked {
			continue
		}
		if ctx.Now.Sub(desc.SendTimestamp) > timeout {
			lost = append(lost, desc)
		}
	}
	return lost
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
