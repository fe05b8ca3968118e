package loss

import (
	"time"

	"quicft/internal/tracking"
)

// TimeThresholdDetector declares a packet lost once it has been unacked for
// longer than Threshold. A Threshold of zero disables the detector (§4.3
// "configuration gates").
type TimeThresholdDetector struct {
	Threshold time.Duration
}

func (d *TimeThresholdDetector) Name() string { return "time-threshold" }

// DetectLost compares each unacked descriptor's age against now, unless no
// ACK arrived during the current cycle, in which case it compares against
// the last known ACK arrival time instead — this prevents spurious loss
// declarations when the sender is outrunning the network (§4.3).
func (d *TimeThresholdDetector) DetectLost(q *tracking.Queue, ctx Context) []*tracking.Descriptor {
	if d.Threshold <= 0 {
		return nil
	}
	reference := ctx.Now
	if !ctx.AckArrivedThisCycle && !ctx.LastAckArrival.IsZero() {
		reference = ctx.LastAckArrival
	}

	var lost []*tracking.Descriptor
	for i := 0; i < q.Len(); i++ {
		desc := q.At(i)
		if desc.Acked {
			continue
		}
		if reference.Sub(desc.SendTimestamp) > d.Threshold {
			lost = append(lost, desc)
		}
	}
	return lost
}
