package loss

import (
	"quicft/internal/tracking"
)

// ReorderingDetector declares a packet lost once Threshold later packets
// have been acknowledged (RFC 9002 §6.1.1). A Threshold of zero disables
// the detector (§4.3 "configuration gates").
type ReorderingDetector struct {
	Threshold int
}

func (d *ReorderingDetector) Name() string { return "reordering" }

// DetectLost finds the newest acked descriptor's queue index and declares
// any unacked descriptor more than Threshold positions older than it lost.
func (d *ReorderingDetector) DetectLost(q *tracking.Queue, ctx Context) []*tracking.Descriptor {
	if d.Threshold <= 0 {
		return nil
	}
	lastAckedIndex, ok := q.NewestAckedIndex()
	if !ok {
		return nil
	}

	var lost []*tracking.Descriptor
	for i := 0; i < lastAckedIndex-d.Threshold; i++ {
		desc := q.At(i)
		if !desc.Acked {
			lost = append(lost, desc)
		}
	}
	return lost
}
