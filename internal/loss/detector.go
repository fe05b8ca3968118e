// Package loss implements the sender's three interleaved loss-recovery
// strategies from spec §4.3: time-threshold, packet-number reordering, and
// probe timeout (PTO). Each detector identifies unacked descriptors it
// considers lost; Retransmit then assigns each a fresh packet number,
// re-encodes it, and moves it to the tail of the queue, per §4.3's
// "detector composition" rule that a descriptor retransmitted in one pass
// cannot be re-declared lost in the same cycle.
package loss

import (
	"time"

	"quicft/internal/tracking"
)

// Context carries the per-cycle state detectors need. It is built fresh by
// the sender's main loop before each detector pass.
type Context struct {
	Now time.Time

	// LastAckArrival is the time the most recent ACK packet was received
	// (zero if none has been received yet this session).
	LastAckArrival time.Time

	// AckArrivedThisCycle is true if an ACK was processed during the
	// current intake cycle. The time-threshold detector uses it to avoid
	// declaring loss purely because wall-clock time passed with no
	// feedback at all (§4.3).
	AckArrivedThisCycle bool

	// Draining is true once the sender has entered the drain phase
	// (§4.4); only then is the PTO detector active.
	Draining bool

	// ReorderingThreshold is the configured reordering_threshold, used by
	// the PTO detector's queue-length gate (§4.3) even when the
	// reordering detector itself is disabled.
	ReorderingThreshold int
}

// Detector identifies descriptors that should be considered lost. It only
// reads the queue; Retransmit performs the mutation, keeping the two-pass
// shape spec §9 calls for (collect, then mutate).
type Detector interface {
	Name() string
	DetectLost(q *tracking.Queue, ctx Context) []*tracking.Descriptor
}

// Counters accumulate retransmission totals for diagnostics. They are a
// field on the sender session, not package-level state (§9 "Global mutable
// counters").
type Counters struct {
	Total         int
	TimeThreshold int
	Reordering    int
	PTO           int
}

func (c *Counters) add(name string, n int) {
	c.Total += n
	switch name {
	case "time-threshold":
		c.TimeThreshold += n
	case "reordering":
		c.Reordering += n
	case "pto":
		c.PTO += n
	}
}

// Retransmit applies the second pass for a detector's lost descriptors: for
// each, it assigns the next packet number from nextPN (incrementing in
// place), rebuilds the queue entry, invokes send with the freshly-encoded
// bytes, and updates counters.
func Retransmit(q *tracking.Queue, name string, lost []*tracking.Descriptor, nextPN *uint32, now time.Time, counters *Counters, send func([]byte) error) error {
	for _, d := range lost {
		*nextPN++
		nd, err := q.Rebuild(d, *nextPN, now)
		if err != nil {
			return err
		}
		if err := send(nd.EncodedBytes); err != nil {
			return err
		}
	}
	counters.add(name, len(lost))
	return nil
}
