// Package tracking implements the sender's ordered collection of in-flight
// packet descriptors, as described in spec §4.2. A single Queue is owned
// exclusively by the sender's main loop; no locking is needed (§5).
package tracking

import (
	"errors"
	"time"

	"quicft/internal/wire"
)

var errDescriptorNotFound = errors.New("tracking: descriptor not found in queue")

// Descriptor is the sender tracking queue element from §3: it owns a copy
// of the encoded packet so retransmission does not re-serialize from file
// state.
type Descriptor struct {
	PacketNumber  uint32
	Acked         bool
	SendTimestamp time.Time
	EncodedBytes  []byte
}

// Queue is the sender's ordered list of in-flight packet descriptors.
// Packet numbers are strictly increasing at insertion (§3 invariant), so
// the queue is always sorted ascending by PacketNumber.
type Queue struct {
	descriptors []*Descriptor
}

// New returns an empty tracking queue.
func New() *Queue {
	return &Queue{}
}

// Len reports the number of in-flight descriptors.
func (q *Queue) Len() int {
	return len(q.descriptors)
}

// At returns the descriptor at queue index i, oldest first.
func (q *Queue) At(i int) *Descriptor {
	return q.descriptors[i]
}

// Enqueue appends d at the tail. O(1).
func (q *Queue) Enqueue(d *Descriptor) {
	q.descriptors = append(q.descriptors, d)
}

// MarkAckedRanges sets Acked=true on every descriptor whose packet number
// falls in any of the given ranges. ranges must be sorted ascending by Low
// and non-overlapping (the receiver guarantees this); the queue is sorted
// ascending by PacketNumber by construction, so a single forward scan with
// a range cursor is linear in queue length plus range count.
//
// The operation is idempotent: descriptors already acked are left as-is,
// and applying the same ranges again produces the same state.
func (q *Queue) MarkAckedRanges(ranges []wire.AckRange) {
	ri := 0
	for _, d := range q.descriptors {
		for ri < len(ranges) && d.PacketNumber > ranges[ri].High {
			ri++
		}
		if ri >= len(ranges) {
			break
		}
		if d.PacketNumber >= ranges[ri].Low && d.PacketNumber <= ranges[ri].High {
			d.Acked = true
		}
	}
}

// TrimAckedPrefix removes descriptors from the head of the queue while the
// head is acked.
func (q *Queue) TrimAckedPrefix() {
	i := 0
	for i < len(q.descriptors) && q.descriptors[i].Acked {
		i++
	}
	if i > 0 {
		q.descriptors = q.descriptors[i:]
	}
}

// IterReverse calls fn for each descriptor newest to oldest, stopping early
// if fn returns false. Used by the reordering detector to find the newest
// acked index without a queue copy (§9 "Deep-copy of the queue before
// iteration").
func (q *Queue) IterReverse(fn func(index int, d *Descriptor) bool) {
	for i := len(q.descriptors) - 1; i >= 0; i-- {
		if !fn(i, q.descriptors[i]) {
			return
		}
	}
}

// NewestAckedIndex scans from the tail and returns the queue index of the
// newest acked descriptor. ok is false if no descriptor is acked.
func (q *Queue) NewestAckedIndex() (index int, ok bool) {
	q.IterReverse(func(i int, d *Descriptor) bool {
		if d.Acked {
			index, ok = i, true
			return false
		}
		return true
	})
	return index, ok
}

// Rebuild removes descriptor d from its current position, re-encodes its
// enclosed short-header packet with newPN (preserving DCID and payload),
// stamps its send timestamp to now, and appends the result at the tail. It
// returns the new descriptor to retransmit.
//
// Callers identify candidates in a first pass over the queue and mutate in
// a second pass (§9 "Deep-copy of the queue before iteration"): Rebuild
// locates d by identity rather than by a previously-collected index, so it
// is safe to call for several descriptors collected in the same pass even
// though each call shifts later indices.
func (q *Queue) Rebuild(d *Descriptor, newPN uint32, now time.Time) (*Descriptor, error) {
	idx := -1
	for i, existing := range q.descriptors {
		if existing == d {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errDescriptorNotFound
	}

	sh, err := wire.DecodeShortHeader(d.EncodedBytes)
	if err != nil {
		return nil, err
	}
	sh.PacketNumber = newPN
	encoded := wire.EncodeShortHeader(sh)

	q.descriptors = append(q.descriptors[:idx], q.descriptors[idx+1:]...)
	nd := &Descriptor{
		PacketNumber:  newPN,
		Acked:         false,
		SendTimestamp: now,
		EncodedBytes:  encoded,
	}
	q.descriptors = append(q.descriptors, nd)
	return nd, nil
}
