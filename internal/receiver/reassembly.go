package receiver

import (
	"io"
	"sort"
)

// reassembler buffers STREAM frame payloads by byte offset and flushes the
// maximal contiguous prefix to out as soon as it becomes available,
// instead of requiring frames to arrive in order (§10 "out-of-order
// receiver buffering").
type reassembler struct {
	out        io.Writer
	nextOffset uint64
	pending    map[uint64][]byte
}

func newReassembler(out io.Writer) *reassembler {
	return &reassembler{out: out, pending: make(map[uint64][]byte)}
}

// insert records data at offset, merging duplicate offsets by overwrite
// (§3 invariant: "same offset overwrites identical bytes"), then flushes
// whatever contiguous prefix that makes available.
func (r *reassembler) insert(offset uint64, data []byte) error {
	if offset < r.nextOffset {
		return nil // already flushed; a duplicate retransmission
	}
	r.pending[offset] = data
	return r.flush()
}

func (r *reassembler) flush() error {
	for {
		data, ok := r.pending[r.nextOffset]
		if !ok {
			return nil
		}
		if _, err := r.out.Write(data); err != nil {
			return err
		}
		delete(r.pending, r.nextOffset)
		r.nextOffset += uint64(len(data))
	}
}

// complete reports whether every buffered range has been flushed, i.e.
// there is no gap left between what was received and what was written.
func (r *reassembler) complete() bool {
	return len(r.pending) == 0
}

// gaps returns the offsets of byte ranges still stranded behind a hole,
// sorted ascending, for error reporting at close.
func (r *reassembler) gaps() []uint64 {
	offsets := make([]uint64, 0, len(r.pending))
	for off := range r.pending {
		offsets = append(offsets, off)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	return offsets
}
