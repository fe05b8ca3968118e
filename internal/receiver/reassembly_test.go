package receiver

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReassemblerInOrderFlushesImmediately(t *testing.T) {
	var out bytes.Buffer
	r := newReassembler(&out)

	require.NoError(t, r.insert(0, []byte("hello ")))
	require.NoError(t, r.insert(6, []byte("world")))
	require.Equal(t, "hello world", out.String())
	require.True(t, r.complete())
}

func TestReassemblerOutOfOrderBuffersThenFlushesPrefix(t *testing.T) {
	var out bytes.Buffer
	r := newReassembler(&out)

	require.NoError(t, r.insert(6, []byte("world")))
	require.Equal(t, "", out.String()) // held back: gap at offset 0
	require.False(t, r.complete())

	require.NoError(t, r.insert(0, []byte("hello ")))
	require.Equal(t, "hello world", out.String())
	require.True(t, r.complete())
}

func TestReassemblerDuplicateOffsetIsIgnoredAfterFlush(t *testing.T) {
	var out bytes.Buffer
	r := newReassembler(&out)

	require.NoError(t, r.insert(0, []byte("abc")))
	require.NoError(t, r.insert(0, []byte("abc"))) // retransmission duplicate
	require.Equal(t, "abc", out.String())
}

func TestReassemblerGapsReportsStrandedOffsets(t *testing.T) {
	var out bytes.Buffer
	r := newReassembler(&out)

	require.NoError(t, r.insert(10, []byte("x")))
	require.NoError(t, r.insert(20, []byte("y")))
	require.Equal(t, []uint64{10, 20}, r.gaps())
}
