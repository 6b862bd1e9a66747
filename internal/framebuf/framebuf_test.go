package framebuf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kujaw077/Reimagining-Breath/pkg/evmtype"
)

func TestQueueFillsToCapacity(t *testing.T) {
	q := NewQueue(2)
	require.False(t, q.Full())
	q.Push(evmtype.NewFrameU8(4, 4, 1))
	require.False(t, q.Full())
	q.Push(evmtype.NewFrameU8(4, 4, 1))
	require.True(t, q.Full())

	frames := q.Drain()
	require.Len(t, frames, 2)
	require.Equal(t, 0, q.Len())
}

func TestQueueClear(t *testing.T) {
	q := NewQueue(2)
	q.Push(evmtype.NewFrameU8(4, 4, 1))
	q.Clear()
	require.Equal(t, 0, q.Len())
}

func TestSharedBufferGetBlocksUntilPut(t *testing.T) {
	b := NewSharedBuffer()
	done := make(chan evmtype.Frame, 1)
	go func() {
		f, _, ok := b.Get(0)
		require.True(t, ok)
		done <- f
	}()

	time.Sleep(10 * time.Millisecond)
	want := evmtype.NewFrameU8(8, 8, 1)
	want.Pix8[0] = 42
	b.Put(want)

	select {
	case got := <-done:
		require.Equal(t, uint8(42), got.Pix8[0])
	case <-time.After(time.Second):
		t.Fatal("Get never returned")
	}
}

func TestSharedBufferTryGetNonBlocking(t *testing.T) {
	b := NewSharedBuffer()
	_, _, ok := b.TryGet(0)
	require.False(t, ok)

	b.Put(evmtype.NewFrameU8(4, 4, 1))
	_, seq, ok := b.TryGet(0)
	require.True(t, ok)
	require.Equal(t, uint64(1), seq)
}

func TestSharedBufferCloseWakesWaiters(t *testing.T) {
	b := NewSharedBuffer()
	done := make(chan bool, 1)
	go func() {
		_, _, ok := b.Get(0)
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)
	b.Close()

	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Get never returned after Close")
	}
}
