package framebuf

import (
	"sync"

	"github.com/kujaw077/Reimagining-Breath/pkg/evmtype"
)

// SharedBuffer is the single-slot, latest-wins handoff between the
// capture producer and the processing loop, grounded on
// e7canasta-orion-care-sensor/modules/framebus/internal/bus/bus.go's
// latestFrameHolder: a mutex + sync.Cond guarding one optional frame,
// adapted from that file's N-subscriber DropOld fanout down to a
// single capture->processing handoff.
type SharedBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frame  *evmtype.Frame
	seq    uint64
	closed bool
}

// NewSharedBuffer constructs an empty shared buffer.
func NewSharedBuffer() *SharedBuffer {
	b := &SharedBuffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Put stores the latest frame, overwriting whatever was there, and
// wakes any blocked Get. This is the capture thread's only write path;
// it never blocks.
func (b *SharedBuffer) Put(f evmtype.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.frame = &f
	b.seq++
	b.cond.Broadcast()
}

// Get blocks until a frame newer than lastSeq is available or the
// buffer is closed, then returns a clone of it plus the sequence
// number observed (pass that back in as lastSeq next call). ok is
// false only when the buffer was closed while waiting.
func (b *SharedBuffer) Get(lastSeq uint64) (frame evmtype.Frame, seq uint64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.frame == nil || b.seq == lastSeq {
		if b.closed {
			return evmtype.Frame{}, b.seq, false
		}
		b.cond.Wait()
	}
	return b.frame.Clone(), b.seq, true
}

// TryGet is the non-blocking variant: it returns immediately with
// ok=false if no frame newer than lastSeq is available.
func (b *SharedBuffer) TryGet(lastSeq uint64) (frame evmtype.Frame, seq uint64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame == nil || b.seq == lastSeq {
		return evmtype.Frame{}, b.seq, false
	}
	return b.frame.Clone(), b.seq, true
}

// Close marks the buffer closed and wakes any blocked Get calls, which
// then return ok=false.
func (b *SharedBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}
