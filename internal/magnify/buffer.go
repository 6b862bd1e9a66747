package magnify

import "github.com/kujaw077/Reimagining-Breath/pkg/evmtype"

// outputBuffer is the FIFO the Magnificator appends finished frames
// into. Peek operations never remove anything; Extract removes the
// front element and is the only mutating read, matching
// Magnificator.cpp's magnifiedBuffer deque plus getFrameFirst/Last/At.
type outputBuffer struct {
	frames []evmtype.Frame
}

func (b *outputBuffer) append(f evmtype.Frame) {
	b.frames = append(b.frames, f)
}

func (b *outputBuffer) size() int {
	return len(b.frames)
}

func (b *outputBuffer) hasFrame() bool {
	return len(b.frames) > 0
}

func (b *outputBuffer) clear() {
	b.frames = nil
}

// first peeks the oldest frame without removing it.
func (b *outputBuffer) first() (evmtype.Frame, bool) {
	if len(b.frames) == 0 {
		return evmtype.Frame{}, false
	}
	return b.frames[0], true
}

// last peeks the newest frame without removing it.
func (b *outputBuffer) last() (evmtype.Frame, bool) {
	if len(b.frames) == 0 {
		return evmtype.Frame{}, false
	}
	return b.frames[len(b.frames)-1], true
}

// at peeks frame i. Matches the original's getFrameAt boundary
// behavior: asking for the last index or past it falls through to the
// last-element path rather than indexing out of range.
func (b *outputBuffer) at(i int) (evmtype.Frame, bool) {
	if len(b.frames) == 0 {
		return evmtype.Frame{}, false
	}
	if i >= len(b.frames)-1 {
		return b.last()
	}
	if i < 0 {
		i = 0
	}
	return b.frames[i], true
}

// extractFirst removes and returns the oldest frame.
func (b *outputBuffer) extractFirst() (evmtype.Frame, bool) {
	if len(b.frames) == 0 {
		return evmtype.Frame{}, false
	}
	f := b.frames[0]
	b.frames = b.frames[1:]
	return f, true
}

// inputQueue is the ROI-cropped frame queue the processing loop feeds
// and the Magnificator drains, FIFO, front-removal on consume.
type inputQueue struct {
	frames []evmtype.Frame
}

func (q *inputQueue) push(f evmtype.Frame) {
	q.frames = append(q.frames, f)
}

func (q *inputQueue) len() int {
	return len(q.frames)
}

func (q *inputQueue) pop() (evmtype.Frame, bool) {
	if len(q.frames) == 0 {
		return evmtype.Frame{}, false
	}
	f := q.frames[0]
	q.frames = q.frames[1:]
	return f, true
}

func (q *inputQueue) clear() {
	q.frames = nil
}
