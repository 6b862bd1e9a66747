package evmtype

import "context"

// FrameSource is the collaborator boundary for frame capture. The core
// never talks to a camera or a file directly; it only ever calls Get
// to pull the next frame and Put to return a buffer it produced back
// to the source for reuse.
type FrameSource interface {
	// Get blocks until a frame is available or ctx is done. ok is false
	// when the source is exhausted or ctx was canceled.
	Get(ctx context.Context) (frame Frame, ok bool)
	// Put returns a processed frame to the source, e.g. for display or
	// recycling. ok is false if the source refused it (full, closed).
	Put(frame Frame) (ok bool)
}
