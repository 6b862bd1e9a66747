// Package publish implements the downstream Publisher collaborator:
// EmitFrame/EmitStats/EmitBreath, all lossy and non-blocking by design
// (latest frame wins) so the publish step never gates the hot path.
package publish

import "github.com/kujaw077/Reimagining-Breath/pkg/evmtype"

// Stats carries the per-tick bookkeeping a consumer might render
// alongside frames (frame number, active mode, buffer occupancy).
type Stats struct {
	FrameNum   uint64      `json:"frame_num"`
	Mode       string      `json:"mode"`
	QueueLen   int         `json:"queue_len"`
	BufferSize int         `json:"buffer_size"`
}

// Publisher is the collaborator boundary for fanning processed output
// to consumers (a local preview, a WebRTC data channel, a test
// harness). Every method must be non-blocking; a full/slow subscriber
// drops the update rather than stalling the caller.
type Publisher interface {
	EmitFrame(frame evmtype.Frame)
	EmitStats(stats Stats)
	EmitBreath(value int)
	Close() error
}
