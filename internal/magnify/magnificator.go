// Package magnify orchestrates the three interchangeable magnification
// algorithms behind one frame-in/frame-out contract, owning each
// algorithm's state and the shared input/output buffers. Grounded
// directly on the reference Magnificator implementation, reworked into
// a tagged-variant dispatch rather than three parallel boolean flags.
package magnify

import (
	"github.com/kujaw077/Reimagining-Breath/internal/breath"
	"github.com/kujaw077/Reimagining-Breath/internal/pyramid"
	"github.com/kujaw077/Reimagining-Breath/pkg/evmtype"
)

// Magnificator owns one algorithm's state, the ROI-cropped input
// queue, and the magnified output buffer. It is owned exclusively by
// the processing thread; SetSettings is the only method other threads
// may call, and even that is expected to be serialized by the caller's
// own settings mutex (internal/loop.Loop does this).
type Magnificator struct {
	settings Settings
	roi      evmtype.ROI

	channels       int
	channelsLatch  bool

	input  inputQueue
	output outputBuffer

	color   *colorState
	laplace *laplaceState
	riesz   *rieszState

	breathAnalyzer *breath.Analyzer
	breathMeasure  float64
}

// New creates a Magnificator with default (Off) settings. SetSettings
// must be called with a valid ROI before Push/Consume are useful.
func New() *Magnificator {
	return &Magnificator{
		settings:       DefaultSettings(),
		breathAnalyzer: breath.NewAnalyzer(),
	}
}

// SetSettings updates tunables; if Levels or the ROI's dimensions
// change from the previous call, both queues are drained and all
// algorithm state is reset atomically.
func (m *Magnificator) SetSettings(s Settings, roi evmtype.ROI) error {
	if err := s.Validate(roi); err != nil {
		return err
	}

	dimsChanged := roi != m.roi || s.Levels != m.settings.Levels || s.Mode != m.settings.Mode
	m.settings = s
	m.roi = roi

	if dimsChanged {
		m.resetState()
	}
	return nil
}

func (m *Magnificator) resetState() {
	m.input.clear()
	m.output.clear()
	m.color = nil
	m.laplace = nil
	m.riesz = nil
	m.channelsLatch = false
	m.breathMeasure = 0
}

// Push appends one ROI-sized frame to the input queue. The caller (the
// processing loop) is responsible for cropping to ROI and any
// grayscale conversion before calling this.
func (m *Magnificator) Push(f evmtype.Frame) {
	if !m.channelsLatch {
		m.channels = f.Channels
		m.channelsLatch = true
	}
	m.input.push(f)
}

// Consume drains every unconsumed frame in the input queue through the
// currently selected algorithm, appending results to the output
// buffer. A dropped/degenerate frame is simply not appended; it is
// never a crash.
func (m *Magnificator) Consume() {
	switch m.settings.Mode {
	case evmtype.ModeColor:
		m.consumeColor()
	case evmtype.ModeLaplace:
		m.consumeLaplace()
	case evmtype.ModeRiesz:
		m.consumeRiesz()
	default:
		// Off: drain without producing output, so the queue never
		// grows unbounded while magnification is disabled.
		m.input.clear()
	}
}

// HasFrame reports whether the output buffer has at least one frame.
func (m *Magnificator) HasFrame() bool { return m.output.hasFrame() }

// BufferSize returns the number of frames currently in the output
// buffer.
func (m *Magnificator) BufferSize() int { return m.output.size() }

// ClearBuffer discards all buffered output frames without touching
// algorithm state.
func (m *Magnificator) ClearBuffer() { m.output.clear() }

// FrameFirst peeks the oldest buffered output frame.
func (m *Magnificator) FrameFirst() (evmtype.Frame, bool) { return m.output.first() }

// FrameLast peeks the newest buffered output frame.
func (m *Magnificator) FrameLast() (evmtype.Frame, bool) { return m.output.last() }

// FrameAt peeks frame i, falling through to FrameLast when i is the
// last index or beyond, preserving the reference implementation's
// getFrameAt boundary behavior.
func (m *Magnificator) FrameAt(i int) (evmtype.Frame, bool) { return m.output.at(i) }

// ExtractFirst removes and returns the oldest buffered output frame,
// the only output-buffer operation the processing loop uses on its hot
// path.
func (m *Magnificator) ExtractFirst() (evmtype.Frame, bool) { return m.output.extractFirst() }

// BreathMeasure returns the most recently computed breath scalar
// (Laplacian mode only; stays 0 in Color/Riesz/Off modes).
func (m *Magnificator) BreathMeasure() float64 { return m.breathMeasure }

// MaxLevels returns the largest pyramid depth usable for a w x h
// region: the largest k such that ceil-halving min(w,h) k times leaves
// both dimensions strictly greater than 5.
func MaxLevels(w, h int) int { return pyramid.MaxLevels(w, h) }

// MaxLevelsROI is the ROI-taking convenience overload.
func MaxLevelsROI(roi evmtype.ROI) int { return pyramid.MaxLevelsROI(roi) }

// OptimalBufferSize returns the smallest power of two >= max(2*fps, 16),
// representing roughly two seconds of video for the color algorithm's
// temporal window.
func OptimalBufferSize(fps float32) int {
	target := 2 * fps
	if target < 16 {
		target = 16
	}
	n := 1
	for float32(n) < target {
		n <<= 1
	}
	return n
}
