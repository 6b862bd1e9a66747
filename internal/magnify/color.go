package magnify

import (
	"github.com/kujaw077/Reimagining-Breath/internal/filter"
	"github.com/kujaw077/Reimagining-Breath/internal/pyramid"
	"github.com/kujaw077/Reimagining-Breath/pkg/evmtype"
)

// colorFrameRecord tracks one frame consumed this round, alongside the
// full-resolution f32 copy needed to add the filtered residual back.
type colorFrameRecord struct {
	saved evmtype.Frame
}

// colorState holds the Color algorithm's downSampledMat: a ring of
// columns, one per recent frame, each the flattened smallest pyramid
// level (already channel-interleaved, so no separate flatten step is
// needed beyond copying Pix32).
type colorState struct {
	levelW, levelH, channels int
	capacity                 int
	mat                      [][]float32
	pending                  []colorFrameRecord
}

func newColorState(capacity int) *colorState {
	return &colorState{capacity: capacity}
}

// consumeColor runs the color magnification algorithm: build a
// Gaussian pyramid per frame, accumulate flattened smallest-level
// columns into a (P x N) ring buffer, then once the round's input is
// drained, ideal-bandpass every row, amplify, and reconstruct one
// output frame per frame consumed this round.
func (m *Magnificator) consumeColor() {
	s := m.settings
	if m.color == nil {
		m.color = newColorState(OptimalBufferSize(s.Framerate))
	}
	cs := m.color

	for {
		f, ok := m.input.pop()
		if !ok {
			break
		}
		f32 := f.ToF32()
		pyr := pyramid.BuildGaussian(f32, s.Levels)
		top := pyr.Levels[len(pyr.Levels)-1]
		if cs.levelW == 0 {
			cs.levelW, cs.levelH, cs.channels = top.Width, top.Height, top.Channels
		}
		col := append([]float32(nil), top.Pix32...)
		cs.mat = append(cs.mat, col)
		if len(cs.mat) > cs.capacity {
			cs.mat = cs.mat[1:]
		}
		cs.pending = append(cs.pending, colorFrameRecord{saved: f32})
	}

	if len(cs.pending) == 0 || len(cs.mat) == 0 {
		return
	}

	// cs.mat grows one column per consumed frame and only reaches
	// cs.capacity once the ring buffer is full, so its length is not in
	// general a power of two. idealBandpass1D zero-pads any row shorter
	// than the FFT length it's given, so pass the fixed capacity (always
	// a power of two, per OptimalBufferSize) rather than the buffer's
	// current fill level.
	filled := len(cs.mat)
	p := len(cs.mat[0])
	rows := make([][]float64, p)
	for px := 0; px < p; px++ {
		row := make([]float64, filled)
		for c := 0; c < filled; c++ {
			row[c] = float64(cs.mat[c][px])
		}
		rows[px] = row
	}

	filtered := filter.IdealBandpassRows(rows, cs.capacity, float64(s.Framerate), float64(s.CoLow), float64(s.CoHigh))

	numNew := len(cs.pending)
	startCol := filled - numNew
	for idx, rec := range cs.pending {
		col := startCol + idx
		colData := make([]float32, p)
		for px := 0; px < p; px++ {
			colData[px] = float32(filtered[px][col]) * s.Amplification
		}
		topFrame := evmtype.Frame{
			Width: cs.levelW, Height: cs.levelH, Channels: cs.channels,
			F32: true, Pix32: colData, ColorSpace: rec.saved.ColorSpace,
		}
		upsampled := pyramid.CollapseGaussian(topFrame, rec.saved.Width, rec.saved.Height)
		added := rec.saved.Add(upsampled)
		m.output.append(added.ToU8MinMax())
	}
	cs.pending = nil
}
