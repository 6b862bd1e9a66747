package magnify

import (
	"math"

	"github.com/kujaw077/Reimagining-Breath/internal/filter"
	"github.com/kujaw077/Reimagining-Breath/internal/pyramid"
	"github.com/kujaw077/Reimagining-Breath/pkg/evmtype"
)

// phaseClamp bounds an amplified phase increment to keep the per-pixel
// quaternion rotation in ApplyPhaseShift numerically stable.
const phaseClamp = 1.5

// rieszState holds the current/previous Riesz pyramids and four
// Butterworth filter banks, one instance per level below the coarsest:
// a lo-cutoff and a hi-cutoff filter for each of the R1 (horizontal)
// and R2 (vertical) unwrapped phase signals. Both cutoffs are always
// applied to the same signal, and the bandpassed result for that
// signal is their difference (hi - lo), the same running-lowpass
// convention internal/filter.IIRBandpass uses for Laplacian mode.
// Recomputed whenever the cutoff or framerate setting changes.
type rieszState struct {
	initialized bool

	prevPyr pyramid.RieszPyramid

	loFiltersR1, hiFiltersR1 []*filter.Butterworth
	loFiltersR2, hiFiltersR2 []*filter.Butterworth

	lastCoLow, lastCoHigh, lastFramerate float32
}

func (m *Magnificator) consumeRiesz() {
	for {
		f, ok := m.input.pop()
		if !ok {
			break
		}
		m.stepRiesz(f)
	}
}

func (m *Magnificator) stepRiesz(raw evmtype.Frame) {
	s := m.settings
	color := raw.Channels == 3

	f32 := raw.ToF32()
	var luma, chroma evmtype.Frame
	if color {
		ycc := f32.BGRToYCrCb()
		luma = ycc.YPlane()
		chroma = ycc
	} else {
		luma = f32
	}

	if m.riesz == nil {
		m.riesz = &rieszState{}
	}
	rs := m.riesz

	curPyr := pyramid.BuildRiesz(luma, s.Levels)

	if !rs.initialized {
		rs.prevPyr = curPyr
		n := len(curPyr.Levels) - 1
		rs.loFiltersR1 = make([]*filter.Butterworth, n)
		rs.hiFiltersR1 = make([]*filter.Butterworth, n)
		rs.loFiltersR2 = make([]*filter.Butterworth, n)
		rs.hiFiltersR2 = make([]*filter.Butterworth, n)
		for i := 0; i < n; i++ {
			size := len(curPyr.Levels[i].L.Pix32)
			rs.loFiltersR1[i] = filter.NewButterworth(float64(s.CoLow), float64(s.Framerate), size)
			rs.hiFiltersR1[i] = filter.NewButterworth(float64(s.CoHigh), float64(s.Framerate), size)
			rs.loFiltersR2[i] = filter.NewButterworth(float64(s.CoLow), float64(s.Framerate), size)
			rs.hiFiltersR2[i] = filter.NewButterworth(float64(s.CoHigh), float64(s.Framerate), size)
		}
		rs.lastCoLow, rs.lastCoHigh, rs.lastFramerate = s.CoLow, s.CoHigh, s.Framerate
		rs.initialized = true

		m.output.append(m.rieszOutput(luma, chroma, color))
		return
	}

	if s.CoLow != rs.lastCoLow || s.CoHigh != rs.lastCoHigh || s.Framerate != rs.lastFramerate {
		for i := range rs.loFiltersR1 {
			rs.loFiltersR1[i].Redesign(float64(s.CoLow), float64(s.Framerate))
			rs.hiFiltersR1[i].Redesign(float64(s.CoHigh), float64(s.Framerate))
			rs.loFiltersR2[i].Redesign(float64(s.CoLow), float64(s.Framerate))
			rs.hiFiltersR2[i].Redesign(float64(s.CoHigh), float64(s.Framerate))
		}
		rs.lastCoLow, rs.lastCoHigh, rs.lastFramerate = s.CoLow, s.CoHigh, s.Framerate
	}

	diffR1, diffR2 := pyramid.UnwrapOrientPhase(curPyr, rs.prevPyr)
	waveScale := s.CoWavelength * float32(math.Pi) / 100

	for i := range diffR1 {
		loR1 := rs.loFiltersR1[i].Apply(diffR1[i])
		hiR1 := rs.hiFiltersR1[i].Apply(diffR1[i])
		loR2 := rs.loFiltersR2[i].Apply(diffR2[i])
		hiR2 := rs.hiFiltersR2[i].Apply(diffR2[i])
		deltaPhi := make([]float32, len(diffR1[i]))
		for p := range deltaPhi {
			bpR1 := hiR1[p] - loR1[p]
			bpR2 := hiR2[p] - loR2[p]
			v := (bpR1 + bpR2) * s.Amplification * waveScale
			deltaPhi[p] = clampPhase(v)
		}
		lvl := curPyr.Levels[i]
		pyramid.ApplyPhaseShift(&lvl, deltaPhi)
		curPyr.Levels[i] = lvl
	}

	rs.prevPyr = curPyr

	amplifiedY := pyramid.CollapseRiesz(curPyr)
	m.output.append(m.rieszOutput(amplifiedY, chroma, color))
}

func (m *Magnificator) rieszOutput(y, chroma evmtype.Frame, color bool) evmtype.Frame {
	if !color {
		return y.ToU8Scale255()
	}
	merged := y.MergeYWithChroma(chroma)
	return merged.YCrCbToBGR().ToU8Scale255()
}

func clampPhase(v float32) float32 {
	if v > phaseClamp {
		return phaseClamp
	}
	if v < -phaseClamp {
		return -phaseClamp
	}
	return v
}
