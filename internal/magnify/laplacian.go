package magnify

import (
	"github.com/kujaw077/Reimagining-Breath/internal/filter"
	"github.com/kujaw077/Reimagining-Breath/internal/pyramid"
	"github.com/kujaw077/Reimagining-Breath/pkg/evmtype"
)

// exaggerationFactor is the original's fixed multiplier applied on top
// of the per-level amplification cap (Wu et al.'s motion magnification
// uses a small constant here; the original hardcodes 2).
const exaggerationFactor = 2.0

// laplaceState holds the per-level IIR filters, the current amplified
// motion pyramid, and the previous raw frame the breath analyzer needs.
// prevFrame's color space is tracked explicitly rather than assumed BGR,
// since grayscale mode can be toggled between frames.
type laplaceState struct {
	initialized    bool
	filters        []*filter.IIRBandpass
	motion         []evmtype.Frame
	prevFrame      evmtype.Frame
	prevColorSpace evmtype.ColorSpace
}

func (m *Magnificator) consumeLaplace() {
	for {
		f, ok := m.input.pop()
		if !ok {
			break
		}
		m.stepLaplace(f)
	}
}

func (m *Magnificator) stepLaplace(raw evmtype.Frame) {
	s := m.settings
	color := raw.Channels == 3

	f32 := raw.ToF32()
	var proc evmtype.Frame
	if color {
		proc = f32.BGRToYCrCb()
	} else {
		proc = f32
	}

	lap := pyramid.BuildLaplacian(pyramid.BuildGaussian(proc, s.Levels))

	if m.laplace == nil {
		m.laplace = &laplaceState{}
	}
	ls := m.laplace

	if !ls.initialized {
		ls.filters = make([]*filter.IIRBandpass, len(lap.Levels))
		ls.motion = make([]evmtype.Frame, len(lap.Levels))
		for i, lvl := range lap.Levels {
			ls.filters[i] = filter.NewIIRBandpass(lvl.Pix32)
			ls.motion[i] = lvl.Clone()
		}
		ls.prevColorSpace = evmtype.ColorSpaceBGR
		if !color {
			ls.prevColorSpace = evmtype.ColorSpaceGray
		}
		ls.prevFrame = raw.Clone()
		ls.initialized = true

		m.output.append(raw.Clone())
		return
	}

	fLow := filter.ClampCutoff(s.CoLow)
	fHigh := filter.ClampCutoff(s.CoHigh)

	for i, lvl := range lap.Levels {
		filtered := ls.filters[i].Apply(lvl.Pix32, fLow, fHigh)
		ls.motion[i] = evmtype.Frame{
			Width: lvl.Width, Height: lvl.Height, Channels: lvl.Channels,
			F32: true, Pix32: filtered, ColorSpace: lvl.ColorSpace,
		}
	}

	delta := s.CoWavelength / (8 * (1 + s.Amplification))
	lambda := float32(evmtype.Magnitude(m.roi.W, m.roi.H)) / 3
	top := len(ls.motion) - 1

	for curLevel := top; curLevel >= 0; curLevel-- {
		var amp float32
		if curLevel != top && curLevel != 0 {
			alphaCurr := (lambda/(delta*8) - 1) * exaggerationFactor
			amp = s.Amplification
			if alphaCurr < amp {
				amp = alphaCurr
			}
		}
		ls.motion[curLevel] = ls.motion[curLevel].Scale(amp)
		lambda /= 2
	}

	motionImg := pyramid.CollapseLaplacian(pyramid.LaplacianPyramid{Levels: ls.motion})
	if color {
		motionImg = motionImg.AttenuateChroma(s.ChromAttenuation)
	}

	combined := proc.Add(motionImg)

	var outFrame evmtype.Frame
	if color {
		outFrame = combined.YCrCbToBGR().ToU8Scale255()
	} else {
		outFrame = combined.ToU8Scale255()
	}

	measure, overlay := m.breathAnalyzer.Compute(outFrame, ls.prevFrame, ls.prevColorSpace)
	m.breathMeasure = measure

	ls.prevColorSpace = evmtype.ColorSpaceBGR
	if !color {
		ls.prevColorSpace = evmtype.ColorSpaceGray
	}
	ls.prevFrame = raw.Clone()

	if s.MagnifiedOrContours {
		m.output.append(outFrame)
	} else {
		m.output.append(overlay)
	}
}
