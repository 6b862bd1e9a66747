package loop

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kujaw077/Reimagining-Breath/internal/framebuf"
	"github.com/kujaw077/Reimagining-Breath/internal/magnify"
	"github.com/kujaw077/Reimagining-Breath/internal/sink"
	"github.com/kujaw077/Reimagining-Breath/pkg/evmtype"
)

type fakeRecorder struct {
	writes int
}

func (r *fakeRecorder) Open(string, float32, int, int, bool) error { return nil }
func (r *fakeRecorder) Write(evmtype.Frame) error                  { r.writes++; return nil }
func (r *fakeRecorder) Close() error                               { return nil }

func roi32() evmtype.ROI { return evmtype.ROI{X: 0, Y: 0, W: 32, H: 32} }

func TestLoopOffModeNeverProducesOutput(t *testing.T) {
	shared := framebuf.NewSharedBuffer()
	l := New(shared, nil, nil, sink.NoopSink{}, nil, 2)

	require.NoError(t, l.SetSettings(magnify.Settings{
		Mode: evmtype.ModeOff, Levels: 2, CoLow: 0.4, CoHigh: 3, Framerate: 30, ChromAttenuation: 0.1,
	}, roi32(), 2))

	for i := 0; i < 5; i++ {
		l.tick(evmtype.NewFrameU8(32, 32, 3))
	}
	require.Equal(t, 0, l.mag.BufferSize())
	require.Equal(t, uint64(0), l.frameNum)
}

func TestLoopLaplaceModeProducesFrameEachTick(t *testing.T) {
	shared := framebuf.NewSharedBuffer()
	l := New(shared, nil, nil, sink.NoopSink{}, nil, 1)

	require.NoError(t, l.SetSettings(magnify.Settings{
		Mode: evmtype.ModeLaplace, Levels: 2, Amplification: 10,
		CoLow: 0.4, CoHigh: 3, CoWavelength: 16, ChromAttenuation: 0.1,
		Framerate: 30, MagnifiedOrContours: true,
	}, roi32(), 1))

	for i := 0; i < 4; i++ {
		l.tick(evmtype.NewFrameU8(32, 32, 3))
	}
	require.Equal(t, uint64(4), l.frameNum)
}

func TestLoopBreathWindowEmitsEveryThirdFrame(t *testing.T) {
	l := &Loop{}
	var got []*float64
	for i := 0; i < 9; i++ {
		got = append(got, l.updateBreathWindow(float64(i)))
	}
	emitted := 0
	for _, v := range got {
		if v != nil {
			emitted++
		}
	}
	require.Equal(t, 3, emitted)
}

func TestLoopBreathWindowPassesThroughSmallChanges(t *testing.T) {
	l := &Loop{}
	l.updateBreathWindow(10)
	l.updateBreathWindow(10)
	first := l.updateBreathWindow(10)
	require.NotNil(t, first)
	require.InDelta(t, 10, *first, 0.001)

	l.updateBreathWindow(10)
	l.updateBreathWindow(10)
	second := l.updateBreathWindow(10)
	require.NotNil(t, second)
	require.InDelta(t, 10, *second, 0.001)
}

func TestLoopBreathWindowSaturatesMassiveJump(t *testing.T) {
	l := &Loop{}
	l.updateBreathWindow(10)
	l.updateBreathWindow(10)
	first := l.updateBreathWindow(10)
	require.NotNil(t, first)
	require.InDelta(t, 10, *first, 0.001)

	l.updateBreathWindow(80)
	l.updateBreathWindow(80)
	spike := l.updateBreathWindow(80)
	require.NotNil(t, spike)
	require.InDelta(t, 60, *spike, 0.001)

	l.updateBreathWindow(10)
	l.updateBreathWindow(10)
	recovered := l.updateBreathWindow(10)
	require.NotNil(t, recovered)
	require.InDelta(t, 10, *recovered, 0.001)
}

func TestLoopSetROIResetsQueueOnDimsChange(t *testing.T) {
	shared := framebuf.NewSharedBuffer()
	l := New(shared, nil, nil, sink.NoopSink{}, nil, 3)

	require.NoError(t, l.SetSettings(magnify.Settings{
		Mode: evmtype.ModeColor, Levels: 2, CoLow: 0.4, CoHigh: 3, Framerate: 30, ChromAttenuation: 0.1,
	}, roi32(), 3))

	l.tick(evmtype.NewFrameU8(32, 32, 3))
	require.Equal(t, 1, l.queue.Len())

	require.NoError(t, l.SetROI(evmtype.ROI{X: 0, Y: 0, W: 64, H: 64}))
	require.Equal(t, 0, l.queue.Len())
}

func TestLoopArmRecordingWritesFrames(t *testing.T) {
	shared := framebuf.NewSharedBuffer()
	rec := &fakeRecorder{}
	l := New(shared, nil, rec, sink.NoopSink{}, nil, 1)

	require.NoError(t, l.SetSettings(magnify.Settings{
		Mode: evmtype.ModeLaplace, Levels: 2, Amplification: 10,
		CoLow: 0.4, CoHigh: 3, CoWavelength: 16, ChromAttenuation: 0.1,
		Framerate: 30, MagnifiedOrContours: true,
	}, roi32(), 1))
	l.ArmRecording()

	l.tick(evmtype.NewFrameU8(32, 32, 3))
	l.tick(evmtype.NewFrameU8(32, 32, 3))
	require.Equal(t, 2, rec.writes)

	l.DisarmRecording()
	l.tick(evmtype.NewFrameU8(32, 32, 3))
	require.Equal(t, 2, rec.writes)
}
