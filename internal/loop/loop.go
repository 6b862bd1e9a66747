// Package loop drives the long-lived processing thread: pull the
// latest frame handed off by capture, crop to the configured region,
// feed it through the Magnificator, and fan the result out to
// whichever publisher/recorder/sink are wired in. Grounded on
// cmd/server/main.go's Server.readFrames/processFrames goroutine pair,
// collapsed into a single tick since there is no H.264 parse stage to
// pipeline separately.
package loop

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kujaw077/Reimagining-Breath/internal/framebuf"
	"github.com/kujaw077/Reimagining-Breath/internal/logger"
	"github.com/kujaw077/Reimagining-Breath/internal/magnify"
	"github.com/kujaw077/Reimagining-Breath/internal/metrics"
	"github.com/kujaw077/Reimagining-Breath/internal/publish"
	"github.com/kujaw077/Reimagining-Breath/internal/recorder"
	"github.com/kujaw077/Reimagining-Breath/internal/sink"
	"github.com/kujaw077/Reimagining-Breath/pkg/evmtype"
)

const (
	// breathStepClamp is compared against half the raw delta from the
	// last emitted value (i.e. the jump is judged "massive" once the
	// raw delta itself exceeds 2*breathStepClamp).
	breathStepClamp  = 25.0
	breathDriftClamp = 50.0
	breathWindowLen  = 3
)

// Loop owns one Magnificator, the ROI-cropped input queue feeding it,
// and the downstream collaborators results are handed to. Exactly one
// goroutine runs the processing thread; reconfiguration methods may be
// called from any goroutine and serialize against it via settingsMu.
type Loop struct {
	settingsMu sync.Mutex
	settings   magnify.Settings
	roi        evmtype.ROI

	mag    *magnify.Magnificator
	queue  *framebuf.Queue
	shared *framebuf.SharedBuffer

	publisher publish.Publisher
	recorder  recorder.Recorder
	sink      sink.ScalarSink
	metrics   *metrics.Metrics
	csvWriter *csvLogger

	lastSeq  uint64
	frameNum uint64

	breathWindow []float64
	lastEmitted  float64
	hasEmitted   bool

	recording atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Loop with default (Off) settings. Call SetSettings
// before Start to arm a magnification mode.
func New(shared *framebuf.SharedBuffer, pub publish.Publisher, rec recorder.Recorder, sk sink.ScalarSink, m *metrics.Metrics, queueLen int) *Loop {
	return &Loop{
		settings:  magnify.DefaultSettings(),
		mag:       magnify.New(),
		queue:     framebuf.NewQueue(queueLen),
		shared:    shared,
		publisher: pub,
		recorder:  rec,
		sink:      sk,
		metrics:   m,
	}
}

// Start launches the processing goroutine. ctx cancellation and Stop
// both end the loop; Stop additionally waits for the goroutine to exit.
func (l *Loop) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.wg.Add(1)
	go l.run(ctx)
}

// Stop cancels the processing goroutine and waits for it to exit.
func (l *Loop) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.shared.Close()
	l.wg.Wait()
}

func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, seq, ok := l.shared.Get(l.lastSeq)
		if !ok {
			return
		}
		l.lastSeq = seq
		l.tick(frame)
	}
}

// tick runs one processing-thread iteration over a single captured
// frame. It never panics on a malformed or undersized frame; such
// frames are counted as dropped and skipped.
func (l *Loop) tick(raw evmtype.Frame) {
	start := time.Now()
	defer func() {
		if l.metrics != nil {
			l.metrics.UpdateTickLatency(start)
		}
	}()

	l.settingsMu.Lock()
	settings := l.settings
	roi := l.roi
	l.settingsMu.Unlock()

	if !roi.Fits(raw.Width, raw.Height) {
		l.countDropped()
		return
	}

	cropped := raw.Crop(roi)
	if settings.Grayscale {
		cropped = cropped.ToGrayU8()
	}

	l.queue.Push(cropped)
	if l.metrics != nil {
		l.metrics.UpdateQueueUsage(l.queue.Len(), l.queue.Capacity(), 0, 0)
	}

	if settings.Mode == evmtype.ModeOff {
		l.queue.Clear()
		return
	}
	if !l.queue.Full() {
		return
	}

	for _, f := range l.queue.Drain() {
		l.mag.Push(f)
	}

	consumeStart := time.Now()
	l.mag.Consume()
	if l.metrics != nil {
		l.metrics.UpdateConsumeLatency(time.Since(consumeStart))
	}

	out, ok := l.mag.ExtractFirst()
	if !ok {
		return
	}

	l.frameNum++
	l.countConsumed(settings.Mode)

	breathValue := l.mag.BreathMeasure()
	emitted := l.updateBreathWindow(breathValue)

	l.publish(out, settings, emitted)
	l.record(out)
	l.sinkWrite(emitted)
	l.appendCSV(settings, emitted)
}

func (l *Loop) countDropped() {
	if l.metrics != nil {
		l.metrics.FramesDropped.Add(1)
	}
}

func (l *Loop) countConsumed(mode evmtype.Mode) {
	if l.metrics == nil {
		return
	}
	l.metrics.FramesProcessed.Add(1)
	switch mode {
	case evmtype.ModeColor:
		l.metrics.ColorFramesConsumed.Add(1)
	case evmtype.ModeLaplace:
		l.metrics.LaplaceFramesConsumed.Add(1)
	case evmtype.ModeRiesz:
		l.metrics.RieszFramesConsumed.Add(1)
	}
}

func (l *Loop) publish(out evmtype.Frame, settings magnify.Settings, emitted *float64) {
	if l.publisher == nil {
		return
	}
	l.publisher.EmitFrame(out)
	l.publisher.EmitStats(publish.Stats{
		FrameNum:   l.frameNum,
		Mode:       settings.Mode.String(),
		QueueLen:   l.queue.Len(),
		BufferSize: l.mag.BufferSize(),
	})
	if l.metrics != nil {
		l.metrics.PublishFramesSent.Add(1)
	}
	if emitted != nil {
		l.publisher.EmitBreath(int(*emitted))
		if l.metrics != nil {
			l.metrics.BreathEmissions.Add(1)
			l.metrics.LastBreathValue.Store(int64(*emitted))
		}
	}
}

func (l *Loop) record(out evmtype.Frame) {
	if l.recorder == nil || !l.recording.Load() {
		return
	}
	if err := l.recorder.Write(out); err != nil {
		logger.Warn("Loop", "recorder write failed: %v", err)
		if l.metrics != nil {
			l.metrics.RecorderErrors.Add(1)
		}
		return
	}
	if l.metrics != nil {
		l.metrics.RecorderFramesSent.Add(1)
	}
}

func (l *Loop) sinkWrite(emitted *float64) {
	if l.sink == nil || emitted == nil {
		return
	}
	if err := l.sink.Write(int32(*emitted)); err != nil {
		logger.Warn("Loop", "scalar sink write failed: %v", err)
		if l.metrics != nil {
			l.metrics.SinkErrors.Add(1)
		}
	}
}

func (l *Loop) appendCSV(settings magnify.Settings, emitted *float64) {
	if !settings.CSV || emitted == nil || l.csvWriter == nil {
		return
	}
	if err := l.csvWriter.append(l.frameNum, *emitted); err != nil {
		logger.Warn("Loop", "csv append failed: %v", err)
	}
}

// updateBreathWindow folds one new breath sample into a sliding window
// of three; every third frame it emits the window's average. The
// average passes through unclamped unless it jumps by more than
// breathDriftClamp relative to the last emitted value, in which case
// it saturates to lastEmitted ± breathDriftClamp instead.
func (l *Loop) updateBreathWindow(sample float64) *float64 {
	l.breathWindow = append(l.breathWindow, sample)
	if len(l.breathWindow) < breathWindowLen || len(l.breathWindow)%breathWindowLen != 0 {
		return nil
	}

	sum := 0.0
	for _, v := range l.breathWindow[len(l.breathWindow)-breathWindowLen:] {
		sum += v
	}
	avg := sum / float64(breathWindowLen)

	if !l.hasEmitted {
		l.lastEmitted = avg
		l.hasEmitted = true
	}

	delta := avg - l.lastEmitted
	switch {
	case delta/2 > breathStepClamp:
		avg = l.lastEmitted + breathDriftClamp
	case delta/2 < -breathStepClamp:
		avg = l.lastEmitted - breathDriftClamp
	}

	l.lastEmitted = avg
	return &avg
}

// SetSettings updates the active magnification settings and ROI. If
// the ROI or queue window length change, the processing input queue is
// drained to keep it in lockstep with the Magnificator's own reset.
func (l *Loop) SetSettings(s magnify.Settings, roi evmtype.ROI, queueLen int) error {
	l.settingsMu.Lock()
	defer l.settingsMu.Unlock()

	if err := l.mag.SetSettings(s, roi); err != nil {
		return err
	}

	dimsChanged := roi != l.roi || queueLen != l.queue.Capacity() ||
		s.Mode != l.settings.Mode || s.Levels != l.settings.Levels
	l.settings = s
	l.roi = roi
	if dimsChanged {
		l.queue.Clear()
		l.queue.SetCapacity(queueLen)
	}
	l.resetBreathWindow()
	return nil
}

// SetMode changes only the active algorithm, keeping every other
// tunable as-is.
func (l *Loop) SetMode(mode evmtype.Mode) error {
	l.settingsMu.Lock()
	s := l.settings
	roi := l.roi
	qlen := l.queue.Capacity()
	l.settingsMu.Unlock()

	s.Mode = mode
	return l.SetSettings(s, roi, qlen)
}

// SetROI changes only the active crop region.
func (l *Loop) SetROI(roi evmtype.ROI) error {
	l.settingsMu.Lock()
	s := l.settings
	qlen := l.queue.Capacity()
	l.settingsMu.Unlock()

	return l.SetSettings(s, roi, qlen)
}

// SetFramerate updates the configured source framerate, which in turn
// changes the color algorithm's optimal temporal window the next time
// the Magnificator resets.
func (l *Loop) SetFramerate(fps float32) error {
	l.settingsMu.Lock()
	s := l.settings
	roi := l.roi
	qlen := l.queue.Capacity()
	l.settingsMu.Unlock()

	s.Framerate = fps
	return l.SetSettings(s, roi, qlen)
}

func (l *Loop) resetBreathWindow() {
	l.breathWindow = nil
	l.hasEmitted = false
	l.lastEmitted = 0
}

// ArmRecording enables writing processed frames to the configured
// Recorder; DisarmRecording stops it. The Recorder's own Open/Close
// lifecycle is the caller's responsibility.
func (l *Loop) ArmRecording()    { l.recording.Store(true) }
func (l *Loop) DisarmRecording() { l.recording.Store(false) }

// EnableCSV wires a best-effort CSV breath logger; path is created or
// appended to. Pass an empty path to disable CSV logging again.
func (l *Loop) EnableCSV(path string) error {
	if l.csvWriter != nil {
		l.csvWriter.close()
		l.csvWriter = nil
	}
	if path == "" {
		return nil
	}
	w, err := newCSVLogger(path)
	if err != nil {
		return fmt.Errorf("loop: failed to open csv log: %w", err)
	}
	l.csvWriter = w
	return nil
}

// Close releases any CSV logger held by the loop. Stop does not call
// this automatically since a Loop may be restarted with Start again
// while keeping the same CSV file open.
func (l *Loop) Close() error {
	if l.csvWriter != nil {
		return l.csvWriter.close()
	}
	return nil
}

// csvLogger appends frame#,breath rows, best-effort, matching the
// other external-sink collaborators' "never fatal" failure policy.
type csvLogger struct {
	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

func newCSVLogger(path string) (*csvLogger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &csvLogger{f: f, w: csv.NewWriter(f)}, nil
}

func (c *csvLogger) append(frameNum uint64, breath float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.w.Write([]string{fmt.Sprintf("%d", frameNum), fmt.Sprintf("%.4f", breath)}); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *csvLogger) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.Flush()
	return c.f.Close()
}
