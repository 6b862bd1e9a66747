// Package recorder implements a Recorder collaborator — Open/Write/Close
// against a directory of JPEG-encoded output frames — grounded on the
// teacher's channel-fed writer-goroutine Start/Stop/SendFrame shape,
// with the NAL-specific header logic replaced by image/jpeg encoding.
package recorder

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kujaw077/Reimagining-Breath/internal/logger"
	"github.com/kujaw077/Reimagining-Breath/pkg/evmtype"
)

// Recorder is the collaborator interface the processing loop invokes
// only when recording is armed.
type Recorder interface {
	Open(path string, fps float32, width, height int, isColor bool) error
	Write(frame evmtype.Frame) error
	Close() error
}

// FileRecorder writes JPEG frames into a per-session directory, one
// file per frame, fed by a buffered channel and a writer goroutine so
// the hot path's Write/WriteWithBreath call is always non-blocking.
type FileRecorder struct {
	mu       sync.Mutex
	dir      string
	open     bool
	frameNum uint64
	wg       sync.WaitGroup
	frameCh  chan recordJob
	closeCh  chan struct{}

	// CombinedWithOriginal renders ROI x 2-wide frames with the written
	// frame drawn into both halves. The recorder only receives the
	// magnified frame, so the raw original is not shown.
	CombinedWithOriginal bool

	quality int
}

type recordJob struct {
	num    uint64
	frame  evmtype.Frame
	breath int
}

// NewFileRecorder constructs a recorder rooted at basePath; Open
// creates a timestamped subdirectory under it for each session.
func NewFileRecorder(basePath string, jpegQuality int) *FileRecorder {
	if jpegQuality <= 0 {
		jpegQuality = 90
	}
	return &FileRecorder{dir: basePath, quality: jpegQuality}
}

// Open starts a new recording session. fps/width/height/isColor are
// accepted for interface parity with a hypothetical codec-backed
// recorder; FileRecorder ignores them.
func (r *FileRecorder) Open(path string, fps float32, width, height int, isColor bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.open {
		return fmt.Errorf("recorder: already recording")
	}

	session := filepath.Join(r.dir, fmt.Sprintf("session_%s", time.Now().Format("20060102_150405")))
	if path != "" {
		session = path
	}
	if err := os.MkdirAll(session, 0755); err != nil {
		return fmt.Errorf("recorder: failed to create session dir: %w", err)
	}

	r.dir = session
	r.open = true
	r.frameNum = 0
	r.frameCh = make(chan recordJob, 30)
	r.closeCh = make(chan struct{})

	r.wg.Add(1)
	go r.writeLoop()

	return nil
}

// Write is the Recorder interface method the processing loop calls; it
// stamps a breath value of 0. WriteWithBreath stamps a given value.
func (r *FileRecorder) Write(frame evmtype.Frame) error {
	return r.WriteWithBreath(frame, 0)
}

// WriteWithBreath sends frame to the writer goroutine (non-blocking,
// dropped on a full channel) with the current breath value to stamp
// onto the image.
func (r *FileRecorder) WriteWithBreath(frame evmtype.Frame, breath int) error {
	r.mu.Lock()
	open := r.open
	num := r.frameNum
	r.frameNum++
	r.mu.Unlock()

	if !open {
		return fmt.Errorf("recorder: not recording")
	}

	select {
	case r.frameCh <- recordJob{num: num, frame: frame, breath: breath}:
		return nil
	default:
		logger.Warn("FileRecorder", "frame channel full, dropping frame #%d", num)
		return nil
	}
}

func (r *FileRecorder) writeLoop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.closeCh:
			for {
				select {
				case job := <-r.frameCh:
					r.writeJob(job)
				default:
					return
				}
			}
		case job := <-r.frameCh:
			r.writeJob(job)
		}
	}
}

func (r *FileRecorder) writeJob(job recordJob) {
	r.mu.Lock()
	dir := r.dir
	combined := r.CombinedWithOriginal
	quality := r.quality
	r.mu.Unlock()

	img := frameImage(job.frame, combined)
	stampText(img, fmt.Sprintf("#%d breath=%d", job.num, job.breath))

	name := filepath.Join(dir, fmt.Sprintf("frame_%08d.jpg", job.num))
	f, err := os.Create(name)
	if err != nil {
		logger.Warn("FileRecorder", "failed to create %s: %v", name, err)
		return
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		logger.Warn("FileRecorder", "failed to encode %s: %v", name, err)
	}
}

// Close stops the session, draining any buffered frames before
// returning.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	if !r.open {
		r.mu.Unlock()
		return nil
	}
	r.open = false
	r.mu.Unlock()

	close(r.closeCh)
	r.wg.Wait()
	return nil
}

// IsRecording reports whether a session is currently open.
func (r *FileRecorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open
}

// frameImage converts a Frame to an image.Image, optionally doubling
// its width for the "combined with original" mode by drawing the same
// frame into both halves via golang.org/x/image/draw; no separate
// original frame is drawn.
func frameImage(f evmtype.Frame, combined bool) draw.Image {
	base := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	fillRGBA(base, f)

	if !combined {
		return base
	}

	out := image.NewRGBA(image.Rect(0, 0, f.Width*2, f.Height))
	draw.Draw(out, image.Rect(0, 0, f.Width, f.Height), base, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(f.Width, 0, f.Width*2, f.Height), base, image.Point{}, draw.Src)
	return out
}

func fillRGBA(img *image.RGBA, f evmtype.Frame) {
	if f.Channels == 1 {
		for i := 0; i < f.Width*f.Height; i++ {
			v := f.Pix8[i]
			img.SetRGBA(i%f.Width, i/f.Width, color.RGBA{R: v, G: v, B: v, A: 255})
		}
		return
	}
	for i := 0; i < f.Width*f.Height; i++ {
		b := f.Pix8[i*f.Channels+0]
		g := f.Pix8[i*f.Channels+1]
		r := f.Pix8[i*f.Channels+2]
		img.SetRGBA(i%f.Width, i/f.Width, color.RGBA{R: r, G: g, B: b, A: 255})
	}
}

// stampText draws the frame number / breath value onto the top-left
// corner using golang.org/x/image/font/basicfont, upgrading
// broadcaster.go's hand-rolled NV12 pixel-poking text overlay to the
// real font package already in the dependency graph.
func stampText(img draw.Image, text string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 255, G: 255, B: 0, A: 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, 14),
	}
	d.DrawString(text)
}
