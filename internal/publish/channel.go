package publish

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"sync"

	"github.com/kujaw077/Reimagining-Breath/internal/logger"
	"github.com/kujaw077/Reimagining-Breath/pkg/evmtype"
)

// ChannelPublisher fans JPEG-encoded frames and JSON stat/breath
// events out to N subscribers over buffered Go channels, grounded on
// internal/webmonitor/broadcaster.go's FrameBroadcaster/
// StatusBroadcaster: a map of per-client buffered channels under a
// mutex, non-blocking select-default sends, a monotonic client id.
type ChannelPublisher struct {
	mu        sync.Mutex
	nextID    int
	frames    map[int]chan []byte
	events    map[int]chan []byte
	jpegQuality int
}

// NewChannelPublisher constructs an empty fanout publisher.
func NewChannelPublisher(jpegQuality int) *ChannelPublisher {
	if jpegQuality <= 0 {
		jpegQuality = 85
	}
	return &ChannelPublisher{
		frames:      make(map[int]chan []byte),
		events:      make(map[int]chan []byte),
		jpegQuality: jpegQuality,
	}
}

// SubscribeFrames registers a new frame subscriber and returns its id
// plus a read-only channel of JPEG-encoded frame bytes.
func (c *ChannelPublisher) SubscribeFrames() (int, <-chan []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	ch := make(chan []byte, 2)
	c.frames[id] = ch
	c.events[id] = make(chan []byte, 8)
	return id, ch
}

// SubscribeEvents returns the same client's stats/breath JSON channel.
func (c *ChannelPublisher) SubscribeEvents(id int) <-chan []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[id]
}

// Unsubscribe removes a client and closes its channels.
func (c *ChannelPublisher) Unsubscribe(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.frames[id]; ok {
		close(ch)
		delete(c.frames, id)
	}
	if ch, ok := c.events[id]; ok {
		close(ch)
		delete(c.events, id)
	}
}

func (c *ChannelPublisher) EmitFrame(frame evmtype.Frame) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, frameToImage(frame), &jpeg.Options{Quality: c.jpegQuality}); err != nil {
		logger.Warn("ChannelPublisher", "jpeg encode failed: %v", err)
		return
	}
	data := buf.Bytes()

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.frames {
		select {
		case ch <- data:
		default:
			// Full subscriber: drop its oldest buffered frame so the
			// newest one gets through.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- data:
			default:
			}
		}
	}
}

func (c *ChannelPublisher) EmitStats(stats Stats) {
	c.emitEvent(map[string]any{"type": "stats", "stats": stats})
}

func (c *ChannelPublisher) EmitBreath(value int) {
	c.emitEvent(map[string]any{"type": "breath", "value": value})
}

func (c *ChannelPublisher) emitEvent(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("ChannelPublisher", "event marshal failed: %v", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.events {
		select {
		case ch <- data:
		default:
		}
	}
}

func (c *ChannelPublisher) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.frames {
		close(ch)
		delete(c.frames, id)
	}
	for id, ch := range c.events {
		close(ch)
		delete(c.events, id)
	}
	return nil
}

// frameToImage converts an 8-bit BGR or grayscale Frame into a
// standard library image.Image for jpeg.Encode.
func frameToImage(f evmtype.Frame) image.Image {
	if f.Channels == 1 {
		img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
		copy(img.Pix, f.Pix8)
		return img
	}
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i := 0; i < f.Width*f.Height; i++ {
		b := f.Pix8[i*f.Channels+0]
		g := f.Pix8[i*f.Channels+1]
		r := f.Pix8[i*f.Channels+2]
		img.SetRGBA(i%f.Width, i/f.Width, color.RGBA{R: r, G: g, B: b, A: 255})
	}
	return img
}
