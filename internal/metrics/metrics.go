package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter/gauge the processing loop and its
// collaborators update, exported for scraping via Prometheus.
type Metrics struct {
	// Capture/processing counters
	FramesCaptured  atomic.Uint64
	FramesProcessed atomic.Uint64
	FramesDropped   atomic.Uint64

	// Per-mode consumption counters
	ColorFramesConsumed   atomic.Uint64
	LaplaceFramesConsumed atomic.Uint64
	RieszFramesConsumed   atomic.Uint64

	// Breath analyzer output
	BreathEmissions   atomic.Uint64
	LastBreathValue   atomic.Int64

	// Publish/record fanout
	PublishFramesSent    atomic.Uint64
	PublishFramesDropped atomic.Uint64
	RecorderFramesSent   atomic.Uint64
	RecorderFramesDropped atomic.Uint64

	// Error counters
	ProcessErrors  atomic.Uint64
	PublishErrors  atomic.Uint64
	RecorderErrors atomic.Uint64
	SinkErrors     atomic.Uint64

	// Latency tracking
	TickLatencyMs   atomic.Uint64
	ConsumeLatencyMs atomic.Uint64

	// Buffer/queue occupancy
	InputQueueUsage   atomic.Uint64 // percentage (0-100)
	PublishBufferUsage atomic.Uint64 // percentage (0-100)

	// WebRTC client tracking
	ActiveClients atomic.Uint64
	TotalClients  atomic.Uint64

	// Recording state
	RecordingActive atomic.Uint64 // 0 = inactive, 1 = active
	RecordingBytes  atomic.Uint64
	RecordingFrames atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance and registers all Prometheus collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	gauge := func(name, help string, fn func() float64) {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: name, Help: help}, fn,
		))
	}

	gauge("evm_frames_captured_total", "Total frames handed off from the capture source", func() float64 { return float64(m.FramesCaptured.Load()) })
	gauge("evm_frames_processed_total", "Total frames that produced a magnified output", func() float64 { return float64(m.FramesProcessed.Load()) })
	gauge("evm_frames_dropped_total", "Total frames dropped (degenerate or queue overflow)", func() float64 { return float64(m.FramesDropped.Load()) })

	gauge("evm_color_frames_consumed_total", "Total frames consumed in color mode", func() float64 { return float64(m.ColorFramesConsumed.Load()) })
	gauge("evm_laplace_frames_consumed_total", "Total frames consumed in Laplacian mode", func() float64 { return float64(m.LaplaceFramesConsumed.Load()) })
	gauge("evm_riesz_frames_consumed_total", "Total frames consumed in Riesz mode", func() float64 { return float64(m.RieszFramesConsumed.Load()) })

	gauge("evm_breath_emissions_total", "Total smoothed breath values emitted", func() float64 { return float64(m.BreathEmissions.Load()) })
	gauge("evm_breath_last_value", "Most recently emitted breath value", func() float64 { return float64(m.LastBreathValue.Load()) })

	gauge("evm_publish_frames_sent_total", "Total frames handed to the publisher", func() float64 { return float64(m.PublishFramesSent.Load()) })
	gauge("evm_publish_frames_dropped_total", "Total frames dropped by a full publish fanout", func() float64 { return float64(m.PublishFramesDropped.Load()) })
	gauge("evm_recorder_frames_sent_total", "Total frames handed to the recorder", func() float64 { return float64(m.RecorderFramesSent.Load()) })
	gauge("evm_recorder_frames_dropped_total", "Total frames dropped by a full recorder channel", func() float64 { return float64(m.RecorderFramesDropped.Load()) })

	gauge("evm_process_errors_total", "Total processing errors", func() float64 { return float64(m.ProcessErrors.Load()) })
	gauge("evm_publish_errors_total", "Total publish errors", func() float64 { return float64(m.PublishErrors.Load()) })
	gauge("evm_recorder_errors_total", "Total recorder errors", func() float64 { return float64(m.RecorderErrors.Load()) })
	gauge("evm_sink_errors_total", "Total external scalar sink errors", func() float64 { return float64(m.SinkErrors.Load()) })

	gauge("evm_tick_latency_ms", "Most recent processing tick latency in milliseconds", func() float64 { return float64(m.TickLatencyMs.Load()) })
	gauge("evm_consume_latency_ms", "Most recent Magnificator.Consume latency in milliseconds", func() float64 { return float64(m.ConsumeLatencyMs.Load()) })

	gauge("evm_input_queue_usage_percent", "Processing input queue occupancy percentage", func() float64 { return float64(m.InputQueueUsage.Load()) })
	gauge("evm_publish_buffer_usage_percent", "Publish fanout buffer occupancy percentage", func() float64 { return float64(m.PublishBufferUsage.Load()) })

	gauge("evm_active_clients", "Number of active WebRTC data-channel clients", func() float64 { return float64(m.ActiveClients.Load()) })
	gauge("evm_total_clients", "Total WebRTC clients connected since startup", func() float64 { return float64(m.TotalClients.Load()) })

	gauge("evm_recording_active", "Recording active (0=inactive, 1=active)", func() float64 { return float64(m.RecordingActive.Load()) })
	gauge("evm_recording_bytes", "Total bytes written to recordings", func() float64 { return float64(m.RecordingBytes.Load()) })
	gauge("evm_recording_frames", "Total frames written to recordings", func() float64 { return float64(m.RecordingFrames.Load()) })
}

// UpdateTickLatency records how long the most recent processing tick took.
func (m *Metrics) UpdateTickLatency(start time.Time) {
	m.TickLatencyMs.Store(uint64(time.Since(start).Milliseconds()))
}

// UpdateConsumeLatency records how long the most recent Consume call took.
func (m *Metrics) UpdateConsumeLatency(d time.Duration) {
	m.ConsumeLatencyMs.Store(uint64(d.Milliseconds()))
}

// UpdateQueueUsage updates occupancy percentages for the processing
// input queue and the publish fanout buffer.
func (m *Metrics) UpdateQueueUsage(queueLen, queueCap, publishUsed, publishCap int) {
	if queueCap > 0 {
		m.InputQueueUsage.Store(uint64(queueLen * 100 / queueCap))
	}
	if publishCap > 0 {
		m.PublishBufferUsage.Store(uint64(publishUsed * 100 / publishCap))
	}
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server. Blocks; call from its own goroutine.
func (m *Metrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
