package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kujaw077/Reimagining-Breath/internal/capture"
	"github.com/kujaw077/Reimagining-Breath/internal/config"
	"github.com/kujaw077/Reimagining-Breath/internal/framebuf"
	"github.com/kujaw077/Reimagining-Breath/internal/logger"
	"github.com/kujaw077/Reimagining-Breath/internal/loop"
	"github.com/kujaw077/Reimagining-Breath/internal/metrics"
	"github.com/kujaw077/Reimagining-Breath/internal/publish"
	"github.com/kujaw077/Reimagining-Breath/internal/recorder"
	"github.com/kujaw077/Reimagining-Breath/internal/sink"
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	level, err := logger.ParseLevel(flags.LogLevel)
	if err != nil {
		log.Fatalf("invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, flags.LogColor)
	logger.Info("Main", "EVM server starting...")

	if err := os.MkdirAll(flags.RecordPath, 0755); err != nil {
		log.Fatalf("failed to create recordings directory: %v", err)
	}

	srv, err := newServer(flags)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	if err := srv.start(); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Main", "shutting down...")
	if err := srv.shutdown(); err != nil {
		logger.Error("Main", "error during shutdown: %v", err)
	}
	logger.Info("Main", "server stopped")
}

// server wires every collaborator (capture source, processing loop,
// publisher, recorder, scalar sink, metrics, HTTP) into one process,
// grounded on cmd/server/main.go's Server struct and Start/Shutdown
// lifecycle.
type server struct {
	flags *config.Flags

	ctx    context.Context
	cancel context.CancelFunc

	metrics    *metrics.Metrics
	source     *capture.ShmSource
	shared     *framebuf.SharedBuffer
	loop       *loop.Loop
	webrtcPub  *publish.WebRTCPublisher
	channelPub *publish.ChannelPublisher
	recorder   *recorder.FileRecorder
	sink       sink.ScalarSink
	httpServer *http.Server
}

func newServer(flags *config.Flags) (*server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	m := metrics.New()

	source, err := capture.NewShmSource(flags.ShmSourceName)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open frame source: %w", err)
	}

	shared := framebuf.NewSharedBuffer()

	var scalarSink sink.ScalarSink
	switch flags.ScalarSink {
	case "shm":
		shmSink, err := sink.NewShmSink(flags.ScalarPath)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to open scalar sink: %w", err)
		}
		scalarSink = shmSink
	case "file":
		fileSink, err := sink.NewFileSink(flags.ScalarPath)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to open scalar sink: %w", err)
		}
		scalarSink = fileSink
	default:
		scalarSink = sink.NoopSink{}
	}

	rec := recorder.NewFileRecorder(flags.RecordPath, 85)

	channelPub := publish.NewChannelPublisher(85)
	webrtcPub := publish.NewWebRTCPublisher(splitCSV(flags.STUNServers), flags.MaxClients, 85)

	l := loop.New(shared, channelPub, rec, scalarSink, m, flags.QueueLen)
	if err := l.SetSettings(flags.Settings(), flags.ROI(), flags.QueueLen); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to apply initial settings: %w", err)
	}

	mux := http.NewServeMux()
	httpServer := &http.Server{Addr: flags.HTTPAddr, Handler: mux}

	s := &server{
		flags:      flags,
		ctx:        ctx,
		cancel:     cancel,
		metrics:    m,
		source:     source,
		shared:     shared,
		loop:       l,
		webrtcPub:  webrtcPub,
		channelPub: channelPub,
		recorder:   rec,
		sink:       scalarSink,
		httpServer: httpServer,
	}
	s.setupRoutes(mux)
	return s, nil
}

func (s *server) start() error {
	logger.Info("Main", "  frame source: %s", s.flags.ShmSourceName)
	logger.Info("Main", "  http server: %s", s.flags.HTTPAddr)
	logger.Info("Main", "  metrics server: %s", s.flags.MetricsAddr)
	logger.Info("Main", "  pprof server: %s", s.flags.PprofAddr)
	logger.Info("Main", "  recording path: %s", s.flags.RecordPath)

	go func() {
		if err := http.ListenAndServe(s.flags.PprofAddr, nil); err != nil {
			logger.Warn("Main", "pprof server error: %v", err)
		}
	}()
	go func() {
		if err := s.metrics.StartServer(s.flags.MetricsAddr); err != nil {
			logger.Warn("Main", "metrics server error: %v", err)
		}
	}()
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Warn("Main", "http server error: %v", err)
		}
	}()

	go s.captureLoop()
	s.loop.Start(s.ctx)

	logger.Info("Main", "server started successfully")
	return nil
}

// captureLoop is the capture thread: pull the latest frame from the
// shared-memory source and hand it off through SharedBuffer, the
// single-slot "latest wins" boundary the processing thread reads from.
func (s *server) captureLoop() {
	for {
		frame, ok := s.source.Get(s.ctx)
		if !ok {
			return
		}
		s.shared.Put(frame)
		s.metrics.FramesCaptured.Add(1)
	}
}

func (s *server) setupRoutes(mux *http.ServeMux) {
	cors := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("/offer", cors(s.handleOffer))
	mux.HandleFunc("/record/start", cors(s.handleStartRecording))
	mux.HandleFunc("/record/stop", cors(s.handleStopRecording))
	mux.HandleFunc("/mode", cors(s.handleSetMode))
	mux.HandleFunc("/health", s.handleHealth)
}

func (s *server) handleOffer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	offerJSON, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	answerJSON, err := s.webrtcPub.HandleOffer(offerJSON)
	if err != nil {
		logger.Warn("Main", "webrtc offer error: %v", err)
		http.Error(w, fmt.Sprintf("failed to handle offer: %v", err), http.StatusInternalServerError)
		return
	}
	s.metrics.TotalClients.Add(1)
	w.Header().Set("Content-Type", "application/json")
	w.Write(answerJSON)
}

func (s *server) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session := fmt.Sprintf("%s/session_%s", s.flags.RecordPath, time.Now().Format("20060102_150405"))
	if err := s.recorder.Open(session, float32(s.flags.Framerate), s.flags.ROIW, s.flags.ROIH, !s.flags.Grayscale); err != nil {
		http.Error(w, fmt.Sprintf("failed to start recording: %v", err), http.StatusInternalServerError)
		return
	}
	s.loop.ArmRecording()
	s.metrics.RecordingActive.Store(1)
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

func (s *server) handleStopRecording(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.loop.DisarmRecording()
	if err := s.recorder.Close(); err != nil {
		http.Error(w, fmt.Sprintf("failed to stop recording: %v", err), http.StatusInternalServerError)
		return
	}
	s.metrics.RecordingActive.Store(0)
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

func (s *server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	mode := r.URL.Query().Get("mode")
	s.flags.Mode = mode
	if err := s.loop.SetSettings(s.flags.Settings(), s.flags.ROI(), s.flags.QueueLen); err != nil {
		http.Error(w, fmt.Sprintf("failed to apply mode: %v", err), http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"success": true, "mode": mode})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "ok",
		"webrtc_clients": s.webrtcPub.ClientCount(),
	})
}

func (s *server) shutdown() error {
	s.cancel()
	s.loop.Stop()

	s.source.Close()
	s.shared.Close()
	s.channelPub.Close()
	s.webrtcPub.Close()
	s.recorder.Close()
	s.sink.Close()
	s.loop.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
