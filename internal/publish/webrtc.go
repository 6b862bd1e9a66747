package publish

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"

	"github.com/kujaw077/Reimagining-Breath/internal/logger"
	"github.com/kujaw077/Reimagining-Breath/pkg/evmtype"
)

// WebRTCPublisher fans output frames and breath/stat events out to
// subscribed peers over codec-free WebRTC data channels, grounded on
// internal/webrtc/server.go's Client/Server connection bookkeeping
// (client map, ICE/connection state cleanup, maxClients guard), but
// adapted from RTP video *tracks* -- which would need a negotiated
// video codec the EVM core does not produce -- to a binary
// webrtc.DataChannel carrying raw JPEG bytes plus JSON events, which
// needs no codec negotiation at all.
type WebRTCPublisher struct {
	mu         sync.RWMutex
	clients    map[string]*webrtcClient
	config     webrtc.Configuration
	maxClients int
	api        *webrtc.API

	jpegQuality int
}

type webrtcClient struct {
	id       string
	peerConn *webrtc.PeerConnection
	frameDC  *webrtc.DataChannel
	eventDC  *webrtc.DataChannel
	sent     uint64
	dropped  uint64
}

// NewWebRTCPublisher creates a publisher with the given STUN servers
// and client cap.
func NewWebRTCPublisher(stunServers []string, maxClients int, jpegQuality int) *WebRTCPublisher {
	iceServers := make([]webrtc.ICEServer, 0, len(stunServers))
	for _, url := range stunServers {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: []string{url}})
	}
	if len(iceServers) == 0 {
		iceServers = []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}
	}
	if jpegQuality <= 0 {
		jpegQuality = 85
	}

	return &WebRTCPublisher{
		clients:     make(map[string]*webrtcClient),
		config:      webrtc.Configuration{ICEServers: iceServers},
		maxClients:  maxClients,
		api:         webrtc.NewAPI(),
		jpegQuality: jpegQuality,
	}
}

// HandleOffer negotiates a new peer connection with two data channels
// ("evm-frames", "evm-events") and returns the SDP answer.
func (p *WebRTCPublisher) HandleOffer(offerJSON []byte) ([]byte, error) {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(offerJSON, &offer); err != nil {
		return nil, fmt.Errorf("publish: failed to parse offer: %w", err)
	}

	p.mu.RLock()
	full := len(p.clients) >= p.maxClients
	p.mu.RUnlock()
	if full {
		return nil, fmt.Errorf("publish: maximum clients reached (%d)", p.maxClients)
	}

	peerConn, err := p.api.NewPeerConnection(p.config)
	if err != nil {
		return nil, fmt.Errorf("publish: failed to create peer connection: %w", err)
	}

	frameDC, err := peerConn.CreateDataChannel("evm-frames", nil)
	if err != nil {
		peerConn.Close()
		return nil, fmt.Errorf("publish: failed to create frame channel: %w", err)
	}
	eventDC, err := peerConn.CreateDataChannel("evm-events", nil)
	if err != nil {
		peerConn.Close()
		return nil, fmt.Errorf("publish: failed to create event channel: %w", err)
	}

	client := &webrtcClient{
		id:       generateClientID(),
		peerConn: peerConn,
		frameDC:  frameDC,
		eventDC:  eventDC,
	}

	peerConn.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		if state == webrtc.PeerConnectionStateDisconnected ||
			state == webrtc.PeerConnectionStateFailed ||
			state == webrtc.PeerConnectionStateClosed {
			p.removeClient(client.id)
		}
	})

	if err := peerConn.SetRemoteDescription(offer); err != nil {
		peerConn.Close()
		return nil, fmt.Errorf("publish: failed to set remote description: %w", err)
	}

	answer, err := peerConn.CreateAnswer(nil)
	if err != nil {
		peerConn.Close()
		return nil, fmt.Errorf("publish: failed to create answer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(peerConn)
	if err := peerConn.SetLocalDescription(answer); err != nil {
		peerConn.Close()
		return nil, fmt.Errorf("publish: failed to set local description: %w", err)
	}
	<-gatherComplete

	p.mu.Lock()
	p.clients[client.id] = client
	p.mu.Unlock()

	logger.Info("WebRTCPublisher", "client %s connected", client.id)

	local := peerConn.LocalDescription()
	if local == nil {
		return nil, fmt.Errorf("publish: no local description available")
	}
	return json.Marshal(local)
}

func (p *WebRTCPublisher) EmitFrame(frame evmtype.Frame) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, frameToImage(frame), &jpeg.Options{Quality: p.jpegQuality}); err != nil {
		logger.Warn("WebRTCPublisher", "jpeg encode failed: %v", err)
		return
	}
	data := buf.Bytes()

	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, c := range p.clients {
		if c.frameDC.ReadyState() != webrtc.DataChannelStateOpen {
			continue
		}
		if err := c.frameDC.Send(data); err != nil {
			c.dropped++
			continue
		}
		c.sent++
	}
}

func (p *WebRTCPublisher) EmitStats(stats Stats) {
	p.emitEvent(map[string]any{"type": "stats", "stats": stats})
}

func (p *WebRTCPublisher) EmitBreath(value int) {
	p.emitEvent(map[string]any{"type": "breath", "value": value})
}

func (p *WebRTCPublisher) emitEvent(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("WebRTCPublisher", "event marshal failed: %v", err)
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, c := range p.clients {
		if c.eventDC.ReadyState() != webrtc.DataChannelStateOpen {
			continue
		}
		_ = c.eventDC.Send(data)
	}
}

func (p *WebRTCPublisher) removeClient(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.clients[id]
	if !ok {
		return
	}
	c.peerConn.Close()
	delete(p.clients, id)
	logger.Info("WebRTCPublisher", "client %s disconnected (sent=%d dropped=%d)", id, c.sent, c.dropped)
}

// ClientCount returns the number of currently connected clients.
func (p *WebRTCPublisher) ClientCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}

func (p *WebRTCPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, c := range p.clients {
		c.peerConn.Close()
		delete(p.clients, id)
	}
	return nil
}

func generateClientID() string {
	return fmt.Sprintf("client-%d", time.Now().UnixNano())
}
