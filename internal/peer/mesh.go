// Package peer keeps one WebRTC connection per room member. Negotiation runs
// through the relay; once a data channel opens, peers exchange msgpack frames
// directly.
package peer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/ManasDasri/PomStud/internal/client"
	"github.com/ManasDasri/PomStud/internal/protocol"
)

const channelLabel = "pomstud"

var (
	ErrUnknownPeer    = errors.New("unknown peer")
	ErrUnexpectedType = errors.New("unexpected signal type")
	ErrMeshClosed     = errors.New("mesh closed")
)

// Signaler sends negotiation messages through the relay.
type Signaler interface {
	SendOffer(targetID string, offer json.RawMessage) error
	SendAnswer(targetID string, answer json.RawMessage) error
	SendCandidate(targetID string, candidate json.RawMessage) error
}

// Config configures new peer connections.
type Config struct {
	ICEServers []string
	Name       string
	Version    string
}

// Event reports a change on one peer to the UI.
type Event struct {
	PeerID string
	State  string
	Hello  *Hello
	Nudge  *Nudge
}

type peer struct {
	id        string
	pc        *webrtc.PeerConnection
	dc        *webrtc.DataChannel
	remoteSet bool
	pending   []webrtc.ICECandidateInit
}

// Mesh owns the peer connections of one room session.
type Mesh struct {
	cfg    Config
	sig    Signaler
	events chan Event

	mu     sync.Mutex
	peers  map[string]*peer
	closed bool
}

// New returns an empty mesh.
func New(sig Signaler, cfg Config) *Mesh {
	return &Mesh{
		cfg:    cfg,
		sig:    sig,
		events: make(chan Event, 64),
		peers:  make(map[string]*peer),
	}
}

// Events delivers peer state changes and frames. Events are dropped when the
// consumer falls behind.
func (m *Mesh) Events() <-chan Event { return m.events }

// Run feeds the handler's negotiation channels into the mesh until ctx is
// done or the connection ends.
func (m *Mesh) Run(ctx context.Context, h *client.Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.Done():
			return
		case members := <-h.ExistingUsers:
			m.Connect(members)
		case sig := <-h.Signal:
			if err := m.HandleSignal(sig.Type, sig.SenderID, sig.Data); err != nil {
				slog.Warn("peer signal failed", "peer", sig.SenderID, "type", sig.Type, "err", err)
			}
		}
	}
}

// Connect offers a connection to every listed member.
func (m *Mesh) Connect(members []protocol.Member) {
	for _, member := range members {
		if err := m.offer(member.ID); err != nil {
			slog.Warn("peer offer failed", "peer", member.ID, "err", err)
		}
	}
}

func (m *Mesh) offer(id string) error {
	if m.lookup(id) != nil {
		return nil
	}
	p, err := m.newPeer(id)
	if err != nil {
		return err
	}
	if err := m.sendOffer(p); err != nil {
		m.discard(p)
		return err
	}
	return nil
}

func (m *Mesh) sendOffer(p *peer) error {
	dc, err := p.pc.CreateDataChannel(channelLabel, nil)
	if err != nil {
		return fmt.Errorf("create data channel: %w", err)
	}
	m.setupChannel(p, dc)

	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	raw, err := json.Marshal(p.pc.LocalDescription())
	if err != nil {
		return err
	}
	return m.sig.SendOffer(p.id, raw)
}

// HandleSignal applies one relayed negotiation message from senderID.
func (m *Mesh) HandleSignal(kind, senderID string, data json.RawMessage) error {
	switch kind {
	case protocol.EventOffer:
		return m.answer(senderID, data)

	case protocol.EventAnswer:
		p := m.lookup(senderID)
		if p == nil {
			return ErrUnknownPeer
		}
		var desc webrtc.SessionDescription
		if err := json.Unmarshal(data, &desc); err != nil {
			return fmt.Errorf("parse answer: %w", err)
		}
		if err := p.pc.SetRemoteDescription(desc); err != nil {
			return fmt.Errorf("set remote description: %w", err)
		}
		return m.flush(p)

	case protocol.EventICECandidate:
		return m.candidate(senderID, data)
	}
	return fmt.Errorf("%w: %s", ErrUnexpectedType, kind)
}

func (m *Mesh) answer(id string, data json.RawMessage) error {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(data, &desc); err != nil {
		return fmt.Errorf("parse offer: %w", err)
	}

	// A fresh offer from a known peer means it reconnected.
	m.Remove(id)

	p, err := m.newPeer(id)
	if err != nil {
		return err
	}
	if err := m.sendAnswer(p, desc); err != nil {
		m.discard(p)
		return err
	}
	return nil
}

func (m *Mesh) sendAnswer(p *peer, desc webrtc.SessionDescription) error {
	p.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() == channelLabel {
			m.setupChannel(p, dc)
		}
	})

	if err := p.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	if err := m.flush(p); err != nil {
		return err
	}

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	raw, err := json.Marshal(p.pc.LocalDescription())
	if err != nil {
		return err
	}
	return m.sig.SendAnswer(p.id, raw)
}

func (m *Mesh) candidate(id string, data json.RawMessage) error {
	// null marks the end of the sender's gathering.
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var ice webrtc.ICECandidateInit
	if err := json.Unmarshal(data, &ice); err != nil {
		return fmt.Errorf("parse ICE candidate: %w", err)
	}

	m.mu.Lock()
	p := m.peers[id]
	if p == nil {
		m.mu.Unlock()
		return ErrUnknownPeer
	}
	if !p.remoteSet && p.pc.RemoteDescription() == nil {
		p.pending = append(p.pending, ice)
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	if err := p.pc.AddICECandidate(ice); err != nil {
		return fmt.Errorf("add ICE candidate: %w", err)
	}
	return nil
}

// flush adds candidates that arrived before the remote description.
func (m *Mesh) flush(p *peer) error {
	m.mu.Lock()
	p.remoteSet = true
	pending := p.pending
	p.pending = nil
	m.mu.Unlock()

	for _, ice := range pending {
		if err := p.pc.AddICECandidate(ice); err != nil {
			return fmt.Errorf("add ICE candidate: %w", err)
		}
	}
	return nil
}

func (m *Mesh) newPeer(id string) (*peer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrMeshClosed
	}
	if old := m.peers[id]; old != nil {
		return old, nil
	}

	var servers []webrtc.ICEServer
	if len(m.cfg.ICEServers) > 0 {
		servers = []webrtc.ICEServer{{URLs: m.cfg.ICEServers}}
	}
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: servers})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	p := &peer{id: id, pc: pc}
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		var raw json.RawMessage
		if c != nil {
			b, err := json.Marshal(c.ToJSON())
			if err != nil {
				return
			}
			raw = b
		}
		if err := m.sig.SendCandidate(id, raw); err != nil {
			slog.Debug("send ICE candidate", "peer", id, "err", err)
		}
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		slog.Debug("peer state", "peer", id, "state", s.String())
		m.emit(Event{PeerID: id, State: s.String()})
	})

	m.peers[id] = p
	return p, nil
}

func (m *Mesh) setupChannel(p *peer, dc *webrtc.DataChannel) {
	m.mu.Lock()
	p.dc = dc
	m.mu.Unlock()

	dc.OnOpen(func() {
		f, err := NewFrame(FrameHello, Hello{Name: m.cfg.Name, Version: m.cfg.Version})
		if err != nil {
			return
		}
		if b, err := f.Encode(); err == nil {
			_ = dc.Send(b)
		}
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		f, err := DecodeFrame(msg.Data)
		if err != nil {
			slog.Debug("bad peer frame", "peer", p.id, "err", err)
			return
		}
		switch f.Type {
		case FrameHello:
			var h Hello
			if f.DecodePayload(&h) == nil {
				m.emit(Event{PeerID: p.id, State: "connected", Hello: &h})
			}
		case FrameNudge:
			var n Nudge
			if f.DecodePayload(&n) == nil {
				m.emit(Event{PeerID: p.id, Nudge: &n})
			}
		}
	})
}

// Nudge sends text to every peer with an open channel and returns how many
// received it.
func (m *Mesh) Nudge(text string) int {
	f, err := NewFrame(FrameNudge, Nudge{Text: text})
	if err != nil {
		return 0
	}
	b, err := f.Encode()
	if err != nil {
		return 0
	}

	m.mu.Lock()
	channels := make([]*webrtc.DataChannel, 0, len(m.peers))
	for _, p := range m.peers {
		if p.dc != nil && p.dc.ReadyState() == webrtc.DataChannelStateOpen {
			channels = append(channels, p.dc)
		}
	}
	m.mu.Unlock()

	sent := 0
	for _, dc := range channels {
		if dc.Send(b) == nil {
			sent++
		}
	}
	return sent
}

// Remove closes the connection to id, if any.
func (m *Mesh) Remove(id string) {
	m.mu.Lock()
	p := m.peers[id]
	delete(m.peers, id)
	m.mu.Unlock()

	if p != nil {
		if err := p.pc.Close(); err != nil {
			slog.Debug("close peer", "peer", id, "err", err)
		}
	}
}

// discard drops a peer whose negotiation failed so a later offer can retry.
func (m *Mesh) discard(p *peer) {
	m.mu.Lock()
	if m.peers[p.id] == p {
		delete(m.peers, p.id)
	}
	m.mu.Unlock()

	if err := p.pc.Close(); err != nil {
		slog.Debug("close peer", "peer", p.id, "err", err)
	}
}

func (m *Mesh) lookup(id string) *peer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peers[id]
}

// Len returns the number of tracked peers.
func (m *Mesh) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.peers)
}

// Close closes every peer connection. The mesh accepts no new peers after.
func (m *Mesh) Close() {
	m.mu.Lock()
	m.closed = true
	peers := m.peers
	m.peers = make(map[string]*peer)
	m.mu.Unlock()

	for _, p := range peers {
		p.pc.Close()
	}
}

func (m *Mesh) emit(e Event) {
	select {
	case m.events <- e:
	default:
	}
}
