package client

import (
	"encoding/json"
	"log/slog"

	"github.com/ManasDasri/PomStud/internal/protocol"
)

// Signal is a negotiation message relayed from another member.
type Signal struct {
	Type     string
	SenderID string
	Data     json.RawMessage
}

// Handler routes incoming relay messages to typed channels.
type Handler struct {
	client *Client
	done   chan struct{}

	RoomState  chan *protocol.RoomState
	UserJoined chan protocol.UserJoined
	UserLeft   chan string
	TimerSync  chan protocol.Timer
	TaskSync   chan protocol.TaskSync
	Error      chan string

	// ExistingUsers and Signal are only fed when the handler was created with
	// signals enabled; otherwise they are nil.
	ExistingUsers chan []protocol.Member
	Signal        chan *Signal
}

// NewHandler creates a new message handler. With signals false the
// negotiation events are discarded.
func NewHandler(client *Client, signals bool) *Handler {
	h := &Handler{
		client:     client,
		done:       make(chan struct{}),
		RoomState:  make(chan *protocol.RoomState, 4),
		UserJoined: make(chan protocol.UserJoined, 32),
		UserLeft:   make(chan string, 32),
		TimerSync:  make(chan protocol.Timer, 32),
		TaskSync:   make(chan protocol.TaskSync, 32),
		Error:      make(chan string, 8),
	}
	if signals {
		h.ExistingUsers = make(chan []protocol.Member, 4)
		h.Signal = make(chan *Signal, 64)
	}
	return h
}

// Done is closed when the relay connection has ended and every message has
// been routed.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// Start routes messages until the client's incoming channel is closed.
func (h *Handler) Start() {
	defer close(h.done)

	for msg := range h.client.Incoming() {
		switch msg.Type {
		case protocol.EventRoomState:
			var state protocol.RoomState
			if h.decode(msg, &state) {
				forward(h, h.RoomState, &state)
			}

		case protocol.EventExistingUsers:
			if h.ExistingUsers == nil {
				continue
			}
			var members []protocol.Member
			if h.decode(msg, &members) {
				forward(h, h.ExistingUsers, members)
			}

		case protocol.EventUserJoined:
			var joined protocol.UserJoined
			if h.decode(msg, &joined) {
				forward(h, h.UserJoined, joined)
			}

		case protocol.EventUserLeft:
			var id string
			if h.decode(msg, &id) {
				forward(h, h.UserLeft, id)
			}

		case protocol.EventTimerSync:
			var t protocol.Timer
			if h.decode(msg, &t) {
				forward(h, h.TimerSync, t)
			}

		case protocol.EventTaskSync:
			var sync protocol.TaskSync
			if h.decode(msg, &sync) {
				forward(h, h.TaskSync, sync)
			}

		case protocol.EventOffer, protocol.EventAnswer, protocol.EventICECandidate:
			if h.Signal == nil {
				continue
			}
			if sig, ok := h.signal(msg); ok {
				forward(h, h.Signal, sig)
			}

		case protocol.EventError:
			var e protocol.ErrorPayload
			if h.decode(msg, &e) {
				forward(h, h.Error, e.Error)
			}

		default:
			slog.Debug("ignoring relay message", "type", msg.Type)
		}
	}
}

func (h *Handler) signal(msg *protocol.Message) (*Signal, bool) {
	sig := &Signal{Type: msg.Type}
	switch msg.Type {
	case protocol.EventOffer:
		var p protocol.Offer
		if !h.decode(msg, &p) {
			return nil, false
		}
		sig.SenderID, sig.Data = p.SenderID, p.Offer
	case protocol.EventAnswer:
		var p protocol.Answer
		if !h.decode(msg, &p) {
			return nil, false
		}
		sig.SenderID, sig.Data = p.SenderID, p.Answer
	case protocol.EventICECandidate:
		var p protocol.ICECandidate
		if !h.decode(msg, &p) {
			return nil, false
		}
		sig.SenderID, sig.Data = p.SenderID, p.Candidate
	}
	return sig, sig.SenderID != ""
}

func (h *Handler) decode(msg *protocol.Message, v any) bool {
	if err := msg.Decode(v); err != nil {
		slog.Warn("bad relay message", "type", msg.Type, "err", err)
		return false
	}
	return true
}

// forward blocks until the consumer takes v or the client is closed.
func forward[T any](h *Handler, ch chan T, v T) {
	select {
	case ch <- v:
	case <-h.client.Done():
	}
}
