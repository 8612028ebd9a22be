package signaling

import (
	"errors"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/ManasDasri/PomStud/internal/metrics"
	"github.com/ManasDasri/PomStud/internal/protocol"
	"github.com/ManasDasri/PomStud/internal/room"
)

// Options tunes per-connection resources.
type Options struct {
	// QueueSize is the capacity of each client's outbound queue.
	QueueSize int

	// MaxMessageSize is the largest inbound frame accepted, in bytes.
	MaxMessageSize int64

	// MessageRate and MessageBurst bound inbound messages per connection.
	MessageRate  rate.Limit
	MessageBurst int
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		QueueSize:      256,
		MaxMessageSize: 64 * 1024, // 64 KB - enough for WebRTC SDP messages
		MessageRate:    50,
		MessageBurst:   100,
	}
}

// Hub routes inbound messages. It owns the connection registry and talks to
// the room store; all per-room ordering comes from the store's actors.
type Hub struct {
	log      *slog.Logger
	store    *room.Store
	registry *Registry
	opts     Options
}

// NewHub creates a hub over store.
func NewHub(store *room.Store, log *slog.Logger, opts Options) *Hub {
	if log == nil {
		log = slog.Default()
	}
	def := DefaultOptions()
	if opts.QueueSize <= 0 {
		opts.QueueSize = def.QueueSize
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = def.MaxMessageSize
	}
	if opts.MessageRate <= 0 {
		opts.MessageRate = def.MessageRate
	}
	if opts.MessageBurst <= 0 {
		opts.MessageBurst = def.MessageBurst
	}
	return &Hub{log: log, store: store, registry: NewRegistry(), opts: opts}
}

// Registry exposes the connection registry.
func (h *Hub) Registry() *Registry { return h.registry }

// Stats is a point-in-time count of live connections and rooms.
type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

// Stats returns the current counts.
func (h *Hub) Stats() Stats {
	return Stats{Rooms: h.store.Len(), Connections: h.registry.Len()}
}

// Register records a new connection and returns its id.
func (h *Hub) Register(c *Client) string {
	id := h.registry.Register(c)
	metrics.Connections.Set(float64(h.registry.Len()))
	h.log.Info("client registered", "conn", id)
	return id
}

// Unregister removes c from the registry and from every room it is in, and
// notifies the remaining members. Calling it again for the same client does
// nothing.
func (h *Hub) Unregister(c *Client) {
	if !h.registry.Unregister(c.ID) {
		return
	}
	h.leave(c)
	c.close()

	metrics.Connections.Set(float64(h.registry.Len()))
	h.log.Info("client unregistered", "conn", c.ID)
}

// Close disconnects every client.
func (h *Hub) Close() {
	for _, c := range h.registry.Clients() {
		c.close()
	}
}

// Handle dispatches one inbound message from c.
func (h *Hub) Handle(c *Client, msg *protocol.Message) {
	if !protocol.IsInbound(msg.Type) {
		metrics.Received.WithLabelValues("unknown").Inc()
		h.log.Warn("unknown message type", "conn", c.ID, "type", msg.Type)
		return
	}
	metrics.Received.WithLabelValues(msg.Type).Inc()

	switch msg.Type {
	case protocol.EventJoinRoom:
		h.handleJoin(c, msg)

	case protocol.EventOffer, protocol.EventAnswer, protocol.EventICECandidate:
		h.relay(c, msg)

	case protocol.EventTimerUpdate:
		h.handleTimerUpdate(c, msg)

	case protocol.EventTaskUpdate:
		h.handleTaskUpdate(c, msg)
	}
}

func (h *Hub) handleJoin(c *Client, msg *protocol.Message) {
	var in protocol.JoinRoom
	if err := msg.Decode(&in); err != nil {
		h.reject(c, msg.Type, err)
		return
	}
	if err := in.Normalize(); err != nil {
		h.reject(c, msg.Type, err)
		return
	}

	// One room per connection: switching rooms leaves the old one first.
	if current := h.registry.Room(c.ID); current != "" && current != in.RoomID {
		h.leave(c)
	}
	h.registry.SetName(c.ID, in.UserName)
	h.registry.SetRoom(c.ID, in.RoomID)

	h.store.Do(in.RoomID, true, func(r *room.Room) {
		snap := r.Join(c.ID, in.UserName)

		h.send(c, protocol.EventRoomState, protocol.RoomState{
			OtherMembers: snap.Others,
			Timer:        snap.Timer,
			Tasks:        snap.Tasks,
			SelfID:       c.ID,
		})
		if len(snap.Others) > 0 {
			h.send(c, protocol.EventExistingUsers, snap.Others)
		}

		h.fanout(snap.Others, protocol.EventUserJoined, protocol.UserJoined{
			UserID:   c.ID,
			UserName: in.UserName,
		})

		h.log.Info("client joined room", "conn", c.ID, "name", in.UserName, "room", in.RoomID, "members", r.Len())
	})
	metrics.Rooms.Set(float64(h.store.Len()))
}

// leave removes c from every room that lists it.
func (h *Hub) leave(c *Client) {
	for _, roomID := range h.store.RoomIDs() {
		h.store.Do(roomID, false, func(r *room.Room) {
			ok, remaining := r.Leave(c.ID)
			if !ok {
				return
			}
			h.fanout(r.Others(c.ID), protocol.EventUserLeft, c.ID)
			h.log.Info("client left room", "conn", c.ID, "room", roomID, "members", remaining)
		})
	}
	h.registry.SetRoom(c.ID, "")
	metrics.Rooms.Set(float64(h.store.Len()))
}

func (h *Hub) handleTimerUpdate(c *Client, msg *protocol.Message) {
	var in protocol.TimerUpdate
	if err := msg.Decode(&in); err != nil {
		h.reject(c, msg.Type, err)
		return
	}
	if err := in.Validate(); err != nil {
		h.reject(c, msg.Type, err)
		return
	}

	timer := *in.TimerState
	h.syncRoom(c, msg.Type, func(r *room.Room) bool {
		if !r.Has(c.ID) || !r.SetTimer(timer) {
			return false
		}
		h.fanout(r.Others(c.ID), protocol.EventTimerSync, timer)
		return true
	})
}

func (h *Hub) handleTaskUpdate(c *Client, msg *protocol.Message) {
	var in protocol.TaskUpdate
	if err := msg.Decode(&in); err != nil {
		h.reject(c, msg.Type, err)
		return
	}
	if err := in.Validate(); err != nil {
		h.reject(c, msg.Type, err)
		return
	}

	h.syncRoom(c, msg.Type, func(r *room.Room) bool {
		if !r.SetTasks(c.ID, in.Tasks) {
			return false
		}
		h.fanout(r.Others(c.ID), protocol.EventTaskSync, protocol.TaskSync{
			UserID: c.ID,
			Tasks:  in.Tasks,
		})
		return true
	})
}

// syncRoom runs apply in the sender's room. Updates for a room that no longer
// exists, or that the sender is not part of, are dropped quietly.
func (h *Hub) syncRoom(c *Client, event string, apply func(*room.Room) bool) {
	roomID := h.registry.Room(c.ID)
	applied := false
	if roomID != "" {
		h.store.Do(roomID, false, func(r *room.Room) { applied = apply(r) })
	}
	if !applied {
		metrics.Dropped.WithLabelValues(metrics.ReasonUnknownRoom).Inc()
		h.log.Debug("state update dropped, not in a room", "conn", c.ID, "type", event, "room", roomID)
	}
}

// fanout encodes payload once and queues it for every listed member.
func (h *Hub) fanout(members []protocol.Member, event string, payload any) {
	if len(members) == 0 {
		return
	}
	msg, err := protocol.NewMessage(event, payload)
	if err != nil {
		h.log.Error("encode broadcast", "type", event, "err", err)
		return
	}
	for _, m := range members {
		if to, ok := h.registry.Lookup(m.ID); ok {
			to.deliver(msg)
		}
	}
}

// send queues one message for c.
func (h *Hub) send(c *Client, event string, payload any) {
	msg, err := protocol.NewMessage(event, payload)
	if err != nil {
		h.log.Error("encode message", "type", event, "err", err)
		return
	}
	c.deliver(msg)
}

// reject reports a boundary validation failure back to the sender.
func (h *Hub) reject(c *Client, event string, err error) {
	metrics.Dropped.WithLabelValues(metrics.ReasonInvalid).Inc()
	h.log.Debug("message rejected", "conn", c.ID, "type", event, "err", err)

	text := err.Error()
	if errors.Is(err, protocol.ErrMalformed) {
		text = protocol.ErrMalformed.Error()
	}
	h.send(c, protocol.EventError, protocol.ErrorPayload{Error: event + ": " + text})
}
