package protocol

import (
	"encoding/json"
	"fmt"
)

// Message is the envelope for every websocket frame exchanged between a
// client and the relay, in both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client to relay events.
const (
	EventJoinRoom    = "join-room"
	EventTimerUpdate = "timer-update"
	EventTaskUpdate  = "task-update"
)

// Relay to client events.
const (
	EventRoomState     = "room-state"
	EventExistingUsers = "existing-users"
	EventUserJoined    = "user-joined"
	EventUserLeft      = "user-left"
	EventTimerSync     = "timer-sync"
	EventTaskSync      = "task-sync"
	EventError         = "error"
)

// Negotiation events travel client -> relay -> target under the same name.
const (
	EventOffer        = "webrtc-offer"
	EventAnswer       = "webrtc-answer"
	EventICECandidate = "webrtc-ice-candidate"
)

// IsInbound reports whether t is an event clients may send to the relay.
func IsInbound(t string) bool {
	switch t {
	case EventJoinRoom, EventTimerUpdate, EventTaskUpdate, EventOffer, EventAnswer, EventICECandidate:
		return true
	}
	return false
}

// NewMessage encodes payload and wraps it in an envelope of type t.
func NewMessage(t string, payload any) (*Message, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return &Message{Type: t, Payload: b}, nil
}

// Decode unmarshals the envelope payload into v.
func (m *Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s: %w", m.Type, ErrMissingPayload)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%s: %w: %v", m.Type, ErrMalformed, err)
	}
	return nil
}

// Member is one entry of a room's member list.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Timer is the shared countdown snapshot. It is always replaced wholesale.
type Timer struct {
	TimeLeft  int    `json:"timeLeft"`
	TotalTime int    `json:"totalTime"`
	IsRunning bool   `json:"isRunning"`
	IsBreak   bool   `json:"isBreak"`
	Status    string `json:"status"`
}

// Task is one item of a member's task list.
type Task struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// JoinRoom is sent by a client to enter a room.
type JoinRoom struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

// RoomState is sent to a joiner only. OtherMembers never contains the joiner.
type RoomState struct {
	OtherMembers []Member          `json:"otherMembers"`
	Timer        *Timer            `json:"timer"`
	Tasks        map[string][]Task `json:"tasks"`
	SelfID       string            `json:"selfId"`
}

// UserJoined tells existing members about a newcomer.
type UserJoined struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// Offer carries an SDP offer. TargetID is set by the sender, SenderID by the
// relay when forwarding.
type Offer struct {
	Offer    json.RawMessage `json:"offer"`
	TargetID string          `json:"targetId,omitempty"`
	SenderID string          `json:"senderId,omitempty"`
}

// Answer carries an SDP answer.
type Answer struct {
	Answer   json.RawMessage `json:"answer"`
	TargetID string          `json:"targetId,omitempty"`
	SenderID string          `json:"senderId,omitempty"`
}

// ICECandidate carries a trickled candidate. A null candidate marks the end of
// gathering and is forwarded as null.
type ICECandidate struct {
	Candidate json.RawMessage `json:"candidate"`
	TargetID  string          `json:"targetId,omitempty"`
	SenderID  string          `json:"senderId,omitempty"`
}

// TimerUpdate publishes the sender's timer. RoomID is accepted for
// compatibility with the browser client; the relay uses the sender's room.
type TimerUpdate struct {
	RoomID     string `json:"roomId,omitempty"`
	TimerState *Timer `json:"timerState"`
}

// TaskUpdate publishes the sender's full task list.
type TaskUpdate struct {
	RoomID string `json:"roomId,omitempty"`
	Tasks  []Task `json:"tasks"`
}

// TaskSync is the relayed form of a TaskUpdate.
type TaskSync struct {
	UserID string `json:"userId"`
	Tasks  []Task `json:"tasks"`
}

// ErrorPayload reports a rejected request back to its sender.
type ErrorPayload struct {
	Error string `json:"error"`
}
