package signaling

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManasDasri/PomStud/internal/protocol"
	"github.com/ManasDasri/PomStud/internal/room"
)

func newTestHub(t *testing.T, opts Options) (*Hub, *room.Store) {
	t.Helper()
	store := room.NewStore(nil)
	t.Cleanup(store.Close)
	return NewHub(store, nil, opts), store
}

// connect registers a client without a websocket; tests read its queue
// directly. Hub.Handle runs synchronously, so every message caused by a call
// is queued by the time it returns.
func connect(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := NewClient(h, nil)
	h.Register(c)
	return c
}

func emit(t *testing.T, h *Hub, c *Client, event string, payload any) {
	t.Helper()
	msg, err := protocol.NewMessage(event, payload)
	require.NoError(t, err)
	h.Handle(c, msg)
}

func join(t *testing.T, h *Hub, c *Client, roomID, name string) {
	t.Helper()
	emit(t, h, c, protocol.EventJoinRoom, protocol.JoinRoom{RoomID: roomID, UserName: name})
}

func drain(c *Client) []*protocol.Message {
	var out []*protocol.Message
	for {
		select {
		case m := <-c.send:
			out = append(out, m)
		default:
			return out
		}
	}
}

func only(t *testing.T, c *Client, event string) *protocol.Message {
	t.Helper()
	msgs := drain(c)
	require.Len(t, msgs, 1, "expected exactly one %s", event)
	require.Equal(t, event, msgs[0].Type)
	return msgs[0]
}

func decode[T any](t *testing.T, m *protocol.Message) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(m.Payload, &v))
	return v
}

func TestHub_JoinHandshake(t *testing.T) {
	h, _ := newTestHub(t, Options{})
	a := connect(t, h)
	b := connect(t, h)

	join(t, h, a, "focus", "Alice")
	state := decode[protocol.RoomState](t, only(t, a, protocol.EventRoomState))
	assert.Empty(t, state.OtherMembers)
	assert.Nil(t, state.Timer)
	assert.Equal(t, a.ID, state.SelfID)
	assert.Equal(t, map[string][]protocol.Task{a.ID: {}}, state.Tasks)

	join(t, h, b, "focus", "Bob")

	joined := decode[protocol.UserJoined](t, only(t, a, protocol.EventUserJoined))
	assert.Equal(t, protocol.UserJoined{UserID: b.ID, UserName: "Bob"}, joined)

	msgs := drain(b)
	require.Len(t, msgs, 2)
	require.Equal(t, protocol.EventRoomState, msgs[0].Type)
	state = decode[protocol.RoomState](t, msgs[0])
	assert.Equal(t, []protocol.Member{{ID: a.ID, Name: "Alice"}}, state.OtherMembers)
	assert.Equal(t, b.ID, state.SelfID)

	require.Equal(t, protocol.EventExistingUsers, msgs[1].Type)
	assert.Equal(t, []protocol.Member{{ID: a.ID, Name: "Alice"}}, decode[[]protocol.Member](t, msgs[1]))

	name, ok := h.Registry().Name(b.ID)
	require.True(t, ok)
	assert.Equal(t, "Bob", name)
	assert.Equal(t, "focus", h.Registry().Room(b.ID))
}

func TestHub_JoinRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		payload any
	}{
		{name: "empty name", payload: protocol.JoinRoom{RoomID: "focus", UserName: "   "}},
		{name: "empty room", payload: protocol.JoinRoom{RoomID: "", UserName: "Alice"}},
		{name: "wrong shape", payload: []int{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store := newTestHub(t, Options{})
			c := connect(t, h)

			emit(t, h, c, protocol.EventJoinRoom, tt.payload)

			errMsg := decode[protocol.ErrorPayload](t, only(t, c, protocol.EventError))
			assert.Contains(t, errMsg.Error, protocol.EventJoinRoom)
			assert.Equal(t, 0, store.Len())
			assert.Empty(t, h.Registry().Room(c.ID))
		})
	}
}

func TestHub_RelayReachesOnlyTarget(t *testing.T) {
	h, _ := newTestHub(t, Options{})
	a, b, c := connect(t, h), connect(t, h), connect(t, h)
	join(t, h, a, "focus", "Alice")
	join(t, h, b, "focus", "Bob")
	join(t, h, c, "focus", "Carol")
	drain(a)
	drain(b)
	drain(c)

	sdp := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	emit(t, h, a, protocol.EventOffer, protocol.Offer{Offer: sdp, TargetID: c.ID})

	offer := decode[protocol.Offer](t, only(t, c, protocol.EventOffer))
	assert.Equal(t, a.ID, offer.SenderID)
	assert.Empty(t, offer.TargetID)
	assert.JSONEq(t, string(sdp), string(offer.Offer))
	assert.Empty(t, drain(a))
	assert.Empty(t, drain(b))

	emit(t, h, c, protocol.EventAnswer, protocol.Answer{Answer: json.RawMessage(`{"type":"answer"}`), TargetID: a.ID})
	answer := decode[protocol.Answer](t, only(t, a, protocol.EventAnswer))
	assert.Equal(t, c.ID, answer.SenderID)
	assert.Empty(t, drain(b))

	emit(t, h, b, protocol.EventICECandidate, protocol.ICECandidate{Candidate: json.RawMessage(`null`), TargetID: a.ID})
	m := only(t, a, protocol.EventICECandidate)
	assert.JSONEq(t, `{"candidate":null,"senderId":"`+b.ID+`"}`, string(m.Payload))
	assert.Empty(t, drain(c))
}

func TestHub_RelayUnknownTargetIsDropped(t *testing.T) {
	h, _ := newTestHub(t, Options{})
	a, b := connect(t, h), connect(t, h)
	join(t, h, a, "focus", "Alice")
	join(t, h, b, "focus", "Bob")
	drain(a)
	drain(b)

	emit(t, h, a, protocol.EventOffer, protocol.Offer{Offer: json.RawMessage(`{}`), TargetID: "gone"})
	assert.Empty(t, drain(a), "sender is not told about unknown targets")
	assert.Empty(t, drain(b))

	emit(t, h, a, protocol.EventOffer, protocol.Offer{Offer: json.RawMessage(`{}`)})
	only(t, a, protocol.EventError)
}

func TestHub_TimerSync(t *testing.T) {
	h, _ := newTestHub(t, Options{})
	a, b, c := connect(t, h), connect(t, h), connect(t, h)
	join(t, h, a, "focus", "Alice")
	join(t, h, b, "focus", "Bob")
	drain(a)
	drain(b)

	timer := protocol.Timer{TimeLeft: 1499, TotalTime: 1500, IsRunning: true, Status: "Focus time!"}
	emit(t, h, a, protocol.EventTimerUpdate, protocol.TimerUpdate{RoomID: "focus", TimerState: &timer})

	assert.Empty(t, drain(a), "sender never receives its own timer-sync")
	assert.Equal(t, timer, decode[protocol.Timer](t, only(t, b, protocol.EventTimerSync)))

	join(t, h, c, "focus", "Carol")
	msgs := drain(c)
	require.NotEmpty(t, msgs)
	state := decode[protocol.RoomState](t, msgs[0])
	require.NotNil(t, state.Timer)
	assert.Equal(t, timer, *state.Timer)
}

func TestHub_TimerUpdateRejectsMissingState(t *testing.T) {
	h, _ := newTestHub(t, Options{})
	a := connect(t, h)
	join(t, h, a, "focus", "Alice")
	drain(a)

	emit(t, h, a, protocol.EventTimerUpdate, protocol.TimerUpdate{RoomID: "focus"})
	only(t, a, protocol.EventError)
}

func TestHub_TaskSync(t *testing.T) {
	h, _ := newTestHub(t, Options{})
	a, b, c := connect(t, h), connect(t, h), connect(t, h)
	join(t, h, a, "focus", "Alice")
	join(t, h, b, "focus", "Bob")
	drain(a)
	drain(b)

	tasks := []protocol.Task{{ID: 1700000000000, Text: "write report"}, {ID: 1700000000001, Text: "review", Completed: true}}
	emit(t, h, b, protocol.EventTaskUpdate, protocol.TaskUpdate{Tasks: tasks})

	assert.Empty(t, drain(b))
	sync := decode[protocol.TaskSync](t, only(t, a, protocol.EventTaskSync))
	assert.Equal(t, protocol.TaskSync{UserID: b.ID, Tasks: tasks}, sync)

	join(t, h, c, "focus", "Carol")
	state := decode[protocol.RoomState](t, drain(c)[0])
	assert.Equal(t, tasks, state.Tasks[b.ID])
	assert.Equal(t, []protocol.Task{}, state.Tasks[a.ID])
}

func TestHub_UpdatesOutsideRoomAreDropped(t *testing.T) {
	h, store := newTestHub(t, Options{})
	a := connect(t, h)

	emit(t, h, a, protocol.EventTaskUpdate, protocol.TaskUpdate{Tasks: []protocol.Task{{ID: 1, Text: "x"}}})
	emit(t, h, a, protocol.EventTimerUpdate, protocol.TimerUpdate{TimerState: &protocol.Timer{TimeLeft: 3}})

	assert.Empty(t, drain(a))
	assert.Equal(t, 0, store.Len())
}

func TestHub_DisconnectNotifiesRoom(t *testing.T) {
	h, store := newTestHub(t, Options{})
	a, b, c := connect(t, h), connect(t, h), connect(t, h)
	join(t, h, a, "focus", "Alice")
	join(t, h, b, "focus", "Bob")
	join(t, h, c, "focus", "Carol")
	drain(a)
	drain(b)
	drain(c)

	h.Unregister(b)
	assert.Equal(t, b.ID, decode[string](t, only(t, a, protocol.EventUserLeft)))
	assert.Equal(t, b.ID, decode[string](t, only(t, c, protocol.EventUserLeft)))

	h.Unregister(b)
	assert.Empty(t, drain(a), "second unregister must not broadcast again")
	assert.Empty(t, drain(c))

	_, ok := h.Registry().Lookup(b.ID)
	assert.False(t, ok)
	assert.Equal(t, 2, h.Registry().Len())
	assert.Equal(t, 1, store.Len())
}

func TestHub_LastLeaveResetsRoom(t *testing.T) {
	h, store := newTestHub(t, Options{})
	a := connect(t, h)
	join(t, h, a, "focus", "Alice")
	emit(t, h, a, protocol.EventTimerUpdate, protocol.TimerUpdate{TimerState: &protocol.Timer{TimeLeft: 42, TotalTime: 1500}})
	emit(t, h, a, protocol.EventTaskUpdate, protocol.TaskUpdate{Tasks: []protocol.Task{{ID: 1, Text: "x"}}})
	drain(a)

	h.Unregister(a)
	assert.Equal(t, 0, store.Len())

	b := connect(t, h)
	join(t, h, b, "focus", "Bob")
	state := decode[protocol.RoomState](t, only(t, b, protocol.EventRoomState))
	assert.Nil(t, state.Timer)
	assert.Empty(t, state.OtherMembers)
	assert.Equal(t, map[string][]protocol.Task{b.ID: {}}, state.Tasks)
}

func TestHub_SwitchingRoomsLeavesPrevious(t *testing.T) {
	h, store := newTestHub(t, Options{})
	a, b := connect(t, h), connect(t, h)
	join(t, h, a, "one", "Alice")
	join(t, h, b, "one", "Bob")
	drain(a)
	drain(b)

	join(t, h, a, "two", "Alice")

	assert.Equal(t, a.ID, decode[string](t, only(t, b, protocol.EventUserLeft)))
	assert.Equal(t, []string{"one", "two"}, store.RoomIDs())
	assert.Equal(t, "two", h.Registry().Room(a.ID))
}

func TestHub_FullQueueDropsWithoutBlocking(t *testing.T) {
	h, _ := newTestHub(t, Options{QueueSize: 1})
	a, b := connect(t, h), connect(t, h)
	join(t, h, a, "focus", "Alice")
	join(t, h, b, "focus", "Bob")

	// a's queue already holds room-state; user-joined is dropped for a only.
	msgs := drain(a)
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.EventRoomState, msgs[0].Type)

	// b's queue holds room-state; existing-users was dropped.
	msgs = drain(b)
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.EventRoomState, msgs[0].Type)
}

func TestHub_StatsAndClose(t *testing.T) {
	h, _ := newTestHub(t, Options{})
	a, b := connect(t, h), connect(t, h)
	join(t, h, a, "one", "Alice")
	join(t, h, b, "two", "Bob")

	assert.Equal(t, Stats{Rooms: 2, Connections: 2}, h.Stats())

	h.Close()
	select {
	case <-a.done:
	default:
		t.Fatal("client a not closed")
	}
	assert.False(t, b.deliver(&protocol.Message{Type: "x"}))
}
