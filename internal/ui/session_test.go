package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManasDasri/PomStud/internal/peer"
	"github.com/ManasDasri/PomStud/internal/pomodoro"
	"github.com/ManasDasri/PomStud/internal/protocol"
)

type fakePublisher struct {
	timers []protocol.Timer
	tasks  [][]protocol.Task
}

func (f *fakePublisher) SendTimer(_ string, t protocol.Timer) error {
	f.timers = append(f.timers, t)
	return nil
}

func (f *fakePublisher) SendTasks(_ string, tasks []protocol.Task) error {
	f.tasks = append(f.tasks, tasks)
	return nil
}

type fakeMesh struct {
	removed []string
	nudges  []string
	events  chan peer.Event
}

func (f *fakeMesh) Events() <-chan peer.Event { return f.events }
func (f *fakeMesh) Remove(id string)          { f.removed = append(f.removed, id) }
func (f *fakeMesh) Nudge(text string) int {
	f.nudges = append(f.nudges, text)
	return 1
}

func newTestSession(t *testing.T, mesh Mesh) (*Session, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	s := NewSession(SessionConfig{
		RoomID:    "focus",
		Name:      "Alice",
		Focus:     25 * time.Minute,
		Break:     5 * time.Minute,
		Publisher: pub,
		Mesh:      mesh,
	})
	s.Update(roomStateMsg(&protocol.RoomState{
		SelfID:       "me",
		OtherMembers: []protocol.Member{{ID: "b", Name: "Bob"}},
		Tasks: map[string][]protocol.Task{
			"me": {},
			"b":  {{ID: 1, Text: "essay"}},
		},
	}))
	return s, pub
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(s *Session, text string) {
	for _, r := range text {
		s.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestSession_RoomState(t *testing.T) {
	s, _ := newTestSession(t, nil)

	assert.True(t, s.joined)
	assert.Equal(t, []protocol.Member{{ID: "b", Name: "Bob"}}, s.members)
	assert.Equal(t, []protocol.Task{{ID: 1, Text: "essay"}}, s.memberTasks["b"])
	_, hasSelf := s.memberTasks["me"]
	assert.False(t, hasSelf)
	assert.Contains(t, s.View(), "Bob")
}

func TestSession_TimerKeysPublish(t *testing.T) {
	s, pub := newTestSession(t, nil)

	s.Update(key("space"))
	require.Len(t, pub.timers, 1)
	assert.True(t, pub.timers[0].IsRunning)

	s.Update(tickMsg(time.Now()))
	assert.Equal(t, 1499, s.timer.Snapshot().TimeLeft)

	s.Update(key("r"))
	require.Len(t, pub.timers, 2)
	assert.Equal(t, protocol.Timer{TimeLeft: 1500, TotalTime: 1500, Status: pomodoro.StatusReady}, pub.timers[1])
}

func TestSession_TaskEditing(t *testing.T) {
	s, pub := newTestSession(t, nil)

	s.Update(key("a"))
	require.True(t, s.adding)
	typeText(s, "read chapter 3")
	s.Update(key("enter"))

	require.False(t, s.adding)
	require.Len(t, pub.tasks, 1)
	require.Len(t, pub.tasks[0], 1)
	assert.Equal(t, "read chapter 3", pub.tasks[0][0].Text)

	s.Update(key("x"))
	require.Len(t, pub.tasks, 2)
	assert.True(t, pub.tasks[1][0].Completed)

	s.Update(key("d"))
	require.Len(t, pub.tasks, 3)
	assert.Empty(t, pub.tasks[2])

	// Blank input adds nothing.
	s.Update(key("a"))
	s.Update(key("enter"))
	assert.Len(t, pub.tasks, 3)

	// Esc cancels without publishing.
	s.Update(key("a"))
	typeText(s, "draft")
	s.Update(key("esc"))
	assert.Len(t, pub.tasks, 3)
	assert.Equal(t, 0, s.tasks.Len())
}

func TestSession_RemoteUpdates(t *testing.T) {
	mesh := &fakeMesh{events: make(chan peer.Event, 1)}
	s, _ := newTestSession(t, mesh)

	remote := protocol.Timer{TimeLeft: 200, TotalTime: 300, IsRunning: true, IsBreak: true, Status: pomodoro.StatusBreak}
	s.Update(timerSyncMsg(remote))
	assert.Equal(t, remote, s.timer.Snapshot())

	s.Update(userJoinedMsg{UserID: "c", UserName: "Carol"})
	s.Update(taskSyncMsg{UserID: "c", Tasks: []protocol.Task{{ID: 9, Text: "slides"}}})
	assert.Len(t, s.members, 2)
	assert.Equal(t, "slides", s.memberTasks["c"][0].Text)

	s.Update(peerEventMsg{PeerID: "c", State: "connected"})
	assert.Equal(t, "connected", s.peerStates["c"])

	s.Update(userLeftMsg("b"))
	assert.Equal(t, []protocol.Member{{ID: "c", Name: "Carol"}}, s.members)
	assert.Equal(t, []string{"b"}, mesh.removed)

	s.Update(key("n"))
	assert.Len(t, mesh.nudges, 1)
}

func TestSession_Disconnect(t *testing.T) {
	s, _ := newTestSession(t, nil)

	_, cmd := s.Update(disconnectedMsg{})
	require.NotNil(t, cmd)
	assert.Error(t, s.Err())
	assert.Empty(t, s.View())
}

func TestMembersView(t *testing.T) {
	assert.Contains(t, MembersView(nil), "Nobody else")

	out := MembersView([]MemberRow{{Name: "Bob", Peer: "connected", Tasks: []protocol.Task{
		{ID: 1, Text: "done", Completed: true},
		{ID: 2, Text: "essay"},
	}}})
	assert.Contains(t, out, "Bob")
	assert.Contains(t, out, "1/2")
	assert.Contains(t, out, "essay")
}

func TestStatsView(t *testing.T) {
	out := StatsView(Stats{Server: "http://localhost:8080/stats", Rooms: 3, Connections: 7})
	assert.Contains(t, out, "Rooms")
	assert.Contains(t, out, "3")
	assert.Contains(t, out, "7")
}
