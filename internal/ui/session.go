package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ManasDasri/PomStud/internal/client"
	"github.com/ManasDasri/PomStud/internal/peer"
	"github.com/ManasDasri/PomStud/internal/pomodoro"
	"github.com/ManasDasri/PomStud/internal/protocol"
)

// Publisher sends local changes to the room.
type Publisher interface {
	SendTimer(roomID string, t protocol.Timer) error
	SendTasks(roomID string, tasks []protocol.Task) error
}

// Mesh is the part of the peer mesh the session drives.
type Mesh interface {
	Events() <-chan peer.Event
	Remove(id string)
	Nudge(text string) int
}

// SessionConfig configures a room session.
type SessionConfig struct {
	RoomID string
	Name   string
	Focus  time.Duration
	Break  time.Duration

	Publisher Publisher
	Handler   *client.Handler

	// Mesh is nil when peer connections are disabled.
	Mesh Mesh
}

type (
	tickMsg         time.Time
	roomStateMsg    *protocol.RoomState
	userJoinedMsg   protocol.UserJoined
	userLeftMsg     string
	timerSyncMsg    protocol.Timer
	taskSyncMsg     protocol.TaskSync
	relayErrorMsg   string
	disconnectedMsg struct{}
	peerEventMsg    peer.Event
)

// Session is the bubbletea model of one room.
type Session struct {
	cfg SessionConfig

	timer *pomodoro.Timer
	tasks *pomodoro.Tasks

	selfID      string
	joined      bool
	members     []protocol.Member
	memberTasks map[string][]protocol.Task
	peerStates  map[string]string

	cursor int
	adding bool
	input  textinput.Model
	bar    progress.Model
	spin   spinner.Model

	flash    string
	flashErr bool
	err      error
	quitting bool
}

// NewSession builds the model for cfg.
func NewSession(cfg SessionConfig) *Session {
	in := textinput.New()
	in.Placeholder = "What are you working on?"
	in.CharLimit = protocol.MaxTaskTextLength
	in.Width = 50

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &Session{
		cfg:         cfg,
		timer:       pomodoro.NewTimer(cfg.Focus, cfg.Break),
		tasks:       pomodoro.NewTasks(),
		memberTasks: make(map[string][]protocol.Task),
		peerStates:  make(map[string]string),
		input:       in,
		bar: progress.New(
			progress.WithGradient(FocusStart, FocusEnd),
			progress.WithWidth(40),
		),
		spin: s,
	}
}

// Err returns the error that ended the session, if any.
func (m *Session) Err() error { return m.err }

func (m *Session) Init() tea.Cmd {
	cmds := []tea.Cmd{tick(), m.spin.Tick, m.waitForRelay()}
	if m.cfg.Mesh != nil {
		cmds = append(cmds, m.waitForPeer())
	}
	return tea.Batch(cmds...)
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// waitForRelay turns the next relay event into a tea.Msg.
func (m *Session) waitForRelay() tea.Cmd {
	h := m.cfg.Handler
	if h == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case s := <-h.RoomState:
			return roomStateMsg(s)
		case j := <-h.UserJoined:
			return userJoinedMsg(j)
		case id := <-h.UserLeft:
			return userLeftMsg(id)
		case t := <-h.TimerSync:
			return timerSyncMsg(t)
		case s := <-h.TaskSync:
			return taskSyncMsg(s)
		case e := <-h.Error:
			return relayErrorMsg(e)
		case <-h.Done():
			return disconnectedMsg{}
		}
	}
}

func (m *Session) waitForPeer() tea.Cmd {
	events := m.cfg.Mesh.Events()
	return func() tea.Msg { return peerEventMsg(<-events) }
}

func (m *Session) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.adding {
			return m, m.updateInput(msg)
		}
		return m, m.handleKey(msg)

	case tickMsg:
		m.timer.Tick()
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case roomStateMsg:
		m.applyRoomState(msg)
		return m, m.waitForRelay()

	case userJoinedMsg:
		m.addMember(protocol.Member{ID: msg.UserID, Name: msg.UserName})
		m.setFlash(fmt.Sprintf("%s joined", msg.UserName), false)
		return m, m.waitForRelay()

	case userLeftMsg:
		m.removeMember(string(msg))
		return m, m.waitForRelay()

	case timerSyncMsg:
		m.timer.Apply(protocol.Timer(msg))
		m.updateBarStyle()
		return m, m.waitForRelay()

	case taskSyncMsg:
		m.memberTasks[msg.UserID] = msg.Tasks
		return m, m.waitForRelay()

	case relayErrorMsg:
		m.setFlash(string(msg), true)
		return m, m.waitForRelay()

	case disconnectedMsg:
		m.err = client.NewError("session", client.ErrClosed)
		m.quitting = true
		return m, tea.Quit

	case peerEventMsg:
		m.applyPeerEvent(peer.Event(msg))
		return m, m.waitForPeer()
	}
	return m, nil
}

func (m *Session) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return tea.Quit

	case " ", "space":
		m.timer.Toggle()
		m.publishTimer()

	case "r":
		m.timer.Reset()
		m.updateBarStyle()
		m.publishTimer()

	case "a":
		if m.tasks.Full() {
			m.setFlash("Task list is full", true)
			return nil
		}
		m.adding = true
		m.input.SetValue("")
		return m.input.Focus()

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < m.tasks.Len()-1 {
			m.cursor++
		}

	case "enter", "x":
		if m.tasks.Len() > 0 && m.tasks.Toggle(m.tasks.At(m.cursor).ID) {
			m.publishTasks()
		}

	case "d":
		if m.tasks.Len() > 0 && m.tasks.Delete(m.tasks.At(m.cursor).ID) {
			if m.cursor >= m.tasks.Len() && m.cursor > 0 {
				m.cursor--
			}
			m.publishTasks()
		}

	case "n":
		if m.cfg.Mesh == nil {
			m.setFlash("Peer connections are disabled", true)
			return nil
		}
		n := m.cfg.Mesh.Nudge(fmt.Sprintf("%s says keep going!", m.cfg.Name))
		m.setFlash(fmt.Sprintf("Nudged %d peer(s)", n), false)
	}
	return nil
}

func (m *Session) updateInput(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.adding = false
		m.input.Blur()
		return nil

	case tea.KeyEnter:
		m.adding = false
		m.input.Blur()
		if _, ok := m.tasks.Add(m.input.Value()); ok {
			m.cursor = m.tasks.Len() - 1
			m.publishTasks()
		}
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Session) publishTimer() {
	if m.cfg.Publisher == nil || !m.joined {
		return
	}
	if err := m.cfg.Publisher.SendTimer(m.cfg.RoomID, m.timer.Snapshot()); err != nil {
		m.setFlash(err.Error(), true)
	}
}

func (m *Session) publishTasks() {
	if m.cfg.Publisher == nil || !m.joined {
		return
	}
	if err := m.cfg.Publisher.SendTasks(m.cfg.RoomID, m.tasks.List()); err != nil {
		m.setFlash(err.Error(), true)
	}
}

func (m *Session) applyRoomState(s *protocol.RoomState) {
	m.joined = true
	m.selfID = s.SelfID
	m.members = nil
	m.memberTasks = make(map[string][]protocol.Task)
	for _, member := range s.OtherMembers {
		m.addMember(member)
	}
	for id, tasks := range s.Tasks {
		if id != s.SelfID {
			m.memberTasks[id] = tasks
		}
	}
	if s.Timer != nil {
		m.timer.Apply(*s.Timer)
		m.updateBarStyle()
	}
	if m.tasks.Len() > 0 {
		m.publishTasks()
	}
}

func (m *Session) addMember(member protocol.Member) {
	if member.ID == m.selfID {
		return
	}
	for i, existing := range m.members {
		if existing.ID == member.ID {
			m.members = append(m.members[:i], m.members[i+1:]...)
			break
		}
	}
	m.members = append(m.members, member)
	if _, ok := m.memberTasks[member.ID]; !ok {
		m.memberTasks[member.ID] = []protocol.Task{}
	}
}

func (m *Session) removeMember(id string) {
	for i, member := range m.members {
		if member.ID == id {
			m.members = append(m.members[:i], m.members[i+1:]...)
			break
		}
	}
	delete(m.memberTasks, id)
	delete(m.peerStates, id)
	if m.cfg.Mesh != nil {
		m.cfg.Mesh.Remove(id)
	}
}

func (m *Session) applyPeerEvent(e peer.Event) {
	if e.PeerID == "" {
		return
	}
	if e.State != "" {
		m.peerStates[e.PeerID] = e.State
	}
	if e.Hello != nil {
		m.setFlash(fmt.Sprintf("Connected directly to %s", e.Hello.Name), false)
	}
	if e.Nudge != nil {
		m.setFlash(IconNudge+" "+e.Nudge.Text, false)
	}
}

func (m *Session) setFlash(text string, isErr bool) {
	m.flash, m.flashErr = text, isErr
}

func (m *Session) updateBarStyle() {
	if m.timer.IsBreak() {
		m.bar = progress.New(progress.WithGradient(BreakStart, BreakEnd), progress.WithWidth(40))
	} else {
		m.bar = progress.New(progress.WithGradient(FocusStart, FocusEnd), progress.WithWidth(40))
	}
}

func (m *Session) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s PomStud  %s %s  %s %s",
		IconTomato, IconRoom, m.cfg.RoomID, IconPeer, m.cfg.Name)))
	b.WriteString("\n")

	if !m.joined {
		b.WriteString(m.spin.View() + " Joining room...\n")
		return b.String()
	}

	b.WriteString(m.timerView())
	b.WriteString("\n\n")
	b.WriteString(m.tasksView())
	b.WriteString("\n")
	b.WriteString(TitleStyle.Render(fmt.Sprintf("In the room (%d)", len(m.members))))
	b.WriteString("\n")
	b.WriteString(MembersView(m.memberRows()))
	b.WriteString("\n")

	if m.flash != "" {
		style := MutedStyle
		if m.flashErr {
			style = ErrorStyle
		}
		b.WriteString(style.Render(m.flash))
		b.WriteString("\n")
	}

	b.WriteString(FooterStyle.Render("space start/pause • r reset • a add • ↑/↓ select • enter/x toggle • d delete • n nudge • q quit"))
	return b.String()
}

func (m *Session) timerView() string {
	icon, box := IconTomato, TimerBoxStyle
	if m.timer.IsBreak() {
		icon, box = IconBreak, BreakBoxStyle
	}

	state := "paused"
	if m.timer.Running() {
		state = "running"
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		ClockStyle.Render(icon+"  "+m.timer.Display()),
		SubtitleStyle.Render(m.timer.Status()),
		m.bar.ViewAs(m.timer.Progress()),
		MutedStyle.Render(state),
	)
	return box.Render(content)
}

func (m *Session) tasksView() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("My tasks (%d pending)", m.tasks.Pending())))
	b.WriteString("\n")

	if m.tasks.Len() == 0 && !m.adding {
		b.WriteString(MutedStyle.Render("No tasks yet. Press a to add one!"))
		b.WriteString("\n")
	}
	for i, t := range m.tasks.List() {
		check := "[ ]"
		text := t.Text
		if t.Completed {
			check = "[x]"
			text = DoneStyle.Render(text)
		}
		line := fmt.Sprintf("  %s %s", check, text)
		if i == m.cursor {
			line = SelectedStyle.Render("> ") + strings.TrimPrefix(line, "  ")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.adding {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	return PanelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m *Session) memberRows() []MemberRow {
	rows := make([]MemberRow, 0, len(m.members))
	for _, member := range m.members {
		state := "-"
		if m.cfg.Mesh != nil {
			state = "waiting"
			if s, ok := m.peerStates[member.ID]; ok {
				state = s
			}
		}
		rows = append(rows, MemberRow{
			Name:  member.Name,
			Peer:  state,
			Tasks: m.memberTasks[member.ID],
		})
	}
	return rows
}

// RunSession runs the interactive room UI until the user quits or the relay
// connection ends.
func RunSession(cfg SessionConfig) error {
	model := NewSession(cfg)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	return model.Err()
}
