// Package pomodoro holds the local timer and task list of a room session.
// Neither type is safe for concurrent use; the UI owns them.
package pomodoro

import (
	"fmt"
	"time"

	"github.com/ManasDasri/PomStud/internal/protocol"
)

// Status texts shown under the timer.
const (
	StatusReady = "Ready to focus"
	StatusBreak = "Break time!"
	StatusFocus = "Focus time!"
)

// Timer is a focus/break countdown with one-second resolution.
type Timer struct {
	focus int
	brk   int

	timeLeft  int
	totalTime int
	running   bool
	isBreak   bool
	status    string
}

// NewTimer returns a paused timer at the start of a focus phase.
func NewTimer(focus, brk time.Duration) *Timer {
	t := &Timer{focus: seconds(focus), brk: seconds(brk)}
	t.Reset()
	return t
}

func seconds(d time.Duration) int {
	s := int(d / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}

// Toggle starts a paused timer or pauses a running one.
func (t *Timer) Toggle() {
	t.running = !t.running
}

// Running reports whether the countdown is active.
func (t *Timer) Running() bool { return t.running }

// IsBreak reports whether the timer is in a break phase.
func (t *Timer) IsBreak() bool { return t.isBreak }

// Status returns the status line.
func (t *Timer) Status() string { return t.status }

// Reset pauses the timer and rewinds it to a fresh focus phase.
func (t *Timer) Reset() {
	t.running = false
	t.isBreak = false
	t.timeLeft = t.focus
	t.totalTime = t.focus
	t.status = StatusReady
}

// Tick advances a running timer by one second. When the phase runs out the
// timer flips between focus and break and keeps running; Tick then reports
// true.
func (t *Timer) Tick() bool {
	if !t.running {
		return false
	}
	t.timeLeft--
	if t.timeLeft > 0 {
		return false
	}

	t.isBreak = !t.isBreak
	if t.isBreak {
		t.timeLeft, t.totalTime, t.status = t.brk, t.brk, StatusBreak
	} else {
		t.timeLeft, t.totalTime, t.status = t.focus, t.focus, StatusFocus
	}
	return true
}

// Apply replaces the local state with a snapshot from another member.
func (t *Timer) Apply(s protocol.Timer) {
	t.timeLeft = s.TimeLeft
	t.totalTime = s.TotalTime
	t.running = s.IsRunning
	t.isBreak = s.IsBreak
	t.status = s.Status
}

// Snapshot returns the state to publish to the room.
func (t *Timer) Snapshot() protocol.Timer {
	return protocol.Timer{
		TimeLeft:  t.timeLeft,
		TotalTime: t.totalTime,
		IsRunning: t.running,
		IsBreak:   t.isBreak,
		Status:    t.status,
	}
}

// Progress returns the elapsed share of the current phase in [0, 1].
func (t *Timer) Progress() float64 {
	if t.totalTime <= 0 {
		return 0
	}
	p := float64(t.totalTime-t.timeLeft) / float64(t.totalTime)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// Display formats the remaining time as MM:SS.
func (t *Timer) Display() string {
	left := max(t.timeLeft, 0)
	return fmt.Sprintf("%02d:%02d", left/60, left%60)
}
