package pomodoro

import (
	"strings"
	"time"

	"github.com/ManasDasri/PomStud/internal/protocol"
)

// Tasks is the local member's task list. Ids are creation times in
// milliseconds, bumped when two tasks land in the same millisecond.
type Tasks struct {
	items  []protocol.Task
	lastID int64
	now    func() time.Time
}

// NewTasks returns an empty list.
func NewTasks() *Tasks {
	return &Tasks{now: time.Now}
}

// Add appends a task with the trimmed text. Blank text is ignored.
func (l *Tasks) Add(text string) (protocol.Task, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return protocol.Task{}, false
	}
	if n := []rune(text); len(n) > protocol.MaxTaskTextLength {
		text = string(n[:protocol.MaxTaskTextLength])
	}

	id := l.now().UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id

	task := protocol.Task{ID: id, Text: text}
	l.items = append(l.items, task)
	return task, true
}

// Toggle flips the completed flag of task id.
func (l *Tasks) Toggle(id int64) bool {
	for i := range l.items {
		if l.items[i].ID == id {
			l.items[i].Completed = !l.items[i].Completed
			return true
		}
	}
	return false
}

// Delete removes task id.
func (l *Tasks) Delete(id int64) bool {
	for i := range l.items {
		if l.items[i].ID == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

// Pending counts tasks that are not completed.
func (l *Tasks) Pending() int {
	n := 0
	for _, t := range l.items {
		if !t.Completed {
			n++
		}
	}
	return n
}

// Len returns the number of tasks.
func (l *Tasks) Len() int { return len(l.items) }

// At returns the task at index i.
func (l *Tasks) At(i int) protocol.Task { return l.items[i] }

// List returns a copy of the tasks in order, never nil.
func (l *Tasks) List() []protocol.Task {
	return append([]protocol.Task{}, l.items...)
}

// Full reports whether the list reached the relay's task limit.
func (l *Tasks) Full() bool {
	return len(l.items) >= protocol.MaxTasks
}
