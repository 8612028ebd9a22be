package room

import "github.com/ManasDasri/PomStud/internal/protocol"

// Room holds the state of one named room. It is only touched from the room's
// actor goroutine, so it carries no lock of its own.
type Room struct {
	id      string
	members []protocol.Member
	timer   *protocol.Timer
	tasks   map[string][]protocol.Task
}

// Snapshot is the point-in-time view handed to a joiner.
type Snapshot struct {
	Others []protocol.Member
	Timer  *protocol.Timer
	Tasks  map[string][]protocol.Task
}

func newRoom(id string) *Room {
	return &Room{id: id, tasks: make(map[string][]protocol.Task)}
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.id }

// Len returns the number of members.
func (r *Room) Len() int { return len(r.members) }

// Has reports whether connection id is a member.
func (r *Room) Has(id string) bool {
	return r.index(id) >= 0
}

// Others returns the members in join order, excluding id.
func (r *Room) Others(id string) []protocol.Member {
	out := make([]protocol.Member, 0, len(r.members))
	for _, m := range r.members {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

// Join adds or re-adds a member and returns the snapshot the joiner sees.
// A previous entry for the same id is dropped first, so a re-join moves the
// member to the end of the list without duplicating it.
func (r *Room) Join(id, name string) Snapshot {
	if i := r.index(id); i >= 0 {
		r.members = append(r.members[:i], r.members[i+1:]...)
	}
	r.members = append(r.members, protocol.Member{ID: id, Name: name})
	if _, ok := r.tasks[id]; !ok {
		r.tasks[id] = []protocol.Task{}
	}

	return Snapshot{
		Others: r.Others(id),
		Timer:  r.Timer(),
		Tasks:  r.Tasks(),
	}
}

// Leave removes id and its task list. It reports whether id was a member and
// how many members remain. When the last member leaves, the cached timer and
// tasks are cleared as well.
func (r *Room) Leave(id string) (bool, int) {
	i := r.index(id)
	if i < 0 {
		return false, len(r.members)
	}
	r.members = append(r.members[:i], r.members[i+1:]...)
	delete(r.tasks, id)

	if len(r.members) == 0 {
		r.timer = nil
		r.tasks = make(map[string][]protocol.Task)
	}
	return true, len(r.members)
}

// SetTimer replaces the cached timer. It is a no-op on an empty room.
func (r *Room) SetTimer(t protocol.Timer) bool {
	if len(r.members) == 0 {
		return false
	}
	r.timer = &t
	return true
}

// SetTasks replaces the task list of member id. It is a no-op when id is not
// a member.
func (r *Room) SetTasks(id string, tasks []protocol.Task) bool {
	if !r.Has(id) {
		return false
	}
	r.tasks[id] = append([]protocol.Task{}, tasks...)
	return true
}

// Timer returns a copy of the cached timer, or nil.
func (r *Room) Timer() *protocol.Timer {
	if r.timer == nil {
		return nil
	}
	t := *r.timer
	return &t
}

// Tasks returns a deep copy of the task map.
func (r *Room) Tasks() map[string][]protocol.Task {
	out := make(map[string][]protocol.Task, len(r.tasks))
	for id, list := range r.tasks {
		out[id] = append([]protocol.Task{}, list...)
	}
	return out
}

func (r *Room) index(id string) int {
	for i, m := range r.members {
		if m.ID == id {
			return i
		}
	}
	return -1
}
