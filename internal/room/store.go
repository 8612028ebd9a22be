package room

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/ManasDasri/PomStud/internal/protocol"
)

// Store maps room ids to rooms. Every room is owned by its own actor
// goroutine; operations on one room run one at a time in arrival order, while
// different rooms proceed in parallel. The store mutex only guards the index.
//
// A room exists in the index while it has members or while an operation is
// queued for it. Once the last member is gone and nothing is queued, the actor
// removes the room and exits; the next join creates a fresh one.
type Store struct {
	log *slog.Logger

	mu     sync.Mutex
	rooms  map[string]*actor
	closed bool
	wg     sync.WaitGroup
}

type actor struct {
	room    *Room
	inbox   chan job
	quit    chan struct{}
	pending int // guarded by Store.mu
}

type job struct {
	fn   func(*Room)
	done chan struct{}
}

// Departure records one room a leaving connection was removed from.
type Departure struct {
	RoomID    string
	Remaining int
}

// NewStore returns an empty store.
func NewStore(log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{log: log, rooms: make(map[string]*actor)}
}

// Do runs fn inside the serialization point of roomID and waits for it to
// finish. If the room does not exist it is created when create is true;
// otherwise Do returns false without calling fn. Do also returns false once
// the store is closed.
//
// fn must not call back into the store.
func (s *Store) Do(roomID string, create bool, fn func(*Room)) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	a := s.rooms[roomID]
	if a == nil {
		if !create {
			s.mu.Unlock()
			return false
		}
		a = &actor{
			room:  newRoom(roomID),
			inbox: make(chan job, 16),
			quit:  make(chan struct{}),
		}
		s.rooms[roomID] = a
		s.wg.Add(1)
		go s.run(roomID, a)
		s.log.Debug("room created", "room", roomID)
	}
	a.pending++
	s.mu.Unlock()

	done := make(chan struct{})
	a.inbox <- job{fn: fn, done: done}
	<-done
	return true
}

func (s *Store) run(roomID string, a *actor) {
	defer s.wg.Done()

	for {
		select {
		case j := <-a.inbox:
			j.fn(a.room)

			// The index is updated before the caller is released, so an
			// emptied room is never listed once its last Leave returns.
			s.mu.Lock()
			a.pending--
			if a.pending == 0 && a.room.Len() == 0 {
				if s.rooms[roomID] == a {
					delete(s.rooms, roomID)
				}
				s.mu.Unlock()
				close(j.done)
				s.log.Info("room deleted", "room", roomID)
				return
			}
			s.mu.Unlock()
			close(j.done)

		case <-a.quit:
			// Closed stores accept no new jobs; finish what was queued.
			s.mu.Lock()
			n := a.pending
			s.mu.Unlock()
			for i := 0; i < n; i++ {
				j := <-a.inbox
				j.fn(a.room)
				close(j.done)
			}
			return
		}
	}
}

// Join adds connection id to roomID, creating the room if needed.
func (s *Store) Join(roomID, id, name string) Snapshot {
	var snap Snapshot
	s.Do(roomID, true, func(r *Room) { snap = r.Join(id, name) })
	return snap
}

// Leave removes id from every room it belongs to. A connection is normally in
// one room at most, but every room is checked.
func (s *Store) Leave(id string) []Departure {
	var out []Departure
	for _, roomID := range s.RoomIDs() {
		s.Do(roomID, false, func(r *Room) {
			if ok, remaining := r.Leave(id); ok {
				out = append(out, Departure{RoomID: roomID, Remaining: remaining})
			}
		})
	}
	return out
}

// SetTimer replaces the cached timer of roomID. It reports false when the
// room is gone.
func (s *Store) SetTimer(roomID string, t protocol.Timer) bool {
	applied := false
	s.Do(roomID, false, func(r *Room) { applied = r.SetTimer(t) })
	if !applied {
		s.log.Debug("timer dropped, room gone", "room", roomID)
	}
	return applied
}

// SetTasks replaces the task list of id in roomID. It reports false when the
// room is gone or id is not a member.
func (s *Store) SetTasks(roomID, id string, tasks []protocol.Task) bool {
	applied := false
	s.Do(roomID, false, func(r *Room) { applied = r.SetTasks(id, tasks) })
	if !applied {
		s.log.Debug("tasks dropped, room gone", "room", roomID, "conn", id)
	}
	return applied
}

// Len returns the number of live rooms.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// RoomIDs returns the ids of live rooms in sorted order.
func (s *Store) RoomIDs() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	sort.Strings(ids)
	return ids
}

// Close stops every room actor after its queued jobs have run. Later calls to
// Do return false.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, a := range s.rooms {
		close(a.quit)
	}
	s.rooms = make(map[string]*actor)
	s.mu.Unlock()

	s.wg.Wait()
}
