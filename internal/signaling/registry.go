package signaling

import (
	"sync"

	"github.com/google/uuid"
)

// Registry maps live connection ids to their client, display name and room.
// It is the only owner of connection identity; everything else refers to a
// connection by id.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	client *Client
	name   string
	room   string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register assigns c a fresh id and records it. Ids are random UUIDs and are
// never handed out twice while the process runs.
func (r *Registry) Register(c *Client) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	for r.entries[id] != nil {
		id = uuid.NewString()
	}
	c.ID = id
	r.entries[id] = &entry{client: c}
	return id
}

// Unregister removes id. It reports false if id was not registered, which
// makes repeated calls harmless.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries[id] == nil {
		return false
	}
	delete(r.entries, id)
	return true
}

// Lookup returns the client registered under id.
func (r *Registry) Lookup(id string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e := r.entries[id]
	if e == nil {
		return nil, false
	}
	return e.client, true
}

// SetName records the display name of id.
func (r *Registry) SetName(id, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[id]
	if e == nil {
		return false
	}
	e.name = name
	return true
}

// Name returns the display name of id.
func (r *Registry) Name(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e := r.entries[id]
	if e == nil {
		return "", false
	}
	return e.name, true
}

// SetRoom records the room id is currently in. An empty room clears it.
func (r *Registry) SetRoom(id, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[id]
	if e == nil {
		return false
	}
	e.room = room
	return true
}

// Room returns the room id is in, or "" if it has not joined one.
func (r *Registry) Room(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e := r.entries[id]; e != nil {
		return e.room
	}
	return ""
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Clients returns every registered client.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.client)
	}
	return out
}
