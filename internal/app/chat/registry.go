package chat

import (
	"sort"
	"sync"

	"roomchat/internal/app/user"
	"roomchat/internal/pkg/errs"
)

// Registry owns the set of live rooms keyed by name.
//
// It only guarantees that each individual call is atomic. Callers that read a
// room, derive a new snapshot and store it back must hold the room's lock from
// roomLocks for the whole sequence; the Manager does that.
type Registry struct {
	// mu protects rooms and seq.
	mu sync.RWMutex

	// rooms maps room name to its current snapshot.
	rooms map[string]*Room

	// seq is the creation counter handed to new rooms.
	seq uint64
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// CreateRoom adds a new room named name with host as its only member.
func (g *Registry) CreateRoom(name string, host user.User) (*Room, error) {
	if name == "" || !host.Valid() {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.rooms[name]; ok {
		return nil, errs.NewError(errs.ErrRoomExists)
	}

	g.seq++
	room := newRoom(name, host, g.seq)
	g.rooms[name] = room

	return room, nil
}

// RemoveRoom deletes the room named name.
func (g *Registry) RemoveRoom(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.rooms[name]; !ok {
		return errs.NewError(errs.ErrRoomNotFound)
	}

	delete(g.rooms, name)
	return nil
}

// Lookup returns the current snapshot of the room named name.
func (g *Registry) Lookup(name string) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	room, ok := g.rooms[name]
	if !ok {
		return nil, errs.NewError(errs.ErrRoomNotFound)
	}

	return room, nil
}

// List returns the snapshots of all rooms in creation order.
func (g *Registry) List() []*Room {
	g.mu.RLock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, room := range g.rooms {
		rooms = append(rooms, room)
	}
	g.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].seq < rooms[j].seq
	})

	return rooms
}

// Len returns the number of rooms.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.rooms)
}

// replace stores room as the current snapshot for its name.
func (g *Registry) replace(room *Room) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rooms[room.name] = room
}

// roomsWith returns the names of all rooms the socket is a member of.
func (g *Registry) roomsWith(socketID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var names []string
	for name, room := range g.rooms {
		if room.Has(socketID) {
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names
}

// reset drops every room.
func (g *Registry) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rooms = make(map[string]*Room)
}
