/*
Package chat contains the core logic for handling real-time chat rooms, user connections, and message broadcasting.

This file defines the Room struct, an immutable snapshot of a single room: its name, its members
in join order and the member currently acting as host. Every membership change produces a new
snapshot, so a *Room handed to a reader never changes underneath it.
*/
package chat

import (
	"encoding/json"

	"roomchat/internal/app/user"
)

// Room is a read-only view of a chat room at one instant.
type Room struct {
	// unique, case-sensitive room name.
	name string

	// socket id of the member acting as host. Always present in users.
	hostID string

	// members in join order. Never empty for a room held by the Registry.
	users []user.User

	// creation order of the room, used to keep List stable.
	seq uint64
}

func newRoom(name string, host user.User, seq uint64) *Room {
	return &Room{
		name:   name,
		hostID: host.SocketID,
		users:  []user.User{host},
		seq:    seq,
	}
}

// Name returns the room name.
func (r *Room) Name() string {
	return r.name
}

// Host returns the current host member.
func (r *Room) Host() user.User {
	for _, u := range r.users {
		if u.SocketID == r.hostID {
			return u
		}
	}
	return user.User{}
}

// Users returns a copy of the members in join order.
func (r *Room) Users() []user.User {
	out := make([]user.User, len(r.users))
	copy(out, r.users)
	return out
}

// Len returns the number of members.
func (r *Room) Len() int {
	return len(r.users)
}

// Has reports whether the socket is a member of the room.
func (r *Room) Has(socketID string) bool {
	return r.indexOf(socketID) >= 0
}

func (r *Room) indexOf(socketID string) int {
	for i, u := range r.users {
		if u.SocketID == socketID {
			return i
		}
	}
	return -1
}

// withMember returns a copy of the room with u appended.
func (r *Room) withMember(u user.User) *Room {
	users := make([]user.User, len(r.users), len(r.users)+1)
	copy(users, r.users)

	return &Room{
		name:   r.name,
		hostID: r.hostID,
		users:  append(users, u),
		seq:    r.seq,
	}
}

// withoutMember returns a copy of the room without socketID together with the
// removed member. When the host leaves, the earliest-joined remaining member
// becomes host. The returned room has no members if socketID was the last one.
func (r *Room) withoutMember(socketID string) (*Room, user.User, bool) {
	idx := r.indexOf(socketID)
	if idx < 0 {
		return r, user.User{}, false
	}

	removed := r.users[idx]

	users := make([]user.User, 0, len(r.users)-1)
	users = append(users, r.users[:idx]...)
	users = append(users, r.users[idx+1:]...)

	hostID := r.hostID
	if hostID == socketID {
		hostID = ""
		if len(users) > 0 {
			hostID = users[0].SocketID
		}
	}

	return &Room{
		name:   r.name,
		hostID: hostID,
		users:  users,
		seq:    r.seq,
	}, removed, true
}

// roomJSON is the wire form of a room snapshot.
type roomJSON struct {
	Name  string      `json:"name"`
	Host  user.User   `json:"host"`
	Users []user.User `json:"users"`
}

// MarshalJSON renders the room as {name, host, users}.
func (r *Room) MarshalJSON() ([]byte, error) {
	return json.Marshal(roomJSON{
		Name:  r.name,
		Host:  r.Host(),
		Users: r.users,
	})
}
