/*
Package chat contains the core logic for handling real-time chat rooms, user connections, and message broadcasting.

This file defines the Manager struct, the membership coordinator of the chat system. It is the only
component that mutates the Registry: joins, leaves and host reassignment for a given room name run
inside that room's exclusive section, so they are linearizable per room while distinct rooms proceed
in parallel.
*/
package chat

import (
	"github.com/rs/zerolog"

	"roomchat/internal/app/user"
	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/logx"
)

// JoinResult describes the outcome of a successful Join.
type JoinResult struct {
	// Room is the snapshot right after the join.
	Room *Room

	// Joined is false when the socket was already a member and nothing changed.
	Joined bool

	// Created is true when the join created the room.
	Created bool
}

// LeaveResult describes the outcome of a successful Leave.
type LeaveResult struct {
	RoomName string

	// Member is the entry that was removed.
	Member user.User

	// Room is the snapshot right after the leave. Nil when the room was removed.
	Room *Room

	// RoomRemoved is true when the leaving member was the last one.
	RoomRemoved bool

	// NewHost is set when the host left and another member was promoted.
	NewHost *user.User
}

// Manager coordinates room membership over a Registry.
type Manager struct {
	// registry holds the authoritative room snapshots.
	registry *Registry

	// locks serializes mutations per room name.
	locks *roomLocks

	// structured logger with Manager context.
	logger zerolog.Logger
}

// NewManager constructs and returns a new Manager instance with an empty Registry.
func NewManager() *Manager {
	return &Manager{
		registry: NewRegistry(),
		locks:    newRoomLocks(),
		logger:   logx.Component("Manager"),
	}
}

// Join adds u to the room named roomName, creating the room with u as host if it
// does not exist. Joining a room the socket is already in is a no-op that still
// succeeds, reported with Joined == false.
func (m *Manager) Join(roomName string, u user.User) (JoinResult, error) {
	if roomName == "" || !u.Valid() {
		return JoinResult{}, errs.NewError(errs.ErrInvalidParams)
	}

	unlock := m.locks.lock(roomName)
	defer unlock()

	room, err := m.registry.Lookup(roomName)
	if err != nil {
		created, err := m.registry.CreateRoom(roomName, u)
		if err != nil {
			return JoinResult{}, err
		}

		m.logger.Info().
			Str("room_name", roomName).
			Str("socket_id", u.SocketID).
			Str("user_name", u.UserName).
			Msg("Room created.")

		return JoinResult{Room: created, Joined: true, Created: true}, nil
	}

	if room.Has(u.SocketID) {
		return JoinResult{Room: room, Joined: false}, nil
	}

	next := room.withMember(u)
	m.registry.replace(next)

	m.logger.Debug().
		Str("room_name", roomName).
		Str("socket_id", u.SocketID).
		Int("total_users", next.Len()).
		Msg("Member joined room.")

	return JoinResult{Room: next, Joined: true}, nil
}

// Leave removes socketID from the room named roomName. If the host leaves, the
// earliest-joined remaining member is promoted. The room is removed together
// with its last member.
func (m *Manager) Leave(roomName, socketID string) (LeaveResult, error) {
	if roomName == "" || socketID == "" {
		return LeaveResult{}, errs.NewError(errs.ErrInvalidParams)
	}

	unlock := m.locks.lock(roomName)
	defer unlock()

	room, err := m.registry.Lookup(roomName)
	if err != nil {
		return LeaveResult{}, err
	}

	next, removed, ok := room.withoutMember(socketID)
	if !ok {
		return LeaveResult{}, errs.NewError(errs.ErrMemberNotFound)
	}

	result := LeaveResult{
		RoomName: roomName,
		Member:   removed,
	}

	if next.Len() == 0 {
		if err := m.registry.RemoveRoom(roomName); err != nil {
			return LeaveResult{}, err
		}
		result.RoomRemoved = true

		m.logger.Info().Str("room_name", roomName).Msg("Last member left. Room removed.")
		return result, nil
	}

	m.registry.replace(next)
	result.Room = next

	if room.hostID == socketID {
		host := next.Host()
		result.NewHost = &host

		m.logger.Info().
			Str("room_name", roomName).
			Str("old_host", removed.SocketID).
			Str("new_host", host.SocketID).
			Msg("Host left. Earliest member promoted.")
	}

	return result, nil
}

// IsJoined reports whether socketID is a member of the room. A missing room is
// simply not joined.
func (m *Manager) IsJoined(roomName, socketID string) bool {
	room, err := m.registry.Lookup(roomName)
	if err != nil {
		return false
	}
	return room.Has(socketID)
}

// Host returns the current host of the room.
func (m *Manager) Host(roomName string) (user.User, error) {
	room, err := m.registry.Lookup(roomName)
	if err != nil {
		return user.User{}, err
	}
	return room.Host(), nil
}

// Room returns the current snapshot of the room.
func (m *Manager) Room(roomName string) (*Room, error) {
	return m.registry.Lookup(roomName)
}

// Rooms returns the snapshots of every room in creation order.
func (m *Manager) Rooms() []*Room {
	return m.registry.List()
}

// Shutdown drops all rooms. Live connections are expected to be closed first.
func (m *Manager) Shutdown() {
	m.logger.Info().Int("rooms", m.registry.Len()).Msg("Shutting down Manager...")

	m.registry.reset()

	m.logger.Info().Msg("Manager shutdown complete.")
}
