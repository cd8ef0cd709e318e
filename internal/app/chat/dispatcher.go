/*
Package chat contains the core logic for handling real-time chat rooms, user connections, and message broadcasting.

This file defines the Dispatcher, which keeps the directory of live connections and turns logical
recipient sets (a room, everyone, a single socket) into deliveries on those connections.
*/
package chat

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/logx"
)

// Peer is a live connection as seen by the Dispatcher.
type Peer interface {
	// SocketID returns the connection id.
	SocketID() string

	// UserName returns the verified identity behind the connection.
	UserName() string

	// Deliver queues an encoded frame without blocking. It returns false if
	// the frame could not be queued.
	Deliver(frame []byte) bool
}

type peerEntry struct {
	peer Peer
	seq  uint64
}

// Dispatcher resolves recipients and hands encoded frames to peers.
type Dispatcher struct {
	// manager provides the room membership used for room-scoped delivery.
	manager *Manager

	// mu protects peers and seq.
	mu sync.RWMutex

	// peers is the live-connection directory keyed by socket id.
	peers map[string]peerEntry

	// seq records connect order.
	seq uint64

	// structured logger with Dispatcher context.
	logger zerolog.Logger
}

// NewDispatcher constructs a Dispatcher resolving rooms through manager.
func NewDispatcher(manager *Manager) *Dispatcher {
	return &Dispatcher{
		manager: manager,
		peers:   make(map[string]peerEntry),
		logger:  logx.Component("Dispatcher"),
	}
}

// Register adds p to the directory.
func (d *Dispatcher) Register(p Peer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.peers[p.SocketID()]; ok {
		return errs.NewError(errs.ErrSessionConflict)
	}

	d.seq++
	d.peers[p.SocketID()] = peerEntry{peer: p, seq: d.seq}

	d.logger.Debug().
		Str("socket_id", p.SocketID()).
		Str("user_name", p.UserName()).
		Int("connections", len(d.peers)).
		Msg("Connection registered.")

	return nil
}

// Unregister removes the socket from the directory. Callers sweep the socket
// from all rooms before unregistering it.
func (d *Dispatcher) Unregister(socketID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.peers, socketID)
}

// IsConnected reports whether socketID is in the directory.
func (d *Dispatcher) IsConnected(socketID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.peers[socketID]
	return ok
}

// Len returns the number of live connections.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.peers)
}

// ActiveUsers lists the live connections in connect order.
func (d *Dispatcher) ActiveUsers() []ActiveUser {
	peers := d.snapshot()

	users := make([]ActiveUser, 0, len(peers))
	for _, p := range peers {
		users = append(users, ActiveUser{
			SocketID: p.SocketID(),
			UserName: p.UserName(),
			Messages: []any{},
		})
	}
	return users
}

// ToRoom delivers an event to every live member of the room, sender included.
// It returns the number of peers the frame was queued for.
func (d *Dispatcher) ToRoom(roomName, event string, data any) int {
	room, err := d.manager.Room(roomName)
	if err != nil {
		return 0
	}

	frame, err := encodeFrame(event, "", data)
	if err != nil {
		d.logger.Error().Err(err).Str("room_name", roomName).Msg("Failed to encode room frame.")
		return 0
	}

	members := room.Users()
	recipients := make([]Peer, 0, len(members))

	d.mu.RLock()
	for _, u := range members {
		if entry, ok := d.peers[u.SocketID]; ok {
			recipients = append(recipients, entry.peer)
		}
	}
	d.mu.RUnlock()

	return d.deliver(recipients, frame, event)
}

// ToAll delivers an event to every live connection.
func (d *Dispatcher) ToAll(event string, data any) int {
	frame, err := encodeFrame(event, "", data)
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to encode global frame.")
		return 0
	}

	return d.deliver(d.snapshot(), frame, event)
}

// ToSocket delivers an event to a single connection. It returns false when the
// socket is not connected or its queue is full.
func (d *Dispatcher) ToSocket(socketID, event string, data any) bool {
	d.mu.RLock()
	entry, ok := d.peers[socketID]
	d.mu.RUnlock()

	if !ok {
		return false
	}

	frame, err := encodeFrame(event, "", data)
	if err != nil {
		d.logger.Error().Err(err).Str("socket_id", socketID).Msg("Failed to encode direct frame.")
		return false
	}

	return d.deliver([]Peer{entry.peer}, frame, event) == 1
}

func (d *Dispatcher) deliver(peers []Peer, frame []byte, event string) int {
	delivered := 0
	for _, p := range peers {
		if p.Deliver(frame) {
			delivered++
			continue
		}

		d.logger.Warn().
			Str("socket_id", p.SocketID()).
			Str("event", event).
			Msg("Peer did not accept frame.")
	}
	return delivered
}

// snapshot returns the live peers in connect order.
func (d *Dispatcher) snapshot() []Peer {
	d.mu.RLock()
	entries := make([]peerEntry, 0, len(d.peers))
	for _, e := range d.peers {
		entries = append(entries, e)
	}
	d.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})

	peers := make([]Peer, len(entries))
	for i, e := range entries {
		peers[i] = e.peer
	}
	return peers
}
