package chat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveFromAllRooms(t *testing.T) {
	m := NewManager()

	for _, room := range []string{"a", "b", "c"} {
		_, err := m.Join(room, alice)
		require.NoError(t, err)
	}
	_, err := m.Join("b", bob)
	require.NoError(t, err)

	sweep := m.RemoveFromAllRooms(alice.SocketID)
	assert.Len(t, sweep.Left, 3)
	assert.Empty(t, sweep.Failed)

	for _, room := range []string{"a", "b", "c"} {
		assert.False(t, m.IsJoined(room, alice.SocketID))
	}

	rooms := m.Rooms()
	require.Len(t, rooms, 1, "rooms left empty are removed")
	assert.Equal(t, "b", rooms[0].Name())
	assert.Equal(t, bob, rooms[0].Host())
}

func TestRemoveFromAllRooms_NoMembership(t *testing.T) {
	m := NewManager()
	_, err := m.Join("lobby", alice)
	require.NoError(t, err)

	sweep := m.RemoveFromAllRooms("stranger")
	assert.Empty(t, sweep.Left)
	assert.Empty(t, sweep.Failed)

	sweep = m.RemoveFromAllRooms("")
	assert.Empty(t, sweep.Left)
}

func TestRemoveFromAllRooms_FailureDoesNotAbortSweep(t *testing.T) {
	m := NewManager()
	for _, room := range []string{"a", "b", "c"} {
		_, err := m.Join(room, alice)
		require.NoError(t, err)
	}

	failingLeave := func(roomName, socketID string) (LeaveResult, error) {
		if roomName == "b" {
			panic("boom")
		}
		return m.Leave(roomName, socketID)
	}

	sweep := m.sweep(alice.SocketID, failingLeave)
	assert.Len(t, sweep.Left, 2)
	require.Contains(t, sweep.Failed, "b")
	assert.ErrorContains(t, sweep.Failed["b"], "boom")

	assert.False(t, m.IsJoined("a", alice.SocketID))
	assert.False(t, m.IsJoined("c", alice.SocketID))
	assert.Zero(t, m.locks.size(), "the failing room's lock was released")

	sweep = m.RemoveFromAllRooms(alice.SocketID)
	assert.Len(t, sweep.Left, 1, "a later sweep finishes the failed room")
	assert.Empty(t, m.Rooms())
}

func TestRemoveFromAllRooms_RacesWithLeave(t *testing.T) {
	for range 50 {
		m := NewManager()
		_, err := m.Join("lobby", alice)
		require.NoError(t, err)
		_, err = m.Join("lobby", bob)
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = m.Leave("lobby", alice.SocketID)
		}()
		go func() {
			defer wg.Done()
			m.RemoveFromAllRooms(alice.SocketID)
		}()
		wg.Wait()

		room, err := m.Room("lobby")
		require.NoError(t, err)
		assert.Equal(t, 1, room.Len(), "alice is removed exactly once")
		assert.Equal(t, bob, room.Host())
	}
}
