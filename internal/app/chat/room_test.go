package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomchat/internal/app/user"
)

var (
	alice = user.User{UserName: "alice", SocketID: "s1"}
	bob   = user.User{UserName: "bob", SocketID: "s2"}
	carol = user.User{UserName: "carol", SocketID: "s3"}
)

func TestRoom_WithMemberCopiesOnWrite(t *testing.T) {
	original := newRoom("lobby", alice, 1)
	next := original.withMember(bob)

	assert.Equal(t, []user.User{alice}, original.Users(), "previous snapshot is untouched")
	assert.Equal(t, []user.User{alice, bob}, next.Users())
	assert.Equal(t, alice, next.Host())
}

func TestRoom_WithoutMember(t *testing.T) {
	room := newRoom("lobby", alice, 1).withMember(bob).withMember(carol)

	t.Run("non-host leaves", func(t *testing.T) {
		next, removed, ok := room.withoutMember(bob.SocketID)
		require.True(t, ok)
		assert.Equal(t, bob, removed)
		assert.Equal(t, []user.User{alice, carol}, next.Users())
		assert.Equal(t, alice, next.Host())
	})

	t.Run("host leaves promotes earliest member", func(t *testing.T) {
		next, _, ok := room.withoutMember(alice.SocketID)
		require.True(t, ok)
		assert.Equal(t, bob, next.Host())
	})

	t.Run("unknown socket", func(t *testing.T) {
		next, _, ok := room.withoutMember("nope")
		assert.False(t, ok)
		assert.Same(t, room, next)
	})

	t.Run("last member", func(t *testing.T) {
		next, _, ok := newRoom("solo", alice, 2).withoutMember(alice.SocketID)
		require.True(t, ok)
		assert.Equal(t, 0, next.Len())
	})
}

func TestRoom_UsersReturnsCopy(t *testing.T) {
	room := newRoom("lobby", alice, 1)
	users := room.Users()
	users[0].UserName = "mallory"

	assert.Equal(t, "alice", room.Host().UserName)
}

func TestRoom_MarshalJSON(t *testing.T) {
	room := newRoom("lobby", alice, 1).withMember(bob)

	b, err := json.Marshal(room)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"name": "lobby",
		"host": {"userName": "alice", "socketId": "s1"},
		"users": [
			{"userName": "alice", "socketId": "s1"},
			{"userName": "bob", "socketId": "s2"}
		]
	}`, string(b))
}
