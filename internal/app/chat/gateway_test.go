package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomchat/internal/app/history"
	"roomchat/internal/app/user"
	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/randx"
)

// fakeAuth accepts tokens of the form "<userName>-token".
type fakeAuth struct{}

func (fakeAuth) Verify(_ context.Context, token string) (Identity, error) {
	name, ok := strings.CutSuffix(token, "-token")
	if !ok || name == "" {
		return Identity{}, errors.New("bad token")
	}
	return Identity{UserName: name, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (fakeAuth) Refresh(userName string) (string, time.Time, error) {
	return userName + "-token", time.Now().Add(time.Hour), nil
}

type testEnv struct {
	manager    *Manager
	dispatcher *Dispatcher
	gateway    *Gateway
	store      *history.MemoryStore
	server     *httptest.Server
}

// slowAuth accepts every token after delay, ignoring cancellation.
type slowAuth struct {
	delay time.Duration
}

func (a slowAuth) Verify(_ context.Context, token string) (Identity, error) {
	time.Sleep(a.delay)
	return fakeAuth{}.Verify(context.Background(), token)
}

func (slowAuth) Refresh(userName string) (string, time.Time, error) {
	return fakeAuth{}.Refresh(userName)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithAuth(t, fakeAuth{}, time.Second)
}

func newTestEnvWithAuth(t *testing.T, auth Authenticator, authTimeout time.Duration) *testEnv {
	t.Helper()

	env := &testEnv{
		manager: NewManager(),
		store:   history.NewMemoryStore(),
	}
	env.dispatcher = NewDispatcher(env.manager)
	env.gateway = NewGateway(env.manager, env.dispatcher, env.store, auth, authTimeout)

	upgrader := websocket.Upgrader{}
	env.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		env.gateway.Serve(conn, r.URL.Query().Get("token"))
	}))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, env.gateway.Shutdown(ctx))
		env.server.Close()
	})

	return env
}

type testConn struct {
	t    *testing.T
	conn *websocket.Conn
	self user.User
}

func (env *testEnv) dial(t *testing.T, token string) (*websocket.Conn, error) {
	t.Helper()

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	return conn, err
}

// connect dials and consumes the session frame.
func (env *testEnv) connect(t *testing.T, userName string) *testConn {
	t.Helper()

	conn, err := env.dial(t, userName+"-token")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	c := &testConn{t: t, conn: conn}

	session := c.waitFor(EventSession, "")
	require.NoError(t, json.Unmarshal(session.Data, &c.self))
	require.Equal(t, userName, c.self.UserName)
	require.NotEmpty(t, c.self.SocketID)

	return c
}

func (c *testConn) send(event, id string, data any) {
	c.t.Helper()

	raw, err := json.Marshal(data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteJSON(Frame{Event: event, ID: id, Data: raw}))
}

func (c *testConn) next() Frame {
	c.t.Helper()

	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	var f Frame
	require.NoError(c.t, c.conn.ReadJSON(&f))
	return f
}

// waitFor reads until a frame with the event (and id, when given) arrives.
// Skipped frames are returned alongside it.
func (c *testConn) waitFor(event, id string) Frame {
	f, _ := c.collect(event, id)
	return f
}

func (c *testConn) collect(event, id string) (Frame, []Frame) {
	c.t.Helper()

	var skipped []Frame
	for {
		f := c.next()
		if f.Event == event && (id == "" || f.ID == id) {
			return f, skipped
		}
		skipped = append(skipped, f)
	}
}

// waitForText reads until a room message with the given text arrives.
func (c *testConn) waitForText(text string) history.Message {
	c.t.Helper()

	for {
		f := c.waitFor(EventNewIncomingMessage, "")

		var msg history.Message
		require.NoError(c.t, json.Unmarshal(f.Data, &msg))
		if msg.Message == text {
			return msg
		}
	}
}

func (c *testConn) ack(id string) AckPayload {
	c.t.Helper()

	f := c.waitFor(EventAck, id)

	var ack AckPayload
	require.NoError(c.t, json.Unmarshal(f.Data, &ack))
	return ack
}

func TestGateway_RejectsUnverifiedConnection(t *testing.T) {
	env := newTestEnv(t)

	conn, err := env.dial(t, "garbage")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, WsCloseCodeUnauthorized), "got %v", err)

	assert.Zero(t, env.dispatcher.Len(), "rejected connections never reach the directory")
}

func TestGateway_VerificationTimeout(t *testing.T) {
	env := newTestEnvWithAuth(t, slowAuth{delay: 500 * time.Millisecond}, 50*time.Millisecond)

	conn, err := env.dial(t, "alice-token")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, msg, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, WsCloseCodeUnauthorized), "got %v (message %s)", err, msg)

	time.Sleep(600 * time.Millisecond)
	assert.Zero(t, env.dispatcher.Len(), "a late verification never registers the connection")
	assert.Zero(t, env.gateway.Connections())
}

func TestGateway_JoinLeaveAndHostChange(t *testing.T) {
	env := newTestEnv(t)

	a := env.connect(t, "alice")
	b := env.connect(t, "bob")

	a.send(EventJoinRoom, "1", RoomRequest{RoomName: "lobby", User: a.self})
	a.waitForText("alice joined the room")
	require.True(t, a.ack("1").OK)

	b.send(EventJoinRoom, "2", RoomRequest{RoomName: "lobby"})
	require.True(t, b.ack("2").OK)
	a.waitForText("bob joined the room")

	host, err := env.manager.Host("lobby")
	require.NoError(t, err)
	assert.Equal(t, a.self, host)

	a.send(EventLeaveRoom, "3", RoomRequest{RoomName: "lobby", User: a.self})
	require.True(t, a.ack("3").OK)

	b.waitForText("alice left the room")
	b.waitForText("bob is host now")

	f := b.waitFor(EventRoomHost, "")
	var newHost user.User
	require.NoError(t, json.Unmarshal(f.Data, &newHost))
	assert.Equal(t, b.self, newHost)

	allRooms := b.waitFor(EventAllRooms, "")
	assert.Contains(t, string(allRooms.Data), `"name":"lobby"`)
}

func TestGateway_JoinIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	a := env.connect(t, "alice")

	a.send(EventJoinRoom, "1", RoomRequest{RoomName: "lobby"})
	require.True(t, a.ack("1").OK)

	a.send(EventJoinRoom, "2", RoomRequest{RoomName: "lobby"})
	f, skipped := a.collect(EventAck, "2")

	var ack AckPayload
	require.NoError(t, json.Unmarshal(f.Data, &ack))
	assert.True(t, ack.OK)

	for _, s := range skipped {
		assert.NotEqual(t, EventNewIncomingMessage, s.Event, "no second join announcement")
	}

	room, err := env.manager.Room("lobby")
	require.NoError(t, err)
	assert.Equal(t, 1, room.Len())
}

func TestGateway_RejectsForeignIdentity(t *testing.T) {
	env := newTestEnv(t)
	a := env.connect(t, "alice")

	a.send(EventJoinRoom, "1", RoomRequest{RoomName: "lobby", User: user.User{UserName: "alice", SocketID: "someone-else"}})
	ack := a.ack("1")
	assert.False(t, ack.OK)
	require.NotNil(t, ack.Error)
	assert.Equal(t, errs.ErrInvalidParams, ack.Error.Code)

	assert.Empty(t, env.manager.Rooms())
}

func TestGateway_DisconnectSweeps(t *testing.T) {
	env := newTestEnv(t)

	a := env.connect(t, "alice")
	b := env.connect(t, "bob")

	for _, c := range []*testConn{a, b} {
		c.send(EventJoinRoom, "j", RoomRequest{RoomName: "lobby"})
		require.True(t, c.ack("j").OK)
	}

	require.NoError(t, a.conn.Close())

	b.waitForText("alice left the room")
	b.waitForText("bob is host now")

	f := b.waitFor(EventActiveUsers, "")
	var active []ActiveUser
	require.NoError(t, json.Unmarshal(f.Data, &active))

	for len(active) != 1 {
		f = b.waitFor(EventActiveUsers, "")
		require.NoError(t, json.Unmarshal(f.Data, &active))
	}
	assert.Equal(t, b.self.SocketID, active[0].SocketID)

	room, err := env.manager.Room("lobby")
	require.NoError(t, err)
	assert.Equal(t, []user.User{b.self}, room.Users())
	assert.False(t, env.dispatcher.IsConnected(a.self.SocketID))
}

func TestGateway_SendMessage(t *testing.T) {
	env := newTestEnv(t)

	a := env.connect(t, "alice")
	b := env.connect(t, "bob")

	for _, c := range []*testConn{a, b} {
		c.send(EventJoinRoom, "j", RoomRequest{RoomName: "lobby"})
		require.True(t, c.ack("j").OK)
	}

	a.send(EventSendMessage, "m", history.Message{RoomName: "lobby", Message: "hello", UserName: "alice"})
	require.True(t, a.ack("m").OK)

	msg := b.waitForText("hello")
	assert.Equal(t, "alice", msg.UserName)
	assert.Equal(t, "lobby", msg.RoomName)
	assert.False(t, msg.TimeSent.IsZero())

	stored, err := env.store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "hello", stored[0].Message.Message)

	a.send(EventSendMessage, "long", history.Message{RoomName: "lobby", Message: strings.Repeat("x", MaxContentBytes+1)})
	ack := a.ack("long")
	require.NotNil(t, ack.Error)
	assert.Equal(t, errs.ErrMessageContentTooLong, ack.Error.Code)
}

func TestGateway_DirectMessage(t *testing.T) {
	env := newTestEnv(t)

	a := env.connect(t, "alice")
	b := env.connect(t, "bob")

	a.send(EventDirectMessage, "d1", DirectMessageRequest{
		Message: DirectMessage{Content: "psst", TimeSent: time.Now()},
		To:      b.self.SocketID,
	})
	require.True(t, a.ack("d1").OK)

	f := b.waitFor(EventDirectMessage, "")
	var delivery DirectMessageDelivery
	require.NoError(t, json.Unmarshal(f.Data, &delivery))
	assert.Equal(t, "psst", delivery.Message.Content)
	assert.Equal(t, a.self.SocketID, delivery.From)

	a.send(EventDirectMessage, "d2", DirectMessageRequest{Message: DirectMessage{Content: "hi"}, To: strings.Repeat("A", randx.SocketIDLength)})
	ack := a.ack("d2")
	require.NotNil(t, ack.Error)
	assert.Equal(t, errs.ErrRecipientNotFound, ack.Error.Code)

	a.send(EventDirectMessage, "d3", DirectMessageRequest{Message: DirectMessage{Content: "hi"}, To: "offline"})
	ack = a.ack("d3")
	require.NotNil(t, ack.Error)
	assert.Equal(t, errs.ErrInvalidParams, ack.Error.Code, "malformed socket ids are rejected")
}

func TestGateway_GetRoomHostMissing(t *testing.T) {
	env := newTestEnv(t)
	a := env.connect(t, "alice")

	a.send(EventGetRoomHost, "h", RoomHostRequest{RoomName: "missing"})
	ack := a.ack("h")
	require.NotNil(t, ack.Error)
	assert.Equal(t, errs.ErrRoomNotFound, ack.Error.Code)
}

func TestGateway_UnsupportedEventWithoutID(t *testing.T) {
	env := newTestEnv(t)
	a := env.connect(t, "alice")

	a.send("dance", "", nil)

	f := a.waitFor(EventError, "")
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(f.Data, &payload))
	assert.Equal(t, errs.ErrUnsupportedEvent, payload.Code)
	assert.Contains(t, payload.Message, "dance")
}

func TestGateway_ShutdownClosesConnections(t *testing.T) {
	env := newTestEnv(t)
	a := env.connect(t, "alice")

	a.send(EventJoinRoom, "j", RoomRequest{RoomName: "lobby"})
	require.True(t, a.ack("j").OK)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.gateway.Shutdown(ctx))

	assert.Zero(t, env.dispatcher.Len())
	assert.Empty(t, env.manager.Rooms())
}
