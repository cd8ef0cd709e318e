/*
Package chat contains the core logic for handling real-time chat rooms, user connections, and message broadcasting.

This file defines the Gateway, which owns the lifecycle of each websocket connection: identity
verification, directory registration, event handling and the single disconnect sweep.
*/
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"roomchat/internal/app/history"
	"roomchat/internal/app/user"
	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/logx"
	"roomchat/internal/pkg/randx"
)

// EventSession is sent once to a new connection to tell it its socket id.
const EventSession = "session"

// storeTimeout bounds a single history write.
const storeTimeout = 5 * time.Second

// Identity is the verified owner of a connection credential.
type Identity struct {
	UserName  string
	ExpiresAt time.Time
}

// Authenticator verifies connection credentials and issues refreshed ones.
type Authenticator interface {
	Verify(ctx context.Context, token string) (Identity, error)
	Refresh(userName string) (string, time.Time, error)
}

// Gateway serves websocket connections on top of the Manager and Dispatcher.
type Gateway struct {
	manager     *Manager
	dispatcher  *Dispatcher
	store       history.Store
	auth        Authenticator
	authTimeout time.Duration

	// mu protects clients and closing.
	mu      sync.Mutex
	clients map[string]*Client
	closing bool

	// wg tracks running Serve calls.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewGateway constructs a Gateway. authTimeout bounds identity verification of
// a new connection.
func NewGateway(manager *Manager, dispatcher *Dispatcher, store history.Store, auth Authenticator, authTimeout time.Duration) *Gateway {
	return &Gateway{
		manager:     manager,
		dispatcher:  dispatcher,
		store:       store,
		auth:        auth,
		authTimeout: authTimeout,
		clients:     make(map[string]*Client),
		logger:      logx.Component("Gateway"),
	}
}

// Serve runs an upgraded connection until it closes. It blocks.
func (g *Gateway) Serve(conn *websocket.Conn, token string) {
	identity, err := g.verify(token)
	if err != nil {
		g.reject(conn, WsCloseCodeUnauthorized, "unauthorized")
		g.logger.Info().Err(err).Str("remote_addr", conn.RemoteAddr().String()).Msg("Connection failed identity verification.")
		return
	}

	socketID, err := randx.SocketID()
	if err != nil {
		g.logger.Error().Err(err).Msg("Failed to generate socket id.")
		g.reject(conn, websocket.CloseInternalServerErr, "internal error")
		return
	}

	client := NewClient(conn, user.User{UserName: identity.UserName, SocketID: socketID}, g.auth, identity.ExpiresAt)

	g.mu.Lock()
	if g.closing {
		g.mu.Unlock()
		client.Close(websocket.CloseGoingAway, "server shutting down")
		return
	}
	g.clients[socketID] = client
	g.wg.Add(1)
	g.mu.Unlock()

	defer g.wg.Done()

	if err := g.dispatcher.Register(client); err != nil {
		g.logger.Error().Err(err).Str("socket_id", socketID).Msg("Failed to register connection.")
		client.Close(websocket.CloseInternalServerErr, "registration failed")
		g.forget(socketID)
		return
	}

	g.logger.Info().Str("socket_id", socketID).Str("user_name", identity.UserName).Msg("Connection authenticated.")

	go client.WritePump()

	client.sendFrame(EventSession, "", client.User())
	g.broadcastActiveUsers()

	client.ReadPump(g.handleFrame)

	g.disconnect(client)
}

type verifyResult struct {
	identity Identity
	err      error
}

// verify runs the Authenticator within authTimeout. A verifier that does not
// answer in time fails the connection even if it later succeeds.
func (g *Gateway) verify(token string) (Identity, error) {
	ctx, cancel := context.WithTimeout(context.Background(), g.authTimeout)
	defer cancel()

	done := make(chan verifyResult, 1)
	go func() {
		identity, err := g.auth.Verify(ctx, token)
		done <- verifyResult{identity: identity, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil && ctx.Err() != nil {
			return Identity{}, errs.NewError(errs.ErrUnauthorized)
		}
		return res.identity, res.err
	case <-ctx.Done():
		return Identity{}, fmt.Errorf("identity verification window of %s exceeded: %w", g.authTimeout, errs.NewError(errs.ErrUnauthorized))
	}
}

// Connections returns the number of live connections.
func (g *Gateway) Connections() int {
	return g.dispatcher.Len()
}

// Shutdown closes every live connection and waits for their sweeps to finish.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	g.closing = true
	clients := make([]*Client, 0, len(g.clients))
	for _, c := range g.clients {
		clients = append(clients, c)
	}
	g.mu.Unlock()

	g.logger.Info().Int("connections", len(clients)).Msg("Shutting down Gateway...")

	for _, c := range clients {
		c.Close(websocket.CloseGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		g.logger.Info().Msg("Gateway shutdown complete.")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reject closes a connection that never became a client.
func (g *Gateway) reject(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		g.logger.Debug().Err(err).Msg("Failed to send close message to rejected connection.")
	}
	if err := conn.Close(); err != nil {
		g.logger.Debug().Err(err).Msg("Rejected connection close error")
	}
}

// disconnect runs once per authenticated connection after its ReadPump returns.
func (g *Gateway) disconnect(c *Client) {
	socketID := c.SocketID()

	sweep := g.manager.RemoveFromAllRooms(socketID)
	for _, left := range sweep.Left {
		g.announceLeave(left)
	}

	g.dispatcher.Unregister(socketID)
	c.Close(websocket.CloseNormalClosure, "")
	g.forget(socketID)

	g.dispatcher.ToAll(EventAllRooms, g.manager.Rooms())
	g.broadcastActiveUsers()

	g.logger.Info().
		Str("socket_id", socketID).
		Int("rooms_left", len(sweep.Left)).
		Int("rooms_failed", len(sweep.Failed)).
		Msg("Connection closed.")
}

func (g *Gateway) forget(socketID string) {
	g.mu.Lock()
	delete(g.clients, socketID)
	g.mu.Unlock()
}

// handleFrame dispatches one inbound frame and answers it.
func (g *Gateway) handleFrame(c *Client, frame Frame) {
	var err error

	switch frame.Event {
	case EventSendMessage:
		err = g.handleSendMessage(c, frame.Data)
	case EventJoinRoom:
		err = g.handleJoinRoom(c, frame.Data)
	case EventLeaveRoom:
		err = g.handleLeaveRoom(c, frame.Data)
	case EventGetRooms:
		g.dispatcher.ToAll(EventAllRooms, g.manager.Rooms())
	case EventGetRoomHost:
		err = g.handleGetRoomHost(frame.Data)
	case EventActiveUsers:
		g.broadcastActiveUsers()
	case EventDirectMessage:
		err = g.handleDirectMessage(c, frame.Data)
	default:
		err = errs.NewError(errs.ErrUnsupportedEvent, frame.Event)
	}

	if err != nil {
		c.logger.Debug().Err(err).Str("event", frame.Event).Msg("Event failed.")
	}

	g.reply(c, frame.ID, err)
}

// reply acknowledges a frame that carried an id. Failures of frames without
// an id are reported with an error frame instead.
func (g *Gateway) reply(c *Client, id string, err error) {
	if id != "" {
		ack := AckPayload{OK: err == nil}
		if err != nil {
			ack.Error = newErrorPayload(err)
		}
		c.sendFrame(EventAck, id, ack)
		return
	}

	if err != nil {
		c.SendError(err)
	}
}

func (g *Gateway) handleSendMessage(c *Client, data json.RawMessage) error {
	var msg history.Message
	if err := decodeData(data, &msg); err != nil {
		return err
	}

	if msg.RoomName == "" || strings.TrimSpace(msg.Message) == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if len(msg.Message) > MaxContentBytes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}
	if msg.UserName != "" && msg.UserName != c.UserName() {
		return errs.NewError(errs.ErrInvalidParams)
	}

	msg.UserName = c.UserName()
	if msg.TimeSent.IsZero() {
		msg.TimeSent = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if _, err := g.store.Append(ctx, msg); err != nil {
		return errs.NewError(errs.ErrStorageFailed, err)
	}

	g.dispatcher.ToRoom(msg.RoomName, EventNewIncomingMessage, msg)
	return nil
}

func (g *Gateway) handleJoinRoom(c *Client, data json.RawMessage) error {
	req, err := decodeRoomRequest(c, data)
	if err != nil {
		return err
	}

	result, err := g.manager.Join(req.RoomName, c.User())
	if err != nil {
		return err
	}

	if !result.Joined {
		return nil
	}

	g.dispatcher.ToRoom(req.RoomName, EventNewIncomingMessage,
		announcement(req.RoomName, fmt.Sprintf("%s joined the room", c.UserName())))
	g.dispatcher.ToAll(EventAllRooms, g.manager.Rooms())

	return nil
}

func (g *Gateway) handleLeaveRoom(c *Client, data json.RawMessage) error {
	req, err := decodeRoomRequest(c, data)
	if err != nil {
		return err
	}

	result, err := g.manager.Leave(req.RoomName, c.SocketID())
	if err != nil {
		return err
	}

	g.announceLeave(result)
	g.dispatcher.ToAll(EventAllRooms, g.manager.Rooms())

	return nil
}

// announceLeave tells the remaining members of a room about a departure and
// any resulting host change.
func (g *Gateway) announceLeave(result LeaveResult) {
	if result.RoomRemoved {
		return
	}

	g.dispatcher.ToRoom(result.RoomName, EventNewIncomingMessage,
		announcement(result.RoomName, fmt.Sprintf("%s left the room", result.Member.UserName)))

	if result.NewHost != nil {
		g.dispatcher.ToRoom(result.RoomName, EventNewIncomingMessage,
			announcement(result.RoomName, fmt.Sprintf("%s is host now", result.NewHost.UserName)))
		g.dispatcher.ToRoom(result.RoomName, EventRoomHost, *result.NewHost)
	}
}

func (g *Gateway) handleGetRoomHost(data json.RawMessage) error {
	var req RoomHostRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}
	if req.RoomName == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}

	host, err := g.manager.Host(req.RoomName)
	if err != nil {
		return err
	}

	g.dispatcher.ToRoom(req.RoomName, EventRoomHost, host)
	return nil
}

func (g *Gateway) handleDirectMessage(c *Client, data json.RawMessage) error {
	var req DirectMessageRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}

	if !randx.IsValidSocketID(req.To) {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if len(req.Message.Content) > MaxContentBytes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}

	if !g.dispatcher.IsConnected(req.To) {
		return errs.NewError(errs.ErrRecipientNotFound)
	}

	delivery := DirectMessageDelivery{
		Message: req.Message,
		From:    c.SocketID(),
	}

	if !g.dispatcher.ToSocket(req.To, EventDirectMessage, delivery) {
		return errs.NewError(errs.ErrRecipientNotFound)
	}
	return nil
}

func (g *Gateway) broadcastActiveUsers() {
	g.dispatcher.ToAll(EventActiveUsers, g.dispatcher.ActiveUsers())
}

// decodeRoomRequest parses a joinRoom/leaveRoom payload. The optional user
// field must describe the sending connection.
func decodeRoomRequest(c *Client, data json.RawMessage) (RoomRequest, error) {
	var req RoomRequest
	if err := decodeData(data, &req); err != nil {
		return RoomRequest{}, err
	}

	if req.RoomName == "" {
		return RoomRequest{}, errs.NewError(errs.ErrInvalidParams)
	}

	if req.User.SocketID != "" && req.User.SocketID != c.SocketID() {
		return RoomRequest{}, errs.NewError(errs.ErrInvalidParams)
	}
	if req.User.UserName != "" && req.User.UserName != c.UserName() {
		return RoomRequest{}, errs.NewError(errs.ErrInvalidParams)
	}

	return req, nil
}

func decodeData(data json.RawMessage, dst any) error {
	if len(data) == 0 || string(data) == "null" {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}
	return nil
}
