/*
Package chat contains the core logic for handling real-time chat rooms, user connections, and message broadcasting.

This file defines the Client struct, representing an active WebSocket connection. It manages the client's
lifecycle and the message communication loops (ReadPump and WritePump). Inbound frames are handed to the
Gateway one at a time, in the order they were read.
*/
package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"roomchat/internal/app/user"
	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a message sent by the client.
	maxMessageSize = 8192

	// size of the per-connection outbound queue.
	sendQueueSize = 256

	// MaxContentBytes is the maximum allowed size (in bytes) for message text.
	MaxContentBytes = 5000

	// WsCloseCodeUnauthorized is a custom WebSocket Close Code (4000-4999 range)
	// sent when the connection's credential cannot be verified.
	WsCloseCodeUnauthorized = 4003

	// WsCloseCodeSlowConsumer signals that the client did not read fast enough
	// and its outbound queue overflowed.
	WsCloseCodeSlowConsumer = 4008

	// TokenRefreshWindow defines how much time before the token expires we should attempt to refresh it.
	TokenRefreshWindow = 2 * time.Minute
)

// Client struct represents an active WebSocket connection and its associated user.
type Client struct {
	// underlying WebSocket connection object.
	conn *websocket.Conn

	// associated connection identity.
	user user.User

	// auth issues refreshed tokens for long-lived connections.
	auth Authenticator

	// tokenExpiry records the expiration time of the current JWT used by the client.
	// Only WritePump touches it after construction.
	tokenExpiry time.Time

	// a buffered channel used to queue messages waiting to be sent to the client.
	send chan []byte

	// closed when the connection is shutting down.
	done chan struct{}

	closeOnce sync.Once

	// structured logger with client context.
	logger zerolog.Logger
}

// NewClient constructs and returns a new Client instance.
func NewClient(wsConn *websocket.Conn, u user.User, auth Authenticator, expiry time.Time) *Client {
	clientLogger := logx.Logger().With().
		Str("socket_id", u.SocketID).
		Str("user_name", u.UserName).
		Logger()

	return &Client{
		conn:        wsConn,
		user:        u,
		auth:        auth,
		tokenExpiry: expiry,
		send:        make(chan []byte, sendQueueSize),
		done:        make(chan struct{}),
		logger:      clientLogger,
	}
}

// SocketID implements Peer.
func (c *Client) SocketID() string {
	return c.user.SocketID
}

// UserName implements Peer.
func (c *Client) UserName() string {
	return c.user.UserName
}

// User returns the connection identity.
func (c *Client) User() user.User {
	return c.user
}

// Deliver implements Peer. A client whose queue is full is closed, since it
// has stopped keeping up with the room.
func (c *Client) Deliver(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, closing slow consumer.")
		go c.Close(WsCloseCodeSlowConsumer, "send queue overflow")
		return false
	}
}

// ReadPump handles reading messages from the WebSocket connection.
// It handles heartbeats (Pong) and frame parsing, and returns once the connection is gone.
func (c *Client) ReadPump(handle func(*Client, Frame)) {
	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(messageBytes, &frame); err != nil || frame.Event == "" {
			c.logger.Warn().Err(err).
				Bytes("message_bytes", messageBytes).
				Msg("Client sent invalid frame")
			c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
			continue
		}

		handle(c, frame)
	}
}

// WritePump handles writing messages from the Client.send channel to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			if !c.write(websocket.TextMessage, message) {
				c.Close(websocket.CloseGoingAway, "write failed")
				return
			}

		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				c.Close(websocket.CloseGoingAway, "ping failed")
				return
			}

			c.checkAndRefreshToken()

		case <-c.done:
			return
		}
	}
}

// write sends one message with the write deadline applied.
// Returns false if the WritePump loop should terminate.
func (c *Client) write(messageType int, payload []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(messageType, payload); err != nil {
		c.logger.Debug().Err(err).Int("message_type", messageType).Msg("Error writing message")
		return false
	}

	return true
}

// checkAndRefreshToken checks if the current JWT is close to expiry and pushes a new one if necessary.
func (c *Client) checkAndRefreshToken() {
	if c.auth == nil || c.tokenExpiry.IsZero() {
		return
	}

	if time.Now().Before(c.tokenExpiry.Add(-TokenRefreshWindow)) {
		return
	}

	c.logger.Info().
		Time("current_expiry", c.tokenExpiry).
		Dur("refresh_window", TokenRefreshWindow).
		Msg("JWT token is nearing expiry, attempting refresh.")

	token, expiresAt, err := c.auth.Refresh(c.user.UserName)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to generate new token. Aborting refresh.")
		return
	}

	if !c.sendFrame(EventTokenUpdate, "", TokenUpdatePayload{Token: token, ExpiresAt: expiresAt.Unix()}) {
		c.logger.Error().Msg("Failed to queue token update.")
		return
	}

	c.tokenExpiry = expiresAt
}

// sendFrame encodes and queues a frame for this client only.
func (c *Client) sendFrame(event, id string, data any) bool {
	frame, err := encodeFrame(event, id, data)
	if err != nil {
		c.logger.Error().Err(err).Msg("Error marshaling frame for client")
		return false
	}
	return c.Deliver(frame)
}

// SendError sends an error frame describing err.
func (c *Client) SendError(err error) {
	if !c.sendFrame(EventError, "", newErrorPayload(err)) {
		c.logger.Warn().Msg("Failed to queue error message")
	}
}

// Close sends a close frame with the given code and closes the connection.
// Only the first call has any effect.
func (c *Client) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)

		c.logger.Debug().Int("close_code", code).Str("reason", reason).Msg("Closing connection.")

		closeMessage := websocket.FormatCloseMessage(code, reason)
		err := c.conn.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(writeWait))
		if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			c.logger.Debug().Err(err).Msg("Failed to send close message.")
		}

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error")
		}
	})
}
