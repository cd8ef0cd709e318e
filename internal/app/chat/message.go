/*
Package chat contains the core logic for handling real-time chat rooms, user connections, and message broadcasting.

This file defines the websocket wire format: event names, the frame envelope and the payloads
exchanged with clients.
*/
package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"roomchat/internal/app/history"
	"roomchat/internal/app/user"
	"roomchat/internal/pkg/errs"
)

// Inbound events, sent by clients.
const (
	EventSendMessage   = "sendMessage"
	EventJoinRoom      = "joinRoom"
	EventLeaveRoom     = "leaveRoom"
	EventGetRooms      = "getRooms"
	EventGetRoomHost   = "getRoomHost"
	EventActiveUsers   = "activeUsers"
	EventDirectMessage = "direct-message"
)

// Outbound events, sent by the server. activeUsers and direct-message are
// also used outbound under the same names.
const (
	EventNewIncomingMessage = "newIncomingMessage"
	EventAllRooms           = "allRooms"
	EventRoomHost           = "roomHost"
	EventAck                = "ack"
	EventError              = "error"
	EventTokenUpdate        = "tokenUpdate"
)

// ServerUserName is the author of server announcements.
const ServerUserName = "Server"

// Frame is the envelope of every websocket message in both directions.
type Frame struct {
	// Event names the handler (inbound) or the kind of notification (outbound).
	Event string `json:"event"`

	// ID is an optional client-chosen correlation id. When present, the server
	// answers the frame with an ack carrying the same id.
	ID string `json:"id,omitempty"`

	// Data holds the event payload.
	Data json.RawMessage `json:"data,omitempty"`
}

// outboundFrame is the server-side counterpart of Frame with an unencoded payload.
type outboundFrame struct {
	Event string `json:"event"`
	ID    string `json:"id,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// RoomRequest is the payload of joinRoom and leaveRoom.
type RoomRequest struct {
	RoomName string    `json:"roomName"`
	User     user.User `json:"user"`
}

// RoomHostRequest is the payload of getRoomHost.
type RoomHostRequest struct {
	RoomName string `json:"roomName"`
}

// DirectMessage is the body of a direct message.
type DirectMessage struct {
	Content  string    `json:"content"`
	TimeSent time.Time `json:"timeSent"`
	FromSelf bool      `json:"fromSelf"`
}

// DirectMessageRequest is the payload of an inbound direct-message.
type DirectMessageRequest struct {
	Message DirectMessage `json:"message"`
	To      string        `json:"to"`
}

// DirectMessageDelivery is the payload delivered to the recipient of a direct message.
type DirectMessageDelivery struct {
	Message DirectMessage `json:"message"`
	From    string        `json:"from"`
}

// ActiveUser is one entry of the activeUsers presence list.
type ActiveUser struct {
	SocketID       string `json:"socketId"`
	UserName       string `json:"userName"`
	Messages       []any  `json:"messages"`
	HasNewMessages bool   `json:"hasNewMessages"`
}

// TokenUpdatePayload carries a refreshed access token.
type TokenUpdatePayload struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// ErrorPayload is the client-facing form of a failed event.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// AckPayload answers a frame that carried an id.
type AckPayload struct {
	OK    bool          `json:"ok"`
	Error *ErrorPayload `json:"error,omitempty"`
}

// newErrorPayload converts err into its client-facing form.
func newErrorPayload(err error) *ErrorPayload {
	customErr := errs.From(err)
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	return &ErrorPayload{
		Code:    customErr.Code,
		Message: customErr.Message,
	}
}

// announcement builds a server-authored room message.
func announcement(roomName, text string) history.Message {
	return history.Message{
		UserName: ServerUserName,
		TimeSent: time.Now().UTC(),
		Message:  text,
		RoomName: roomName,
	}
}

// encodeFrame marshals an outbound frame.
func encodeFrame(event, id string, data any) ([]byte, error) {
	b, err := json.Marshal(outboundFrame{Event: event, ID: id, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", event, err)
	}
	return b, nil
}
