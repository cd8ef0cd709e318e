/*
Package history defines the chat history storage contract used by the websocket gateway
and the REST chat endpoints, together with an in-memory implementation.

The Postgres implementation lives in package db.
*/
package history

import (
	"context"
	"time"
)

// Message is a room message as sent by a client and broadcast to the room.
type Message struct {
	UserName string    `json:"userName"`
	TimeSent time.Time `json:"timeSent"`
	Message  string    `json:"message"`
	RoomName string    `json:"roomName"`
}

// StoredMessage is a Message after it has been persisted.
type StoredMessage struct {
	Message
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists chat history.
type Store interface {
	// Append persists msg and returns the stored record.
	Append(ctx context.Context, msg Message) (StoredMessage, error)

	// ListAll returns every stored message, oldest first.
	ListAll(ctx context.Context) ([]StoredMessage, error)

	// ClearAll deletes every stored message and returns how many were removed.
	ClearAll(ctx context.Context) (int64, error)
}
