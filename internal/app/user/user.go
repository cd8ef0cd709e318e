/*
Package user contains core data structures related to user identity and session.

It defines the connection-bound representation of a chat participant (User), which is
exchanged with clients over the websocket, and the persisted account record (Account)
owned by the identity service.
*/
package user

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by account repositories when no account matches.
	ErrNotFound = errors.New("account not found")

	// ErrAlreadyExists is returned by account repositories on a duplicate username.
	ErrAlreadyExists = errors.New("account already exists")
)

// User represents one live connection of a chat participant.
// Fields use JSON tags for serialization in WebSocket messages.
type User struct {
	// UserName is the stable identity verified from the connection's credential.
	UserName string `json:"userName"`

	// SocketID identifies the live connection. It is assigned by the transport
	// and becomes meaningless the moment the connection closes.
	SocketID string `json:"socketId"`
}

// Valid reports whether both identity fields are present.
func (u User) Valid() bool {
	return u.UserName != "" && u.SocketID != ""
}

// Account is a registered user as stored by the identity service.
type Account struct {
	ID           string    `json:"id"`
	UserName     string    `json:"userName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
