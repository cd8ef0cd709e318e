/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed,
	// including requests that carry no resolvable identity.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrUnsupportedEvent indicates that a websocket frame named an event the server does not handle.
	ErrUnsupportedEvent = 1008
)

// 2xxx: Room and Content Business Logic Errors
const (
	// ErrRoomExists indicates that a room with the requested name already exists.
	ErrRoomExists = 2102

	// ErrRoomNotFound indicates that the named room does not exist.
	ErrRoomNotFound = 2103

	// ErrMemberNotFound indicates that the socket is not a member of the named room.
	ErrMemberNotFound = 2105

	// ErrRecipientNotFound indicates that a direct message target is not connected.
	ErrRecipientNotFound = 2106

	// ErrArchiveNotFound indicates that no chat archive is stored under the requested key.
	ErrArchiveNotFound = 2301

	// ErrArchiveDisabled indicates that chat archiving is not configured on this server.
	ErrArchiveDisabled = 2302

	// ErrMessageContentTooLong indicates that the user's message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrPowChallengeRequired indicates the client must complete a Proof-of-Work challenge first.
	ErrPowChallengeRequired = 3001

	// ErrPowChallengeInvalid indicates that the PoW proof provided by the client is invalid or incorrect.
	ErrPowChallengeInvalid = 3002

	// ErrUnauthorized indicates that identity verification failed or no credential was supplied.
	ErrUnauthorized = 3005

	// ErrSessionConflict indicates that a connection id is already registered in the live directory.
	ErrSessionConflict = 3006

	// ErrInvalidUsername indicates that the username does not satisfy the account rules.
	ErrInvalidUsername = 3101

	// ErrInvalidPassword indicates that the password does not satisfy the account rules.
	ErrInvalidPassword = 3102

	// ErrUserAlreadyExists indicates that the username is already registered.
	ErrUserAlreadyExists = 3103

	// ErrInvalidCredentials indicates a username/password mismatch on sign-in.
	ErrInvalidCredentials = 3104

	// ErrUserNotFound indicates that no account exists for the username.
	ErrUserNotFound = 3106
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrStorageFailed indicates that a storage collaborator (history or archive) failed.
	ErrStorageFailed = 5001
)
