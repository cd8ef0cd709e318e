package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"roomchat/internal/app/history"
)

const (
	appendMessageSQL = `INSERT INTO messages (id, user_name, room_name, message, time_sent)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_name, room_name, message, time_sent, created_at`

	listMessagesSQL = `SELECT id, user_name, room_name, message, time_sent, created_at
FROM messages
ORDER BY created_at, id`

	clearMessagesSQL = `DELETE FROM messages`
)

// MessageRepository implements history.Store on the messages table.
type MessageRepository struct {
	db DBTX
}

var _ history.Store = (*MessageRepository)(nil)

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append implements history.Store.
func (r *MessageRepository) Append(ctx context.Context, msg history.Message) (history.StoredMessage, error) {
	id := pgtype.UUID{Bytes: uuid.New(), Valid: true}
	sent := pgtype.Timestamptz{Time: msg.TimeSent, Valid: true}

	row := r.db.QueryRow(ctx, appendMessageSQL, id, msg.UserName, msg.RoomName, msg.Message, sent)
	return scanMessage(row)
}

// ListAll implements history.Store.
func (r *MessageRepository) ListAll(ctx context.Context) ([]history.StoredMessage, error) {
	rows, err := r.db.Query(ctx, listMessagesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []history.StoredMessage{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// ClearAll implements history.Store.
func (r *MessageRepository) ClearAll(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, clearMessagesSQL)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanMessage(row pgx.Row) (history.StoredMessage, error) {
	var (
		id        pgtype.UUID
		sent      pgtype.Timestamptz
		createdAt pgtype.Timestamptz
		msg       history.StoredMessage
	)

	if err := row.Scan(&id, &msg.UserName, &msg.RoomName, &msg.Message.Message, &sent, &createdAt); err != nil {
		return history.StoredMessage{}, err
	}

	msg.ID = uuidString(id)
	msg.TimeSent = sent.Time
	msg.CreatedAt = createdAt.Time
	return msg, nil
}
