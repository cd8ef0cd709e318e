package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"roomchat/internal/app/history"
)

const (
	// ArchivePrefix is the key prefix of every chat archive.
	ArchivePrefix = "chats/"

	// ArchiveLinkDuration is the lifetime of a presigned archive download link.
	ArchiveLinkDuration = 15 * time.Minute
)

// Archive is the JSON document written for each history export.
type Archive struct {
	ExportedAt time.Time               `json:"exportedAt"`
	Count      int                     `json:"count"`
	Messages   []history.StoredMessage `json:"messages"`
}

// NewArchiveKey returns a fresh object key for an export taken at now.
func NewArchiveKey(now time.Time) string {
	return fmt.Sprintf("%s%d-%s.json", ArchivePrefix, now.Unix(), uuid.NewString())
}

// IsArchiveKey reports whether key names a chat archive.
func IsArchiveKey(key string) bool {
	return strings.HasPrefix(key, ArchivePrefix) &&
		strings.HasSuffix(key, ".json") &&
		!strings.Contains(key, "..")
}

// ArchiveMessages uploads messages as a single JSON document and returns its key.
func ArchiveMessages(ctx context.Context, svc StorageService, messages []history.StoredMessage) (string, error) {
	now := time.Now().UTC()

	if messages == nil {
		messages = []history.StoredMessage{}
	}

	body, err := json.Marshal(Archive{
		ExportedAt: now,
		Count:      len(messages),
		Messages:   messages,
	})
	if err != nil {
		return "", fmt.Errorf("encode archive: %w", err)
	}

	key := NewArchiveKey(now)
	if err := svc.Upload(ctx, key, "application/json", bytes.NewReader(body)); err != nil {
		return "", err
	}

	return key, nil
}
