package storage

import (
	"context"
	"fmt"
	"slices"

	"hackmate/model"

	"github.com/google/uuid"
)

// DefaultTranscriptLimit bounds how many messages a reload returns.
const DefaultTranscriptLimit = 100

// AppendMessage persists one transcript message for ownerID. A missing ID or
// timestamp is filled in; the stored message is returned.
func (s *Store) AppendMessage(ctx context.Context, ownerID int64, msg model.Message) (model.Message, error) {
	if msg.Role != model.RoleUser && msg.Role != model.RoleAssistant {
		return model.Message{}, fmt.Errorf("invalid message role %q", msg.Role)
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, owner_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET content = excluded.content
		  WHERE chat_messages.owner_id = excluded.owner_id`,
		msg.ID, ownerID, msg.Role, msg.Content, msg.CreatedAt.UnixMilli())
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to save message: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.Message{}, fmt.Errorf("message %s: %w", msg.ID, ErrAlreadyExists)
	}
	msg.CreatedAt = fromStamp(msg.CreatedAt.UnixMilli())
	return msg, nil
}

// RecentMessages returns the newest limit messages for ownerID in
// chronological order.
func (s *Store) RecentMessages(ctx context.Context, ownerID int64, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > DefaultTranscriptLimit {
		limit = DefaultTranscriptLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, created_at FROM chat_messages
		  WHERE owner_id = ?
		  ORDER BY created_at DESC, rowid DESC
		  LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		var created int64
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		m.CreatedAt = fromStamp(created)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	slices.Reverse(msgs)
	return msgs, nil
}
