package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnsureConversation creates the conversation row if it does not exist
// yet, or verifies ownership if it does.
func (s *Store) EnsureConversation(ctx context.Context, userID, conversationID string) error {
	var owner string
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id FROM conversations WHERE id = ?", conversationID).Scan(&owner)
	if err == sql.ErrNoRows {
		now := time.Now().UTC()
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO conversations (id, user_id, created_at, updated_at)
			VALUES (?, ?, ?, ?)`, conversationID, userID, now, now)
		if err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		return nil
	}
	if err != nil {
		return err
	}
	if owner != userID {
		return ErrNotFound
	}
	return nil
}

// AddMessage appends a message to the conversation. metadata is an opaque
// JSON string; pass "" for none.
func (s *Store) AddMessage(ctx context.Context, userID, conversationID, role, content, metadata string) (*ChatMessage, error) {
	if err := s.EnsureConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	msg := &ChatMessage{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Metadata:       metadata,
		CreatedAt:      time.Now().UTC(),
	}
	var meta any
	if metadata != "" {
		meta = metadata
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, conversation_id, user_id, role, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, userID, msg.Role, msg.Content, meta, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE conversations SET updated_at = ? WHERE id = ?", msg.CreatedAt, conversationID)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// RecentMessages returns up to limit of the most recent messages in the
// conversation, oldest first.
func (s *Store) RecentMessages(ctx context.Context, userID, conversationID string, limit int) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, COALESCE(metadata, ''), created_at
		FROM chat_messages
		WHERE user_id = ? AND conversation_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, userID, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Flip into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// OldestMessages returns up to limit of the earliest messages in the
// conversation, oldest first.
func (s *Store) OldestMessages(ctx context.Context, userID, conversationID string, limit int) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, COALESCE(metadata, ''), created_at
		FROM chat_messages
		WHERE user_id = ? AND conversation_id = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?`, userID, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("oldest messages: %w", err)
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountMessages returns how many messages the conversation holds.
func (s *Store) CountMessages(ctx context.Context, userID, conversationID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chat_messages
		WHERE user_id = ? AND conversation_id = ?`, userID, conversationID).Scan(&n)
	return n, err
}

// GetSummary returns the conversation's rolling summary, or "" if none
// has been written yet.
func (s *Store) GetSummary(ctx context.Context, userID, conversationID string) (string, error) {
	var summary sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT summary FROM conversations WHERE id = ? AND user_id = ?",
		conversationID, userID).Scan(&summary)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return summary.String, nil
}

// SetSummary replaces the conversation's rolling summary.
func (s *Store) SetSummary(ctx context.Context, userID, conversationID, summary string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET summary = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		summary, time.Now().UTC(), conversationID, userID)
	if err != nil {
		return fmt.Errorf("set summary: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
