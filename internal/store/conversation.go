package store

import (
	"database/sql"
	"time"
)

// UpsertConversation inserts or updates a conversation record. The pinned
// flag is local UI state and is deliberately not clobbered by refetches.
func (db *DB) UpsertConversation(c *Conversation) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO conversations (id, counterpart_id, counterpart_name, last_message, last_message_at, unread_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			counterpart_id = excluded.counterpart_id,
			counterpart_name = CASE WHEN excluded.counterpart_name != '' THEN excluded.counterpart_name ELSE conversations.counterpart_name END,
			last_message = excluded.last_message,
			last_message_at = excluded.last_message_at,
			unread_count = excluded.unread_count,
			updated_at = excluded.updated_at`,
		c.ID, c.CounterpartID, c.CounterpartName, c.LastMessage, c.LastMessageAt, c.UnreadCount, now)
	return err
}

// ListConversations returns cached conversations sorted by last message
// timestamp descending.
func (db *DB) ListConversations() ([]Conversation, error) {
	rows, err := db.Query(`
		SELECT id, counterpart_id, counterpart_name, last_message, last_message_at, unread_count, pinned
		FROM conversations
		ORDER BY last_message_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.CounterpartID, &c.CounterpartName, &c.LastMessage, &c.LastMessageAt, &c.UnreadCount, &c.Pinned); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// GetConversation returns a single conversation by id, or nil if absent.
func (db *DB) GetConversation(id string) (*Conversation, error) {
	var c Conversation
	err := db.QueryRow(`
		SELECT id, counterpart_id, counterpart_name, last_message, last_message_at, unread_count, pinned
		FROM conversations WHERE id = ?`, id).
		Scan(&c.ID, &c.CounterpartID, &c.CounterpartName, &c.LastMessage, &c.LastMessageAt, &c.UnreadCount, &c.Pinned)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SetPinned toggles a conversation's pinned flag.
func (db *DB) SetPinned(id string, pinned bool) error {
	_, err := db.Exec(`UPDATE conversations SET pinned = ?, updated_at = ? WHERE id = ?`,
		pinned, time.Now().UnixMilli(), id)
	return err
}

// ClearUnread resets a conversation's unread counter.
func (db *DB) ClearUnread(id string) error {
	_, err := db.Exec(`UPDATE conversations SET unread_count = 0, updated_at = ? WHERE id = ?`,
		time.Now().UnixMilli(), id)
	return err
}
