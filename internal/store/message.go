package store

import (
	"fmt"
	"time"
)

// UpsertMessage inserts or updates a message (idempotent on
// conversation_id + msg_id). A live push and a later history refetch of
// the same message collapse into one row.
func (db *DB) UpsertMessage(m *Message) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO messages (conversation_id, msg_id, sender_id, sender_name, body, sent_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id, msg_id) DO UPDATE SET
			sender_name = excluded.sender_name,
			body = excluded.body,
			sent_at = excluded.sent_at`,
		m.ConversationID, m.MsgID, m.SenderID, m.SenderName, m.Body, m.SentAt, now)
	return err
}

// ReplaceMessages swaps a conversation's cached history for a fresh fetch
// in one transaction. Used when an invalidation forces a refetch.
func (db *DB) ReplaceMessages(conversationID string, msgs []Message) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	now := time.Now().UnixMilli()
	for _, m := range msgs {
		if _, err := tx.Exec(`
			INSERT INTO messages (conversation_id, msg_id, sender_id, sender_name, body, sent_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			conversationID, m.MsgID, m.SenderID, m.SenderName, m.Body, m.SentAt, now); err != nil {
			return fmt.Errorf("insert message %q: %w", m.MsgID, err)
		}
	}
	return tx.Commit()
}

// ListMessages returns a conversation's cached messages oldest-first,
// matching the REST history order the reconciler expects.
func (db *DB) ListMessages(conversationID string) ([]Message, error) {
	rows, err := db.Query(`
		SELECT id, conversation_id, msg_id, sender_id, sender_name, body, sent_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY sent_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.MsgID, &m.SenderID, &m.SenderName, &m.Body, &m.SentAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MessageCount returns the total number of cached messages.
func (db *DB) MessageCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}
