package store

import (
	"database/sql"
	"fmt"
	"time"
)

// BulkUpsertContacts replaces contact records in a single transaction.
func (db *DB) BulkUpsertContacts(contacts []Contact) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, c := range contacts {
		if _, err := tx.Exec(`
			INSERT INTO contacts (user_id, email, full_name, contact_type, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				email = excluded.email,
				full_name = CASE WHEN excluded.full_name != '' THEN excluded.full_name ELSE contacts.full_name END,
				contact_type = excluded.contact_type,
				updated_at = excluded.updated_at`,
			c.UserID, c.Email, c.FullName, c.ContactType, now); err != nil {
			return fmt.Errorf("upsert contact %q: %w", c.UserID, err)
		}
	}
	return tx.Commit()
}

// GetContact returns a contact by user id, or nil if absent.
func (db *DB) GetContact(userID string) (*Contact, error) {
	var c Contact
	err := db.QueryRow(`SELECT user_id, email, full_name, contact_type FROM contacts WHERE user_id = ?`, userID).
		Scan(&c.UserID, &c.Email, &c.FullName, &c.ContactType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListContacts returns all cached contacts.
func (db *DB) ListContacts() ([]Contact, error) {
	rows, err := db.Query(`SELECT user_id, email, full_name, contact_type FROM contacts ORDER BY full_name ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.UserID, &c.Email, &c.FullName, &c.ContactType); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}
