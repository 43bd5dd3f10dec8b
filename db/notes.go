// ABOUTME: Comment and attachment storage for records
// ABOUTME: Attachments keep their bytes so the stub can serve them back
package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// CommentRow is one stored note.
type CommentRow struct {
	ID        string
	RecordID  string
	Author    string
	Body      string
	CreatedAt time.Time
}

// AttachmentRow is one stored file reference.
type AttachmentRow struct {
	ID          string
	RecordID    string
	URL         string
	FileName    string
	ContentType string
	CreatedAt   time.Time
}

// NewFile is an upload to attach to a record.
type NewFile struct {
	Name        string
	ContentType string
	Data        []byte
}

func AddComment(db *sql.DB, recordID, author, body string) (*CommentRow, error) {
	c := &CommentRow{
		ID:        uuid.New().String(),
		RecordID:  recordID,
		Author:    author,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.Exec(`
		INSERT INTO comments (id, record_id, author, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.RecordID, c.Author, c.Body, c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Comments returns the thread of recordID, oldest first.
func Comments(db *sql.DB, recordID string) ([]CommentRow, error) {
	rows, err := db.Query(`
		SELECT id, record_id, author, body, created_at
		FROM comments WHERE record_id = ?
		ORDER BY created_at, rowid
	`, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CommentRow
	for rows.Next() {
		var c CommentRow
		if err := rows.Scan(&c.ID, &c.RecordID, &c.Author, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Attachments lists the files of recordID in upload order.
func Attachments(db *sql.DB, recordID string) ([]AttachmentRow, error) {
	rows, err := db.Query(`
		SELECT id, record_id, url, file_name, content_type, created_at
		FROM attachments WHERE record_id = ?
		ORDER BY created_at, rowid
	`, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttachmentRow
	for rows.Next() {
		var a AttachmentRow
		if err := rows.Scan(&a.ID, &a.RecordID, &a.URL, &a.FileName, &a.ContentType, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SyncAttachments makes the attachment list of recordID equal to keep (the
// URLs of existing attachments still wanted) plus added. urlFor builds the
// URL of a new attachment from its id and file name.
func SyncAttachments(db *sql.DB, recordID string, keep []string, added []NewFile, urlFor func(id, name string) string) error {
	current, err := Attachments(db, recordID)
	if err != nil {
		return err
	}
	wanted := make(map[string]bool, len(keep))
	for _, u := range keep {
		wanted[u] = true
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, a := range current {
		if wanted[a.URL] {
			continue
		}
		if _, err := tx.Exec(`DELETE FROM attachments WHERE id = ?`, a.ID); err != nil {
			return err
		}
	}
	for _, f := range added {
		id := uuid.New().String()
		if _, err := tx.Exec(`
			INSERT INTO attachments (id, record_id, url, file_name, content_type, data, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, recordID, urlFor(id, f.Name), f.Name, f.ContentType, f.Data, time.Now().UTC()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AttachmentFile returns the stored bytes of one attachment.
func AttachmentFile(db *sql.DB, id string) (*AttachmentRow, []byte, error) {
	var a AttachmentRow
	var data []byte
	err := db.QueryRow(`
		SELECT id, record_id, url, file_name, content_type, created_at, data
		FROM attachments WHERE id = ?
	`, id).Scan(&a.ID, &a.RecordID, &a.URL, &a.FileName, &a.ContentType, &a.CreatedAt, &data)
	if err == sql.ErrNoRows {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return &a, data, nil
}
