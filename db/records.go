// ABOUTME: Entity record storage for the stub API
// ABOUTME: Records are JSON documents scoped by organization and kind
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateRecord stores data as a new record and returns its id. The id is
// also written into the document.
func CreateRecord(db *sql.DB, orgID, kind string, data map[string]any) (string, error) {
	id := uuid.New().String()
	doc := make(map[string]any, len(data)+1)
	for k, v := range data {
		doc[k] = v
	}
	doc["id"] = id

	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	now := time.Now().UTC()
	_, err = db.Exec(`
		INSERT INTO records (id, org_id, kind, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, orgID, kind, string(raw), now, now)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetRecord returns the document of one record.
func GetRecord(db *sql.DB, orgID, kind, id string) (map[string]any, error) {
	var raw string
	err := db.QueryRow(`
		SELECT data FROM records WHERE id = ? AND org_id = ? AND kind = ?
	`, id, orgID, kind).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeDoc(raw)
}

// ListRecords returns every record of kind in orgID, newest first.
func ListRecords(db *sql.DB, orgID, kind string) ([]map[string]any, error) {
	rows, err := db.Query(`
		SELECT data FROM records WHERE org_id = ? AND kind = ?
		ORDER BY created_at DESC
	`, orgID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		doc, err := decodeDoc(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// UpdateRecord merges values into the stored document. The id cannot change.
func UpdateRecord(db *sql.DB, orgID, kind, id string, values map[string]any) error {
	doc, err := GetRecord(db, orgID, kind, id)
	if err != nil {
		return err
	}
	for k, v := range values {
		if k == "id" {
			continue
		}
		doc[k] = v
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err = db.Exec(`
		UPDATE records SET data = ?, updated_at = ? WHERE id = ? AND org_id = ? AND kind = ?
	`, string(raw), time.Now().UTC(), id, orgID, kind)
	return err
}

func decodeDoc(raw string) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return doc, nil
}
