// ABOUTME: Database schema for the local stub API
// ABOUTME: Users, orgs, tokens, records, lookups, comments and attachments
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	job_title TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	address_line TEXT NOT NULL DEFAULT '',
	street TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL DEFAULT '',
	postcode TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS orgs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS memberships (
	user_id TEXT NOT NULL,
	org_id TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'USER' CHECK(role IN ('ADMIN', 'USER')),
	PRIMARY KEY (user_id, org_id),
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
	FOREIGN KEY (org_id) REFERENCES orgs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS tokens (
	token TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	data TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (org_id) REFERENCES orgs(id)
);

CREATE INDEX IF NOT EXISTS idx_records_org_kind ON records(org_id, kind);

CREATE TABLE IF NOT EXISTS lookups (
	collection TEXT NOT NULL,
	code TEXT NOT NULL,
	label TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (collection, code)
);

CREATE TABLE IF NOT EXISTS comments (
	id TEXT PRIMARY KEY,
	record_id TEXT NOT NULL,
	author TEXT NOT NULL,
	body TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (record_id) REFERENCES records(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_comments_record ON comments(record_id, created_at);

CREATE TABLE IF NOT EXISTS attachments (
	id TEXT PRIMARY KEY,
	record_id TEXT NOT NULL,
	url TEXT NOT NULL,
	file_name TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT 'application/octet-stream',
	data BLOB,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (record_id) REFERENCES records(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_attachments_record ON attachments(record_id);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
