package sqlite

// Schema is the complete SQLite schema for conversation entries. All
// statements are idempotent so the schema can be re-applied on every open.
const Schema = `
CREATE TABLE IF NOT EXISTS entries (
	id             TEXT PRIMARY KEY,
	user_text      TEXT NOT NULL,
	assistant_text TEXT NOT NULL,
	emotion        TEXT NOT NULL DEFAULT '',
	intent         TEXT NOT NULL DEFAULT '',
	slots          TEXT NOT NULL DEFAULT '{}',
	document       TEXT NOT NULL,
	embedding      BLOB,
	dimension      INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at);
`
