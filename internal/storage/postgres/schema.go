package postgres

// Schema is the base PostgreSQL schema for conversation entries. All
// statements use IF NOT EXISTS so the schema is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS entries (
	id             TEXT PRIMARY KEY,
	user_text      TEXT NOT NULL,
	assistant_text TEXT NOT NULL,
	emotion        TEXT NOT NULL DEFAULT '',
	intent         TEXT NOT NULL DEFAULT '',
	slots          JSONB NOT NULL DEFAULT '{}',
	document       TEXT NOT NULL,
	embedding      BYTEA,
	dimension      INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at);
`

// MigrationPgvector adds the native vector column used for indexed similarity
// search. Applied only when the pgvector extension is installed.
const MigrationPgvector = `
ALTER TABLE entries ADD COLUMN IF NOT EXISTS embedding_vec vector;
`
