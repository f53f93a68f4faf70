package sqlite

import "database/sql"

// schema sets up the accounts table. It runs on startup and is idempotent.
// Each profile section and the stats block is a JSON document in its own
// column so a section write touches exactly one column.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    principal BLOB PRIMARY KEY,
    created_at INTEGER NOT NULL,
    personal TEXT NOT NULL DEFAULT '{}',
    social TEXT NOT NULL DEFAULT '{}',
    job TEXT NOT NULL DEFAULT '{}',
    stats TEXT NOT NULL
);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
