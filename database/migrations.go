// Package database provides schema migrations for the redfishd database.
package database

import (
	"database/sql"
	"log"
)

// Migrate runs all database migrations to create the schema.
// Creates two tables:
//   - accounts: stores local account credentials for Basic authentication
//   - sessions: stores active Redfish sessions and their tokens
//
// Returns an error if any migration fails.
func Migrate(db *sql.DB) error {
	migrations := []struct {
		name string
		sql  string
	}{
		{
			name: "create_accounts_table",
			sql: `
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'Administrator',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_accounts_username ON accounts(username);
			`,
		},
		{
			name: "create_sessions_table",
			sql: `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    token TEXT NOT NULL UNIQUE,
    username TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token);
			`,
		},
	}

	for _, migration := range migrations {
		log.Printf("Running migration: %s", migration.name)
		if _, err := db.Exec(migration.sql); err != nil {
			log.Printf("Migration failed for %s: %v", migration.name, err)
			return err
		}
		log.Printf("Migration completed: %s", migration.name)
	}

	return nil
}
