package db

import (
	"context"
	"fmt"
)

// sqliteUsersDDL mirrors the Postgres users table closely enough for local
// runs and tests. Postgres schemas are managed outside this service.
const sqliteUsersDDL = `
CREATE TABLE IF NOT EXISTS users (
	user_id     INTEGER PRIMARY KEY AUTOINCREMENT,
	user_name   TEXT NOT NULL UNIQUE,
	first_name  TEXT NOT NULL,
	last_name   TEXT NOT NULL,
	email       TEXT NOT NULL UNIQUE,
	user_status TEXT NOT NULL CHECK (user_status IN ('A', 'I', 'T')),
	department  TEXT,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
)`

// EnsureSQLiteSchema creates the users table on an embedded SQLite store.
// It refuses to run against any other dialect.
func (c *Client) EnsureSQLiteSchema(ctx context.Context) error {
	if name := c.conn.Dialector.Name(); name != "sqlite" {
		return fmt.Errorf("schema bootstrap is only supported for sqlite, got %s", name)
	}
	if err := c.conn.WithContext(ctx).Exec(sqliteUsersDDL).Error; err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}
	return nil
}
