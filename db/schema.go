// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the journal.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// The schema sticks to types and syntax shared by SQLite and PostgreSQL.
// Timestamps are stored as fixed-width text so they sort lexically.
const schema = `
-- Answer receipts, one per anonymous key and poll
CREATE TABLE IF NOT EXISTS answer_receipt (
    id TEXT PRIMARY KEY,
    poll TEXT NOT NULL,
    ak TEXT NOT NULL,
    answered_at TEXT NOT NULL,
    choice TEXT NOT NULL,
    seal TEXT NOT NULL,
    recorded_at TEXT NOT NULL,
    UNIQUE (poll, ak)
);

CREATE INDEX IF NOT EXISTS idx_answer_receipt_poll ON answer_receipt(poll, recorded_at);
`
