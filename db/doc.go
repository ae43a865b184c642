// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db keeps the seal journal, a SQL mirror of accepted answers.

# Journal

Every new answer accepted by a ledger is recorded as a receipt:

	j, err := db.Open(ctx, "journal.db", "")
	id, err := j.Record(ctx, "boat", db.Receipt{AK: ak, AnsweredAt: ts, Choice: "0", Seal: seal})

The journal lives outside the ledger files. At startup it is passed to
ledger.LoadDir as a witness: a ledger file that no longer contains a
journaled anonymous key has been rolled back or replaced.

# Drivers

SQLite (modernc.org/sqlite, pure Go) is the default. URLs starting with
postgres:// use github.com/lib/pq. Queries are written with '?' placeholders
and rewritten for PostgreSQL.

# Schema Creation

CreateSchema is safe to call multiple times - uses IF NOT EXISTS.

	answer_receipt(id, poll, ak, answered_at, choice, seal, recorded_at)

(poll, ak) is unique, matching the one-answer-per-key rule of the ledger.
*/
package db
