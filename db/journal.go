// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names registered by the imported database/sql drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const recordedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Receipt is the journal copy of one accepted answer.
// Choice is the option index, or the protected option for protected answers.
type Receipt struct {
	ID         string
	Poll       string
	AK         string
	AnsweredAt string
	Choice     string
	Seal       string
	RecordedAt time.Time
}

// Journal mirrors accepted answers into a SQL database. It serves as a
// witness that outlives the ledger files.
type Journal struct {
	db     *sql.DB
	driver string
}

// DriverFor picks the database/sql driver for a journal URL. An explicit
// dbType wins; otherwise postgres URLs select lib/pq and anything else is
// treated as a SQLite DSN.
func DriverFor(url, dbType string) (string, error) {
	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "postgres", "postgresql":
		return DriverPostgres, nil
	case "":
	default:
		return "", fmt.Errorf("unsupported database type %q", dbType)
	}

	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return DriverPostgres, nil
	}
	return DriverSQLite, nil
}

// Open connects to the journal database and creates the schema.
func Open(ctx context.Context, url, dbType string) (*Journal, error) {
	driver, err := DriverFor(url, dbType)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}

	if driver == DriverSQLite {
		for _, p := range []string{
			"PRAGMA journal_mode=WAL;",
			"PRAGMA synchronous=FULL;",
			"PRAGMA busy_timeout=5000;",
		} {
			if _, err := conn.ExecContext(ctx, p); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("set %s: %w", p, err)
			}
		}
	}

	if err := CreateSchema(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return NewJournal(conn, driver), nil
}

// NewJournal wraps an open connection whose schema already exists.
func NewJournal(conn *sql.DB, driver string) *Journal {
	return &Journal{db: conn, driver: driver}
}

// Close closes the underlying connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores a receipt and returns its id. Recording an anonymous key
// that is already journaled for the poll is not an error; the id of the
// existing receipt is returned.
func (j *Journal) Record(ctx context.Context, poll string, r Receipt) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now()
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing string
	err = tx.QueryRowContext(ctx, j.rebind(`
		SELECT id FROM answer_receipt WHERE poll = ? AND ak = ?
	`), poll, r.AK).Scan(&existing)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("check receipt: %w", err)
	}

	_, err = tx.ExecContext(ctx, j.rebind(`
		INSERT INTO answer_receipt (id, poll, ak, answered_at, choice, seal, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), r.ID, poll, r.AK, r.AnsweredAt, r.Choice, r.Seal, r.RecordedAt.UTC().Format(recordedAtLayout))
	if err != nil {
		return "", fmt.Errorf("insert receipt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit receipt: %w", err)
	}
	return r.ID, nil
}

// RecordedKeys lists every anonymous key journaled for poll.
func (j *Journal) RecordedKeys(ctx context.Context, poll string) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, j.rebind(`
		SELECT ak FROM answer_receipt WHERE poll = ? ORDER BY recorded_at, id
	`), poll)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var ak string
		if err := rows.Scan(&ak); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, ak)
	}
	return keys, rows.Err()
}

// Receipts lists the receipts of poll in the order they were recorded.
func (j *Journal) Receipts(ctx context.Context, poll string) ([]Receipt, error) {
	rows, err := j.db.QueryContext(ctx, j.rebind(`
		SELECT id, poll, ak, answered_at, choice, seal, recorded_at
		FROM answer_receipt
		WHERE poll = ?
		ORDER BY recorded_at, id
	`), poll)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []Receipt
	for rows.Next() {
		var r Receipt
		var recordedAt string
		if err := rows.Scan(&r.ID, &r.Poll, &r.AK, &r.AnsweredAt, &r.Choice, &r.Seal, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		if r.RecordedAt, err = time.Parse(recordedAtLayout, recordedAt); err != nil {
			return nil, fmt.Errorf("receipt %s: bad recorded_at: %w", r.ID, err)
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

// LastSeal returns the seal stored with the newest receipt of poll.
func (j *Journal) LastSeal(ctx context.Context, poll string) (string, bool, error) {
	var seal string
	err := j.db.QueryRowContext(ctx, j.rebind(`
		SELECT seal FROM answer_receipt WHERE poll = ? ORDER BY recorded_at DESC, id DESC LIMIT 1
	`), poll).Scan(&seal)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query last seal: %w", err)
	}
	return seal, true, nil
}

// rebind rewrites '?' placeholders to the '$n' form lib/pq expects.
func (j *Journal) rebind(query string) string {
	if j.driver != DriverPostgres {
		return query
	}

	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
