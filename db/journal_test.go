// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()

	conn, err := sql.Open(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// every connection to :memory: is a separate database
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	if err := CreateSchema(conn); err != nil {
		t.Fatal(err)
	}
	return NewJournal(conn, DriverSQLite)
}

func TestCreateSchemaIdempotent(t *testing.T) {
	j := newTestJournal(t)
	if err := CreateSchema(j.db); err != nil {
		t.Errorf("second CreateSchema() error = %v", err)
	}
}

func TestJournalRecord(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(t)
	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	receipts := []Receipt{
		{AK: "ak-alice", AnsweredAt: "2025-05-01T10:00:01.000+02:00", Choice: "0", Seal: "seal-1", RecordedAt: base},
		{AK: "ak-bob", AnsweredAt: "2025-05-01T10:00:02.000+02:00", Choice: "po-bob", Seal: "seal-2", RecordedAt: base.Add(time.Second)},
	}

	ids := make([]string, len(receipts))
	for ix, r := range receipts {
		id, err := j.Record(ctx, "boat", r)
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if id == "" {
			t.Fatal("Record() returned an empty id")
		}
		ids[ix] = id
	}

	// A repeat of a journaled key keeps the first receipt
	again, err := j.Record(ctx, "boat", Receipt{AK: "ak-alice", Choice: "1", Seal: "seal-3"})
	if err != nil {
		t.Fatalf("Record() of a repeat error = %v", err)
	}
	if again != ids[0] {
		t.Errorf("repeat Record() id = %s, want %s", again, ids[0])
	}

	// Same key on another poll is a separate receipt
	if _, err := j.Record(ctx, "lunch", Receipt{AK: "ak-alice", Choice: "2", Seal: "seal-x"}); err != nil {
		t.Fatal(err)
	}

	got, err := j.Receipts(ctx, "boat")
	if err != nil {
		t.Fatalf("Receipts() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Receipts() returned %d receipts, want 2", len(got))
	}
	for ix, r := range got {
		want := receipts[ix]
		if r.ID != ids[ix] || r.Poll != "boat" || r.AK != want.AK || r.Choice != want.Choice ||
			r.AnsweredAt != want.AnsweredAt || r.Seal != want.Seal || !r.RecordedAt.Equal(want.RecordedAt) {
			t.Errorf("receipt %d = %+v, want %+v", ix, r, want)
		}
	}

	keys, err := j.RecordedKeys(ctx, "boat")
	if err != nil {
		t.Fatalf("RecordedKeys() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != "ak-alice" || keys[1] != "ak-bob" {
		t.Errorf("RecordedKeys() = %v", keys)
	}

	seal, ok, err := j.LastSeal(ctx, "boat")
	if err != nil || !ok || seal != "seal-2" {
		t.Errorf("LastSeal() = %q, %v, %v; want seal-2", seal, ok, err)
	}
}

func TestJournalEmptyPoll(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(t)

	keys, err := j.RecordedKeys(ctx, "nothing")
	if err != nil || len(keys) != 0 {
		t.Errorf("RecordedKeys() = %v, %v", keys, err)
	}
	if _, ok, err := j.LastSeal(ctx, "nothing"); ok || err != nil {
		t.Errorf("LastSeal() ok = %v, err = %v", ok, err)
	}
}

func TestOpenFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(ctx, path, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := j.Record(ctx, "boat", Receipt{AK: "ak", Choice: "0", Seal: "s"}); err != nil {
		t.Fatal(err)
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}

	// Receipts survive a reopen
	j, err = Open(ctx, path, "sqlite")
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	keys, err := j.RecordedKeys(ctx, "boat")
	if err != nil || len(keys) != 1 {
		t.Errorf("RecordedKeys() after reopen = %v, %v", keys, err)
	}
}

func TestDriverFor(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		dbType  string
		want    string
		wantErr bool
	}{
		{"sqlite file", "journal.db", "", DriverSQLite, false},
		{"postgres url", "postgres://u:p@localhost/db", "", DriverPostgres, false},
		{"postgresql url", "postgresql://localhost/db", "", DriverPostgres, false},
		{"explicit type wins", "journal.db", "postgres", DriverPostgres, false},
		{"explicit sqlite", "postgres://x", "sqlite", DriverSQLite, false},
		{"unknown type", "journal.db", "mysql", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DriverFor(tt.url, tt.dbType)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DriverFor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DriverFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRebind(t *testing.T) {
	query := "SELECT a FROM t WHERE x = ? AND y = ?"

	pg := NewJournal(nil, DriverPostgres)
	if got := pg.rebind(query); got != "SELECT a FROM t WHERE x = $1 AND y = $2" {
		t.Errorf("rebind() for postgres = %q", got)
	}

	lite := NewJournal(nil, DriverSQLite)
	if got := lite.rebind(query); got != query {
		t.Errorf("rebind() for sqlite = %q", got)
	}
}
