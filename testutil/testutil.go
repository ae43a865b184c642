// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielhkuo/sealed-poll/cliparse"
	"github.com/danielhkuo/sealed-poll/db"
	"github.com/danielhkuo/sealed-poll/ledger"
)

// Poll sources as an author writes them: title, body, blank line, options.
const (
	YesNoPoll = "Boat\nShould the club buy a new boat?\n\nYes\nNo\n"
	LunchPoll = "Lunch\nWhere do we eat on Friday?\nPick one.\n\nPizza\nSushi\nTacos\n"
)

// WriteLedger writes a ledger source file into dir and returns its path.
func WriteLedger(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name+ledger.Ext)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write ledger %s: %v", name, err)
	}
	return path
}

// SetupTestRegistry writes the given polls (name -> source) into a temp
// directory and loads them. It returns the registry and the directory.
func SetupTestRegistry(t *testing.T, polls map[string]string) (*ledger.Registry, string) {
	t.Helper()

	dir := t.TempDir()
	for name, content := range polls {
		WriteLedger(t, dir, name, content)
	}

	registry, err := ledger.LoadDir(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Failed to load test polls: %v", err)
	}
	return registry, dir
}

// SetupTestJournal creates an in-memory SQLite journal with the full schema.
func SetupTestJournal(t *testing.T) *db.Journal {
	t.Helper()

	conn, err := sql.Open(db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// every connection to :memory: is a separate database
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db.NewJournal(conn, db.DriverSQLite)
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:    3318,
		PollDir: "polls",
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// IntPtr returns a pointer to n, for optional request fields.
func IntPtr(n int) *int {
	return &n
}
